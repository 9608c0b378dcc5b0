package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"sentinel/pkg/models"
)

const priceSearchSource = "Price Search"

// PriceSearchConfig configures the shopping search adapter.
type PriceSearchConfig struct {
	APIKey  string
	URL     string // SerpAPI-compatible endpoint, override for tests
	Timeout time.Duration
}

// PriceSearchAdapter searches a Google-Shopping-style API for products
// matching the subject. For the investigation flow it emits price cards;
// the shopping flow consumes raw products through SearchProducts.
type PriceSearchAdapter struct {
	apiKey string
	url    string
	client *http.Client
}

// NewPriceSearchAdapter creates the price search adapter.
func NewPriceSearchAdapter(cfg PriceSearchConfig) *PriceSearchAdapter {
	if cfg.URL == "" {
		cfg.URL = "https://serpapi.com/search.json"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	return &PriceSearchAdapter{
		apiKey: cfg.APIKey,
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the registry key.
func (a *PriceSearchAdapter) Name() string { return "price_search" }

type serpShoppingResponse struct {
	ShoppingResults []serpShoppingResult `json:"shopping_results"`
}

type serpShoppingResult struct {
	Title          string  `json:"title"`
	ExtractedPrice float64 `json:"extracted_price"`
	Currency       string  `json:"currency"`
	Source         string  `json:"source"`
	Link           string  `json:"link"`
	Thumbnail      string  `json:"thumbnail"`
	Rating         float64 `json:"rating"`
	Reviews        int     `json:"reviews"`
	Snippet        string  `json:"snippet"`
	InStock        *bool   `json:"in_stock"`
}

// Run searches for the subject's product and emits one price card per
// result.
func (a *PriceSearchAdapter) Run(ctx context.Context, subject Subject) []models.EvidenceCard {
	if a.apiKey == "" {
		return []models.EvidenceCard{SkippedCard(
			"Price search skipped",
			"price search API key not configured",
			priceSearchSource,
		)}
	}

	products, err := a.SearchProducts(ctx, []string{QueryFor(subject)})
	if err != nil {
		return []models.EvidenceCard{FailedCard("Price search failed", err, priceSearchSource)}
	}
	if len(products) == 0 {
		card := models.NewCard(models.KindPrice, models.SeverityInfo,
			"No price matches found",
			fmt.Sprintf("No retailers returned matches for %q.", QueryFor(subject)),
			priceSearchSource, 0.4)
		return []models.EvidenceCard{card}
	}

	cards := make([]models.EvidenceCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, PriceCard(p))
	}
	return cards
}

// SearchProducts runs each query against the shopping API and returns
// deduplicated products in response order.
func (a *PriceSearchAdapter) SearchProducts(ctx context.Context, queries []string) ([]models.Product, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("price search API key not configured")
	}

	seen := make(map[string]bool)
	var out []models.Product
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		results, err := a.search(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			p := productFrom(r)
			key := p.Domain + "|" + p.Title
			if p.Title == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (a *PriceSearchAdapter) search(ctx context.Context, query string) ([]serpShoppingResult, error) {
	u := fmt.Sprintf("%s?engine=google_shopping&q=%s&api_key=%s", a.url, url.QueryEscape(query), a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("shopping API returned %s", resp.Status)
	}

	var parsed serpShoppingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 2<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode shopping response: %w", err)
	}
	return parsed.ShoppingResults, nil
}

func productFrom(r serpShoppingResult) models.Product {
	currency := r.Currency
	if currency == "" {
		currency = "USD"
	}
	inStock := true
	if r.InStock != nil {
		inStock = *r.InStock
	}
	return models.Product{
		ID:          uuid.NewString(),
		Title:       r.Title,
		Price:       r.ExtractedPrice,
		Currency:    currency,
		Retailer:    r.Source,
		Domain:      domainOf(r.Link),
		URL:         r.Link,
		ImageURL:    r.Thumbnail,
		Rating:      r.Rating,
		ReviewCount: r.Reviews,
		InStock:     inStock,
		Snippet:     r.Snippet,
	}
}

// PriceCard converts a product into the evidence-card representation used
// by the investigation and compare flows.
func PriceCard(p models.Product) models.EvidenceCard {
	card := models.NewCard(models.KindPrice, models.SeveritySafe,
		fmt.Sprintf("%s: %.2f %s at %s", p.Title, p.Price, p.Currency, p.Retailer),
		p.Snippet, priceSearchSource, 0.8)
	card.Metadata = map[string]interface{}{
		"retailer": p.Retailer,
		"price":    p.Price,
		"currency": p.Currency,
		"url":      p.URL,
		"inStock":  p.InStock,
	}
	return card
}

// QueryFor derives the shopping query from a subject: plain text as-is,
// URLs reduced to their path words.
func QueryFor(subject Subject) string {
	if subject.URL == nil {
		return subject.Raw
	}
	path := strings.Trim(subject.URL.Path, "/")
	if path == "" {
		return subject.Domain
	}
	segment := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		segment = path[idx+1:]
	}
	words := strings.FieldsFunc(segment, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == '+'
	})
	return strings.Join(words, " ")
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
