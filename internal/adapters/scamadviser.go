package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sentinel/pkg/models"
)

const scamAdviserSource = "ScamAdviser"

// ScamAdviserConfig configures the ScamAdviser adapter.
type ScamAdviserConfig struct {
	APIKey  string
	URL     string // base URL, default is the v2 trust endpoint
	Timeout time.Duration
}

// ScamAdviserAdapter queries ScamAdviser for the domain's trust score and
// bands it into a severity.
type ScamAdviserAdapter struct {
	apiKey string
	url    string
	client *http.Client
}

// NewScamAdviserAdapter creates the ScamAdviser adapter.
func NewScamAdviserAdapter(cfg ScamAdviserConfig) *ScamAdviserAdapter {
	if cfg.URL == "" {
		cfg.URL = "https://api.scamadviser.com/v2/trust"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &ScamAdviserAdapter{
		apiKey: cfg.APIKey,
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the registry key.
func (a *ScamAdviserAdapter) Name() string { return "scamadviser" }

type scamAdviserResponse struct {
	TrustScore *int     `json:"trustScore"`
	Risk       string   `json:"risk"`
	Categories []string `json:"categories"`
}

// Run fetches the domain's ScamAdviser trust score.
func (a *ScamAdviserAdapter) Run(ctx context.Context, subject Subject) []models.EvidenceCard {
	if a.apiKey == "" {
		return []models.EvidenceCard{SkippedCard(
			"ScamAdviser check skipped",
			"ScamAdviser API key not configured",
			scamAdviserSource,
		)}
	}
	if subject.Domain == "" {
		return []models.EvidenceCard{SkippedCard(
			"ScamAdviser check skipped",
			"subject is not a URL",
			scamAdviserSource,
		)}
	}

	u := fmt.Sprintf("%s/%s?apikey=%s", a.url, subject.Domain, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return []models.EvidenceCard{FailedCard("ScamAdviser check failed", err, scamAdviserSource)}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return []models.EvidenceCard{FailedCard("ScamAdviser check failed", err, scamAdviserSource)}
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return []models.EvidenceCard{FailedCard("ScamAdviser check failed",
			fmt.Errorf("scamadviser API returned %s", resp.Status), scamAdviserSource)}
	}

	var parsed scamAdviserResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 256<<10)).Decode(&parsed); err != nil {
		return []models.EvidenceCard{FailedCard("ScamAdviser check failed", err, scamAdviserSource)}
	}

	if parsed.TrustScore == nil {
		card := models.NewCard(models.KindScamReport, models.SeverityInfo,
			"ScamAdviser has no data for this domain",
			fmt.Sprintf("No trust record for %s", subject.Domain),
			scamAdviserSource, 0.3)
		card.Metadata = map[string]interface{}{"domain": subject.Domain}
		return []models.EvidenceCard{card}
	}

	trust := *parsed.TrustScore
	var severity, band string
	switch {
	case trust <= 20:
		severity = models.SeverityCritical
		band = "Very Low"
	case trust <= 50:
		severity = models.SeverityWarning
		band = "Low"
	case trust <= 75:
		severity = models.SeverityInfo
		band = "Medium"
	default:
		severity = models.SeveritySafe
		band = "High"
	}

	details := []string{fmt.Sprintf("Trust Score: %d/100", trust)}
	if parsed.Risk != "" {
		details = append(details, "Risk: "+parsed.Risk)
	}
	if len(parsed.Categories) > 0 {
		details = append(details, "Categories: "+strings.Join(parsed.Categories, ", "))
	}

	card := models.NewCard(models.KindScamReport, severity,
		fmt.Sprintf("ScamAdviser trust score: %d/100 (%s)", trust, band),
		strings.Join(details, " | "),
		scamAdviserSource, 0.85)
	card.Metadata = map[string]interface{}{
		"domain":     subject.Domain,
		"trustScore": trust,
		"risk":       parsed.Risk,
	}
	return []models.EvidenceCard{card}
}
