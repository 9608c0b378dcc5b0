package engine

import (
	"context"
	"fmt"
	"strings"

	"sentinel/internal/adapters"
	"sentinel/internal/collector"
	"sentinel/internal/metrics"
	"sentinel/internal/score"
	"sentinel/internal/stream"
	"sentinel/pkg/models"
)

// ShopRequest is the input to a shopping flow. Exactly one of Query, URL
// or SearchQueries drives the search; Image is accepted but needs an
// accompanying query since image analysis runs in an external
// collaborator.
type ShopRequest struct {
	Query         string   `json:"query,omitempty"`
	Image         string   `json:"image,omitempty"`
	URL           string   `json:"url,omitempty"`
	SearchQueries []string `json:"searchQueries,omitempty"`
}

// Queries resolves the request into the search query list.
func (r ShopRequest) Queries() []string {
	if len(r.SearchQueries) > 0 {
		return r.SearchQueries
	}
	if q := strings.TrimSpace(r.Query); q != "" {
		return []string{q}
	}
	if r.URL != "" {
		return []string{adapters.QueryFor(adapters.NewSubject(r.URL))}
	}
	return nil
}

// Shop searches for products matching the request, fraud-checks every
// result and streams verdicts, the best pick and a terminal done event.
func (e *Engine) Shop(ctx context.Context, req ShopRequest, pub *stream.Publisher) {
	if e.deps.Searcher == nil {
		pub.PublishError("product search is not configured")
		metrics.InvestigationsTotal.WithLabelValues("shop", metrics.OutcomeError).Inc()
		return
	}

	queries := req.Queries()
	if len(queries) == 0 {
		pub.PublishError("nothing to search: provide a query, a URL or search queries")
		metrics.InvestigationsTotal.WithLabelValues("shop", metrics.OutcomeError).Inc()
		return
	}

	pub.Publish(models.EventNarration, models.NarrationPayload{
		Text: fmt.Sprintf("Searching retailers for %q", queries[0]),
	})

	products, err := e.deps.Searcher.SearchProducts(ctx, queries)
	if err != nil {
		pub.PublishError(fmt.Sprintf("product search failed: %v", err))
		metrics.InvestigationsTotal.WithLabelValues("shop", metrics.OutcomeError).Inc()
		return
	}
	if len(products) == 0 {
		pub.Publish(models.EventDone, models.DonePayload{Summary: "No products found"})
		metrics.InvestigationsTotal.WithLabelValues("shop", metrics.OutcomeDone).Inc()
		return
	}

	for _, p := range products {
		pub.Publish(models.EventProduct, p)
	}
	pub.Publish(models.EventAllProducts, models.AllProductsPayload{Count: len(products)})
	pub.Publish(models.EventNarration, models.NarrationPayload{
		Text: fmt.Sprintf("Reviewing %d products for fraud signals", len(products)),
	})

	checks := e.productChecks()
	accum := make(map[string][]models.FraudCheck, len(products))
	var verdicts []models.ProductVerdict

	// The emit callback runs under the check runner's lock, so the
	// accumulator needs no synchronization of its own. A product's
	// verdict streams as soon as its last check lands.
	e.deps.Collector.CheckProducts(ctx, products, checks, func(p models.Product, fc models.FraudCheck) {
		pub.Publish(models.EventFraudCheck, models.FraudCheckPayload{ProductID: p.ID, Check: fc})

		accum[p.ID] = append(accum[p.ID], fc)
		if len(accum[p.ID]) < len(checks) {
			return
		}

		trust := score.TrustFromChecks(accum[p.ID])
		verdict := score.ProductVerdict(accum[p.ID], trust, e.deps.Thresholds)
		pub.Publish(models.EventVerdict, models.VerdictPayload{
			ProductID:  p.ID,
			Verdict:    verdict,
			TrustScore: trust,
		})
		metrics.Verdicts.WithLabelValues(string(verdict)).Inc()

		verdicts = append(verdicts, models.ProductVerdict{
			Product:    p,
			Checks:     accum[p.ID],
			Verdict:    verdict,
			TrustScore: trust,
		})
	})

	trusted, flagged := 0, 0
	for _, v := range verdicts {
		switch v.Verdict {
		case models.VerdictTrusted:
			trusted++
		case models.VerdictDanger:
			flagged++
		}
	}

	if bestID, savings, ok := score.BestPick(verdicts); ok {
		pub.Publish(models.EventBestPick, models.BestPickPayload{ProductID: bestID, Savings: savings})
	}

	pub.Publish(models.EventDone, models.DonePayload{
		Summary:       fmt.Sprintf("Reviewed %d products: %d trusted, %d flagged", len(verdicts), trusted, flagged),
		TotalProducts: len(verdicts),
		TrustedCount:  trusted,
		FlaggedCount:  flagged,
	})
	metrics.InvestigationsTotal.WithLabelValues("shop", metrics.OutcomeDone).Inc()
}

// Compare price-checks a product URL across retailers: one price card
// per offer plus a savings card connected to all of them.
func (e *Engine) Compare(ctx context.Context, subject adapters.Subject, pub *stream.Publisher) {
	if e.deps.Searcher == nil {
		pub.PublishError("product search is not configured")
		metrics.InvestigationsTotal.WithLabelValues("compare", metrics.OutcomeError).Inc()
		return
	}

	query := adapters.QueryFor(subject)
	pub.Publish(models.EventNarration, models.NarrationPayload{
		Text: fmt.Sprintf("Comparing prices for %q", query),
	})

	products, err := e.deps.Searcher.SearchProducts(ctx, []string{query})
	if err != nil {
		pub.PublishError(fmt.Sprintf("price comparison failed: %v", err))
		metrics.InvestigationsTotal.WithLabelValues("compare", metrics.OutcomeError).Inc()
		return
	}
	if len(products) == 0 {
		pub.Publish(models.EventDone, models.DonePayload{Summary: "No comparable offers found"})
		metrics.InvestigationsTotal.WithLabelValues("compare", metrics.OutcomeDone).Inc()
		return
	}

	cards := make([]models.EvidenceCard, 0, len(products))
	for _, p := range products {
		card := adapters.PriceCard(p)
		cards = append(cards, card)
		pub.Publish(models.EventCard, card)
	}

	best, sum := products[0], 0.0
	for _, p := range products {
		sum += p.Price
		if p.Price > 0 && (best.Price <= 0 || p.Price < best.Price) {
			best = p
		}
	}
	avg := sum / float64(len(products))

	savings := models.NewCard(models.KindAlternative, models.SeveritySafe,
		fmt.Sprintf("Best offer: %.2f %s at %s", best.Price, best.Currency, best.Retailer),
		fmt.Sprintf("Average offer across %d retailers is %.2f %s.", len(products), avg, best.Currency),
		"Price Search", 0.8)
	for _, c := range cards {
		savings.Connections = append(savings.Connections, models.Connection{To: c.ID, Label: "compared against"})
	}
	pub.Publish(models.EventCard, savings)
	for _, conn := range savings.Connections {
		pub.Publish(models.EventConnection, models.ConnectionPayload{
			From:  savings.ID,
			To:    conn.To,
			Label: conn.Label,
		})
	}

	pub.Publish(models.EventDone, models.DonePayload{
		Summary:       fmt.Sprintf("Compared %d offers, best price %.2f %s at %s", len(products), best.Price, best.Currency, best.Retailer),
		TotalProducts: len(products),
	})
	metrics.InvestigationsTotal.WithLabelValues("compare", metrics.OutcomeDone).Inc()
}

// Check adapter names, in fraud-check order.
var checkAdapters = []struct {
	adapter string
	check   string
}{
	{"scamadviser", models.CheckRetailerReputation},
	{"safe_browsing", models.CheckSafetyDatabase},
	{"reddit", models.CheckCommunitySentiment},
	{"red_flags", models.CheckPageRedFlags},
	{"heuristics", models.CheckHeuristics},
}

// productChecks builds the fraud-check set from the registered adapters.
// Unregistered sources are simply absent; the trust reduction normalizes
// over the checks that ran.
func (e *Engine) productChecks() []collector.CheckFunc {
	var out []collector.CheckFunc
	for _, ca := range checkAdapters {
		a, ok := e.deps.Registry.Get(ca.adapter)
		if !ok {
			continue
		}
		out = append(out, e.checkFunc(a, ca.check))
	}
	return out
}

func (e *Engine) checkFunc(a adapters.Adapter, name string) collector.CheckFunc {
	return func(ctx context.Context, p models.Product) models.FraudCheck {
		raw := p.URL
		if raw == "" && p.Domain != "" {
			raw = "https://" + p.Domain
		}
		cards := a.Run(ctx, adapters.NewSubject(raw))
		return checkFromCards(name, cards)
	}
}

// checkFromCards reduces an adapter's cards to one fraud check. The
// worst weighted card drives severity; a source that produced only
// degraded cards reports a warning status with zero severity so it
// cannot move the trust score.
func checkFromCards(name string, cards []models.EvidenceCard) models.FraudCheck {
	var worst models.EvidenceCard
	worstWeight := -1.0
	degradedOnly := true
	for _, c := range cards {
		if !c.Degraded() {
			degradedOnly = false
		}
		if w := score.Weighted(c); w > worstWeight {
			worstWeight = w
			worst = c
		}
	}

	if len(cards) == 0 || degradedOnly {
		detail := "source unavailable"
		if len(cards) > 0 && worst.Detail != "" {
			detail = worst.Detail
		}
		return models.FraudCheck{Name: name, Status: models.CheckWarning, Detail: detail}
	}

	severity := worstWeight / 100
	status := models.CheckPassed
	switch {
	case severity >= 0.7:
		status = models.CheckFailed
	case severity >= 0.4:
		status = models.CheckWarning
	}
	return models.FraudCheck{
		Name:     name,
		Status:   status,
		Detail:   worst.Title,
		Severity: severity,
	}
}
