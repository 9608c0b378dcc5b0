package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"sentinel/pkg/models"
)

const redFlagsSource = "Page Analysis"

// pageReadCap bounds how much of the page body is scanned.
const pageReadCap = 512 << 10

type redFlagRule struct {
	name     string
	severity string
	title    string
	detail   string
	re       *regexp.Regexp
}

// Deterministic page heuristics: fake urgency, suspicious payment
// methods, extreme discounts. Missing-policy is handled separately since
// it triggers on absence rather than presence.
var redFlagRules = []redFlagRule{
	{
		name:     "urgency",
		severity: models.SeverityWarning,
		title:    "Fake urgency tactics detected",
		detail:   "Page contains countdown timers or pressure language, a common social engineering tactic.",
		re:       regexp.MustCompile(`(?i)(only \d+ left|sale ends (tonight|today|soon)|hurry|limited time offer|countdown|act now|expires in)`),
	},
	{
		name:     "payment",
		severity: models.SeverityCritical,
		title:    "Suspicious payment methods",
		detail:   "Page asks for irreversible payment methods (wire transfer, gift cards, crypto) instead of standard card processing.",
		re:       regexp.MustCompile(`(?i)(western union|moneygram|gift ?cards? (only|accepted)|bitcoin only|wire transfer only|zelle only)`),
	},
	{
		name:     "discount",
		severity: models.SeverityWarning,
		title:    "Extreme discount claims",
		detail:   "Page advertises discounts of 70% or more, a pattern common on counterfeit storefronts.",
		re:       regexp.MustCompile(`(?i)(7[0-9]|8[0-9]|9[0-9])% off`),
	},
}

var returnPolicyRe = regexp.MustCompile(`(?i)(return policy|refund policy|money.?back guarantee|returns? & exchanges)`)

// RedFlagsConfig configures the page scraper adapter.
type RedFlagsConfig struct {
	Timeout time.Duration
}

// RedFlagsAdapter fetches the subject page and scans it for scam
// indicators with deterministic keyword heuristics.
type RedFlagsAdapter struct {
	client *http.Client
}

// NewRedFlagsAdapter creates the page scraper adapter.
func NewRedFlagsAdapter(cfg RedFlagsConfig) *RedFlagsAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	return &RedFlagsAdapter{client: &http.Client{Timeout: cfg.Timeout}}
}

// Name returns the registry key.
func (a *RedFlagsAdapter) Name() string { return "red_flags" }

// Run scrapes the subject page and emits one card per red flag found,
// or a single safe card when the page looks clean.
func (a *RedFlagsAdapter) Run(ctx context.Context, subject Subject) []models.EvidenceCard {
	if subject.URL == nil {
		return []models.EvidenceCard{SkippedCard("Page scan skipped", "subject is not a URL", redFlagsSource)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, subject.Raw, nil)
	if err != nil {
		return []models.EvidenceCard{FailedCard("Page scan failed", err, redFlagsSource)}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; sentinel/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := a.client.Do(req)
	if err != nil {
		return []models.EvidenceCard{FailedCard("Page scan failed", err, redFlagsSource)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return []models.EvidenceCard{FailedCard("Page scan failed",
			fmt.Errorf("page returned %s", resp.Status), redFlagsSource)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, pageReadCap))
	if err != nil {
		return []models.EvidenceCard{FailedCard("Page scan failed", err, redFlagsSource)}
	}

	return ScanPage(subject.Domain, string(body))
}

// ScanPage applies the red-flag heuristics to a page body. Exposed for
// deterministic testing against canned HTML.
func ScanPage(domain, body string) []models.EvidenceCard {
	var cards []models.EvidenceCard

	for _, rule := range redFlagRules {
		if m := rule.re.FindString(body); m != "" {
			card := models.NewCard(models.KindAlert, rule.severity, rule.title,
				fmt.Sprintf("%s Matched: %q.", rule.detail, strings.TrimSpace(m)),
				redFlagsSource, 0.8)
			card.Metadata = map[string]interface{}{"rule": rule.name, "match": CapRaw(m)}
			cards = append(cards, card)
		}
	}

	if !returnPolicyRe.MatchString(body) {
		card := models.NewCard(models.KindAlert, models.SeverityWarning,
			"No return policy found",
			"The page has no visible return or refund policy. Legitimate retailers are required to display one in most jurisdictions.",
			redFlagsSource, 0.78)
		card.Metadata = map[string]interface{}{"rule": "missing_return_policy"}
		cards = append(cards, card)
	}

	if len(cards) == 0 {
		card := models.NewCard(models.KindAlert, models.SeveritySafe,
			"No scam indicators found on page",
			fmt.Sprintf("Scanned %s for urgency tactics, suspicious payment methods, and missing policies; nothing matched.", domain),
			redFlagsSource, 0.7)
		cards = append(cards, card)
	}
	return cards
}
