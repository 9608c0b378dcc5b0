package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sentinel/pkg/models"
)

const safeBrowsingSource = "Google Safe Browsing"

var threatLabels = map[string]string{
	"MALWARE":                         "Malware",
	"SOCIAL_ENGINEERING":              "Phishing / Social Engineering",
	"UNWANTED_SOFTWARE":               "Unwanted Software",
	"POTENTIALLY_HARMFUL_APPLICATION": "Potentially Harmful Application",
}

// SafeBrowsingConfig configures the Safe Browsing adapter.
type SafeBrowsingConfig struct {
	APIKey  string
	URL     string // override for tests, default is the v4 endpoint
	Timeout time.Duration
}

// SafeBrowsingAdapter checks the subject URL against the Google Safe
// Browsing v4 threat database.
type SafeBrowsingAdapter struct {
	apiKey string
	url    string
	client *http.Client
}

// NewSafeBrowsingAdapter creates the Safe Browsing adapter.
func NewSafeBrowsingAdapter(cfg SafeBrowsingConfig) *SafeBrowsingAdapter {
	if cfg.URL == "" {
		cfg.URL = "https://safebrowsing.googleapis.com/v4/threatMatches:find"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SafeBrowsingAdapter{
		apiKey: cfg.APIKey,
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the registry key.
func (a *SafeBrowsingAdapter) Name() string { return "safe_browsing" }

type sbRequest struct {
	Client     sbClient     `json:"client"`
	ThreatInfo sbThreatInfo `json:"threatInfo"`
}

type sbClient struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type sbThreatInfo struct {
	ThreatTypes      []string  `json:"threatTypes"`
	PlatformTypes    []string  `json:"platformTypes"`
	ThreatEntryTypes []string  `json:"threatEntryTypes"`
	ThreatEntries    []sbEntry `json:"threatEntries"`
}

type sbEntry struct {
	URL string `json:"url"`
}

type sbResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

// Run queries the threat database for the subject URL.
func (a *SafeBrowsingAdapter) Run(ctx context.Context, subject Subject) []models.EvidenceCard {
	if a.apiKey == "" {
		return []models.EvidenceCard{SkippedCard(
			"Safe Browsing check skipped",
			"Google Safe Browsing API key not configured",
			safeBrowsingSource,
		)}
	}
	if subject.URL == nil {
		return []models.EvidenceCard{SkippedCard(
			"Safe Browsing check skipped",
			"subject is not a URL",
			safeBrowsingSource,
		)}
	}

	body, err := json.Marshal(sbRequest{
		Client: sbClient{ClientID: "sentinel", ClientVersion: "1.0.0"},
		ThreatInfo: sbThreatInfo{
			ThreatTypes: []string{
				"MALWARE", "SOCIAL_ENGINEERING",
				"UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION",
			},
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []sbEntry{{URL: subject.Raw}},
		},
	})
	if err != nil {
		return []models.EvidenceCard{FailedCard("Safe Browsing check failed", err, safeBrowsingSource)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url+"?key="+a.apiKey, bytes.NewReader(body))
	if err != nil {
		return []models.EvidenceCard{FailedCard("Safe Browsing check failed", err, safeBrowsingSource)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return []models.EvidenceCard{FailedCard("Safe Browsing check failed", err, safeBrowsingSource)}
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return []models.EvidenceCard{FailedCard("Safe Browsing check failed",
			fmt.Errorf("safe browsing API returned %s", resp.Status), safeBrowsingSource)}
	}

	var parsed sbResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 256<<10)).Decode(&parsed); err != nil {
		return []models.EvidenceCard{FailedCard("Safe Browsing check failed", err, safeBrowsingSource)}
	}

	if len(parsed.Matches) > 0 {
		labels := make([]string, 0, len(parsed.Matches))
		for _, m := range parsed.Matches {
			label, ok := threatLabels[m.ThreatType]
			if !ok {
				label = m.ThreatType
			}
			labels = append(labels, label)
		}
		card := models.NewCard(models.KindAlert, models.SeverityCritical,
			"Flagged by Google Safe Browsing",
			"Threats detected: "+strings.Join(labels, ", "),
			safeBrowsingSource, 0.98)
		card.Metadata = map[string]interface{}{"threats": labels}
		return []models.EvidenceCard{card}
	}

	card := models.NewCard(models.KindAlert, models.SeveritySafe,
		"Not flagged by Google Safe Browsing",
		"This URL has no known threats in Google's database. New scam sites often have not been reported yet; absence of a flag does not mean safety.",
		safeBrowsingSource, 0.85)
	card.Metadata = map[string]interface{}{"clean": true}
	return []models.EvidenceCard{card}
}
