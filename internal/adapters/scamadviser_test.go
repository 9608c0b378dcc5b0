package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sentinel/pkg/models"
)

func scamAdviserServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") == "" {
			t.Errorf("request missing apikey parameter")
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScamAdviserSkipsWithoutAPIKey(t *testing.T) {
	a := NewScamAdviserAdapter(ScamAdviserConfig{})
	cards := a.Run(context.Background(), NewSubject("https://shop.example"))
	if len(cards) != 1 || cards[0].Kind != models.KindSkipped {
		t.Fatalf("expected a skipped card, got %+v", cards)
	}
}

func TestScamAdviserTrustBanding(t *testing.T) {
	cases := []struct {
		trust    int
		severity string
		band     string
	}{
		{0, models.SeverityCritical, "Very Low"},
		{20, models.SeverityCritical, "Very Low"},
		{21, models.SeverityWarning, "Low"},
		{50, models.SeverityWarning, "Low"},
		{51, models.SeverityInfo, "Medium"},
		{75, models.SeverityInfo, "Medium"},
		{76, models.SeveritySafe, "High"},
		{100, models.SeveritySafe, "High"},
	}
	for _, tc := range cases {
		srv := scamAdviserServer(t, fmt.Sprintf(`{"trustScore":%d,"risk":"tested"}`, tc.trust), http.StatusOK)
		a := NewScamAdviserAdapter(ScamAdviserConfig{APIKey: "k", URL: srv.URL})

		cards := a.Run(context.Background(), NewSubject("https://shop.example"))
		if len(cards) != 1 {
			t.Fatalf("trust %d: expected 1 card, got %d", tc.trust, len(cards))
		}
		c := cards[0]
		if c.Severity != tc.severity {
			t.Errorf("trust %d: severity = %s, want %s", tc.trust, c.Severity, tc.severity)
		}
		if !strings.Contains(c.Title, tc.band) {
			t.Errorf("trust %d: title %q missing band %q", tc.trust, c.Title, tc.band)
		}
		if c.Kind != models.KindScamReport || c.Confidence != 0.85 {
			t.Errorf("trust %d: card shape wrong: %+v", tc.trust, c)
		}
		if c.Metadata["trustScore"] != tc.trust {
			t.Errorf("trust %d: metadata trustScore = %v", tc.trust, c.Metadata["trustScore"])
		}
	}
}

func TestScamAdviserNoDataIsLowConfidenceInfo(t *testing.T) {
	srv := scamAdviserServer(t, `{"risk":"unknown"}`, http.StatusOK)
	a := NewScamAdviserAdapter(ScamAdviserConfig{APIKey: "k", URL: srv.URL})

	cards := a.Run(context.Background(), NewSubject("https://brand-new.example"))
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	c := cards[0]
	if c.Severity != models.SeverityInfo || c.Confidence != 0.3 {
		t.Fatalf("no-data card wrong: %+v", c)
	}
}

func TestScamAdviserServerErrorDegrades(t *testing.T) {
	srv := scamAdviserServer(t, `oops`, http.StatusBadGateway)
	a := NewScamAdviserAdapter(ScamAdviserConfig{APIKey: "k", URL: srv.URL})

	cards := a.Run(context.Background(), NewSubject("https://shop.example"))
	if len(cards) != 1 || cards[0].Kind != models.KindFailed || cards[0].Confidence != 0 {
		t.Fatalf("expected a failed card, got %+v", cards)
	}
}
