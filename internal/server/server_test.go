package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentinel/internal/adapters"
	"sentinel/internal/collector"
	"sentinel/internal/engine"
	"sentinel/internal/score"
	"sentinel/internal/session"
	"sentinel/pkg/models"
)

type stubAdapter struct {
	cards []models.EvidenceCard
}

func (s *stubAdapter) Name() string { return "stub" }
func (s *stubAdapter) Run(ctx context.Context, subject adapters.Subject) []models.EvidenceCard {
	return s.cards
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := adapters.NewRegistry()
	reg.Register(&stubAdapter{cards: []models.EvidenceCard{
		models.NewCard(models.KindDomain, models.SeverityWarning, "aged domain", "registered recently", "stub", 0.9),
	}})
	eng := engine.New(engine.Deps{
		Store:      session.NewStore(time.Hour),
		Registry:   reg,
		Collector:  collector.New(time.Second),
		Thresholds: score.DefaultThresholds(),
	})
	srv := httptest.NewServer(New(eng, 64, false).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func TestInvestigateRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing url", `{}`},
		{"non-url subject", `{"url":"not a url"}`},
	}
	for _, tc := range cases {
		resp := post(t, srv, "/api/investigate", tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
		var payload map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Errorf("%s: decode error body: %v", tc.name, err)
		} else if payload["error"] == "" {
			t.Errorf("%s: missing error message", tc.name)
		}
		resp.Body.Close()
	}
}

func TestInvestigateStreamsToDone(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/investigate", `{"url":"https://shop.example"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	body := readAll(t, resp)
	if !strings.Contains(body, "event: narration\n") {
		t.Errorf("stream missing narration event:\n%s", body)
	}
	if !strings.Contains(body, "event: card\n") {
		t.Errorf("stream missing card event:\n%s", body)
	}
	if !strings.Contains(body, "event: done\n") {
		t.Errorf("stream missing done event:\n%s", body)
	}

	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	last := frames[len(frames)-1]
	if !strings.HasPrefix(last, "event: done\n") {
		t.Errorf("last frame is not done:\n%s", last)
	}
}

func TestDeepenUnknownIDStreamsTerminalError(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/deepen", `{"investigationId":"missing"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := readAll(t, resp)
	if !strings.Contains(body, "event: error\n") {
		t.Errorf("stream missing error event:\n%s", body)
	}
	if strings.Contains(body, "event: done\n") {
		t.Errorf("error stream also carries done:\n%s", body)
	}
}

func TestDeepenRequiresInvestigationID(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/api/deepen", `{"focus":"domain"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/search", `{}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty search: status = %d, want 400", resp.StatusCode)
	}

	// Image without any text query is rejected with a pointed message.
	resp = post(t, srv, "/api/search", `{"image":"data:image/png;base64,AAAA"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("image-only search: status = %d, want 400", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(payload["error"], "query") {
		t.Fatalf("error = %q, want mention of the missing query", payload["error"])
	}
}

func TestSearchWithoutSearcherStreamsError(t *testing.T) {
	srv := newTestServer(t)

	// The test engine has no product searcher configured, so validation
	// passes but the stream ends in a terminal error.
	resp := post(t, srv, "/api/search", `{"query":"wireless headphones"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := readAll(t, resp)
	if !strings.Contains(body, "event: error\n") {
		t.Errorf("stream missing error event:\n%s", body)
	}
}

func TestInvestigationLookupRoute(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/investigate", `{"url":"https://shop.example"}`)
	body := readAll(t, resp)
	resp.Body.Close()

	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	last := frames[len(frames)-1]
	parts := strings.SplitN(last, "\n", 2)
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "event: done") {
		t.Fatalf("last frame is not done:\n%s", last)
	}
	var done struct {
		InvestigationID string `json:"investigationId"`
	}
	if err := json.Unmarshal([]byte(strings.TrimPrefix(parts[1], "data: ")), &done); err != nil {
		t.Fatalf("decode done payload: %v", err)
	}
	if done.InvestigationID == "" {
		t.Fatalf("done payload has no investigation id")
	}

	r2, err := http.Get(srv.URL + "/api/investigations/" + done.InvestigationID)
	if err != nil {
		t.Fatalf("GET investigation: %v", err)
	}
	defer r2.Body.Close()
	if r2.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", r2.StatusCode)
	}
	var sess struct {
		ID          string                `json:"id"`
		ThreatScore int                   `json:"threatScore"`
		Cards       []models.EvidenceCard `json:"cards"`
	}
	if err := json.NewDecoder(r2.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.ID != done.InvestigationID || len(sess.Cards) != 1 {
		t.Fatalf("rehydrated session wrong: %+v", sess)
	}
}

func TestInvestigationLookupUnknownID(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/investigations/no-such-id")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRecentInvestigationsWithoutArchive(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/investigations?limit=5")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var payload struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.IDs == nil || len(payload.IDs) != 0 {
		t.Fatalf("ids = %v, want empty list", payload.IDs)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body := readAll(t, resp); body != `{"status":"ok"}` {
		t.Fatalf("body = %q", body)
	}
}

func TestMetricsRouteOnlyWhenEnabled(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("disabled metrics: status = %d, want 404", resp.StatusCode)
	}
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
