package adapters

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sentinel/pkg/models"
)

func TestClassifyCert(t *testing.T) {
	cases := []struct {
		name       string
		selfSigned bool
		daysLeft   int
		severity   string
	}{
		{"self-signed", true, 365, models.SeverityCritical},
		{"self-signed and expired", true, -1, models.SeverityCritical},
		{"expired yesterday", false, -1, models.SeverityCritical},
		{"expires today", false, 0, models.SeverityWarning},
		{"expires in 29 days", false, 29, models.SeverityWarning},
		{"expires in 30 days", false, 30, models.SeveritySafe},
		{"long validity", false, 200, models.SeveritySafe},
	}
	for _, tc := range cases {
		severity, title := classifyCert(tc.selfSigned, tc.daysLeft)
		if severity != tc.severity {
			t.Errorf("%s: severity = %s, want %s", tc.name, severity, tc.severity)
		}
		if title == "" {
			t.Errorf("%s: empty title", tc.name)
		}
	}
}

func TestSSLAdapterSkipsNonURLSubject(t *testing.T) {
	a := NewSSLAdapter(SSLConfig{})
	cards := a.Run(context.Background(), NewSubject("just some text"))
	if len(cards) != 1 || cards[0].Kind != models.KindSkipped {
		t.Fatalf("expected a skipped card, got %+v", cards)
	}
}

func TestSSLAdapterInspectsServedCertificate(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	a := NewSSLAdapter(SSLConfig{})
	cards := a.Run(context.Background(), NewSubject(srv.URL))
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	c := cards[0]
	if c.Kind != models.KindSSL {
		t.Fatalf("kind = %s, want ssl", c.Kind)
	}
	if c.Metadata["hostname"] != "127.0.0.1" {
		t.Fatalf("hostname metadata = %v", c.Metadata["hostname"])
	}
	if !strings.Contains(c.Detail, "Issuer:") {
		t.Fatalf("detail missing issuer: %q", c.Detail)
	}
}

func TestSSLAdapterRefusedConnectionIsCritical(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	a := NewSSLAdapter(SSLConfig{})
	cards := a.Run(context.Background(), NewSubject("https://"+addr))
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	c := cards[0]
	if c.Severity != models.SeverityCritical || c.Title != "No SSL certificate found" {
		t.Fatalf("refused connection card wrong: %+v", c)
	}
}
