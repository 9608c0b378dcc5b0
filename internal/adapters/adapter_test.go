package adapters

import (
	"context"
	"strings"
	"testing"

	"sentinel/pkg/models"
)

func TestNewSubjectParsesURLs(t *testing.T) {
	s := NewSubject("https://WWW.Shop.Example/products?x=1")
	if s.URL == nil {
		t.Fatalf("URL not parsed")
	}
	if s.Domain != "shop.example" {
		t.Fatalf("domain = %q, want shop.example", s.Domain)
	}
}

func TestNewSubjectTreatsPlainTextAsQuery(t *testing.T) {
	for _, raw := range []string{"wireless headphones", "ftp://host/file", "example.com"} {
		s := NewSubject(raw)
		if s.URL != nil {
			t.Fatalf("%q should not parse as a URL subject", raw)
		}
		if s.Domain != "" {
			t.Fatalf("%q: unexpected domain %q", raw, s.Domain)
		}
	}
}

func TestParseURLSubjectRejectsNonURLs(t *testing.T) {
	if _, err := ParseURLSubject("not a url"); err == nil {
		t.Fatalf("expected error for plain text")
	}
	if _, err := ParseURLSubject("https://ok.example"); err != nil {
		t.Fatalf("valid URL rejected: %v", err)
	}
}

func TestDegradedCardsCarryZeroConfidence(t *testing.T) {
	s := SkippedCard("t", "no key", "src")
	if s.Kind != models.KindSkipped || s.Confidence != 0 {
		t.Fatalf("skipped card wrong: %+v", s)
	}
	if !s.Degraded() {
		t.Fatalf("skipped card not degraded")
	}

	f := FailedCard("t", context.DeadlineExceeded, "src")
	if f.Kind != models.KindFailed || f.Confidence != 0 {
		t.Fatalf("failed card wrong: %+v", f)
	}
	if !strings.Contains(f.Detail, "deadline") {
		t.Fatalf("failed card detail lost the error: %q", f.Detail)
	}
}

type namedAdapter struct{ name string }

func (n *namedAdapter) Name() string { return n.name }
func (n *namedAdapter) Run(ctx context.Context, s Subject) []models.EvidenceCard {
	return nil
}

func TestRegistryPreservesOrderAndFocus(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&namedAdapter{name: "whois"})
	reg.Register(&namedAdapter{name: "ssl"})
	reg.Register(&namedAdapter{name: "reddit"})
	reg.SetFocus("domain", []string{"whois", "ssl"})

	all := reg.All()
	if len(all) != 3 || all[0].Name() != "whois" || all[2].Name() != "reddit" {
		t.Fatalf("registration order lost: %v", names(all))
	}

	focused := reg.ForFocus("domain")
	if len(focused) != 2 || focused[0].Name() != "whois" || focused[1].Name() != "ssl" {
		t.Fatalf("focus subset wrong: %v", names(focused))
	}

	// Unknown focus falls back to the full set.
	if got := reg.ForFocus("nonsense"); len(got) != 3 {
		t.Fatalf("unknown focus returned %d adapters", len(got))
	}
}

func names(set []Adapter) []string {
	out := make([]string, len(set))
	for i, a := range set {
		out[i] = a.Name()
	}
	return out
}
