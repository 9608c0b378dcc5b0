package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sentinel/pkg/models"
)

// DefaultTimeout is the per-adapter call ceiling. Each adapter enforces
// its own timeout; the collector adds this as a hard outer bound.
const DefaultTimeout = 15 * time.Second

// metadataCap bounds how much raw provider output an adapter may carry
// into card metadata.
const metadataCap = 2048

// Subject is the target of one investigation turn: a URL or a free-text
// shopping query.
type Subject struct {
	Raw    string
	URL    *url.URL // nil for plain queries
	Domain string   // hostname without the www. prefix, empty for queries
}

// NewSubject parses a raw subject. URLs must be absolute http(s); any
// other text is treated as a plain query.
func NewSubject(raw string) Subject {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Subject{Raw: raw}
	}
	return Subject{
		Raw:    raw,
		URL:    u,
		Domain: strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."),
	}
}

// ParseURLSubject parses a subject that must be a well-formed absolute
// http(s) URL.
func ParseURLSubject(raw string) (Subject, error) {
	s := NewSubject(raw)
	if s.URL == nil {
		return Subject{}, fmt.Errorf("not a valid http(s) URL: %q", raw)
	}
	return s, nil
}

// Adapter is one external signal source. Run never returns an error:
// missing credentials or transport failures degrade into a single card
// with confidence 0 so a broken source cannot take down a turn.
type Adapter interface {
	Name() string
	Run(ctx context.Context, subject Subject) []models.EvidenceCard
}

// SkippedCard builds the degraded card for a source that was not run,
// typically for a missing credential.
func SkippedCard(title, detail, source string) models.EvidenceCard {
	c := models.NewCard(models.KindSkipped, models.SeverityInfo, title, detail, source, 0)
	c.Metadata = map[string]interface{}{"skipped": true}
	return c
}

// FailedCard builds the degraded card for a source that was attempted
// and failed (transport error, parse error, timeout).
func FailedCard(title string, err error, source string) models.EvidenceCard {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	c := models.NewCard(models.KindFailed, models.SeverityInfo, title, detail, source, 0)
	c.Metadata = map[string]interface{}{"error": true}
	return c
}

// CapRaw bounds a raw provider payload before it goes into metadata.
func CapRaw(raw string) string {
	if len(raw) <= metadataCap {
		return raw
	}
	return raw[:metadataCap]
}

// Registry holds adapters keyed by name, preserving registration order.
// New sources are added here without touching the collector.
type Registry struct {
	names    []string
	adapters map[string]Adapter
	focus    map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		focus:    make(map[string][]string),
	}
}

// Register adds an adapter. Re-registering a name replaces it.
func (r *Registry) Register(a Adapter) {
	name := a.Name()
	if _, ok := r.adapters[name]; !ok {
		r.names = append(r.names, name)
	}
	r.adapters[name] = a
}

// SetFocus maps a deepen focus to a subset of adapter names.
func (r *Registry) SetFocus(focus string, names []string) {
	r.focus[focus] = names
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.adapters[name])
	}
	return out
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// ForFocus returns the adapter subset for a deepen focus. An unknown
// focus falls back to the full set.
func (r *Registry) ForFocus(focus string) []Adapter {
	names, ok := r.focus[focus]
	if !ok {
		return r.All()
	}
	out := make([]Adapter, 0, len(names))
	for _, name := range names {
		if a, ok := r.adapters[name]; ok {
			out = append(out, a)
		}
	}
	return out
}
