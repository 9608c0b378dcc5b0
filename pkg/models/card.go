package models

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Severity levels, ordered least to most concerning.
const (
	SeveritySafe     = "safe"
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Well-known card kinds. The set is open: unknown kinds are preserved,
// never rejected.
const (
	KindDomain         = "domain"
	KindSSL            = "ssl"
	KindScamReport     = "scam_report"
	KindReviewAnalysis = "review_analysis"
	KindPrice          = "price"
	KindSeller         = "seller"
	KindBusiness       = "business"
	KindAlert          = "alert"
	KindAlternative    = "alternative"

	// Degraded result kinds emitted when an adapter cannot produce evidence.
	KindSkipped = "skipped"
	KindFailed  = "failed"
)

// MaxDetailLen bounds the detail field of a card.
const MaxDetailLen = 500

// Connection is a labeled reference from one card to another.
type Connection struct {
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// EvidenceCard is a single normalized unit of evidence about a subject.
// Cards are immutable once appended to a session; corrections are
// expressed as new cards connected to the one they supersede.
type EvidenceCard struct {
	ID          string                 `json:"id"`
	Kind        string                 `json:"type"`
	Severity    string                 `json:"severity"`
	Title       string                 `json:"title"`
	Detail      string                 `json:"detail"`
	Source      string                 `json:"source"`
	Confidence  float64                `json:"confidence"`
	Connections []Connection           `json:"connections"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewCard creates a card with a fresh id, clamped confidence, and a
// bounded detail string.
func NewCard(kind, severity, title, detail, source string, confidence float64) EvidenceCard {
	return EvidenceCard{
		ID:         uuid.NewString(),
		Kind:       kind,
		Severity:   severity,
		Title:      title,
		Detail:     TruncateDetail(detail),
		Source:     source,
		Confidence: ClampConfidence(confidence),
	}
}

// ClampConfidence forces a confidence value into [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// TruncateDetail bounds a detail string to MaxDetailLen bytes without
// cutting a multi-byte rune in half.
func TruncateDetail(s string) string {
	if len(s) <= MaxDetailLen {
		return s
	}
	cut := MaxDetailLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Validate checks structural invariants that hold for every card
// regardless of kind. Unknown kinds and severities pass; they are scored
// with the neutral default instead of being dropped.
func (c *EvidenceCard) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("card has no id")
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("card %s: confidence %v out of [0,1]", c.ID, c.Confidence)
	}
	if len(c.Detail) > MaxDetailLen {
		return fmt.Errorf("card %s: detail exceeds %d bytes", c.ID, MaxDetailLen)
	}
	for _, conn := range c.Connections {
		if conn.To == "" {
			return fmt.Errorf("card %s: connection with empty target", c.ID)
		}
		if conn.To == c.ID {
			return fmt.Errorf("card %s: self-connection", c.ID)
		}
	}
	return nil
}

// Degraded reports whether the card stands in for a source that produced
// no usable evidence.
func (c *EvidenceCard) Degraded() bool {
	return c.Kind == KindSkipped || c.Kind == KindFailed
}
