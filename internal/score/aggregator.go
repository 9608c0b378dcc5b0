package score

import (
	"math"
	"sync"

	"sentinel/pkg/models"
)

// Thresholds controls verdict bucketing and per-card safety.
type Thresholds struct {
	Trusted    int     // trust >= Trusted -> trusted
	Caution    int     // Caution <= trust < Trusted -> caution, below -> danger
	CardSafety float64 // a lone card is "safe" iff its weighted score is below this
}

// DefaultThresholds returns the reference thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Trusted: 75, Caution: 40, CardSafety: 40}
}

func (t Thresholds) normalized() Thresholds {
	if t.Trusted <= 0 {
		t.Trusted = 75
	}
	if t.Caution <= 0 {
		t.Caution = 40
	}
	if t.CardSafety <= 0 {
		t.CardSafety = 40
	}
	return t
}

// BaseScore maps a card severity to its base threat score. Unrecognized
// severities score as a neutral-cautious 30 so no card is ever silently
// dropped from the aggregate.
func BaseScore(severity string) float64 {
	switch severity {
	case models.SeverityCritical:
		return 90
	case models.SeverityWarning:
		return 55
	case models.SeverityInfo:
		return 20
	case models.SeveritySafe:
		return 5
	default:
		return 30
	}
}

// Weighted returns the card's base score weighted by its confidence.
// Confidence 0 means "not evaluated": the card contributes nothing to the
// aggregate but is still retained for display.
func Weighted(c models.EvidenceCard) float64 {
	return BaseScore(c.Severity) * models.ClampConfidence(c.Confidence)
}

// CardSafe reports whether a single card, taken alone, is below the
// per-card safety threshold for fraud-marker purposes.
func CardSafe(c models.EvidenceCard, th Thresholds) bool {
	return Weighted(c) < th.normalized().CardSafety
}

// Aggregator reduces an accumulated card sequence to a threat score by
// running maximum: a single strong signal dominates, so one critical
// finding is never diluted by many neutral ones. Add is safe for
// concurrent use.
type Aggregator struct {
	mu  sync.Mutex
	max float64
	th  Thresholds
}

// NewAggregator creates an aggregator with the given thresholds.
func NewAggregator(th Thresholds) *Aggregator {
	return &Aggregator{th: th.normalized()}
}

// Add folds one card into the running maximum and reports the current
// threat score and whether it changed.
func (a *Aggregator) Add(c models.EvidenceCard) (threat int, changed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	w := Weighted(c)
	if w > a.max {
		a.max = w
		changed = true
	}
	return clamp(int(math.Round(a.max))), changed
}

// Threat returns the current threat score in [0,100].
func (a *Aggregator) Threat() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return clamp(int(math.Round(a.max)))
}

// Trust returns the complementary trust score: 100 - threat.
func (a *Aggregator) Trust() int {
	return 100 - a.Threat()
}

// Verdict returns the discrete classification for the current trust score.
func (a *Aggregator) Verdict() models.Verdict {
	return VerdictFor(a.Trust(), a.th)
}

// Seed initializes the running maximum from a previously stored threat
// score, so a deepen turn continues from the accumulated aggregate.
func (a *Aggregator) Seed(threat int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v := float64(clamp(threat)); v > a.max {
		a.max = v
	}
}

// Replay folds an existing card sequence into the aggregate. The
// reduction is commutative, so replay order does not matter.
func (a *Aggregator) Replay(cards []models.EvidenceCard) {
	for _, c := range cards {
		a.Add(c)
	}
}

// VerdictFor buckets a trust score. Both the investigation flow and the
// shopping flow classify through this one function.
func VerdictFor(trust int, th Thresholds) models.Verdict {
	th = th.normalized()
	switch {
	case trust >= th.Trusted:
		return models.VerdictTrusted
	case trust >= th.Caution:
		return models.VerdictCaution
	default:
		return models.VerdictDanger
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
