package models

// Stream event names. These are the SSE event names on the wire; payload
// shapes are the structs below (cards and products are sent as-is).
const (
	EventNarration   = "narration"
	EventCard        = "card"
	EventConnection  = "connection"
	EventThreatScore = "threat_score"
	EventProduct     = "product"
	EventFraudCheck  = "fraud_check"
	EventAllProducts = "all_products"
	EventVerdict     = "verdict"
	EventBestPick    = "best_pick"
	EventDone        = "done"
	EventError       = "error"
)

// TerminalEvent reports whether an event name ends a stream. Exactly one
// terminal event is delivered per stream, and nothing follows it.
func TerminalEvent(name string) bool {
	return name == EventDone || name == EventError
}

// NarrationPayload carries a human-readable progress string.
type NarrationPayload struct {
	Text string `json:"text"`
}

// ConnectionPayload is an edge between two prior card ids.
type ConnectionPayload struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// ThreatScorePayload carries the updated aggregate threat score.
type ThreatScorePayload struct {
	Score int `json:"score"`
}

// FraudCheckPayload streams one check result for one product.
type FraudCheckPayload struct {
	ProductID string     `json:"productId"`
	Check     FraudCheck `json:"check"`
}

// AllProductsPayload signals that product discovery is complete while
// verdicts may still be streaming.
type AllProductsPayload struct {
	Count int `json:"count"`
}

// VerdictPayload is the per-product classification.
type VerdictPayload struct {
	ProductID  string  `json:"productId"`
	Verdict    Verdict `json:"verdict"`
	TrustScore int     `json:"trustScore"`
}

// BestPickPayload crowns the selected top recommendation.
type BestPickPayload struct {
	ProductID string  `json:"productId"`
	Savings   float64 `json:"savings,omitempty"`
}

// DonePayload is the terminal success marker.
type DonePayload struct {
	Summary         string `json:"summary"`
	InvestigationID string `json:"investigationId,omitempty"`
	TotalProducts   int    `json:"totalProducts,omitempty"`
	TrustedCount    int    `json:"trustedCount,omitempty"`
	FlaggedCount    int    `json:"flaggedCount,omitempty"`
}

// ErrorPayload is the terminal failure marker.
type ErrorPayload struct {
	Message string `json:"message"`
}
