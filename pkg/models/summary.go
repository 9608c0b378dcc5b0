package models

import "time"

// InvestigationSummary is the final record of one completed
// investigation turn, consumed by the report and webhook sinks.
type InvestigationSummary struct {
	InvestigationID string    `json:"investigationId"`
	Subject         string    `json:"subject"`
	Operation       string    `json:"operation"`
	Turn            int       `json:"turn"`
	CardCount       int       `json:"cardCount"`
	ThreatScore     int       `json:"threatScore"`
	TrustScore      int       `json:"trustScore"`
	Verdict         Verdict   `json:"verdict"`
	Summary         string    `json:"summary"`
	CompletedAt     time.Time `json:"completedAt"`
}
