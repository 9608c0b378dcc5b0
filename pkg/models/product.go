package models

// Verdict is the discrete trust classification derived from a trust score.
type Verdict string

const (
	VerdictTrusted Verdict = "trusted"
	VerdictCaution Verdict = "caution"
	VerdictDanger  Verdict = "danger"
)

// Product is a single shopping result from a price-search source.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Retailer    string  `json:"retailer"`
	Domain      string  `json:"domain"`
	URL         string  `json:"url"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"reviewCount,omitempty"`
	InStock     bool    `json:"inStock"`
	Snippet     string  `json:"snippet,omitempty"`
}

// Fraud check statuses.
const (
	CheckPassed  = "passed"
	CheckWarning = "warning"
	CheckFailed  = "failed"
)

// Well-known fraud check names.
const (
	CheckRetailerReputation = "Retailer Reputation"
	CheckSafetyDatabase     = "Safety Database"
	CheckCommunitySentiment = "Community Sentiment"
	CheckPageRedFlags       = "Page Red Flags"
	CheckHeuristics         = "Heuristic Rules"
)

// FraudCheck is one independent trust check run against a product's
// retailer domain. Severity is in [0,1]; 0 means the check passed clean.
type FraudCheck struct {
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Detail   string  `json:"detail"`
	Severity float64 `json:"severity"`
}

// ProductVerdict pairs a product with its accumulated checks and final
// classification. At most one product per investigation carries BestPick.
type ProductVerdict struct {
	Product    Product      `json:"product"`
	Checks     []FraudCheck `json:"checks"`
	Verdict    Verdict      `json:"verdict"`
	TrustScore int          `json:"trustScore"`
	BestPick   bool         `json:"bestPick,omitempty"`
}
