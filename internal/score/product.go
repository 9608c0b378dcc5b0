package score

import (
	"math"
	"sort"

	"sentinel/pkg/models"
)

// Per-check weights for the product trust reduction. Noisy signals carry
// less weight: many legitimate retailers have no community presence.
var checkWeights = map[string]float64{
	models.CheckRetailerReputation: 0.25,
	models.CheckSafetyDatabase:     0.15,
	models.CheckCommunitySentiment: 0.15,
	models.CheckPageRedFlags:       0.25,
	models.CheckHeuristics:         0.20,
}

const defaultCheckWeight = 0.15

// TrustFromChecks reduces a product's fraud checks to a trust score in
// [0,100]. When the same check name appears more than once, the worst
// severity wins. The sum is normalized by the weights of the checks that
// actually ran, so a partial check set still yields a full-range score.
func TrustFromChecks(checks []models.FraudCheck) int {
	worst := worstByName(checks)
	if len(worst) == 0 {
		return 50
	}

	var weighted, total float64
	for name, check := range worst {
		w, ok := checkWeights[name]
		if !ok {
			w = defaultCheckWeight
		}
		weighted += (1 - check.Severity) * w
		total += w
	}
	if total == 0 {
		return 50
	}
	return clamp(int(math.Round(weighted / total * 100)))
}

// ProductVerdict classifies a product from its checks and trust score.
// A safety-database hit or multiple hard failures force danger regardless
// of the weighted score; otherwise the shared trust thresholds apply.
func ProductVerdict(checks []models.FraudCheck, trust int, th Thresholds) models.Verdict {
	var failed []models.FraudCheck
	for _, check := range worstByName(checks) {
		if check.Status == models.CheckFailed {
			failed = append(failed, check)
		}
	}

	for _, check := range failed {
		if check.Name == models.CheckSafetyDatabase && check.Severity >= 0.8 {
			return models.VerdictDanger
		}
	}
	if len(failed) >= 2 {
		for _, check := range failed {
			if check.Severity >= 0.7 {
				return models.VerdictDanger
			}
		}
	}

	return VerdictFor(trust, th)
}

func worstByName(checks []models.FraudCheck) map[string]models.FraudCheck {
	out := make(map[string]models.FraudCheck, len(checks))
	for _, c := range checks {
		if prev, ok := out[c.Name]; !ok || c.Severity > prev.Severity {
			out[c.Name] = c
		}
	}
	return out
}

// BestPick selects the cheapest non-danger product and reports its
// savings against the average non-danger price. Returns false when every
// product was flagged.
func BestPick(products []models.ProductVerdict) (id string, savings float64, ok bool) {
	candidates := make([]models.ProductVerdict, 0, len(products))
	for _, p := range products {
		if p.Verdict != models.VerdictDanger && p.Product.Price > 0 {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return "", 0, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Product.Price < candidates[j].Product.Price
	})

	best := candidates[0]
	var sum float64
	for _, p := range candidates {
		sum += p.Product.Price
	}
	avg := sum / float64(len(candidates))
	if avg > best.Product.Price {
		savings = math.Round((avg-best.Product.Price)*100) / 100
	}
	return best.Product.ID, savings, true
}
