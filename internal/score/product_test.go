package score

import (
	"testing"

	"sentinel/pkg/models"
)

func check(name, status string, severity float64) models.FraudCheck {
	return models.FraudCheck{Name: name, Status: status, Severity: severity}
}

func TestTrustFromChecksEmptyIsNeutral(t *testing.T) {
	if got := TrustFromChecks(nil); got != 50 {
		t.Fatalf("expected neutral 50, got %d", got)
	}
}

func TestTrustFromChecksAllCleanIsFullTrust(t *testing.T) {
	checks := []models.FraudCheck{
		check(models.CheckRetailerReputation, models.CheckPassed, 0),
		check(models.CheckSafetyDatabase, models.CheckPassed, 0),
		check(models.CheckCommunitySentiment, models.CheckPassed, 0),
	}
	if got := TrustFromChecks(checks); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestTrustFromChecksWorstSeverityWinsPerName(t *testing.T) {
	clean := TrustFromChecks([]models.FraudCheck{
		check(models.CheckRetailerReputation, models.CheckPassed, 0.1),
	})
	dirty := TrustFromChecks([]models.FraudCheck{
		check(models.CheckRetailerReputation, models.CheckPassed, 0.1),
		check(models.CheckRetailerReputation, models.CheckFailed, 0.9),
	})
	if dirty >= clean {
		t.Fatalf("duplicate worse check did not lower trust: %d vs %d", dirty, clean)
	}
	if dirty != 10 {
		t.Fatalf("expected worst severity 0.9 to yield trust 10, got %d", dirty)
	}
}

func TestTrustFromChecksNormalizesOverRanChecks(t *testing.T) {
	// A single clean check still spans the full range.
	one := TrustFromChecks([]models.FraudCheck{
		check(models.CheckPageRedFlags, models.CheckPassed, 0),
	})
	if one != 100 {
		t.Fatalf("partial check set should normalize to 100, got %d", one)
	}
}

func TestProductVerdictSafetyDatabaseOverride(t *testing.T) {
	checks := []models.FraudCheck{
		check(models.CheckSafetyDatabase, models.CheckFailed, 0.85),
		check(models.CheckRetailerReputation, models.CheckPassed, 0),
	}
	trust := TrustFromChecks(checks)
	if got := ProductVerdict(checks, trust, DefaultThresholds()); got != models.VerdictDanger {
		t.Fatalf("safety database hit must force danger, got %s", got)
	}
}

func TestProductVerdictTwoHardFailuresForceDanger(t *testing.T) {
	checks := []models.FraudCheck{
		check(models.CheckRetailerReputation, models.CheckFailed, 0.75),
		check(models.CheckPageRedFlags, models.CheckFailed, 0.5),
	}
	if got := ProductVerdict(checks, 60, DefaultThresholds()); got != models.VerdictDanger {
		t.Fatalf("two failures with one severe must force danger, got %s", got)
	}

	// A single hard failure falls through to the trust thresholds.
	single := []models.FraudCheck{
		check(models.CheckRetailerReputation, models.CheckFailed, 0.75),
	}
	if got := ProductVerdict(single, 60, DefaultThresholds()); got != models.VerdictCaution {
		t.Fatalf("single failure at trust 60 should be caution, got %s", got)
	}
}

func TestBestPickCheapestNonDanger(t *testing.T) {
	products := []models.ProductVerdict{
		{Product: models.Product{ID: "a", Price: 10}, Verdict: models.VerdictDanger},
		{Product: models.Product{ID: "b", Price: 30}, Verdict: models.VerdictTrusted},
		{Product: models.Product{ID: "c", Price: 20}, Verdict: models.VerdictCaution},
	}

	id, savings, ok := BestPick(products)
	if !ok {
		t.Fatalf("expected a pick")
	}
	if id != "c" {
		t.Fatalf("expected cheapest non-danger c, got %s", id)
	}
	// Average of b and c is 25, pick costs 20.
	if savings != 5 {
		t.Fatalf("expected savings 5, got %v", savings)
	}
}

func TestBestPickAllFlagged(t *testing.T) {
	products := []models.ProductVerdict{
		{Product: models.Product{ID: "a", Price: 10}, Verdict: models.VerdictDanger},
	}
	if _, _, ok := BestPick(products); ok {
		t.Fatalf("expected no pick when every product is flagged")
	}
}
