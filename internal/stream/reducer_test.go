package stream

import (
	"encoding/json"
	"testing"

	"sentinel/pkg/models"
)

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestReducerFoldsInvestigationStream(t *testing.T) {
	r := NewReducer()

	card := models.NewCard(models.KindDomain, models.SeverityWarning, "young domain", "d", "whois", 0.9)
	r.Apply(models.EventNarration, mustJSON(t, models.NarrationPayload{Text: "working"}))
	r.Apply(models.EventCard, mustJSON(t, card))
	r.Apply(models.EventThreatScore, mustJSON(t, models.ThreatScorePayload{Score: 50}))
	r.Apply(models.EventDone, mustJSON(t, models.DonePayload{Summary: "done"}))

	v := r.View()
	if v.Status != StatusComplete {
		t.Fatalf("status = %s, want complete", v.Status)
	}
	if len(v.Cards) != 1 || v.Cards[0].ID != card.ID {
		t.Fatalf("card not folded: %+v", v.Cards)
	}
	if v.ThreatScore != 50 {
		t.Fatalf("threat = %d, want 50", v.ThreatScore)
	}
	if v.Summary != "done" {
		t.Fatalf("summary = %q", v.Summary)
	}
}

func TestReducerUpsertsCardsByID(t *testing.T) {
	r := NewReducer()

	card := models.NewCard(models.KindDomain, models.SeverityInfo, "first", "d", "whois", 0.5)
	r.Apply(models.EventCard, mustJSON(t, card))

	card.Title = "second"
	r.Apply(models.EventCard, mustJSON(t, card))

	v := r.View()
	if len(v.Cards) != 1 {
		t.Fatalf("duplicate id appended instead of replaced: %d cards", len(v.Cards))
	}
	if v.Cards[0].Title != "second" {
		t.Fatalf("later card did not win: %q", v.Cards[0].Title)
	}
}

func TestReducerSkipsMalformedPayloads(t *testing.T) {
	r := NewReducer()
	r.Apply(models.EventCard, []byte("{not json"))
	r.Apply(models.EventThreatScore, []byte("null"))
	r.Apply(models.EventCard, mustJSON(t, models.EvidenceCard{})) // no id

	v := r.View()
	if len(v.Cards) != 0 {
		t.Fatalf("malformed payloads produced cards: %+v", v.Cards)
	}
	if v.Status != StatusInvestigating {
		t.Fatalf("status = %s", v.Status)
	}
}

func TestReducerIgnoresEventsAfterTerminal(t *testing.T) {
	r := NewReducer()
	r.Apply(models.EventError, mustJSON(t, models.ErrorPayload{Message: "bad"}))
	r.Apply(models.EventThreatScore, mustJSON(t, models.ThreatScorePayload{Score: 90}))

	v := r.View()
	if v.Status != StatusError || v.ErrorMsg != "bad" {
		t.Fatalf("terminal state wrong: %+v", v)
	}
	if v.ThreatScore != 0 {
		t.Fatalf("event after terminal was applied")
	}
}

func TestReducerResumeDoesNotReopenErroredView(t *testing.T) {
	r := NewReducer()
	r.Apply(models.EventError, mustJSON(t, models.ErrorPayload{Message: "bad"}))

	r.Resume()
	r.Apply(models.EventThreatScore, mustJSON(t, models.ThreatScorePayload{Score: 40}))

	v := r.View()
	if v.Status != StatusError || v.ErrorMsg != "bad" {
		t.Fatalf("errored view resumed: %+v", v)
	}
	if v.ThreatScore != 0 {
		t.Fatalf("event applied after error terminal")
	}
}

func TestReducerResumeReopensForDeepen(t *testing.T) {
	r := NewReducer()
	card := models.NewCard(models.KindDomain, models.SeverityInfo, "t", "d", "whois", 0.5)
	r.Apply(models.EventCard, mustJSON(t, card))
	r.Apply(models.EventDone, mustJSON(t, models.DonePayload{Summary: "done"}))

	r.Resume()
	r.Apply(models.EventThreatScore, mustJSON(t, models.ThreatScorePayload{Score: 40}))

	v := r.View()
	if v.Status != StatusInvestigating {
		t.Fatalf("resume did not reopen: %s", v.Status)
	}
	if len(v.Cards) != 1 {
		t.Fatalf("resume lost the board")
	}
	if v.ThreatScore != 40 {
		t.Fatalf("event after resume not applied")
	}
}

func TestShopReducerPhases(t *testing.T) {
	r := NewShopReducer()

	p := models.Product{ID: "p1", Title: "widget", Price: 10}
	r.Apply(models.EventProduct, mustJSON(t, p))
	if r.View().Phase != PhaseSearching {
		t.Fatalf("phase after product = %s", r.View().Phase)
	}

	r.Apply(models.EventAllProducts, mustJSON(t, models.AllProductsPayload{Count: 1}))
	if r.View().Phase != PhaseReviewing {
		t.Fatalf("phase after all_products = %s", r.View().Phase)
	}

	r.Apply(models.EventFraudCheck, mustJSON(t, models.FraudCheckPayload{
		ProductID: "p1",
		Check:     models.FraudCheck{Name: models.CheckSafetyDatabase, Status: models.CheckPassed},
	}))
	r.Apply(models.EventVerdict, mustJSON(t, models.VerdictPayload{ProductID: "p1", Verdict: models.VerdictTrusted, TrustScore: 90}))
	r.Apply(models.EventBestPick, mustJSON(t, models.BestPickPayload{ProductID: "p1"}))
	r.Apply(models.EventDone, mustJSON(t, models.DonePayload{Summary: "saved"}))

	v := r.View()
	if v.Phase != PhaseSaved {
		t.Fatalf("phase = %s, want saved", v.Phase)
	}
	if v.BestPick != "p1" {
		t.Fatalf("best pick = %q", v.BestPick)
	}
	if len(v.Checks["p1"]) != 1 {
		t.Fatalf("checks not folded: %+v", v.Checks)
	}
	if v.Verdicts["p1"].TrustScore != 90 {
		t.Fatalf("verdict not folded: %+v", v.Verdicts)
	}
}

func TestShopReducerResetAbortsInFlightSearch(t *testing.T) {
	r := NewShopReducer()
	r.Apply(models.EventProduct, mustJSON(t, models.Product{ID: "p1", Title: "w"}))

	r.Reset()
	v := r.View()
	if v.Phase != PhaseIdle || len(v.Products) != 0 {
		t.Fatalf("reset did not clear the view: %+v", v)
	}
}
