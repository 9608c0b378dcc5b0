package stream

import (
	"encoding/json"

	"sentinel/internal/graph"
	"sentinel/pkg/models"
)

// Investigation statuses.
const (
	StatusIdle          = "idle"
	StatusInvestigating = "investigating"
	StatusComplete      = "complete"
	StatusError         = "error"
)

// InvestigationView is the client-side state a stream folds into: the
// evidence board a consumer would render.
type InvestigationView struct {
	Status      string
	Narration   string
	Cards       []models.EvidenceCard
	Edges       []graph.Edge
	ThreatScore int
	Summary     string
	ErrorMsg    string

	index map[string]int // card id -> position in Cards
}

// Reducer folds raw stream events into an InvestigationView. Malformed
// payloads are skipped; events after a terminal are ignored.
type Reducer struct {
	view InvestigationView
}

// NewReducer creates a reducer in the idle state.
func NewReducer() *Reducer {
	return &Reducer{view: InvestigationView{Status: StatusIdle, index: make(map[string]int)}}
}

// View returns the current folded state.
func (r *Reducer) View() InvestigationView { return r.view }

// Reset returns the reducer to idle with an empty board.
func (r *Reducer) Reset() {
	r.view = InvestigationView{Status: StatusIdle, index: make(map[string]int)}
}

// Resume reopens a completed view for a deepen turn, keeping the board.
// An errored view stays terminal; recovery from error goes through Reset.
func (r *Reducer) Resume() {
	if r.view.Status == StatusComplete {
		r.view.Status = StatusInvestigating
	}
}

// Apply folds one event into the view. Unknown event names and payloads
// that fail to decode leave the view unchanged.
func (r *Reducer) Apply(name string, raw []byte) {
	if r.view.Status == StatusComplete || r.view.Status == StatusError {
		return
	}
	if r.view.Status == StatusIdle {
		r.view.Status = StatusInvestigating
	}

	switch name {
	case models.EventNarration:
		var p models.NarrationPayload
		if json.Unmarshal(raw, &p) == nil {
			r.view.Narration = p.Text
		}
	case models.EventCard:
		var c models.EvidenceCard
		if json.Unmarshal(raw, &c) != nil || c.ID == "" {
			return
		}
		if i, ok := r.view.index[c.ID]; ok {
			r.view.Cards[i] = c
			return
		}
		r.view.index[c.ID] = len(r.view.Cards)
		r.view.Cards = append(r.view.Cards, c)
	case models.EventConnection:
		var p models.ConnectionPayload
		if json.Unmarshal(raw, &p) == nil && p.From != "" && p.To != "" {
			r.view.Edges = append(r.view.Edges, graph.Edge{From: p.From, To: p.To, Label: p.Label})
		}
	case models.EventThreatScore:
		var p models.ThreatScorePayload
		if json.Unmarshal(raw, &p) == nil {
			r.view.ThreatScore = p.Score
		}
	case models.EventDone:
		var p models.DonePayload
		if json.Unmarshal(raw, &p) != nil {
			return
		}
		r.view.Summary = p.Summary
		r.view.Status = StatusComplete
	case models.EventError:
		var p models.ErrorPayload
		if json.Unmarshal(raw, &p) != nil {
			return
		}
		r.view.ErrorMsg = p.Message
		r.view.Status = StatusError
	}
}

// Shopping phases.
const (
	PhaseIdle      = "idle"
	PhaseSearching = "searching"
	PhaseReviewing = "reviewing"
	PhaseSaved     = "saved"
)

// ShopView is the folded state of a shopping stream.
type ShopView struct {
	Phase    string
	Products []models.Product
	Checks   map[string][]models.FraudCheck
	Verdicts map[string]models.VerdictPayload
	BestPick string
	Summary  string
	ErrorMsg string

	index map[string]int
}

// ShopReducer folds shopping events, moving through idle, searching,
// reviewing and saved. Starting a new search resets the view.
type ShopReducer struct {
	view ShopView
}

// NewShopReducer creates a shop reducer in the idle phase.
func NewShopReducer() *ShopReducer {
	r := &ShopReducer{}
	r.Reset()
	return r
}

// View returns the current folded state.
func (r *ShopReducer) View() ShopView { return r.view }

// Reset aborts any in-flight fold and returns to idle. A new search
// calls this before applying its events.
func (r *ShopReducer) Reset() {
	r.view = ShopView{
		Phase:    PhaseIdle,
		Checks:   make(map[string][]models.FraudCheck),
		Verdicts: make(map[string]models.VerdictPayload),
		index:    make(map[string]int),
	}
}

// Apply folds one shopping event. Events after a terminal are ignored.
func (r *ShopReducer) Apply(name string, raw []byte) {
	if r.view.Phase == PhaseSaved || r.view.ErrorMsg != "" {
		return
	}
	if r.view.Phase == PhaseIdle {
		r.view.Phase = PhaseSearching
	}

	switch name {
	case models.EventProduct:
		var p models.Product
		if json.Unmarshal(raw, &p) != nil || p.ID == "" {
			return
		}
		if i, ok := r.view.index[p.ID]; ok {
			r.view.Products[i] = p
			return
		}
		r.view.index[p.ID] = len(r.view.Products)
		r.view.Products = append(r.view.Products, p)
	case models.EventAllProducts:
		r.view.Phase = PhaseReviewing
	case models.EventFraudCheck:
		var p models.FraudCheckPayload
		if json.Unmarshal(raw, &p) != nil || p.ProductID == "" {
			return
		}
		r.view.Checks[p.ProductID] = append(r.view.Checks[p.ProductID], p.Check)
	case models.EventVerdict:
		var p models.VerdictPayload
		if json.Unmarshal(raw, &p) != nil || p.ProductID == "" {
			return
		}
		r.view.Verdicts[p.ProductID] = p
	case models.EventBestPick:
		var p models.BestPickPayload
		if json.Unmarshal(raw, &p) == nil {
			r.view.BestPick = p.ProductID
		}
	case models.EventDone:
		var p models.DonePayload
		if json.Unmarshal(raw, &p) != nil {
			return
		}
		r.view.Summary = p.Summary
		r.view.Phase = PhaseSaved
	case models.EventError:
		var p models.ErrorPayload
		if json.Unmarshal(raw, &p) != nil {
			return
		}
		r.view.ErrorMsg = p.Message
	}
}
