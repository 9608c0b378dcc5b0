package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/adapters"
	"sentinel/internal/collector"
	"sentinel/internal/graph"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/score"
	"sentinel/internal/session"
	"sentinel/internal/stream"
	"sentinel/pkg/models"
)

// Reporter records completed investigation summaries.
type Reporter interface {
	WriteSummary(s models.InvestigationSummary) error
}

// Notifier delivers danger-verdict summaries out of band.
type Notifier interface {
	Notify(ctx context.Context, s models.InvestigationSummary) error
}

// Archiver persists session snapshots beyond the in-memory retention.
type Archiver interface {
	Archive(ctx context.Context, snap session.Session) error
}

// ArchiveReader loads snapshots back out of the archive tier.
type ArchiveReader interface {
	Fetch(ctx context.Context, id string) (session.Session, bool, error)
	Recent(ctx context.Context, limit int64) ([]string, error)
}

// ProductSearcher finds shopping results for a set of queries.
type ProductSearcher interface {
	SearchProducts(ctx context.Context, queries []string) ([]models.Product, error)
}

// Deps wires the engine's collaborators. Reporter, Notifier, Archiver,
// Reader and Searcher are optional; nil disables the corresponding hook.
type Deps struct {
	Store      *session.Store
	Registry   *adapters.Registry
	Collector  *collector.Collector
	Searcher   ProductSearcher
	Thresholds score.Thresholds
	Reporter   Reporter
	Notifier   Notifier
	Archiver   Archiver
	Reader     ArchiveReader
}

// Engine orchestrates investigation and shopping flows over the session
// store, the adapter collector and the score aggregator, publishing
// progress as stream events.
type Engine struct {
	deps Deps
}

// New creates an engine.
func New(deps Deps) *Engine {
	return &Engine{deps: deps}
}

// Investigate runs a full first-turn investigation of a URL subject and
// streams the evidence board to pub, ending with a terminal event.
func (e *Engine) Investigate(ctx context.Context, subject adapters.Subject, pub *stream.Publisher) {
	pub.Publish(models.EventNarration, models.NarrationPayload{
		Text: fmt.Sprintf("Investigating %s", subject.Domain),
	})

	id := uuid.NewString()
	_, err := e.deps.Store.Create(id, subject.Raw)
	for errors.Is(err, session.ErrExists) {
		id = uuid.NewString()
		_, err = e.deps.Store.Create(id, subject.Raw)
	}
	if err != nil {
		pub.PublishError(fmt.Sprintf("failed to open investigation: %v", err))
		metrics.InvestigationsTotal.WithLabelValues("investigate", metrics.OutcomeError).Inc()
		return
	}
	metrics.LiveSessions.Set(float64(e.deps.Store.Len()))

	agg := score.NewAggregator(e.deps.Thresholds)
	total := e.runTurn(ctx, id, subject, e.deps.Registry.All(), agg, pub)
	e.finish(ctx, "investigate", id, subject, 1, total, agg, pub)
}

// Deepen runs a follow-up turn on an existing investigation. An unknown
// id yields a terminal error event and no session is created.
func (e *Engine) Deepen(ctx context.Context, id, focus string, pub *stream.Publisher) {
	sess, ok := e.deps.Store.Get(id)
	if !ok {
		pub.PublishError(fmt.Sprintf("unknown investigation id %q", id))
		metrics.InvestigationsTotal.WithLabelValues("deepen", metrics.OutcomeError).Inc()
		return
	}

	turn := e.deps.Store.IncrementTurn(id)
	subject := adapters.NewSubject(sess.Subject)

	text := fmt.Sprintf("Deepening investigation of %s", subject.Domain)
	if focus != "" {
		text = fmt.Sprintf("%s, focusing on %s", text, focus)
	}
	pub.Publish(models.EventNarration, models.NarrationPayload{Text: text})

	// Scores continue from the accumulated maximum, never reset.
	agg := score.NewAggregator(e.deps.Thresholds)
	agg.Seed(sess.ThreatScore)

	total := e.runTurn(ctx, id, subject, e.deps.Registry.ForFocus(focus), agg, pub)
	e.finish(ctx, "deepen", id, subject, turn, total, agg, pub)
}

// Lookup returns an investigation by id: the live store first, then the
// archive for sessions the sweeper has already evicted.
func (e *Engine) Lookup(ctx context.Context, id string) (session.Session, bool, error) {
	if sess, ok := e.deps.Store.Get(id); ok {
		return sess, true, nil
	}
	if e.deps.Reader == nil {
		return session.Session{}, false, nil
	}
	return e.deps.Reader.Fetch(ctx, id)
}

// RecentIDs lists the most recently archived investigation ids, newest
// first. Without an archive tier the list is empty.
func (e *Engine) RecentIDs(ctx context.Context, limit int64) ([]string, error) {
	if e.deps.Reader == nil {
		return nil, nil
	}
	return e.deps.Reader.Recent(ctx, limit)
}

// runTurn fans the subject out to the adapter set and streams each card
// as it lands: append to the session, rescore, emit card, connection and
// threat_score events. Returns the card count for the turn.
func (e *Engine) runTurn(ctx context.Context, id string, subject adapters.Subject, set []adapters.Adapter, agg *score.Aggregator, pub *stream.Publisher) int {
	return e.deps.Collector.Collect(ctx, subject, set, func(c models.EvidenceCard) {
		e.deps.Store.AppendCards(id, []models.EvidenceCard{c})

		metrics.CardsEmitted.WithLabelValues(c.Source).Inc()
		if c.Degraded() {
			metrics.DegradedCards.WithLabelValues(c.Source).Inc()
		}

		pub.Publish(models.EventCard, c)
		for _, conn := range c.Connections {
			pub.Publish(models.EventConnection, models.ConnectionPayload{
				From:  c.ID,
				To:    conn.To,
				Label: conn.Label,
			})
		}

		if threat, changed := agg.Add(c); changed {
			e.deps.Store.SetThreatScore(id, threat)
			pub.Publish(models.EventThreatScore, models.ThreatScorePayload{Score: threat})
		}
	})
}

// finish closes out an investigation turn: terminal done event, then the
// archive, report and webhook hooks. Sink failures are logged, never
// surfaced into the stream.
func (e *Engine) finish(ctx context.Context, op, id string, subject adapters.Subject, turn, cardCount int, agg *score.Aggregator, pub *stream.Publisher) {
	trust := agg.Trust()
	verdict := agg.Verdict()

	summaryText := fmt.Sprintf("%s scored %d/100 trust (%s) across %d evidence cards",
		subject.Domain, trust, verdict, cardCount)
	pub.Publish(models.EventNarration, models.NarrationPayload{Text: "Investigation complete"})
	pub.Publish(models.EventDone, models.DonePayload{
		Summary:         summaryText,
		InvestigationID: id,
	})

	metrics.InvestigationsTotal.WithLabelValues(op, metrics.OutcomeDone).Inc()
	metrics.Verdicts.WithLabelValues(string(verdict)).Inc()

	summary := models.InvestigationSummary{
		InvestigationID: id,
		Subject:         subject.Raw,
		Operation:       op,
		Turn:            turn,
		CardCount:       cardCount,
		ThreatScore:     agg.Threat(),
		TrustScore:      trust,
		Verdict:         verdict,
		Summary:         summaryText,
		CompletedAt:     time.Now().UTC(),
	}

	if snap, ok := e.deps.Store.Get(id); ok {
		if dangling := graph.Build(snap.Cards).Dangling(); len(dangling) > 0 {
			logger.Debugf("Investigation %s has %d dangling connections", id, len(dangling))
		}
		if e.deps.Archiver != nil {
			if err := e.deps.Archiver.Archive(ctx, snap); err != nil {
				logger.Warnf("Failed to archive investigation %s: %v", id, err)
			}
		}
	}
	if e.deps.Reporter != nil {
		if err := e.deps.Reporter.WriteSummary(summary); err != nil {
			logger.Warnf("Failed to write report for %s: %v", id, err)
		}
	}
	if e.deps.Notifier != nil && verdict == models.VerdictDanger {
		if err := e.deps.Notifier.Notify(ctx, summary); err != nil {
			logger.Warnf("Failed to notify danger verdict for %s: %v", id, err)
		}
	}
}
