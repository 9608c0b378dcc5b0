package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"sentinel/internal/logger"
	"sentinel/pkg/models"
)

// ErrExists is returned by Create on id collision. Callers regenerate the
// id and retry; an existing session is never silently overwritten.
var ErrExists = errors.New("session id already exists")

// Session is a point-in-time snapshot of one investigation's accumulated
// state. The store hands out copies; callers never hold live references.
type Session struct {
	ID          string                `json:"id"`
	Subject     string                `json:"subject"`
	Cards       []models.EvidenceCard `json:"cards"`
	ThreatScore int                   `json:"threatScore"`
	Turn        int                   `json:"turn"`
	CreatedAt   time.Time             `json:"createdAt"`
}

type entry struct {
	mu sync.Mutex
	s  Session
}

// Store is the process-wide keyed session table. Each session has its own
// lock, so append traffic on one investigation never stalls another; the
// outer lock only guards the map itself.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*entry
	retention time.Duration
	now       func() time.Time
}

// NewStore creates a store with the given retention window.
func NewStore(retention time.Duration) *Store {
	if retention <= 0 {
		retention = time.Hour
	}
	return &Store{
		sessions:  make(map[string]*entry),
		retention: retention,
		now:       time.Now,
	}
}

// Create registers a new session with turn 1 and no cards.
func (st *Store) Create(id, subject string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; ok {
		return Session{}, ErrExists
	}
	e := &entry{s: Session{
		ID:        id,
		Subject:   subject,
		Turn:      1,
		CreatedAt: st.now(),
	}}
	st.sessions[id] = e
	return snapshot(&e.s), nil
}

// Get returns a snapshot of the session, or false if it is unknown or
// already evicted.
func (st *Store) Get(id string) (Session, bool) {
	e := st.lookup(id)
	if e == nil {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(&e.s), true
}

// AppendCards appends cards to the session's log. Appending to an absent
// session is a no-op, not an error; callers that need existence
// guarantees check Get first.
func (st *Store) AppendCards(id string, cards []models.EvidenceCard) {
	e := st.lookup(id)
	if e == nil || len(cards) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.Cards = append(e.s.Cards, cards...)
}

// SetThreatScore records the current aggregate for the session.
func (st *Store) SetThreatScore(id string, threat int) {
	e := st.lookup(id)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.ThreatScore = threat
}

// IncrementTurn bumps the turn counter and returns the new value.
func (st *Store) IncrementTurn(id string) int {
	e := st.lookup(id)
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.Turn++
	return e.s.Turn
}

// Delete removes a session explicitly.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep evicts sessions older than the retention window and returns how
// many were removed. Each candidate's own lock is taken before removal so
// eviction never interleaves with an in-flight append.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.retention)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, e := range st.sessions {
		e.mu.Lock()
		expired := e.s.CreatedAt.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until the context is cancelled.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				logger.Debugf("Evicted %d expired sessions", n)
			}
		}
	}
}

// lookup fetches the live entry under the read lock. The returned entry
// stays valid even if swept afterwards; mutations on it are then lost
// with the session, which is the documented no-op behavior.
func (st *Store) lookup(id string) *entry {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id]
}

func snapshot(s *Session) Session {
	out := *s
	out.Cards = make([]models.EvidenceCard, len(s.Cards))
	copy(out.Cards, s.Cards)
	return out
}
