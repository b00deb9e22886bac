// Package escalation tracks messages handed off to the human until their
// reply arrives. All state lives in memory behind a single mutex.
package escalation

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is a linearizable in-memory escalation registry. Safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	items     map[string]*Escalation
	byRef     map[string]string // external ref -> escalation id
	now       func() time.Time
	newID     func() string
	observers []Observer
}

type Option func(*Store)

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the id source. Colliding ids are re-drawn.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithObserver registers o for lifecycle events.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		items: make(map[string]*Escalation),
		byRef: make(map[string]string),
		now:   time.Now,
		newID: randomID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// randomID returns 12 hex characters taken from a random UUID.
func randomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Create registers a pending escalation and returns its id.
func (s *Store) Create(n NewEscalation) string {
	s.mu.Lock()
	id := s.newID()
	for attempts := 0; s.items[id] != nil; attempts++ {
		if attempts >= 100 {
			// the generator keeps colliding; fall back to the default source
			id = randomID()
			continue
		}
		id = s.newID()
	}
	e := &Escalation{
		ID:              id,
		Status:          StatusPending,
		OriginalMessage: n.OriginalMessage,
		Sender:          n.Sender,
		Reason:          n.Reason,
		Category:        ParseCategory(string(n.Category)),
		Source:          n.Source,
		CreatedAt:       s.now(),
	}
	s.items[id] = e
	snap := snapshot(e)
	s.mu.Unlock()

	s.emit(EventCreated, snap)
	return id
}

// LinkExternalRef attaches the outbound notification id to an escalation.
// The first link wins; later calls, unknown ids, empty refs and refs already
// owned by another escalation return false.
func (s *Store) LinkExternalRef(id, ref string) bool {
	if ref == "" {
		return false
	}
	s.mu.Lock()
	e, ok := s.items[id]
	if !ok || e.ExternalRef != "" {
		s.mu.Unlock()
		return false
	}
	if owner, taken := s.byRef[ref]; taken && owner != id {
		s.mu.Unlock()
		slog.Warn("escalation: external ref already linked", "ref", ref, "owner", owner, "id", id)
		return false
	}
	e.ExternalRef = ref
	s.byRef[ref] = id
	snap := snapshot(e)
	s.mu.Unlock()

	s.emit(EventLinked, snap)
	return true
}

// Resolve moves a pending escalation to resolved exactly once.
// Unknown or already-resolved ids are a no-op and return false.
func (s *Store) Resolve(id, humanText, transformedText string) bool {
	s.mu.Lock()
	e, ok := s.items[id]
	if !ok || e.Status != StatusPending {
		s.mu.Unlock()
		return false
	}
	at := s.now()
	e.Status = StatusResolved
	e.Resolution = &Resolution{HumanText: humanText, TransformedText: transformedText}
	e.ResolvedAt = &at
	snap := snapshot(e)
	s.mu.Unlock()

	s.emit(EventResolved, snap)
	return true
}

// Get returns a snapshot of the escalation.
func (s *Store) Get(id string) (Escalation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return Escalation{}, false
	}
	return snapshot(e), true
}

// FindByExternalRef returns the escalation linked to ref, in any status.
func (s *Store) FindByExternalRef(ref string) (Escalation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRef[ref]
	if !ok {
		return Escalation{}, false
	}
	e, ok := s.items[id]
	if !ok {
		return Escalation{}, false
	}
	return snapshot(e), true
}

// List returns snapshots ordered by creation time. An empty status lists all.
func (s *Store) List(status Status) []Escalation {
	s.mu.Lock()
	out := make([]Escalation, 0, len(s.items))
	for _, e := range s.items {
		if status == "" || e.Status == status {
			out = append(out, snapshot(e))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	for _, e := range s.items {
		if e.Status == StatusResolved {
			st.Resolved++
		} else {
			st.Pending++
		}
	}
	return st
}

func (s *Store) emit(t EventType, snap Escalation) {
	if len(s.observers) == 0 {
		return
	}
	ev := Event{Type: t, Escalation: snap, At: s.now()}
	for _, o := range s.observers {
		o.OnEscalationEvent(ev)
	}
}

func snapshot(e *Escalation) Escalation {
	cp := *e
	if e.Resolution != nil {
		r := *e.Resolution
		cp.Resolution = &r
	}
	if e.ResolvedAt != nil {
		t := *e.ResolvedAt
		cp.ResolvedAt = &t
	}
	return cp
}
