// Package journal persists escalation lifecycle events to sqlite or
// postgres. It is an audit trail only: the in-memory escalation store stays
// the source of truth and nothing is replayed from here on startup.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nextlevelbuilder/careerclaw/internal/config"
	"github.com/nextlevelbuilder/careerclaw/internal/escalation"
)

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal: closed")

const defaultBufferSize = 256

// Entry is one recorded lifecycle event.
type Entry struct {
	ID           int64                 `json:"id"`
	EscalationID string                `json:"escalation_id"`
	Type         escalation.EventType  `json:"type"`
	Status       escalation.Status     `json:"status"`
	Category     escalation.Category   `json:"category"`
	Source       escalation.Source     `json:"source"`
	ExternalRef  string                `json:"external_ref,omitempty"`
	Snapshot     escalation.Escalation `json:"snapshot"`
	At           time.Time             `json:"at"`
}

type dialect struct {
	insert  string
	recent  string
	history string
}

const selectColumns = `SELECT id, escalation_id, event_type, status, category, source, external_ref, payload, occurred_at FROM escalation_events`

var dialects = map[string]dialect{
	DriverSQLite: {
		insert: `INSERT INTO escalation_events (escalation_id, event_type, status, category, source, external_ref, payload, occurred_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		recent:  selectColumns + ` ORDER BY id DESC LIMIT ?`,
		history: selectColumns + ` WHERE escalation_id = ? ORDER BY id`,
	},
	DriverPostgres: {
		insert: `INSERT INTO escalation_events (escalation_id, event_type, status, category, source, external_ref, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)`,
		recent:  selectColumns + ` ORDER BY id DESC LIMIT $1`,
		history: selectColumns + ` WHERE escalation_id = $1 ORDER BY id`,
	},
}

type item struct {
	ev      escalation.Event
	flushed chan struct{}
}

// Journal writes events asynchronously through a bounded queue. When the
// queue is full new events are dropped and counted.
type Journal struct {
	db     *sql.DB
	driver string
	q      dialect

	mu     sync.RWMutex
	closed bool
	queue  chan item
	done   chan struct{}

	dropped atomic.Int64
}

// Open connects, applies pending migrations and starts the writer.
func Open(ctx context.Context, cfg config.JournalConfig) (*Journal, error) {
	q, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s journal: %w", cfg.Driver, err)
	}

	// The migrator shares db; closing it would close db too.
	m, err := newMigrator(cfg.Driver, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := migrateUp(m); err != nil {
		db.Close()
		return nil, err
	}

	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	j := &Journal{
		db:     db,
		driver: cfg.Driver,
		q:      q,
		queue:  make(chan item, size),
		done:   make(chan struct{}),
	}
	go j.writer()

	slog.Info("escalation journal opened", "driver", cfg.Driver, "buffer", size)
	return j, nil
}

// Driver returns the database driver name.
func (j *Journal) Driver() string { return j.driver }

// Dropped counts events lost to a full queue.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// OnEscalationEvent queues e without blocking the store.
func (j *Journal) OnEscalationEvent(e escalation.Event) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.queue <- item{ev: e}:
	default:
		j.dropped.Add(1)
		slog.Warn("journal queue full, event dropped", "escalation_id", e.Escalation.ID, "type", e.Type)
	}
}

// Flush waits until every event queued before the call is written.
func (j *Journal) Flush(ctx context.Context) error {
	ch := make(chan struct{})

	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return ErrClosed
	}
	select {
	case j.queue <- item{flushed: ch}:
	case <-ctx.Done():
		j.mu.RUnlock()
		return ctx.Err()
	}
	j.mu.RUnlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and closes the database. Events still queued when
// ctx expires are lost.
func (j *Journal) Close(ctx context.Context) error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	select {
	case <-j.done:
	case <-ctx.Done():
		slog.Warn("journal writer did not drain before shutdown", "pending", len(j.queue))
	}
	return j.db.Close()
}

func (j *Journal) writer() {
	defer close(j.done)
	for it := range j.queue {
		if it.flushed != nil {
			close(it.flushed)
			continue
		}
		if err := j.insert(context.Background(), it.ev); err != nil {
			slog.Warn("journal write failed", "escalation_id", it.ev.Escalation.ID, "type", it.ev.Type, "error", err)
		}
	}
}

func (j *Journal) insert(ctx context.Context, e escalation.Event) error {
	payload, err := json.Marshal(e.Escalation)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	s := e.Escalation
	_, err = j.db.ExecContext(ctx, j.q.insert,
		s.ID, string(e.Type), string(s.Status), string(s.Category), string(s.Source),
		s.ExternalRef, string(payload), e.At.UnixMilli())
	return err
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, j.q.recent, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	return scanEntries(rows)
}

// History returns every entry for one escalation, oldest first.
func (j *Journal) History(ctx context.Context, escalationID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, j.q.history, escalationID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			payload []byte
			atMs    int64
		)
		if err := rows.Scan(&e.ID, &e.EscalationID, &e.Type, &e.Status, &e.Category, &e.Source,
			&e.ExternalRef, &payload, &atMs); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", e.ID, err)
		}
		e.At = time.UnixMilli(atMs).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
