// Package correlator matches the human's channel replies to pending
// escalations and resolves them with a professionalized answer.
package correlator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nextlevelbuilder/careerclaw/internal/channels"
	"github.com/nextlevelbuilder/careerclaw/internal/escalation"
)

// ErrAlreadyRunning is returned by Start on a running correlator.
var ErrAlreadyRunning = errors.New("correlator: already running")

// Rewriter turns the human's raw answer into the reply sent to the employer.
type Rewriter interface {
	Rewrite(ctx context.Context, employerMessage, humanReply string) (string, error)
}

// Options control polling cadence. Zero values use the defaults.
type Options struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	StopTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = 10 * time.Second
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = 5 * time.Second
	}
	return o
}

// Correlator polls the channel in a single goroutine. Updates are handled
// one at a time in arrival order.
type Correlator struct {
	poller   channels.Poller
	chatID   string
	store    *escalation.Store
	rewriter Rewriter
	notifier *channels.Notifier
	opts     Options

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	cursor  atomic.Int64
	handled atomic.Int64
}

func New(poller channels.Poller, chatID string, store *escalation.Store, rewriter Rewriter, notifier *channels.Notifier, opts Options) *Correlator {
	return &Correlator{
		poller:   poller,
		chatID:   chatID,
		store:    store,
		rewriter: rewriter,
		notifier: notifier,
		opts:     opts.withDefaults(),
	}
}

// Start flushes the channel backlog and begins polling. Replies sent while
// the process was down are skipped.
func (c *Correlator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer func() {
			c.mu.Lock()
			if c.done == done {
				c.cancel, c.done = nil, nil
			}
			c.mu.Unlock()
			cancel()
			close(done)
		}()
		c.run(runCtx)
	}(c.done)

	slog.Info("reply correlator started", "chat_id", c.chatID, "poll_interval", c.opts.PollInterval)
	return nil
}

// Stop cancels polling and waits for the loop to exit, bounded by the stop
// timeout and ctx. An update already being handled finishes first. The
// correlator cannot be restarted until the loop has actually exited.
func (c *Correlator) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()

	timer := time.NewTimer(c.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		slog.Info("reply correlator stopped")
		return nil
	case <-timer.C:
		slog.Warn("reply correlator did not exit within timeout", "timeout", c.opts.StopTimeout)
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cursor returns the next update id the correlator will ask for.
func (c *Correlator) Cursor() int64 { return c.cursor.Load() }

// Handled counts updates that reached a known escalation.
func (c *Correlator) Handled() int64 { return c.handled.Load() }

func (c *Correlator) run(ctx context.Context) {
	c.cursor.Store(c.flush(ctx))

	for {
		updates, err := c.poller.Updates(ctx, c.cursor.Load(), c.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("reply poll failed", "error", err)
		}

		for _, u := range updates {
			if ctx.Err() != nil {
				return
			}
			c.cursor.Store(u.UpdateID + 1)
			c.handle(context.WithoutCancel(ctx), u)
		}

		if !sleep(ctx, c.opts.PollInterval) {
			return
		}
	}
}

// flush acknowledges everything queued before startup and returns the
// first update id worth handling.
func (c *Correlator) flush(ctx context.Context) int64 {
	updates, err := c.poller.Updates(ctx, channels.OffsetLatest, 0)
	if err != nil {
		slog.Warn("reply backlog flush failed, polling from the start", "error", err)
		return 0
	}
	if len(updates) == 0 {
		return 0
	}
	last := updates[len(updates)-1].UpdateID
	slog.Info("reply backlog flushed", "last_update_id", last)
	return last + 1
}

func (c *Correlator) handle(ctx context.Context, u channels.Update) {
	text := strings.TrimSpace(u.Text)
	if !u.IsReply() || u.ChatID != c.chatID || text == "" {
		return
	}
	esc, ok := c.store.FindByExternalRef(u.ReplyToMessageID)
	if !ok {
		slog.Debug("reply to unknown message ignored", "reply_to", u.ReplyToMessageID)
		return
	}
	c.handled.Add(1)
	log := slog.With("escalation_id", esc.ID, "update_id", u.UpdateID)

	if esc.Status == escalation.StatusResolved {
		log.Info("escalation already resolved, reply ignored")
		c.notifier.AlreadyAnswered(ctx, u.MessageID)
		return
	}

	professional, err := c.rewriter.Rewrite(ctx, esc.OriginalMessage, text)
	if err != nil {
		log.Warn("professionalize failed, escalation stays pending", "error", err)
		c.notifier.ProfessionalizeFailed(ctx, u.MessageID, text)
		return
	}

	if !c.store.Resolve(esc.ID, text, professional) {
		log.Info("escalation resolved concurrently, reply ignored")
		c.notifier.AlreadyAnswered(ctx, u.MessageID)
		return
	}
	log.Info("escalation resolved")
	c.notifier.ProfessionalReply(ctx, u.MessageID, professional, text)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
