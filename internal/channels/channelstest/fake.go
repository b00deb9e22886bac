// Package channelstest provides an in-memory channels.Channel for tests.
package channelstest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/nextlevelbuilder/careerclaw/internal/channels"
)

// Sent is a message recorded by Channel.Send.
type Sent struct {
	ID      string
	Text    string
	ReplyTo string
}

// Channel records sends and serves queued updates. Safe for concurrent use.
type Channel struct {
	mu      sync.Mutex
	chatID  string
	nextID  int
	sent    []Sent
	updates []channels.Update
	offsets []int64
	sendErr error
	pollErr error
	polled  chan struct{}
}

func New(chatID string) *Channel {
	return &Channel{
		chatID: chatID,
		nextID: 1000,
		polled: make(chan struct{}, 64),
	}
}

func (c *Channel) Name() string   { return "fake" }
func (c *Channel) ChatID() string { return c.chatID }

// FailSends makes every Send return err (nil restores success).
func (c *Channel) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// FailPolls makes every Updates call return err (nil restores success).
func (c *Channel) FailPolls(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollErr = err
}

func (c *Channel) Send(ctx context.Context, text, replyTo string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return "", c.sendErr
	}
	c.nextID++
	id := strconv.Itoa(c.nextID)
	c.sent = append(c.sent, Sent{ID: id, Text: text, ReplyTo: replyTo})
	return id, nil
}

// Push queues updates for later polls.
func (c *Channel) Push(updates ...channels.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, updates...)
}

// Sent returns a copy of every message sent so far.
func (c *Channel) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Offsets returns the offsets passed to Updates, in call order.
func (c *Channel) Offsets() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.offsets...)
}

// Polled is signalled after every Updates call.
func (c *Channel) Polled() <-chan struct{} {
	return c.polled
}

// WaitPolls blocks until n further polls happened or the timeout expires.
func (c *Channel) WaitPolls(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-c.polled:
		case <-deadline:
			return false
		}
	}
	return true
}

// Updates mirrors Bot API semantics: a negative offset returns only the
// newest update, otherwise updates with id >= offset are returned.
func (c *Channel) Updates(ctx context.Context, offset int64, wait time.Duration) ([]channels.Update, error) {
	c.mu.Lock()
	c.offsets = append(c.offsets, offset)
	err := c.pollErr
	var out []channels.Update
	if err == nil {
		if offset < 0 {
			if n := len(c.updates); n > 0 {
				out = []channels.Update{c.updates[n-1]}
			}
		} else {
			for _, u := range c.updates {
				if u.UpdateID >= offset {
					out = append(out, u)
				}
			}
		}
	}
	c.mu.Unlock()

	select {
	case c.polled <- struct{}{}:
	default:
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 && wait > 0 {
		// Simulate a short long-poll without holding up shutdown.
		t := time.NewTimer(min(wait, 5*time.Millisecond))
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return out, nil
}

// ErrUnavailable is a convenience error for simulated outages.
var ErrUnavailable = errors.New("channel unavailable")
