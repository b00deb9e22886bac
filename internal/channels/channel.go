// Package channels connects the assistant to the human behind it.
// A channel sends notifications and returns the human's replies, which the
// correlator matches back to pending escalations.
package channels

import (
	"context"
	"time"
)

// OffsetLatest asks Updates for only the newest pending update, which lets a
// poller skip any backlog accumulated while it was offline.
const OffsetLatest int64 = -1

// Update is one inbound message from the human's chat.
type Update struct {
	UpdateID         int64
	MessageID        string
	ChatID           string
	Text             string
	ReplyToMessageID string // empty when the message is not a reply
}

// IsReply reports whether the update answers an earlier message.
func (u Update) IsReply() bool {
	return u.ReplyToMessageID != ""
}

// Sender delivers a message to the human's chat.
type Sender interface {
	// Send posts text (HTML formatted) and returns the platform message id.
	// replyTo threads the message under an earlier one when non-empty.
	Send(ctx context.Context, text, replyTo string) (string, error)
}

// Poller fetches updates with id >= offset, waiting up to wait for new ones.
type Poller interface {
	Updates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error)
}

// Channel is a two-way link to the human.
type Channel interface {
	Sender
	Poller

	// Name returns the channel identifier (e.g. "telegram").
	Name() string

	// ChatID is the only chat whose replies are accepted.
	ChatID() string
}
