package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/careerclaw/internal/channels"
	"github.com/nextlevelbuilder/careerclaw/internal/config"
)

// Channel talks to the human's Telegram chat through the Bot API.
// Polling is driven by the caller (see correlator) rather than by telego's
// long-polling helper so the offset cursor stays under our control.
type Channel struct {
	bot       *telego.Bot
	chatID    int64
	chatIDStr string
}

// New creates a Telegram channel from config.
func New(cfg config.TelegramConfig) (*Channel, error) {
	chatID, err := parseChatID(cfg.ChatID)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat_id %q: %w", cfg.ChatID, err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	opts := []telego.BotOption{
		telego.WithHTTPClient(&http.Client{Transport: transport}),
		telego.WithDiscardLogger(),
	}
	if cfg.APIServer != "" {
		opts = append(opts, telego.WithAPIServer(strings.TrimRight(cfg.APIServer, "/")))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Channel{bot: bot, chatID: chatID, chatIDStr: strconv.FormatInt(chatID, 10)}, nil
}

func (c *Channel) Name() string   { return "telegram" }
func (c *Channel) ChatID() string { return c.chatIDStr }

// Send posts an HTML message to the human's chat. If Telegram rejects the
// markup, the text is re-sent without a parse mode.
func (c *Channel) Send(ctx context.Context, text, replyTo string) (string, error) {
	msg := tu.Message(tu.ID(c.chatID), text)
	msg.ParseMode = telego.ModeHTML
	if replyTo != "" {
		replyID, err := strconv.Atoi(replyTo)
		if err != nil {
			return "", fmt.Errorf("invalid reply message id %q: %w", replyTo, err)
		}
		msg.ReplyParameters = &telego.ReplyParameters{MessageID: replyID, AllowSendingWithoutReply: true}
	}

	sent, err := c.bot.SendMessage(ctx, msg)
	if err != nil && strings.Contains(err.Error(), "can't parse entities") {
		slog.Warn("telegram rejected HTML, retrying as plain text", "error", err)
		msg.ParseMode = ""
		sent, err = c.bot.SendMessage(ctx, msg)
	}
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

// Updates performs one getUpdates call. A negative offset returns only the
// newest pending update; wait is the server-side long-poll timeout.
func (c *Channel) Updates(ctx context.Context, offset int64, wait time.Duration) ([]channels.Update, error) {
	raw, err := c.bot.GetUpdates(ctx, &telego.GetUpdatesParams{
		Offset:         int(offset),
		Timeout:        int(wait / time.Second),
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram get updates: %w", err)
	}

	out := make([]channels.Update, 0, len(raw))
	for _, u := range raw {
		out = append(out, toUpdate(u))
	}
	return out, nil
}

// toUpdate flattens a Bot API update. Updates without a message keep their
// id so the cursor still advances past them.
func toUpdate(u telego.Update) channels.Update {
	out := channels.Update{UpdateID: int64(u.UpdateID)}
	m := u.Message
	if m == nil {
		return out
	}
	out.MessageID = strconv.Itoa(m.MessageID)
	out.ChatID = strconv.FormatInt(m.Chat.ID, 10)
	out.Text = m.Text
	if m.ReplyToMessage != nil {
		out.ReplyToMessageID = strconv.Itoa(m.ReplyToMessage.MessageID)
	}
	return out
}

// parseChatID converts a string chat ID to int64.
func parseChatID(chatIDStr string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(chatIDStr), 10, 64)
}
