package channels

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"
	"unicode/utf8"
)

// Notifier renders the human-facing messages and delivers them best-effort.
// Send failures are logged and swallowed: a lost notification never aborts
// the request that triggered it. A nil sender only logs.
type Notifier struct {
	sender  Sender
	timeout time.Duration
}

func NewNotifier(sender Sender, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{sender: sender, timeout: timeout}
}

// Enabled reports whether notifications leave the process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil
}

// NewMessage tells the human an employer message arrived.
func (n *Notifier) NewMessage(ctx context.Context, sender, message string) {
	text := fmt.Sprintf("📌 <b>Yeni İşveren Mesajı</b>\n\nGönderen: %s\n\nMesaj: %s",
		esc(sender), esc(Truncate(message, 500)))
	n.send(ctx, "new_message", text, "")
}

// Escalation asks the human to answer by replying to this notification.
// It returns the notification's message id, or "" when nothing was sent.
func (n *Notifier) Escalation(ctx context.Context, reason, message string) string {
	text := fmt.Sprintf("⚠️ <b>İnsan Müdahalesi Gerekli</b>\n\n"+
		"Sebep: %s\n\n"+
		"İşveren mesajı:\n%s\n\n"+
		"💬 Bu mesaja REPLY ile cevabınızı yazın, bot profesyonel hale getirip gönderecek.",
		esc(reason), esc(Truncate(message, 400)))
	return n.send(ctx, "escalation", text, "")
}

// ResponseSent reports an automatic reply. maxRevisions flags replies that
// never reached the approval threshold.
func (n *Notifier) ResponseSent(ctx context.Context, message, response string, maxRevisions bool) {
	title := "✅ <b>Yanıt Gönderildi</b>"
	if maxRevisions {
		title = "✅ <b>Yanıt Gönderildi</b> (onay eşiğine ulaşılamadı)"
	}
	text := fmt.Sprintf("%s\n\nİşveren: %s\n\nGönderilen yanıt: %s",
		title, esc(Truncate(message, 200)), esc(Truncate(response, 300)))
	n.send(ctx, "response_sent", text, "")
}

// ProfessionalReply confirms a resolved escalation under the human's reply.
func (n *Notifier) ProfessionalReply(ctx context.Context, replyTo, transformed, original string) {
	text := fmt.Sprintf("✅ <b>Profesyonel Yanıt (İşverene gönderildi):</b>\n\n%s\n\n"+
		"───────────\n"+
		"📝 <b>Orijinal cevabınız:</b> %s",
		esc(transformed), esc(original))
	n.send(ctx, "professional_reply", text, replyTo)
}

// ProfessionalizeFailed tells the human their reply could not be rewritten.
// The escalation stays pending so a later reply can still resolve it.
func (n *Notifier) ProfessionalizeFailed(ctx context.Context, replyTo, original string) {
	text := fmt.Sprintf("⚠️ Profesyonelleştirme başarısız.\n\nOrijinal: %s", esc(original))
	n.send(ctx, "professionalize_failed", text, replyTo)
}

// AlreadyAnswered tells the human an escalation was resolved earlier.
func (n *Notifier) AlreadyAnswered(ctx context.Context, replyTo string) {
	n.send(ctx, "already_answered", "ℹ️ Bu soru daha önce yanıtlandı; yeni cevabınız iletilmedi.", replyTo)
}

func (n *Notifier) send(ctx context.Context, kind, text, replyTo string) string {
	if !n.Enabled() {
		slog.Info("notification (channel disabled)", "kind", kind)
		return ""
	}
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	id, err := n.sender.Send(sendCtx, text, replyTo)
	if err != nil {
		slog.Warn("notification failed", "kind", kind, "error", err)
		return ""
	}
	slog.Debug("notification sent", "kind", kind, "message_id", id)
	return id
}

func esc(s string) string {
	return html.EscapeString(s)
}

// Truncate shortens s to at most n runes without splitting a character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
