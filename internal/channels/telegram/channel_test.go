package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/careerclaw/internal/channels"
	"github.com/nextlevelbuilder/careerclaw/internal/config"
)

const testToken = "123456:ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghi"

func TestToUpdateReply(t *testing.T) {
	u := telego.Update{
		UpdateID: 41,
		Message: &telego.Message{
			MessageID:      9,
			Chat:           telego.Chat{ID: -100123},
			Text:           "Salı olur",
			ReplyToMessage: &telego.Message{MessageID: 77},
		},
	}
	got := toUpdate(u)
	want := channels.Update{UpdateID: 41, MessageID: "9", ChatID: "-100123", Text: "Salı olur", ReplyToMessageID: "77"}
	if got != want {
		t.Errorf("toUpdate = %+v, want %+v", got, want)
	}
	if !got.IsReply() {
		t.Error("expected a reply")
	}
}

func TestToUpdateWithoutMessage(t *testing.T) {
	got := toUpdate(telego.Update{UpdateID: 7})
	if got.UpdateID != 7 || got.IsReply() || got.Text != "" {
		t.Errorf("toUpdate = %+v", got)
	}
}

func TestToUpdatePlainMessage(t *testing.T) {
	got := toUpdate(telego.Update{UpdateID: 8, Message: &telego.Message{MessageID: 3, Chat: telego.Chat{ID: 5}, Text: "hi"}})
	if got.IsReply() || got.ChatID != "5" {
		t.Errorf("toUpdate = %+v", got)
	}
}

func TestNewRejectsBadChatID(t *testing.T) {
	if _, err := New(config.TelegramConfig{Token: testToken, ChatID: "abc"}); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}

type botAPI struct {
	mu       sync.Mutex
	calls    []string
	bodies   []string
	sendFail int // number of sendMessage calls to reject with an entity error
}

func (b *botAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

		b.mu.Lock()
		b.calls = append(b.calls, method)
		b.bodies = append(b.bodies, string(body))
		fail := method == "sendMessage" && b.sendFail > 0
		if fail {
			b.sendFail--
		}
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case fail:
			io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: unexpected end tag"}`)
		case method == "sendMessage":
			io.WriteString(w, `{"ok":true,"result":{"message_id":77,"date":0,"chat":{"id":42,"type":"private"}}}`)
		case method == "getUpdates":
			io.WriteString(w, `{"ok":true,"result":[`+
				`{"update_id":5,"message":{"message_id":9,"date":0,"chat":{"id":42,"type":"private"},"text":"tamam",`+
				`"reply_to_message":{"message_id":77,"date":0,"chat":{"id":42,"type":"private"}}}},`+
				`{"update_id":6}]}`)
		default:
			t.Errorf("unexpected method %s", method)
			io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		}
	}
}

func newTestChannel(t *testing.T, api *botAPI) *Channel {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	ch, err := New(config.TelegramConfig{Token: testToken, ChatID: "42", APIServer: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ch
}

func TestSendReturnsMessageID(t *testing.T) {
	api := &botAPI{}
	ch := newTestChannel(t, api)

	id, err := ch.Send(context.Background(), "<b>hi</b>", "12")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "77" {
		t.Errorf("id = %q, want 77", id)
	}
	if len(api.bodies) != 1 || !strings.Contains(api.bodies[0], "HTML") {
		t.Errorf("request body lacks parse mode: %v", api.bodies)
	}
}

func TestSendFallsBackToPlainText(t *testing.T) {
	api := &botAPI{sendFail: 1}
	ch := newTestChannel(t, api)

	if _, err := ch.Send(context.Background(), "<b>broken", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(api.calls) != 2 {
		t.Fatalf("calls = %v, want two sendMessage attempts", api.calls)
	}
	if strings.Contains(api.bodies[1], "HTML") {
		t.Error("retry should drop the parse mode")
	}
}

func TestSendRejectsBadReplyID(t *testing.T) {
	ch := newTestChannel(t, &botAPI{})
	if _, err := ch.Send(context.Background(), "x", "not-a-number"); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpdates(t *testing.T) {
	api := &botAPI{}
	ch := newTestChannel(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ups, err := ch.Updates(ctx, channels.OffsetLatest, 0)
	if err != nil {
		t.Fatalf("Updates: %v", err)
	}
	if len(ups) != 2 {
		t.Fatalf("updates = %+v", ups)
	}
	if ups[0].ReplyToMessageID != "77" || ups[0].ChatID != "42" || ups[0].Text != "tamam" {
		t.Errorf("first update = %+v", ups[0])
	}
	if ups[1].UpdateID != 6 || ups[1].IsReply() {
		t.Errorf("second update = %+v", ups[1])
	}
}
