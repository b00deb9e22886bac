package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nextlevelbuilder/careerclaw/internal/channels"
	"github.com/nextlevelbuilder/careerclaw/internal/channels/channelstest"
	"github.com/nextlevelbuilder/careerclaw/internal/escalation"
	"github.com/nextlevelbuilder/careerclaw/internal/profile"
	"github.com/nextlevelbuilder/careerclaw/internal/providers"
)

type staticProfile struct{ p *profile.Profile }

func (s staticProfile) Current() *profile.Profile { return s.p }

type pipelineFixture struct {
	pipeline *Pipeline
	store    *escalation.Store
	channel  *channelstest.Channel
	oracle   *scripted
}

func newPipelineFixture(t *testing.T, notifyNew bool, h func(req GenerateRequest, n int) (string, error)) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		store:   escalation.NewStore(),
		channel: channelstest.New("42"),
		oracle:  newScripted(h),
	}
	f.pipeline = NewPipeline(f.oracle, f.store, channels.NewNotifier(f.channel, time.Second),
		staticProfile{emptyProfile}, Options{
			Threshold:         70,
			MaxAttempts:       3,
			HandoffMessage:    "Adayın kendisi size dönüş yapacaktır.",
			NotifyNewMessages: notifyNew,
		})
	return f
}

func TestProcessKeywordEscalation(t *testing.T) {
	f := newPipelineFixture(t, true, func(req GenerateRequest, n int) (string, error) {
		t.Errorf("oracle called for stage %s", req.Stage)
		return "", nil
	})

	res, err := f.pipeline.Process(context.Background(), "Brüt maaş beklentiniz nedir?", "acme")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.HumanIntervention || !res.IsEscalated() {
		t.Fatal("expected escalation")
	}
	if res.EvaluationLog == nil || len(res.EvaluationLog) != 0 {
		t.Errorf("evaluation log = %#v, want empty non-nil", res.EvaluationLog)
	}
	if res.Response != "Adayın kendisi size dönüş yapacaktır." {
		t.Errorf("response = %q", res.Response)
	}
	if res.Screening.Source != string(escalation.SourceKeyword) || res.Screening.Category != "salary" || !res.Screening.IsUnknownOrUnsafe {
		t.Errorf("screening = %+v", res.Screening)
	}

	sent := f.channel.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d notifications, want new-message + escalation", len(sent))
	}
	esc, ok := f.store.FindByExternalRef(sent[1].ID)
	if !ok || esc.ID != res.EscalationID {
		t.Fatalf("escalation not linked to notification %s", sent[1].ID)
	}
	if esc.Status != escalation.StatusPending || esc.Source != escalation.SourceKeyword {
		t.Errorf("escalation = %+v", esc)
	}
}

func TestProcessGateEscalation(t *testing.T) {
	f := newPipelineFixture(t, false, func(req GenerateRequest, n int) (string, error) {
		if req.Stage != StageGate {
			t.Errorf("unexpected stage %s", req.Stage)
		}
		return `{"can_respond": false, "reason": "live coding test", "category": "technical"}`, nil
	})

	res, err := f.pipeline.Process(context.Background(), "Can you join a live coding session?", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.HumanIntervention || res.Screening.Source != "gate" || res.Screening.Category != "technical" {
		t.Fatalf("result = %+v", res)
	}
	esc, ok := f.store.Get(res.EscalationID)
	if !ok {
		t.Fatal("escalation not stored")
	}
	if esc.Sender != "Unknown" || esc.ExternalRef == "" {
		t.Errorf("escalation = %+v", esc)
	}
	if len(f.channel.Sent()) != 1 {
		t.Errorf("new-message notification should be disabled")
	}
}

func TestProcessAutoReply(t *testing.T) {
	f := newPipelineFixture(t, true, func(req GenerateRequest, n int) (string, error) {
		switch req.Stage {
		case StageGate:
			return `{"can_respond": true, "reason": "scheduling", "category": "safe"}`, nil
		case StageRespond:
			return "Evet, Çarşamba 14:00 uygundur.", nil
		case StageEvaluate:
			return evalJSON(88, "good"), nil
		}
		return "", errors.New("unexpected")
	})

	res, err := f.pipeline.Process(context.Background(), "Çarşamba 14:00 uygun mu?", "acme")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.HumanIntervention || res.EscalationID != "" {
		t.Fatalf("unexpected escalation: %+v", res)
	}
	if len(res.EvaluationLog) != 1 || !res.EvaluationLog[0].Approved {
		t.Fatalf("log = %+v", res.EvaluationLog)
	}
	if res.Response != "Evet, Çarşamba 14:00 uygundur." {
		t.Errorf("response = %q", res.Response)
	}
	if res.Screening.Source != ScreeningPassed || res.Screening.Confidence != 1.0 {
		t.Errorf("screening = %+v", res.Screening)
	}

	sent := f.channel.Sent()
	if len(sent) != 2 || !strings.Contains(sent[1].Text, "Yanıt Gönderildi") {
		t.Fatalf("sent = %+v", sent)
	}
	if st := f.store.Stats(); st.Pending != 0 {
		t.Errorf("pending = %d, want 0", st.Pending)
	}
}

func TestProcessMaxRevisionsFlagsNotification(t *testing.T) {
	f := newPipelineFixture(t, false, func(req GenerateRequest, n int) (string, error) {
		switch req.Stage {
		case StageGate:
			return `{"can_respond": true}`, nil
		case StageRespond:
			return "draft", nil
		}
		return evalJSON(10, "worse"), nil
	})
	res, err := f.pipeline.Process(context.Background(), "Merhaba", "acme")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.MaxRevisionsReached {
		t.Fatal("expected max revisions")
	}
	sent := f.channel.Sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "onay eşiğine ulaşılamadı") {
		t.Errorf("sent = %+v", sent)
	}
}

func TestProcessDegradedGateStillReplies(t *testing.T) {
	f := newPipelineFixture(t, false, func(req GenerateRequest, n int) (string, error) {
		switch req.Stage {
		case StageGate:
			return "", providers.ErrUpstreamUnavailable
		case StageRespond:
			return "Merhaba!", nil
		}
		return evalJSON(90, ""), nil
	})
	res, err := f.pipeline.Process(context.Background(), "Merhaba", "acme")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Screening.Degraded || res.Screening.Reason != ReasonGateUnavailable {
		t.Errorf("screening = %+v", res.Screening)
	}
}

func TestProcessGenerationFailure(t *testing.T) {
	f := newPipelineFixture(t, false, func(req GenerateRequest, n int) (string, error) {
		switch req.Stage {
		case StageGate:
			return `{"can_respond": true}`, nil
		case StageRespond:
			return "", providers.ErrUpstreamUnavailable
		}
		return "", nil
	})
	res, err := f.pipeline.Process(context.Background(), "Merhaba", "acme")
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	for _, target := range []error{ErrNoResponse, ErrGenerationFailed, providers.ErrUpstreamUnavailable} {
		if !errors.Is(err, target) {
			t.Errorf("err = %v, want wrapping %v", err, target)
		}
	}
}

func TestProcessEscalationWithoutChannel(t *testing.T) {
	store := escalation.NewStore()
	p := NewPipeline(OracleFunc(func(context.Context, GenerateRequest) (string, error) {
		return "", errors.New("unused")
	}), store, nil, staticProfile{emptyProfile}, Options{})

	res, err := p.Process(context.Background(), "NDA imzalamanız gerekiyor", "acme")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	esc, ok := store.Get(res.EscalationID)
	if !ok || esc.ExternalRef != "" || esc.Category != escalation.CategoryLegal {
		t.Fatalf("escalation = %+v ok=%v", esc, ok)
	}
	if res.Response == "" {
		t.Error("handoff message should fall back to a default")
	}
}

func TestProcessEmptyMessage(t *testing.T) {
	f := newPipelineFixture(t, true, func(GenerateRequest, int) (string, error) { return "", nil })
	if _, err := f.pipeline.Process(context.Background(), "   ", "acme"); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
	if len(f.channel.Sent()) != 0 {
		t.Error("nothing should be sent for an empty message")
	}
}

func TestProcessZeroThresholdApprovesFirstDraft(t *testing.T) {
	o := newScripted(func(req GenerateRequest, n int) (string, error) {
		switch req.Stage {
		case StageGate:
			return `{"can_respond": true}`, nil
		case StageRespond:
			return "draft", nil
		}
		return evalJSON(10, "weak"), nil
	})
	p := NewPipeline(o, escalation.NewStore(), nil, staticProfile{emptyProfile}, Options{Threshold: 0, MaxAttempts: 3})

	res, err := p.Process(context.Background(), "Merhaba", "acme")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.EvaluationLog) != 1 || !res.EvaluationLog[0].Approved || res.MaxRevisionsReached {
		t.Fatalf("log = %+v max_revisions=%v", res.EvaluationLog, res.MaxRevisionsReached)
	}
	if got := o.count(StageEvaluate); got != 1 {
		t.Errorf("evaluate calls = %d, want 1", got)
	}
}

// ctxSender fails once its context is done, like a real network send.
type ctxSender struct {
	mu   sync.Mutex
	sent int
}

func (s *ctxSender) Send(ctx context.Context, text, replyTo string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	return fmt.Sprintf("%d", 500+s.sent), nil
}

func TestProcessEscalationLinkedAfterCallerCancels(t *testing.T) {
	store := escalation.NewStore()
	p := NewPipeline(OracleFunc(func(context.Context, GenerateRequest) (string, error) {
		return "", errors.New("unused")
	}), store, channels.NewNotifier(&ctxSender{}, time.Second), staticProfile{emptyProfile}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Process(ctx, "Brüt maaş beklentiniz nedir?", "acme")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	esc, ok := store.Get(res.EscalationID)
	if !ok || esc.ExternalRef == "" {
		t.Fatalf("escalation = %+v, want linked to a notification", esc)
	}
	if found, ok := store.FindByExternalRef(esc.ExternalRef); !ok || found.ID != esc.ID {
		t.Errorf("FindByExternalRef(%q) = %+v, %v", esc.ExternalRef, found, ok)
	}
}
