package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nextlevelbuilder/careerclaw/internal/escalation"
	"github.com/nextlevelbuilder/careerclaw/internal/profile"
)

// scripted is an Oracle that dispatches on stage and counts calls per stage.
type scripted struct {
	mu      sync.Mutex
	calls   []GenerateRequest
	counts  map[Stage]int
	handler func(req GenerateRequest, n int) (string, error)
}

func newScripted(h func(req GenerateRequest, n int) (string, error)) *scripted {
	return &scripted{counts: map[Stage]int{}, handler: h}
}

func (s *scripted) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	s.mu.Lock()
	s.counts[req.Stage]++
	n := s.counts[req.Stage]
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	return s.handler(req, n)
}

func (s *scripted) count(st Stage) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[st]
}

func (s *scripted) requests(st Stage) []GenerateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []GenerateRequest
	for _, r := range s.calls {
		if r.Stage == st {
			out = append(out, r)
		}
	}
	return out
}

func evalJSON(total int, feedback string) string {
	return fmt.Sprintf(`{"scores":{"professional_tone":%[1]d,"clarity":%[1]d,"completeness":%[1]d,"safety":%[1]d,"relevance":%[1]d},"total_score":%[1]d,"feedback":%[2]q,"approved":false}`,
		total, feedback)
}

var emptyProfile = &profile.Profile{}

func TestGateCheck(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
		want Decision
	}{
		{
			name: "allowed",
			raw:  `{"can_respond": true, "reason": "interview invitation", "category": "safe"}`,
			want: Decision{CanRespond: true, Reason: "interview invitation"},
		},
		{
			name: "escalated with fences",
			raw:  "```json\n{\"can_respond\": false, \"reason\": \"salary talk\", \"category\": \"salary\"}\n```",
			want: Decision{Reason: "salary talk", Category: escalation.CategorySalary},
		},
		{
			name: "unknown category normalized",
			raw:  `Sure! {"can_respond": false, "reason": "x", "category": "Visa"}`,
			want: Decision{Reason: "x", Category: escalation.CategoryOther},
		},
		{
			name: "missing can_respond defaults to allow",
			raw:  `{"reason": "looks fine"}`,
			want: Decision{CanRespond: true, Reason: "looks fine"},
		},
		{
			name: "oracle error fails open",
			err:  errors.New("boom"),
			want: Decision{CanRespond: true, Reason: ReasonGateUnavailable, Degraded: true},
		},
		{
			name: "garbage fails open",
			raw:  "I cannot decide",
			want: Decision{CanRespond: true, Reason: ReasonGateUnreadable, Degraded: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newScripted(func(GenerateRequest, int) (string, error) { return tt.raw, tt.err })
			got := NewGate(o).Check(context.Background(), "hello", emptyProfile)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("decision mismatch (-want +got):\n%s", diff)
			}
			req := o.requests(StageGate)[0]
			if req.Temperature != gateTemperature || req.JSON == nil {
				t.Errorf("gate request temperature=%v json=%v", req.Temperature, req.JSON)
			}
		})
	}
}

func TestEvaluatorRecomputesApproval(t *testing.T) {
	o := newScripted(func(GenerateRequest, int) (string, error) {
		return `{"scores":{"clarity":50},"total_score":50,"feedback":"more detail","approved":true}`, nil
	})
	rec, err := NewEvaluator(o, 70).Evaluate(context.Background(), "q", "a")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.Approved {
		t.Error("approved must follow total_score, not the oracle flag")
	}
	if rec.Feedback != "more detail" {
		t.Errorf("feedback = %q", rec.Feedback)
	}
}

func TestEvaluatorMissingTotalUsesMean(t *testing.T) {
	o := newScripted(func(GenerateRequest, int) (string, error) {
		return `{"scores":{"clarity":60,"safety":90}}`, nil
	})
	rec, err := NewEvaluator(o, 70).Evaluate(context.Background(), "q", "a")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.TotalScore != 75 || !rec.Approved {
		t.Errorf("total = %v approved = %v, want 75 true", rec.TotalScore, rec.Approved)
	}
}

func TestEvaluatorUnparseableUsesNeutralScores(t *testing.T) {
	o := newScripted(func(GenerateRequest, int) (string, error) { return "great answer!", nil })
	rec, err := NewEvaluator(o, 70).Evaluate(context.Background(), "q", "a")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := EvaluationRecord{
		Scores: map[string]float64{
			"professional_tone": 70, "clarity": 70, "completeness": 70, "safety": 70, "relevance": 70,
		},
		TotalScore: 70,
		Feedback:   FallbackFeedback,
		Approved:   true,
		Degraded:   true,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatorOracleErrorIsFatal(t *testing.T) {
	o := newScripted(func(GenerateRequest, int) (string, error) { return "", errors.New("timeout") })
	_, err := NewEvaluator(o, 70).Evaluate(context.Background(), "q", "a")
	if !errors.Is(err, ErrEvaluationFailed) {
		t.Fatalf("err = %v, want ErrEvaluationFailed", err)
	}
}

func TestLoopApprovesOnThirdAttempt(t *testing.T) {
	scores := []int{40, 55, 85}
	o := newScripted(func(req GenerateRequest, n int) (string, error) {
		switch req.Stage {
		case StageRespond:
			return fmt.Sprintf("draft %d", n), nil
		case StageEvaluate:
			return evalJSON(scores[n-1], fmt.Sprintf("fix %d", n)), nil
		}
		return "", fmt.Errorf("unexpected stage %s", req.Stage)
	})

	out, err := NewLoop(o, 70, 3).Run(context.Background(), "Çarşamba 14:00 uygun mu?", emptyProfile)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Response != "draft 3" {
		t.Errorf("response = %q, want draft 3", out.Response)
	}
	if out.MaxRevisionsReached {
		t.Error("max revisions should not be reached")
	}
	if len(out.Log) != 3 || !out.Log[2].Approved || out.Log[0].Approved || out.Log[1].Approved {
		t.Fatalf("unexpected log: %+v", out.Log)
	}
	for i, rec := range out.Log {
		if rec.Attempt != i+1 {
			t.Errorf("log[%d].Attempt = %d", i, rec.Attempt)
		}
	}

	drafts := o.requests(StageRespond)
	if strings.Contains(drafts[0].Prompt, "feedback") {
		t.Error("first attempt must not carry feedback")
	}
	if !strings.Contains(drafts[1].Prompt, "fix 1") || !strings.Contains(drafts[2].Prompt, "fix 2") {
		t.Error("feedback not carried into later attempts")
	}
}

func TestLoopMaxRevisionsReturnsLastDraft(t *testing.T) {
	o := newScripted(func(req GenerateRequest, n int) (string, error) {
		if req.Stage == StageRespond {
			return fmt.Sprintf("draft %d", n), nil
		}
		return evalJSON(30, ""), nil
	})

	out, err := NewLoop(o, 70, 3).Run(context.Background(), "hi", emptyProfile)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.MaxRevisionsReached || out.Response != "draft 3" || len(out.Log) != 3 {
		t.Fatalf("outcome = %+v", out)
	}
	if got := o.count(StageEvaluate); got != 3 {
		t.Errorf("evaluator calls = %d, want 3", got)
	}
	if !strings.Contains(o.requests(StageRespond)[1].Prompt, DefaultRevisionFeedback) {
		t.Error("empty feedback should fall back to the default revision note")
	}
}

func TestLoopEmptyGenerationIsFatal(t *testing.T) {
	o := newScripted(func(req GenerateRequest, n int) (string, error) {
		if req.Stage == StageRespond {
			return "  \n", nil
		}
		t.Error("evaluator must not run after an empty draft")
		return "", nil
	})
	_, err := NewLoop(o, 70, 3).Run(context.Background(), "hi", emptyProfile)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
}

func TestProfessionalizerRewrite(t *testing.T) {
	o := newScripted(func(req GenerateRequest, n int) (string, error) {
		if req.Temperature != professionalizeTemperature {
			t.Errorf("temperature = %v", req.Temperature)
		}
		return "Professional version:\nThank you, the expectation is 80k.", nil
	})
	got, err := NewProfessionalizer(o).Rewrite(context.Background(), "salary?", "80k")
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got != "Thank you, the expectation is 80k." {
		t.Errorf("got %q", got)
	}

	empty := newScripted(func(GenerateRequest, int) (string, error) { return "", nil })
	if _, err := NewProfessionalizer(empty).Rewrite(context.Background(), "q", "a"); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("err = %v, want ErrGenerationFailed", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"plain", `{"a": 1}`, true},
		{"fenced", "```json\n{\"a\": 1}\n```", true},
		{"prose around", "Here you go: {\"a\": 1} hope it helps", true},
		{"no object", "nothing here", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct{ A int }
			err := decodeJSON(tt.raw, &v)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if tt.ok && v.A != 1 {
				t.Errorf("A = %d", v.A)
			}
		})
	}
}

func TestSanitizeReply(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<think>plan the answer</think>\nMerhaba, uygunum.", "Merhaba, uygunum."},
		{"<final>Hello</final>", "Hello"},
		{`"Quoted reply"`, "Quoted reply"},
		{"Yanıt: Teşekkürler.", "Teşekkürler."},
		{"Same block\n\nSame block\n\nOther", "Same block\n\nOther"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeReply(tt.in); got != tt.want {
			t.Errorf("SanitizeReply(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
