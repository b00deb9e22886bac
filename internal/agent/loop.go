package agent

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/careerclaw/internal/profile"
)

// Outcome is the result of a synthesize/evaluate run.
type Outcome struct {
	Response            string
	Log                 []EvaluationRecord
	MaxRevisionsReached bool
}

// Loop drafts a reply and revises it until the evaluator approves or the
// attempt budget runs out.
//
// Draft → Evaluate → (approved? stop : carry feedback) for attempt 1..N.
type Loop struct {
	responder   *Responder
	evaluator   *Evaluator
	maxAttempts int
	tracer      trace.Tracer
}

func NewLoop(o Oracle, threshold, maxAttempts int) *Loop {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Loop{
		responder:   NewResponder(o),
		evaluator:   NewEvaluator(o, threshold),
		maxAttempts: maxAttempts,
		tracer:      otel.Tracer(tracerName),
	}
}

// MaxAttempts returns the attempt budget.
func (l *Loop) MaxAttempts() int { return l.maxAttempts }

// Run executes the loop. Attempts are strictly sequential since each one
// consumes the previous attempt's feedback. A generation or evaluation
// failure aborts the run; the partial log is discarded.
func (l *Loop) Run(ctx context.Context, message string, p *profile.Profile) (Outcome, error) {
	var (
		out      Outcome
		feedback string
	)
	out.Log = make([]EvaluationRecord, 0, l.maxAttempts)

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		rec, candidate, err := l.attempt(ctx, attempt, message, feedback, p)
		if err != nil {
			return Outcome{}, err
		}
		out.Log = append(out.Log, rec)
		out.Response = candidate

		slog.InfoContext(ctx, "reply evaluated",
			"attempt", attempt,
			"total_score", rec.TotalScore,
			"approved", rec.Approved,
			"degraded", rec.Degraded)

		if rec.Approved {
			return out, nil
		}
		feedback = rec.Feedback
		if feedback == "" {
			feedback = DefaultRevisionFeedback
		}
	}

	out.MaxRevisionsReached = true
	slog.WarnContext(ctx, "max revisions reached, returning last draft", "attempts", l.maxAttempts)
	return out, nil
}

func (l *Loop) attempt(ctx context.Context, n int, message, feedback string, p *profile.Profile) (EvaluationRecord, string, error) {
	ctx, span := l.tracer.Start(ctx, "loop.attempt", trace.WithAttributes(attribute.Int("attempt", n)))
	defer span.End()

	candidate, err := l.responder.Draft(ctx, message, feedback, p)
	if err != nil {
		recordSpanError(span, err)
		return EvaluationRecord{}, "", err
	}
	rec, err := l.evaluator.Evaluate(ctx, message, candidate)
	if err != nil {
		recordSpanError(span, err)
		return EvaluationRecord{}, "", err
	}
	rec.Attempt = n
	span.SetAttributes(
		attribute.Float64("total_score", rec.TotalScore),
		attribute.Bool("approved", rec.Approved),
		attribute.String("draft_preview", truncateStr(candidate, 200)),
	)
	return rec, candidate, nil
}
