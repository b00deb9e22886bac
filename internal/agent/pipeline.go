package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/careerclaw/internal/channels"
	"github.com/nextlevelbuilder/careerclaw/internal/escalation"
	"github.com/nextlevelbuilder/careerclaw/internal/profile"
	"github.com/nextlevelbuilder/careerclaw/internal/risk"
)

const (
	escalationConfidence = 0.95
	passedConfidence     = 1.0

	// ScreeningPassed is the screening source of messages answered automatically.
	ScreeningPassed = "passed"
	// CategorySafe is the screening category of messages answered automatically.
	CategorySafe = "safe"
)

// ProfileSource yields the profile to use for the next request.
// Current must never return nil.
type ProfileSource interface {
	Current() *profile.Profile
}

// Options tune the pipeline. Threshold is clamped to [0, 100] and 0 approves
// every draft; a zero MaxAttempts falls back to 3.
type Options struct {
	Threshold         int
	MaxAttempts       int
	HandoffMessage    string
	NotifyNewMessages bool
}

// Screening reports how the message was classified before any reply was drafted.
type Screening struct {
	IsUnknownOrUnsafe bool    `json:"is_unknown_or_unsafe"`
	Confidence        float64 `json:"confidence"`
	Reason            string  `json:"reason"`
	Category          string  `json:"category"`
	Source            string  `json:"source"`
	Degraded          bool    `json:"degraded,omitempty"`
}

// Result is either an automatic reply or an escalation, never both.
// Use IsEscalated to tell them apart.
type Result struct {
	Response            string             `json:"response"`
	HumanIntervention   bool               `json:"human_intervention"`
	EscalationID        string             `json:"escalation_id,omitempty"`
	EvaluationLog       []EvaluationRecord `json:"evaluation_log"`
	MaxRevisionsReached bool               `json:"max_revisions_reached"`
	Screening           Screening          `json:"unknown_result"`
}

// IsEscalated reports whether the message was handed to the human.
func (r *Result) IsEscalated() bool { return r.HumanIntervention }

func autoReply(out Outcome, s Screening) *Result {
	return &Result{
		Response:            out.Response,
		EvaluationLog:       out.Log,
		MaxRevisionsReached: out.MaxRevisionsReached,
		Screening:           s,
	}
}

func escalated(id, handoff string, s Screening) *Result {
	return &Result{
		Response:          handoff,
		HumanIntervention: true,
		EscalationID:      id,
		EvaluationLog:     []EvaluationRecord{},
		Screening:         s,
	}
}

// Pipeline routes one employer message through screening, the policy gate
// and the synthesize/evaluate loop, escalating to the human when needed.
type Pipeline struct {
	gate     *Gate
	loop     *Loop
	store    *escalation.Store
	notifier *channels.Notifier
	profiles ProfileSource
	opts     Options
	tracer   trace.Tracer
}

// NewPipeline wires the stages. A nil notifier only logs.
func NewPipeline(o Oracle, store *escalation.Store, notifier *channels.Notifier, profiles ProfileSource, opts Options) *Pipeline {
	opts.Threshold = min(max(opts.Threshold, 0), 100)
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Pipeline{
		gate:     NewGate(o),
		loop:     NewLoop(o, opts.Threshold, opts.MaxAttempts),
		store:    store,
		notifier: notifier,
		profiles: profiles,
		opts:     opts,
		tracer:   otel.Tracer(tracerName),
	}
}

// Process handles one message. Stages run strictly in order and the first
// one that decides wins. Errors wrap ErrNoResponse or ErrEmptyMessage.
func (p *Pipeline) Process(ctx context.Context, message, sender string) (*Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if sender == "" {
		sender = "Unknown"
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.Int("message.chars", len([]rune(message))),
	))
	defer span.End()

	if p.opts.NotifyNewMessages {
		p.notifier.NewMessage(ctx, sender, message)
	}

	if sig := risk.Check(message); sig != nil {
		slog.InfoContext(ctx, "risk filter matched", "category", sig.Category, "pattern", sig.Pattern)
		span.SetAttributes(attribute.String("route", "keyword"))
		return p.escalate(ctx, message, escalation.NewEscalation{
			OriginalMessage: message,
			Sender:          sender,
			Reason:          sig.Reason,
			Category:        escalation.Category(sig.Category),
			Source:          escalation.SourceKeyword,
		}), nil
	}

	prof := p.profiles.Current()
	d := p.gate.Check(ctx, message, prof)
	if !d.CanRespond {
		slog.InfoContext(ctx, "policy gate escalated", "category", d.Category, "reason", d.Reason)
		span.SetAttributes(attribute.String("route", "gate"))
		return p.escalate(ctx, message, escalation.NewEscalation{
			OriginalMessage: message,
			Sender:          sender,
			Reason:          d.Reason,
			Category:        d.Category,
			Source:          escalation.SourceGate,
		}), nil
	}

	span.SetAttributes(attribute.String("route", "auto"))
	out, err := p.loop.Run(ctx, message, prof)
	if err != nil {
		recordSpanError(span, err)
		slog.ErrorContext(ctx, "reply loop failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	p.notifier.ResponseSent(ctx, message, out.Response, out.MaxRevisionsReached)
	return autoReply(out, Screening{
		Confidence: passedConfidence,
		Reason:     d.Reason,
		Category:   CategorySafe,
		Source:     ScreeningPassed,
		Degraded:   d.Degraded,
	}), nil
}

// escalate records the escalation, notifies the human and links the
// notification id so a reply to it can be correlated later.
func (p *Pipeline) escalate(ctx context.Context, message string, n escalation.NewEscalation) *Result {
	id := p.store.Create(n)
	// The escalation already exists; an abandoned request must not leave it unlinked.
	ref := p.notifier.Escalation(context.WithoutCancel(ctx), n.Reason, message)
	if ref != "" {
		if !p.store.LinkExternalRef(id, ref) {
			slog.WarnContext(ctx, "escalation ref not linked", "escalation_id", id, "ref", ref)
		}
	} else {
		slog.WarnContext(ctx, "escalation notification not delivered, reply correlation unavailable", "escalation_id", id)
	}

	return escalated(id, p.handoff(), Screening{
		IsUnknownOrUnsafe: true,
		Confidence:        escalationConfidence,
		Reason:            n.Reason,
		Category:          string(escalation.ParseCategory(string(n.Category))),
		Source:            string(n.Source),
	})
}

func (p *Pipeline) handoff() string {
	if p.opts.HandoffMessage != "" {
		return p.opts.HandoffMessage
	}
	if h := p.profiles.Current().Agent.DefaultHandoffMessage; h != "" {
		return h
	}
	return "Bu konuda adayın kendisi size en kısa sürede dönüş yapacaktır."
}
