package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/careerclaw/internal/escalation"
	"github.com/nextlevelbuilder/careerclaw/internal/profile"
	"github.com/nextlevelbuilder/careerclaw/internal/providers"
)

const gateTemperature = 0.1

// Reasons reported when the gate falls back to letting the assistant answer.
const (
	ReasonGateUnavailable = "Gate analiz hatası, varsayılan izin"
	ReasonGateUnreadable  = "Gate çıktısı okunamadı, varsayılan izin"
)

// Decision is the policy gate verdict.
type Decision struct {
	CanRespond bool
	Reason     string
	// Category is set only when CanRespond is false.
	Category escalation.Category
	// Degraded marks a fail-open verdict produced without a usable oracle answer.
	Degraded bool
}

type gateOutput struct {
	CanRespond *bool  `json:"can_respond" jsonschema:"description=true when the assistant may answer without the candidate"`
	Reason     string `json:"reason" jsonschema:"description=short explanation of the decision"`
	Category   string `json:"category" jsonschema:"enum=safe,enum=salary,enum=legal,enum=technical,enum=personal,enum=other"`
}

// Gate asks the oracle whether a message may be answered automatically.
// It fails open: any oracle trouble yields CanRespond with Degraded set.
type Gate struct {
	oracle Oracle
	format *providers.ResponseFormat
}

func NewGate(o Oracle) *Gate {
	return &Gate{oracle: o, format: providers.JSONResponse[gateOutput]("gate_decision")}
}

func (g *Gate) Check(ctx context.Context, message string, p *profile.Profile) Decision {
	raw, err := g.oracle.Generate(ctx, GenerateRequest{
		Stage:       StageGate,
		System:      gateSystemPrompt(p.Name(), p.EscalationContext(), p.Context()),
		Prompt:      gatePrompt(message),
		Temperature: gateTemperature,
		JSON:        g.format,
	})
	if err != nil {
		slog.WarnContext(ctx, "gate oracle failed, defaulting to auto reply", "error", err)
		return Decision{CanRespond: true, Reason: ReasonGateUnavailable, Degraded: true}
	}

	var out gateOutput
	if err := decodeJSON(raw, &out); err != nil {
		slog.WarnContext(ctx, "gate output unparseable, defaulting to auto reply", "error", err, "raw_len", len(raw))
		return Decision{CanRespond: true, Reason: ReasonGateUnreadable, Degraded: true}
	}

	d := Decision{CanRespond: true, Reason: strings.TrimSpace(out.Reason)}
	if out.CanRespond != nil {
		d.CanRespond = *out.CanRespond
	}
	if !d.CanRespond {
		d.Category = escalation.ParseCategory(strings.ToLower(strings.TrimSpace(out.Category)))
	}
	return d
}
