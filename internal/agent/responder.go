package agent

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/careerclaw/internal/profile"
)

const responderTemperature = 0.5

// Responder drafts a reply to an employer message from the candidate profile.
type Responder struct {
	oracle Oracle
}

func NewResponder(o Oracle) *Responder {
	return &Responder{oracle: o}
}

// Draft returns a candidate reply. feedback is empty on the first attempt.
// Both oracle errors and blank output wrap ErrGenerationFailed.
func (r *Responder) Draft(ctx context.Context, message, feedback string, p *profile.Profile) (string, error) {
	raw, err := r.oracle.Generate(ctx, GenerateRequest{
		Stage:       StageRespond,
		System:      responderSystemPrompt(p.Name(), p.Context()),
		Prompt:      responderPrompt(message, feedback),
		Temperature: responderTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text := SanitizeReply(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty output", ErrGenerationFailed)
	}
	return text, nil
}
