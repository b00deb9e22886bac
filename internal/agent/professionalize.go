package agent

import (
	"context"
	"fmt"
)

const professionalizeTemperature = 0.3

// Professionalizer rewrites a human's raw answer into a reply fit to send
// to the employer.
type Professionalizer struct {
	oracle Oracle
}

func NewProfessionalizer(o Oracle) *Professionalizer {
	return &Professionalizer{oracle: o}
}

// Rewrite returns the polished reply. Blank output counts as a failure so
// the caller never resolves an escalation with an empty answer.
func (p *Professionalizer) Rewrite(ctx context.Context, employerMessage, humanReply string) (string, error) {
	raw, err := p.oracle.Generate(ctx, GenerateRequest{
		Stage:       StageProfessionalize,
		Prompt:      professionalizePrompt(employerMessage, humanReply),
		Temperature: professionalizeTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text := SanitizeReply(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty rewrite", ErrGenerationFailed)
	}
	return text, nil
}
