package agent

import "errors"

var (
	// ErrNoResponse wraps every failure that leaves a request without a reply.
	ErrNoResponse = errors.New("agent: no response produced")
	// ErrGenerationFailed means the generation oracle failed or returned nothing.
	ErrGenerationFailed = errors.New("agent: generation failed")
	// ErrEvaluationFailed means the evaluation oracle call itself failed.
	ErrEvaluationFailed = errors.New("agent: evaluation failed")
	// ErrEmptyMessage rejects blank input before any stage runs.
	ErrEmptyMessage = errors.New("agent: empty message")
)
