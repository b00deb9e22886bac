package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/careerclaw/internal/providers"
)

const (
	evaluatorTemperature = 0.2
	neutralScore         = 70.0

	// FallbackFeedback is recorded when the evaluator output cannot be read.
	FallbackFeedback = "Otomatik değerlendirme yapılamadı; varsayılan skor kullanıldı."
	// DefaultRevisionFeedback is carried forward when a rejected attempt has no feedback.
	DefaultRevisionFeedback = "Yanıtı daha profesyonel ve net yap."
)

// Dimensions lists the rubric the evaluator scores, in display order.
var Dimensions = []string{"professional_tone", "clarity", "completeness", "safety", "relevance"}

// EvaluationRecord is one attempt of the synthesize/evaluate loop.
type EvaluationRecord struct {
	Attempt    int                `json:"attempt"`
	Scores     map[string]float64 `json:"scores"`
	TotalScore float64            `json:"total_score"`
	Feedback   string             `json:"feedback"`
	Approved   bool               `json:"approved"`
	// Degraded is set when neutral scores replaced unreadable evaluator output.
	Degraded bool `json:"degraded,omitempty"`
}

type evaluatorScores struct {
	ProfessionalTone float64 `json:"professional_tone" jsonschema:"minimum=0,maximum=100"`
	Clarity          float64 `json:"clarity" jsonschema:"minimum=0,maximum=100"`
	Completeness     float64 `json:"completeness" jsonschema:"minimum=0,maximum=100"`
	Safety           float64 `json:"safety" jsonschema:"minimum=0,maximum=100"`
	Relevance        float64 `json:"relevance" jsonschema:"minimum=0,maximum=100"`
}

// evaluatorOutput is what the model is asked for. Scores is decoded as a map
// so partially filled rubrics still parse.
type evaluatorOutput struct {
	Scores     map[string]float64 `json:"scores"`
	TotalScore *float64           `json:"total_score"`
	Feedback   string             `json:"feedback"`
	Approved   *bool              `json:"approved"`
}

// evaluatorSchema mirrors evaluatorOutput with a closed score object.
type evaluatorSchema struct {
	Scores     evaluatorScores `json:"scores"`
	TotalScore float64         `json:"total_score" jsonschema:"minimum=0,maximum=100"`
	Feedback   string          `json:"feedback"`
	Approved   bool            `json:"approved"`
}

// Evaluator scores candidate replies against the rubric.
type Evaluator struct {
	oracle    Oracle
	threshold int
	format    *providers.ResponseFormat
}

func NewEvaluator(o Oracle, threshold int) *Evaluator {
	return &Evaluator{
		oracle:    o,
		threshold: threshold,
		format:    providers.JSONResponse[evaluatorSchema]("reply_evaluation"),
	}
}

// Evaluate scores one candidate. An oracle failure is returned wrapped in
// ErrEvaluationFailed; unreadable output is replaced by neutral scores.
// The returned record has Attempt unset.
func (e *Evaluator) Evaluate(ctx context.Context, message, candidate string) (EvaluationRecord, error) {
	raw, err := e.oracle.Generate(ctx, GenerateRequest{
		Stage:       StageEvaluate,
		System:      evaluatorSystemPrompt(e.threshold),
		Prompt:      evaluatorPrompt(message, candidate, e.threshold),
		Temperature: evaluatorTemperature,
		JSON:        e.format,
	})
	if err != nil {
		return EvaluationRecord{}, fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
	}

	var out evaluatorOutput
	if err := decodeJSON(raw, &out); err != nil {
		slog.WarnContext(ctx, "evaluator output unparseable, using neutral scores", "error", err, "raw_len", len(raw))
		return e.neutral(), nil
	}
	return e.record(out), nil
}

func (e *Evaluator) record(out evaluatorOutput) EvaluationRecord {
	scores := make(map[string]float64, len(out.Scores))
	for k, v := range out.Scores {
		scores[k] = v
	}

	var total float64
	switch {
	case out.TotalScore != nil:
		total = *out.TotalScore
	case len(scores) > 0:
		var sum float64
		for _, v := range scores {
			sum += v
		}
		total = sum / float64(len(scores))
	}

	return EvaluationRecord{
		Scores:     scores,
		TotalScore: total,
		Feedback:   strings.TrimSpace(out.Feedback),
		Approved:   total >= float64(e.threshold),
	}
}

func (e *Evaluator) neutral() EvaluationRecord {
	scores := make(map[string]float64, len(Dimensions))
	for _, d := range Dimensions {
		scores[d] = neutralScore
	}
	return EvaluationRecord{
		Scores:     scores,
		TotalScore: neutralScore,
		Feedback:   FallbackFeedback,
		Approved:   neutralScore >= float64(e.threshold),
		Degraded:   true,
	}
}
