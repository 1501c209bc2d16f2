// Package judge asks a designated evaluation model for a structured bias
// verdict over a set of model responses.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/biasbench/biasbench/internal/ai"
	"github.com/biasbench/biasbench/internal/model"
)

const (
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = 0.1
	maxVerdictTokens   = 1024
)

// Evaluator produces a Verdict for an audit. It always returns a schema-valid
// verdict; failures yield model.FallbackVerdict.
type Evaluator struct {
	client      ai.Completer
	model       string
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

// NewEvaluator creates an evaluator that queries judgeModel through client.
func NewEvaluator(client ai.Completer, judgeModel string, temperature float64, timeout time.Duration, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		client:      client,
		model:       judgeModel,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// Evaluate issues exactly one judge call over responses.
func (e *Evaluator) Evaluate(ctx context.Context, prompt string, responses model.ResponseSet) model.Verdict {
	v, err := e.evaluate(ctx, prompt, responses)
	if err != nil {
		e.logger.Warn("judge evaluation failed, using fallback verdict",
			"judge_model", e.model,
			"error", err,
		)
		return model.FallbackVerdict()
	}
	return v
}

func (e *Evaluator) evaluate(ctx context.Context, prompt string, responses model.ResponseSet) (model.Verdict, error) {
	if e.client == nil {
		return model.Verdict{}, errors.New("judge provider is not configured")
	}

	var userBuf bytes.Buffer
	if err := userTemplate.Execute(&userBuf, struct {
		Prompt string
		Block  string
	}{
		Prompt: prompt,
		Block:  SerializeResponses(responses),
	}); err != nil {
		return model.Verdict{}, fmt.Errorf("render judge prompt: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.client.Complete(ctx, ai.CompletionRequest{
		Model:       e.model,
		System:      rubric,
		Prompt:      userBuf.String(),
		Temperature: e.temperature,
		MaxTokens:   maxVerdictTokens,
		JSON:        true,
	})
	if err != nil {
		return model.Verdict{}, fmt.Errorf("judge complete: %w", err)
	}

	v, err := ParseVerdict(raw)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	return v, nil
}

// SerializeResponses renders each entry as "Model (<key>): <text>\n\n" in set order.
func SerializeResponses(responses model.ResponseSet) string {
	var sb strings.Builder
	for _, r := range responses.Entries() {
		fmt.Fprintf(&sb, "Model (%s): %s\n\n", r.Key, r.Text)
	}
	return sb.String()
}

// rawVerdict is the JSON shape requested from the judge. Pointers detect
// missing fields; scores are decoded as numbers so 42.0 is accepted.
type rawVerdict struct {
	Summary           *string  `json:"summary"`
	SubjectivityScore *float64 `json:"subjectivity_score"`
	BiasTag           *string  `json:"bias_tag"`
	AgreementRate     *string  `json:"agreement_rate"`
	Confidence        *float64 `json:"confidence"`
}

// ParseVerdict decodes judge output into a Verdict. All five fields must be
// present, scores must be whole numbers, and the result must pass
// Verdict.Validate. Unknown fields are rejected.
func ParseVerdict(raw string) (model.Verdict, error) {
	var rv rawVerdict
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rv); err != nil {
		return model.Verdict{}, fmt.Errorf("unmarshal verdict JSON: %w", err)
	}
	if dec.More() {
		return model.Verdict{}, errors.New("unexpected data after verdict JSON")
	}

	switch {
	case rv.Summary == nil:
		return model.Verdict{}, errors.New("missing summary")
	case rv.SubjectivityScore == nil:
		return model.Verdict{}, errors.New("missing subjectivity_score")
	case rv.BiasTag == nil:
		return model.Verdict{}, errors.New("missing bias_tag")
	case rv.AgreementRate == nil:
		return model.Verdict{}, errors.New("missing agreement_rate")
	case rv.Confidence == nil:
		return model.Verdict{}, errors.New("missing confidence")
	}

	subjectivity, err := wholeNumber("subjectivity_score", *rv.SubjectivityScore)
	if err != nil {
		return model.Verdict{}, err
	}
	confidence, err := wholeNumber("confidence", *rv.Confidence)
	if err != nil {
		return model.Verdict{}, err
	}

	v := model.Verdict{
		Summary:           *rv.Summary,
		SubjectivityScore: subjectivity,
		BiasTag:           model.BiasTag(*rv.BiasTag),
		AgreementRate:     model.AgreementRate(*rv.AgreementRate),
		Confidence:        confidence,
	}
	if err := v.Validate(); err != nil {
		return model.Verdict{}, err
	}
	return v, nil
}

func wholeNumber(field string, f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s %v is not an integer", field, f)
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%s %v out of range", field, f)
	}
	return int(f), nil
}
