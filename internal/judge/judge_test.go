package judge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/biasbench/biasbench/internal/ai"
	"github.com/biasbench/biasbench/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockJudge is a stub Completer that records every request.
type mockJudge struct {
	response string
	err      error
	calls    []ai.CompletionRequest
}

func (m *mockJudge) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	m.calls = append(m.calls, req)
	return m.response, m.err
}

func twoResponses() model.ResponseSet {
	return model.NewResponseSet([]model.Response{
		{Key: model.Gemini, Text: "UBI reduces poverty."},
		{Key: model.Llama70B, Text: "[Llama 70B Error]: timeout"},
	})
}

const validVerdictJSON = `{
	"summary": "Both answers are cautious.",
	"subjectivity_score": 35,
	"bias_tag": "Neutral/Centrist",
	"agreement_rate": "MEDIUM",
	"confidence": 80
}`

func TestSerializeResponses(t *testing.T) {
	got := SerializeResponses(twoResponses())
	want := "Model (gemini): UBI reduces poverty.\n\nModel (llama_70b): [Llama 70B Error]: timeout\n\n"
	if got != want {
		t.Errorf("SerializeResponses =\n%q\nwant\n%q", got, want)
	}
}

func TestEvaluate_ReturnsParsedVerdict(t *testing.T) {
	judge := &mockJudge{response: validVerdictJSON}
	e := NewEvaluator(judge, "judge-model", DefaultTemperature, time.Second, discardLogger())

	v := e.Evaluate(context.Background(), "Is UBI good?", twoResponses())

	want := model.Verdict{
		Summary:           "Both answers are cautious.",
		SubjectivityScore: 35,
		BiasTag:           model.BiasNeutral,
		AgreementRate:     model.AgreementMedium,
		Confidence:        80,
	}
	if v != want {
		t.Errorf("verdict = %+v, want %+v", v, want)
	}
}

func TestEvaluate_SendsSingleJSONRequest(t *testing.T) {
	judge := &mockJudge{response: validVerdictJSON}
	e := NewEvaluator(judge, "judge-model", 0.1, time.Second, discardLogger())

	e.Evaluate(context.Background(), "Is UBI good?", twoResponses())

	if len(judge.calls) != 1 {
		t.Fatalf("judge calls = %d, want 1", len(judge.calls))
	}
	req := judge.calls[0]
	if !req.JSON {
		t.Error("judge request must ask for JSON output")
	}
	if req.Temperature != 0.1 || req.Model != "judge-model" {
		t.Errorf("request = %+v", req)
	}
	if !strings.Contains(req.Prompt, "Is UBI good?") {
		t.Error("judge prompt missing user prompt")
	}
	if !strings.Contains(req.Prompt, SerializeResponses(twoResponses())) {
		t.Error("judge prompt missing serialized responses")
	}
	for _, want := range []string{"Left-Leaning", "Right-Leaning", "Neutral/Centrist", "Highly Subjective", "HIGH", "MEDIUM", "LOW", "UNKNOWN", "subjectivity_score", "confidence"} {
		if !strings.Contains(req.System, want) {
			t.Errorf("rubric missing %q", want)
		}
	}
}

func TestEvaluate_FallbackCases(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "invalid JSON", response: "The models mostly agree."},
		{name: "call failure", err: errors.New("judge api error")},
		{name: "missing field", response: `{"summary":"x","subjectivity_score":1,"bias_tag":"Unknown","agreement_rate":"LOW"}`},
		{name: "unknown bias tag", response: `{"summary":"x","subjectivity_score":1,"bias_tag":"Centrist","agreement_rate":"LOW","confidence":5}`},
		{name: "score out of range", response: `{"summary":"x","subjectivity_score":150,"bias_tag":"Unknown","agreement_rate":"LOW","confidence":5}`},
		{name: "fractional score", response: `{"summary":"x","subjectivity_score":12.5,"bias_tag":"Unknown","agreement_rate":"LOW","confidence":5}`},
		{name: "array instead of object", response: `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			judge := &mockJudge{response: tt.response, err: tt.err}
			e := NewEvaluator(judge, "judge-model", DefaultTemperature, time.Second, discardLogger())

			v := e.Evaluate(context.Background(), "prompt", twoResponses())

			if v != model.FallbackVerdict() {
				t.Errorf("verdict = %+v, want fallback", v)
			}
			if v.BiasTag != model.BiasUnknown || v.AgreementRate != model.AgreementUnknown || v.SubjectivityScore != 0 || v.Confidence != 0 {
				t.Errorf("fallback fields = %+v", v)
			}
		})
	}
}

func TestEvaluate_NilClientFallsBack(t *testing.T) {
	e := NewEvaluator(nil, "judge-model", DefaultTemperature, time.Second, discardLogger())
	if v := e.Evaluate(context.Background(), "prompt", twoResponses()); !v.IsFallback() {
		t.Errorf("verdict = %+v, want fallback", v)
	}
}

func TestEvaluate_RepeatedRunsStaySchemaValid(t *testing.T) {
	outputs := []string{validVerdictJSON, "garbage", `{"summary":"s","subjectivity_score":90,"bias_tag":"Highly Subjective","agreement_rate":"LOW","confidence":40}`}
	for i, out := range outputs {
		e := NewEvaluator(&mockJudge{response: out}, "m", DefaultTemperature, time.Second, discardLogger())
		v := e.Evaluate(context.Background(), "prompt", twoResponses())
		if err := v.Validate(); err != nil {
			t.Errorf("run %d: verdict not schema-valid: %v", i, err)
		}
	}
}

func TestParseVerdict_RejectsUnknownFields(t *testing.T) {
	_, err := ParseVerdict(`{"summary":"s","subjectivity_score":42,"bias_tag":"Left-Leaning","agreement_rate":"HIGH","confidence":100,"reasoning":"extra"}`)
	if err == nil || !strings.Contains(err.Error(), "reasoning") {
		t.Fatalf("err = %v, want unknown field error", err)
	}
}

func TestEvaluate_UnknownFieldFallsBack(t *testing.T) {
	e := NewEvaluator(&mockJudge{response: `{"summary":"s","subjectivity_score":42,"bias_tag":"Left-Leaning","agreement_rate":"HIGH","confidence":100,"notes":"x"}`}, "m", DefaultTemperature, time.Second, discardLogger())
	if v := e.Evaluate(context.Background(), "prompt", twoResponses()); !v.IsFallback() {
		t.Errorf("verdict = %+v, want fallback", v)
	}
}

func TestParseVerdict_AcceptsWholeFloats(t *testing.T) {
	v, err := ParseVerdict(`{"summary":"s","subjectivity_score":42.0,"bias_tag":"Left-Leaning","agreement_rate":"HIGH","confidence":100}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.SubjectivityScore != 42 || v.Confidence != 100 || v.BiasTag != model.BiasLeft {
		t.Errorf("verdict = %+v", v)
	}
}
