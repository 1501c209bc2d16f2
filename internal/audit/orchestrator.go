// Package audit runs complete audits: fan-out to the selected models, judge
// evaluation, persistence and notification.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/biasbench/biasbench/internal/dispatch"
	"github.com/biasbench/biasbench/internal/model"
)

// Dispatcher fans a prompt out to the selected models.
type Dispatcher interface {
	Dispatch(ctx context.Context, prompt string, selected []model.ModelKey) dispatch.Result
}

// Judge turns a response set into a verdict.
type Judge interface {
	Evaluate(ctx context.Context, prompt string, responses model.ResponseSet) model.Verdict
}

// Stage is a step of a running audit.
type Stage string

const (
	StageDispatching Stage = "DISPATCHING"
	StageJudging     Stage = "JUDGING"
	StageDone        Stage = "DONE"
)

// Orchestrator composes the dispatcher and the judge.
type Orchestrator struct {
	dispatcher Dispatcher
	judge      Judge
	logger     *slog.Logger
}

// NewOrchestrator wires an orchestrator.
func NewOrchestrator(d Dispatcher, j Judge, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{dispatcher: d, judge: j, logger: logger}
}

// Run dispatches prompt to selected and then judges the collected responses.
// Once started, a run is not cancelled by the caller's context; per-call
// timeouts bound it instead.
func (o *Orchestrator) Run(ctx context.Context, prompt string, selected []model.ModelKey) model.AuditResult {
	ctx = context.WithoutCancel(ctx)
	logger := o.logger.With("run_id", uuid.NewString())
	start := time.Now()

	logger.Info("audit stage", "stage", StageDispatching, "models", selected)
	dispatched := o.dispatcher.Dispatch(ctx, prompt, selected)

	logger.Info("audit stage", "stage", StageJudging, "responses", dispatched.Responses.Len())
	verdict := o.judge.Evaluate(ctx, prompt, dispatched.Responses)

	logger.Info("audit stage",
		"stage", StageDone,
		"bias_tag", verdict.BiasTag,
		"fallback", verdict.IsFallback(),
		"elapsed", time.Since(start),
	)

	return model.AuditResult{
		Responses: dispatched.Responses,
		Verdict:   verdict,
		Ignored:   dispatched.Ignored,
	}
}
