package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/biasbench/biasbench/internal/model"
)

const (
	MinPromptLength     = 5
	MaxPromptLength     = 500
	DefaultHistoryLimit = 10
)

// ErrInvalidPrompt is returned when a prompt is outside the accepted length.
var ErrInvalidPrompt = errors.New("invalid prompt")

// ValidatePrompt checks the prompt length in characters.
func ValidatePrompt(prompt string) error {
	n := utf8.RuneCountInString(prompt)
	if n < MinPromptLength || n > MaxPromptLength {
		return fmt.Errorf("%w: length %d not within %d-%d characters", ErrInvalidPrompt, n, MinPromptLength, MaxPromptLength)
	}
	return nil
}

// Runner executes one audit without persisting it.
type Runner interface {
	Run(ctx context.Context, prompt string, selected []model.ModelKey) model.AuditResult
}

// Options configure a Service.
type Options struct {
	DefaultModels []model.ModelKey // used when a request selects nothing
	HistoryLimit  int              // records returned by History
}

// Outcome is the result of RunAudit.
type Outcome struct {
	ID     int64
	Result model.AuditResult
}

// Service implements the "run audit" and "get history" operations.
type Service struct {
	runner        Runner
	store         model.AuditStore
	notifier      model.Notifier
	defaultModels []model.ModelKey
	historyLimit  int
	logger        *slog.Logger
}

// NewService wires a service. notifier may be nil.
func NewService(runner Runner, store model.AuditStore, notifier model.Notifier, opts Options, logger *slog.Logger) *Service {
	defaults := opts.DefaultModels
	if len(defaults) == 0 {
		defaults = model.DefaultSelection()
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner:        runner,
		store:         store,
		notifier:      notifier,
		defaultModels: defaults,
		historyLimit:  limit,
		logger:        logger,
	}
}

// DefaultModels returns the selection used when a request names no models.
func (s *Service) DefaultModels() []model.ModelKey {
	out := make([]model.ModelKey, len(s.defaultModels))
	copy(out, s.defaultModels)
	return out
}

// RunAudit validates the prompt, runs the audit, persists it and notifies.
// Provider and judge failures are part of the result; only validation and
// store errors are returned.
func (s *Service) RunAudit(ctx context.Context, prompt string, models []model.ModelKey) (Outcome, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return Outcome{}, err
	}
	if len(models) == 0 {
		models = s.DefaultModels()
	}

	result := s.runner.Run(ctx, prompt, models)

	rec := model.AuditRecord{
		Prompt:         prompt,
		SelectedModels: models,
		Responses:      result.Responses,
		Verdict:        result.Verdict,
	}
	id, err := s.store.Create(context.WithoutCancel(ctx), rec)
	if err != nil {
		return Outcome{}, fmt.Errorf("save audit: %w", err)
	}
	rec.ID = id

	s.logger.Info("audit saved", "audit_id", id, "models", len(models), "bias_tag", result.Verdict.BiasTag)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, rec); err != nil {
			s.logger.Error("audit notification failed", "audit_id", id, "error", err)
		}
	}

	return Outcome{ID: id, Result: result}, nil
}

// History returns the most recent audits, newest first.
func (s *Service) History(ctx context.Context) ([]model.AuditRecord, error) {
	records, err := s.store.ListRecent(ctx, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	return records, nil
}
