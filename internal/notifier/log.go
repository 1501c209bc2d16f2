// Package notifier announces completed audits.
package notifier

import (
	"context"
	"log/slog"

	"github.com/biasbench/biasbench/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes completed audits to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each audit via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the audit id, models and verdict.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, rec model.AuditRecord) error {
	n.logger.Info("audit complete",
		"audit_id", rec.ID,
		"models", rec.Responses.Keys(),
		"bias_tag", rec.Verdict.BiasTag,
		"subjectivity", rec.Verdict.SubjectivityScore,
		"agreement", rec.Verdict.AgreementRate,
		"confidence", rec.Verdict.Confidence,
		"fallback", rec.Verdict.IsFallback(),
	)
	return nil
}
