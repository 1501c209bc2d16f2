package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/biasbench/biasbench/internal/ai"
	"github.com/biasbench/biasbench/internal/model"
)

// Invoker turns a prompt into response text. Implementations never fail:
// errors are folded into the returned text.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) string
}

// Adapter wraps one remote model behind the Invoker contract.
type Adapter struct {
	spec        Spec
	client      ai.Completer
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

// Ensure Adapter implements Invoker.
var _ Invoker = (*Adapter)(nil)

// NewAdapter creates an adapter for spec backed by client. A nil client yields
// an adapter whose every invocation reports the provider as unconfigured.
func NewAdapter(spec Spec, client ai.Completer, temperature float64, timeout time.Duration, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		spec:        spec,
		client:      client,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// Spec returns the catalog entry this adapter serves.
func (a *Adapter) Spec() Spec { return a.spec }

// Invoke performs exactly one remote call. Any failure, including a timeout or
// a panic inside the client, is returned as "[<Label> Error]: <message>".
func (a *Adapter) Invoke(ctx context.Context, prompt string) (text string) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			text = ErrorText(a.spec.Label, fmt.Errorf("panic: %v", r))
		}
	}()

	if a.client == nil {
		return ErrorText(a.spec.Label, fmt.Errorf("%s provider is not configured", a.spec.Provider))
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	out, err := a.client.Complete(ctx, ai.CompletionRequest{
		Model:       a.spec.Model,
		Prompt:      prompt,
		Temperature: a.temperature,
	})
	if err != nil {
		attrs := []any{
			"model", a.spec.Key,
			"provider", a.spec.Provider,
			"latency", time.Since(start),
			"error", err,
		}
		var httpErr *model.HTTPError
		if errors.As(err, &httpErr) {
			attrs = append(attrs, "status", httpErr.StatusCode, "rate_limited", httpErr.RateLimited())
		}
		a.logger.Warn("model call failed", attrs...)
		return ErrorText(a.spec.Label, err)
	}

	a.logger.Debug("model call complete",
		"model", a.spec.Key,
		"latency", time.Since(start),
		"chars", len(out),
	)
	return out
}

// ErrorText formats a provider failure as response text.
func ErrorText(label string, err error) string {
	return fmt.Sprintf("[%s Error]: %v", label, err)
}
