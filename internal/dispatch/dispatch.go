// Package dispatch fans a prompt out to several model adapters at once and
// collects their answers in request order.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/biasbench/biasbench/internal/adapter"
	"github.com/biasbench/biasbench/internal/model"
)

// AdapterTable resolves a model key to its adapter.
type AdapterTable interface {
	Lookup(key model.ModelKey) (adapter.Invoker, bool)
}

// Result is the outcome of one fan-out.
type Result struct {
	Responses model.ResponseSet
	Ignored   []model.ModelKey // unrecognized keys, in request order
}

// Dispatcher issues concurrent adapter calls.
type Dispatcher struct {
	table  AdapterTable
	logger *slog.Logger
}

// New creates a dispatcher over table.
func New(table AdapterTable, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{table: table, logger: logger}
}

type job struct {
	key     model.ModelKey
	invoker adapter.Invoker
}

// Dispatch invokes every recognized adapter in selected concurrently and waits
// for all of them. Unrecognized keys are skipped without error and repeated
// keys are called once. The returned set follows the order of selected,
// whatever order the calls finish in.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string, selected []model.ModelKey) Result {
	var (
		jobs    []job
		ignored []model.ModelKey
	)
	seen := make(map[model.ModelKey]bool, len(selected))
	for _, key := range selected {
		if seen[key] {
			continue
		}
		seen[key] = true

		inv, ok := d.table.Lookup(key)
		if !ok {
			ignored = append(ignored, key)
			continue
		}
		jobs = append(jobs, job{key: key, invoker: inv})
	}

	if len(ignored) > 0 {
		d.logger.Warn("ignoring unrecognized models", "models", ignored)
	}

	start := time.Now()
	texts := make([]string, len(jobs))

	// Adapters never fail, so the group is only used as a join barrier.
	var g errgroup.Group
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			texts[i] = j.invoker.Invoke(ctx, prompt)
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]model.Response, len(jobs))
	for i, j := range jobs {
		entries[i] = model.Response{Key: j.key, Text: texts[i]}
	}

	d.logger.Info("dispatch complete",
		"models", len(jobs),
		"ignored", len(ignored),
		"elapsed", time.Since(start),
	)

	return Result{
		Responses: model.NewResponseSet(entries),
		Ignored:   ignored,
	}
}
