package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/biasbench/biasbench/internal/adapter"
	"github.com/biasbench/biasbench/internal/ai"
	"github.com/biasbench/biasbench/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTable maps keys to plain functions.
type fakeTable map[model.ModelKey]invokerFunc

type invokerFunc func(ctx context.Context, prompt string) string

func (f invokerFunc) Invoke(ctx context.Context, prompt string) string { return f(ctx, prompt) }

func (t fakeTable) Lookup(key model.ModelKey) (adapter.Invoker, bool) {
	fn, ok := t[key]
	if !ok {
		return nil, false
	}
	return fn, true
}

func echo(label string) invokerFunc {
	return func(_ context.Context, prompt string) string { return label + ": " + prompt }
}

func TestDispatch_KeysMatchRecognizedSubset(t *testing.T) {
	table := fakeTable{
		model.Gemini:   echo("g"),
		model.Llama70B: echo("l70"),
		model.Llama8B:  echo("l8"),
	}

	tests := []struct {
		name        string
		selected    []model.ModelKey
		wantKeys    []model.ModelKey
		wantIgnored []model.ModelKey
	}{
		{
			name:     "all recognized keeps request order",
			selected: []model.ModelKey{model.Llama8B, model.Gemini, model.Llama70B},
			wantKeys: []model.ModelKey{model.Llama8B, model.Gemini, model.Llama70B},
		},
		{
			name:        "unknown key dropped",
			selected:    []model.ModelKey{model.Gemini, "foo", model.Llama70B},
			wantKeys:    []model.ModelKey{model.Gemini, model.Llama70B},
			wantIgnored: []model.ModelKey{"foo"},
		},
		{
			name:     "duplicates collapse to first",
			selected: []model.ModelKey{model.Llama70B, model.Gemini, model.Llama70B},
			wantKeys: []model.ModelKey{model.Llama70B, model.Gemini},
		},
		{
			name:        "nothing recognized",
			selected:    []model.ModelKey{"foo", "bar"},
			wantKeys:    []model.ModelKey{},
			wantIgnored: []model.ModelKey{"foo", "bar"},
		},
		{
			name:     "empty selection",
			selected: nil,
			wantKeys: []model.ModelKey{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(table, discardLogger())
			res := d.Dispatch(context.Background(), "prompt", tt.selected)

			if !reflect.DeepEqual(res.Responses.Keys(), tt.wantKeys) {
				t.Errorf("keys = %v, want %v", res.Responses.Keys(), tt.wantKeys)
			}
			if !reflect.DeepEqual(res.Ignored, tt.wantIgnored) {
				t.Errorf("ignored = %v, want %v", res.Ignored, tt.wantIgnored)
			}
		})
	}
}

func TestDispatch_OrderIndependentOfCompletion(t *testing.T) {
	slow := func(d time.Duration, text string) invokerFunc {
		return func(context.Context, string) string {
			time.Sleep(d)
			return text
		}
	}
	table := fakeTable{
		model.Gemini:   slow(60*time.Millisecond, "slowest"),
		model.Llama70B: slow(30*time.Millisecond, "middle"),
		model.Llama8B:  slow(0, "fastest"),
	}

	d := New(table, discardLogger())
	res := d.Dispatch(context.Background(), "p", []model.ModelKey{model.Gemini, model.Llama70B, model.Llama8B})

	var texts []string
	for _, e := range res.Responses.Entries() {
		texts = append(texts, e.Text)
	}
	want := []string{"slowest", "middle", "fastest"}
	if !reflect.DeepEqual(texts, want) {
		t.Errorf("texts = %v, want %v", texts, want)
	}
}

func TestDispatch_CallsRunConcurrently(t *testing.T) {
	const n = 3
	var started sync.WaitGroup
	started.Add(n)
	release := make(chan struct{})

	blocking := func(text string) invokerFunc {
		return func(context.Context, string) string {
			started.Done()
			<-release
			return text
		}
	}
	table := fakeTable{
		model.Gemini:   blocking("a"),
		model.Llama70B: blocking("b"),
		model.Llama8B:  blocking("c"),
	}

	done := make(chan Result, 1)
	go func() {
		d := New(table, discardLogger())
		done <- d.Dispatch(context.Background(), "p", []model.ModelKey{model.Gemini, model.Llama70B, model.Llama8B})
	}()

	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	select {
	case <-allStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("calls were not all in flight at once")
	}

	select {
	case <-done:
		t.Fatal("Dispatch returned before every call completed")
	default:
	}

	close(release)
	res := <-done
	if res.Responses.Len() != n {
		t.Errorf("responses = %d, want %d", res.Responses.Len(), n)
	}
}

func TestDispatch_FailureIsIsolated(t *testing.T) {
	failing := ai.CompleterFunc(func(_ context.Context, req ai.CompletionRequest) (string, error) {
		return "", errors.New("503 service unavailable")
	})
	working := ai.CompleterFunc(func(_ context.Context, req ai.CompletionRequest) (string, error) {
		return "answer from " + req.Model, nil
	})

	table := adapter.NewTable(adapter.Clients{Gemini: failing, Groq: working}, adapter.Options{
		Timeout:     time.Second,
		Temperature: adapter.DefaultTemperature,
		Logger:      discardLogger(),
	})

	d := New(table, discardLogger())
	res := d.Dispatch(context.Background(), "p", []model.ModelKey{model.Gemini, model.Llama70B})

	if res.Responses.Len() != 2 {
		t.Fatalf("responses = %d, want 2", res.Responses.Len())
	}
	gem, _ := res.Responses.Get(model.Gemini)
	if !strings.HasPrefix(gem, "[Gemini Error]:") {
		t.Errorf("gemini = %q, want error marker", gem)
	}
	llama, _ := res.Responses.Get(model.Llama70B)
	if llama != "answer from llama-3.3-70b-versatile" {
		t.Errorf("llama_70b = %q", llama)
	}
}

func TestNew_NilLoggerUsesDefault(t *testing.T) {
	table := fakeTable{
		model.Gemini: func(context.Context, string) string { return "ok" },
	}
	res := New(table, nil).Dispatch(context.Background(), "prompt", []model.ModelKey{model.Gemini, "foo"})

	if res.Responses.Len() != 1 {
		t.Errorf("responses = %d, want 1", res.Responses.Len())
	}
	if !reflect.DeepEqual(res.Ignored, []model.ModelKey{"foo"}) {
		t.Errorf("ignored = %v", res.Ignored)
	}
}
