package adapter

import (
	"log/slog"
	"time"

	"github.com/biasbench/biasbench/internal/ai"
	"github.com/biasbench/biasbench/internal/model"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// DefaultTemperature is the sampling temperature used for audited models.
const DefaultTemperature = 0.7

// Spec describes one entry of the model catalog.
type Spec struct {
	Key      model.ModelKey `json:"key"`
	Label    string         `json:"label"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
}

// catalog is the fixed ModelKey → provider/model mapping.
var catalog = []Spec{
	{Key: model.Gemini, Label: "Gemini", Provider: ProviderGemini, Model: "gemini-2.5-flash"},
	{Key: model.Llama70B, Label: "Llama 70B", Provider: ProviderGroq, Model: "llama-3.3-70b-versatile"},
	{Key: model.Llama8B, Label: "Llama 8B", Provider: ProviderGroq, Model: "llama-3.1-8b-instant"},
	{Key: model.Mixtral, Label: "Mixtral", Provider: ProviderGroq, Model: "mixtral-8x7b-32768"},
	{Key: model.Gemma9B, Label: "Gemma", Provider: ProviderGroq, Model: "gemma2-9b-it"},
}

// Catalog returns the built-in model catalog in canonical order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Clients holds one wire client per provider. A nil entry leaves the
// provider's models reporting a configuration error.
type Clients struct {
	Gemini ai.Completer
	Groq   ai.Completer
}

func (c Clients) forProvider(provider string) ai.Completer {
	switch provider {
	case ProviderGemini:
		return c.Gemini
	case ProviderGroq:
		return c.Groq
	}
	return nil
}

// Options tune the adapters built by NewTable.
type Options struct {
	Timeout        time.Duration             // per-call timeout, zero for none
	Temperature    float64                   // sampling temperature
	ModelOverrides map[model.ModelKey]string // provider model ID per key
	Logger         *slog.Logger
}

// Table is the static ModelKey → Adapter mapping. It is built once and only
// read afterwards, so it is safe for concurrent use.
type Table struct {
	specs    []Spec
	adapters map[model.ModelKey]*Adapter
}

// NewTable builds one adapter per catalog entry.
func NewTable(clients Clients, opts Options) *Table {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t := &Table{adapters: make(map[model.ModelKey]*Adapter, len(catalog))}
	for _, spec := range catalog {
		if id, ok := opts.ModelOverrides[spec.Key]; ok && id != "" {
			spec.Model = id
		}
		t.specs = append(t.specs, spec)
		t.adapters[spec.Key] = NewAdapter(spec, clients.forProvider(spec.Provider), opts.Temperature, opts.Timeout, logger)
	}
	return t
}

// Lookup returns the adapter registered for key.
func (t *Table) Lookup(key model.ModelKey) (Invoker, bool) {
	a, ok := t.adapters[key]
	if !ok {
		return nil, false
	}
	return a, true
}

// Specs returns the catalog as configured, in canonical order.
func (t *Table) Specs() []Spec {
	out := make([]Spec, len(t.specs))
	copy(out, t.specs)
	return out
}
