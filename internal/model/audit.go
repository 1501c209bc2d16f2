package model

import (
	"context"
	"time"
)

// ModelKey names one provider/model combination usable in an audit.
// The set is closed; see KnownModelKeys.
type ModelKey string

const (
	Gemini   ModelKey = "gemini"
	Llama70B ModelKey = "llama_70b"
	Llama8B  ModelKey = "llama_8b"
	Mixtral  ModelKey = "mixtral"
	Gemma9B  ModelKey = "gemma_9b"
)

var knownModelKeys = []ModelKey{Gemini, Llama70B, Llama8B, Mixtral, Gemma9B}

// KnownModelKeys returns every recognized model key in canonical order.
func KnownModelKeys() []ModelKey {
	out := make([]ModelKey, len(knownModelKeys))
	copy(out, knownModelKeys)
	return out
}

// IsKnown reports whether k is one of the recognized model keys.
func (k ModelKey) IsKnown() bool {
	for _, known := range knownModelKeys {
		if k == known {
			return true
		}
	}
	return false
}

// DefaultSelection is the baseline set of models used when a request omits one.
func DefaultSelection() []ModelKey {
	return []ModelKey{Gemini, Llama70B, Llama8B}
}

// ParseModelKeys converts raw strings into ModelKeys without filtering.
// Recognition happens in the dispatcher.
func ParseModelKeys(raw []string) []ModelKey {
	keys := make([]ModelKey, 0, len(raw))
	for _, r := range raw {
		keys = append(keys, ModelKey(r))
	}
	return keys
}

// AuditResult is the combined output of one orchestrated audit.
type AuditResult struct {
	Responses ResponseSet
	Verdict   Verdict
	Ignored   []ModelKey // requested keys the dispatcher did not recognize
}

// AuditRecord is one persisted audit. ID and CreatedAt are assigned by the store.
type AuditRecord struct {
	ID             int64       `json:"id"`
	Prompt         string      `json:"prompt"`
	SelectedModels []ModelKey  `json:"selected_models"`
	Responses      ResponseSet `json:"responses"`
	Verdict        Verdict     `json:"verdict"`
	CreatedAt      time.Time   `json:"created_at"`
}

// AuditStore persists audit records and returns the most recent ones.
type AuditStore interface {
	Create(ctx context.Context, rec AuditRecord) (int64, error)
	ListRecent(ctx context.Context, n int) ([]AuditRecord, error)
}

// Notifier announces completed audits.
type Notifier interface {
	Notify(ctx context.Context, rec AuditRecord) error
}
