package store

import (
	"context"

	"github.com/biasbench/biasbench/internal/model"
)

// NopStore is a no-op store used in dry-run mode. Create reports ID 0 and
// nothing is kept, so history is always empty.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Create(context.Context, model.AuditRecord) (int64, error) { return 0, nil }
func (s *NopStore) ListRecent(context.Context, int) ([]model.AuditRecord, error) {
	return []model.AuditRecord{}, nil
}
func (s *NopStore) Close() error { return nil }
