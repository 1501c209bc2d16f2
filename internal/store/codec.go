package store

import (
	"encoding/json"
	"fmt"

	"github.com/biasbench/biasbench/internal/model"
)

// encodedAudit holds the JSON columns of an audit row.
type encodedAudit struct {
	selected  string
	responses string
	verdict   string
}

func encodeAudit(rec model.AuditRecord) (encodedAudit, error) {
	selected := rec.SelectedModels
	if selected == nil {
		selected = []model.ModelKey{}
	}
	sel, err := json.Marshal(selected)
	if err != nil {
		return encodedAudit{}, fmt.Errorf("encoding selected models: %w", err)
	}
	resp, err := json.Marshal(rec.Responses)
	if err != nil {
		return encodedAudit{}, fmt.Errorf("encoding responses: %w", err)
	}
	verdict, err := json.Marshal(rec.Verdict)
	if err != nil {
		return encodedAudit{}, fmt.Errorf("encoding verdict: %w", err)
	}
	return encodedAudit{selected: string(sel), responses: string(resp), verdict: string(verdict)}, nil
}

func decodeAudit(rec *model.AuditRecord, enc encodedAudit) error {
	if err := json.Unmarshal([]byte(enc.selected), &rec.SelectedModels); err != nil {
		return fmt.Errorf("decoding selected models of audit %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(enc.responses), &rec.Responses); err != nil {
		return fmt.Errorf("decoding responses of audit %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(enc.verdict), &rec.Verdict); err != nil {
		return fmt.Errorf("decoding verdict of audit %d: %w", rec.ID, err)
	}
	return nil
}
