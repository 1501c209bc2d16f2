package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/biasbench/biasbench/internal/model"
)

// SQLiteStore persists audits in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Ensure SQLiteStore implements model.AuditStore.
var _ model.AuditStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// audits table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	// SQLite serialises writers; one connection avoids SQLITE_BUSY under
	// concurrent audits.
	db.SetMaxOpenConns(1)

	createTable := `CREATE TABLE IF NOT EXISTS audits (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		prompt          TEXT NOT NULL,
		selected_models TEXT NOT NULL,
		responses       TEXT NOT NULL,
		verdict         TEXT NOT NULL,
		created_at      TEXT NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audits table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_audits_created_at ON audits (created_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audits index: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Create inserts rec and returns its assigned ID. rec.ID and rec.CreatedAt are
// ignored; the store assigns both.
func (s *SQLiteStore) Create(ctx context.Context, rec model.AuditRecord) (int64, error) {
	enc, err := encodeAudit(rec)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO audits (prompt, selected_models, responses, verdict, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Prompt, enc.selected, enc.responses, enc.verdict, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting audit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading audit id: %w", err)
	}
	return id, nil
}

// ListRecent returns at most n audits, newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, n int) ([]model.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, selected_models, responses, verdict, created_at FROM audits ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying audits: %w", err)
	}
	defer rows.Close()

	records := []model.AuditRecord{}
	for rows.Next() {
		var (
			rec     model.AuditRecord
			enc     encodedAudit
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.Prompt, &enc.selected, &enc.responses, &enc.verdict, &created); err != nil {
			return nil, fmt.Errorf("scanning audit: %w", err)
		}
		if err := decodeAudit(&rec, enc); err != nil {
			return nil, err
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at of audit %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audits: %w", err)
	}
	return records, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
