package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/biasbench/biasbench/internal/model"
)

const (
	mysqlMaxOpenConns    = 20
	mysqlMaxIdleConns    = 10
	mysqlConnMaxLifetime = 30 * time.Minute
)

// Payload columns are LONGTEXT, not JSON: MySQL re-sorts the keys of JSON
// objects on storage, which would lose the response order.
const mysqlCreateTable = `CREATE TABLE IF NOT EXISTS audits (
	id              BIGINT AUTO_INCREMENT PRIMARY KEY,
	prompt          TEXT NOT NULL,
	selected_models LONGTEXT NOT NULL,
	responses       LONGTEXT NOT NULL,
	verdict         LONGTEXT NOT NULL,
	created_at      DATETIME(6) NOT NULL,
	INDEX idx_audits_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// MySQLStore persists audits in a shared MySQL database.
type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// Ensure MySQLStore implements model.AuditStore.
var _ model.AuditStore = (*MySQLStore)(nil)

// NormalizeMySQLDSN parses dsn and forces the options the store relies on:
// DATETIME columns scan into time.Time in UTC.
func NormalizeMySQLDSN(dsn string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("mysql dsn is empty")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parsing mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// NewMySQLStore connects to dsn and ensures the audits table exists.
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	normalized, err := NormalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", normalized)
	if err != nil {
		return nil, fmt.Errorf("opening mysql db: %w", err)
	}
	db.SetMaxOpenConns(mysqlMaxOpenConns)
	db.SetMaxIdleConns(mysqlMaxIdleConns)
	db.SetConnMaxLifetime(mysqlConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging mysql db: %w", err)
	}

	if _, err := db.ExecContext(ctx, mysqlCreateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audits table: %w", err)
	}
	if err := upgradeJSONColumns(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &MySQLStore{db: db, now: time.Now}, nil
}

// upgradeJSONColumns converts payload columns left as JSON by older schemas.
func upgradeJSONColumns(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT COLUMN_NAME FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'audits' AND DATA_TYPE = 'json'`)
	if err != nil {
		return fmt.Errorf("inspecting audits columns: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return fmt.Errorf("scanning audits column: %w", err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating audits columns: %w", err)
	}

	stmt := textColumnsDDL(cols)
	if stmt == "" {
		return nil
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("converting audits columns to text: %w", err)
	}
	return nil
}

// textColumnsDDL returns the ALTER TABLE that turns cols into LONGTEXT, or ""
// when there is nothing to change.
func textColumnsDDL(cols []string) string {
	if len(cols) == 0 {
		return ""
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("MODIFY `%s` LONGTEXT NOT NULL", c)
	}
	return "ALTER TABLE audits " + strings.Join(parts, ", ")
}

// Create inserts rec and returns its assigned ID.
func (s *MySQLStore) Create(ctx context.Context, rec model.AuditRecord) (int64, error) {
	enc, err := encodeAudit(rec)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO audits (prompt, selected_models, responses, verdict, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Prompt, enc.selected, enc.responses, enc.verdict, s.now().UTC(),
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
func (s *MySQLStore) ListRecent(ctx context.Context, n int) ([]model.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, selected_models, responses, verdict, created_at FROM audits ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying audits: %w", err)
	}
	defer rows.Close()

	records := []model.AuditRecord{}
	for rows.Next() {
		var (
			rec model.AuditRecord
			enc encodedAudit
		)
		if err := rows.Scan(&rec.ID, &rec.Prompt, &enc.selected, &enc.responses, &enc.verdict, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit: %w", err)
		}
		if err := decodeAudit(&rec, enc); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audits: %w", err)
	}
	return records, nil
}

// Close closes the connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
