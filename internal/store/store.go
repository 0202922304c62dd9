// Package store persists fraud reports in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klesify/klesify-backend/pkg/core"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Dialect selects the SQL flavour.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DefaultListLimit caps ListReports when no limit is given.
const DefaultListLimit = 50

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) gooseDialect() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// ParseDialect validates a configured driver name.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", core.InvalidArgument("unsupported store driver %q (use sqlite or postgres)", s)
	}
}

// Config selects the database.
type Config struct {
	Driver string
	DSN    string
}

// SQLStore implements core.Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

var _ core.Store = (*SQLStore)(nil)

// Open connects to the configured database and applies migrations.
// Use ":memory:" as a SQLite DSN for a throwaway database.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*SQLStore, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, core.InvalidArgument("store DSN is required")
	}

	dsn := cfg.DSN
	if dialect == DialectSQLite {
		dsn, err = sqliteDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite && cfg.DSN == ":memory:" {
		// Every connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}
	if err := migrate(db, dialect); err != nil {
		db.Close()
		return nil, err
	}

	s := NewWithDB(db, dialect, logger)
	s.logger.Debug("store opened", "driver", dialect)
	return s, nil
}

// NewWithDB wraps an existing, already migrated connection.
func NewWithDB(db *sql.DB, dialect Dialect, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLStore{db: db, dialect: dialect, logger: logger}
}

func sqliteDSN(path string) (string, error) {
	if path == ":memory:" {
		return ":memory:?_pragma=foreign_keys(1)", nil
	}
	if !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	if strings.Contains(path, "?") {
		return path, nil
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Version returns the applied migration version.
func (s *SQLStore) Version() (int64, error) {
	return migrationVersion(s.db, s.dialect)
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveReport inserts a report. The report must carry an ID.
func (s *SQLStore) SaveReport(ctx context.Context, r *core.FraudReport) error {
	if r == nil || r.ID == "" {
		return core.InvalidArgument("report ID is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO analyses (id, caller_phone, score, risk_level, created_at, report) VALUES (?, ?, ?, ?, ?, ?)`),
		r.ID, r.CallerPhone, r.OverallScamScore, string(r.RiskLevel), r.CreatedAt.UTC().Format(timeLayout), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	s.logger.Debug("report saved", slog.String("id", r.ID), slog.String("phone", r.CallerPhone))
	return nil
}

// GetReport loads a report by ID.
func (s *SQLStore) GetReport(ctx context.Context, id string) (*core.FraudReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT report FROM analyses WHERE id = ?`), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var r core.FraudReport
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return &r, nil
}

// ListReports returns summaries, newest first.
func (s *SQLStore) ListReports(ctx context.Context, opts core.ListOptions) ([]core.AnalysisSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, caller_phone, score, risk_level, created_at FROM analyses`
	var args []any
	if opts.Phone != "" {
		query += ` WHERE caller_phone = ?`
		args = append(args, opts.Phone)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	out := []core.AnalysisSummary{}
	for rows.Next() {
		var (
			sum       core.AnalysisSummary
			riskLevel string
			createdAt string
		)
		if err := rows.Scan(&sum.ID, &sum.CallerPhone, &sum.Score, &riskLevel, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		sum.RiskLevel = core.RiskLevel(riskLevel)
		sum.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return out, nil
}
