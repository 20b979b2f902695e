package features

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresConfig holds the dataframe table settings.
type PostgresConfig struct {
	DSN       string `yaml:"dsn"`
	Table     string `yaml:"table"`
	BatchSize int    `yaml:"batch_size"`
}

// PostgresSink writes rows into a table with columns
// (document_id, is_spam, features integer[]) using COPY.
type PostgresSink struct {
	db  *sql.DB
	cfg PostgresConfig
}

// NewPostgresSink connects and creates the table if it is missing. When
// replace is set, existing rows are removed.
func NewPostgresSink(ctx context.Context, cfg PostgresConfig, replace bool) (*PostgresSink, error) {
	if cfg.Table == "" {
		cfg.Table = "trec_dataframe"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := &PostgresSink{db: db, cfg: cfg}
	if err := s.ensureTable(ctx, replace); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) ensureTable(ctx context.Context, replace bool) error {
	table := pq.QuoteIdentifier(s.cfg.Table)
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		document_id BIGINT PRIMARY KEY,
		is_spam     BOOLEAN NOT NULL,
		features    INTEGER[] NOT NULL
	)`, table))
	if err != nil {
		return fmt.Errorf("creating dataframe table: %w", err)
	}
	if replace {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s", table)); err != nil {
			return fmt.Errorf("truncating dataframe table: %w", err)
		}
	}
	return nil
}

// Write copies rows in batches, one transaction per batch.
func (s *PostgresSink) Write(ctx context.Context, vectors []Vector) error {
	for start := 0; start < len(vectors); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(vectors))
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			return s.copyBatch(ctx, tx, vectors[start:end])
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresSink) copyBatch(ctx context.Context, tx *sql.Tx, batch []Vector) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(s.cfg.Table, "document_id", "is_spam", "features"))
	if err != nil {
		return fmt.Errorf("preparing copy: %w", err)
	}
	defer stmt.Close()

	for _, v := range batch {
		values := make([]int64, len(v.Values))
		for i, n := range v.Values {
			values[i] = int64(n)
		}
		if _, err := stmt.ExecContext(ctx, v.DocumentID, v.IsSpam, pq.Array(values)); err != nil {
			return fmt.Errorf("copying row %d: %w", v.DocumentID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flushing copy: %w", err)
	}
	return nil
}

func (s *PostgresSink) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Count returns the number of stored rows.
func (s *PostgresSink) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(s.cfg.Table))).Scan(&n)
	return n, err
}

// Close closes the connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

var _ Sink = (*PostgresSink)(nil)
