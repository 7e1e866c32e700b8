package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ResultKey identifies one extraction outcome: the document bytes, the schema (with
// label) and the options that produced it.
type ResultKey struct {
	ContentHash string
	Schema      string
	Options     string
}

func (k ResultKey) requestKey() string {
	h := sha256.New()
	h.Write([]byte(k.Schema))
	h.Write([]byte{0})
	h.Write([]byte(k.Options))
	return hex.EncodeToString(h.Sum(nil))
}

type ResultRepository interface {
	Get(ctx context.Context, key ResultKey) ([]byte, bool, error)
	Put(ctx context.Context, key ResultKey, payload []byte) error
	Count(ctx context.Context) (int, error)
}

type resultRepo struct {
	db     *DB
	logger *slog.Logger
}

const createResultsTable = `CREATE TABLE IF NOT EXISTS extraction_results (
	content_hash TEXT NOT NULL,
	request_key  TEXT NOT NULL,
	payload      TEXT NOT NULL,
	created_at   BIGINT NOT NULL,
	PRIMARY KEY (content_hash, request_key)
)`

// NewResultRepository creates the results table when it does not exist yet.
func NewResultRepository(ctx context.Context, db *DB, logger *slog.Logger) (ResultRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.sql.ExecContext(ctx, createResultsTable); err != nil {
		logger.Error("repository.migrate.failed", "error", err)
		return nil, fmt.Errorf("create results table: %w", err)
	}
	return &resultRepo{db: db, logger: logger}, nil
}

func (r *resultRepo) Get(ctx context.Context, key ResultKey) ([]byte, bool, error) {
	var payload string
	err := r.db.sql.QueryRowContext(ctx,
		r.db.rebind(`SELECT payload FROM extraction_results WHERE content_hash = ? AND request_key = ?`),
		key.ContentHash, key.requestKey(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		r.logger.Error("repository.results.get_failed", "content_hash", key.ContentHash, "error", err)
		return nil, false, err
	}
	return []byte(payload), true, nil
}

func (r *resultRepo) Put(ctx context.Context, key ResultKey, payload []byte) error {
	_, err := r.db.sql.ExecContext(ctx,
		r.db.rebind(`INSERT INTO extraction_results (content_hash, request_key, payload, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (content_hash, request_key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`),
		key.ContentHash, key.requestKey(), string(payload), time.Now().UnixMilli(),
	)
	if err != nil {
		r.logger.Error("repository.results.put_failed", "content_hash", key.ContentHash, "error", err)
		return err
	}
	r.logger.Debug("repository.results.put_ok", "content_hash", key.ContentHash, "bytes", len(payload))
	return nil
}

func (r *resultRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM extraction_results`).Scan(&n)
	return n, err
}
