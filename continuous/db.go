package continuous

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/shutter-network/receipt-watcher/config"
)

// Recorder stores terminal results.
type Recorder interface {
	Record(ctx context.Context, t *Tracked) error
}

type NopRecorder struct{}

func (NopRecorder) Record(context.Context, *Tracked) error { return nil }

const createResolutionTable = `
CREATE TABLE IF NOT EXISTS tx_resolution (
	id               BIGSERIAL PRIMARY KEY,
	chain_id         BIGINT NOT NULL,
	tx_hash          TEXT NOT NULL,
	outcome          TEXT NOT NULL,
	resolved_tx_hash TEXT NOT NULL,
	replacement      TEXT,
	block_number     BIGINT,
	started_at       TIMESTAMPTZ NOT NULL,
	latency_ms       BIGINT NOT NULL
);`

const insertResolution = `
INSERT INTO tx_resolution
	(chain_id, tx_hash, outcome, resolved_tx_hash, replacement, block_number, started_at, latency_ms)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8);`

// PgRecorder writes results into the tx_resolution table.
type PgRecorder struct {
	db *pgxpool.Pool
}

func NewPgRecorder(ctx context.Context, cfg config.DBConfig) (*PgRecorder, error) {
	log.Info().Str("address", cfg.Address).Str("db", cfg.Name).Msg("creating new DB connection")
	db, err := pgxpool.New(ctx, cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("db connection failed: %w", err)
	}
	if _, err := db.Exec(ctx, createResolutionTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tx_resolution table: %w", err)
	}
	return &PgRecorder{db: db}, nil
}

func (r *PgRecorder) Record(ctx context.Context, t *Tracked) error {
	var blockNumber *int64
	if n, ok := t.Result.Receipt.BlockNumber(); ok {
		v := int64(n)
		blockNumber = &v
	}
	_, err := r.db.Exec(ctx, insertResolution,
		int64(t.ChainID),
		t.TxHash,
		t.Result.Outcome.String(),
		t.Result.TxHash,
		t.Result.ReplacementTxHash,
		blockNumber,
		t.Started,
		t.Latency().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert result for %s: %w", t.TxHash, err)
	}
	return nil
}

// CountByOutcome returns how many results per outcome were recorded for chainID.
func (r *PgRecorder) CountByOutcome(ctx context.Context, chainID uint64) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT outcome, COUNT(*) FROM tx_resolution WHERE chain_id = $1 GROUP BY outcome;`, int64(chainID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		counts[outcome] = count
	}
	return counts, rows.Err()
}

func (r *PgRecorder) Close() {
	r.db.Close()
}
