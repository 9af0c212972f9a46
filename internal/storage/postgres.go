package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"reelcast/internal/models"
)

const pgUniqueViolation = "23505"

const reelsSchema = `
CREATE TABLE IF NOT EXISTS reels (
    reel_id          TEXT PRIMARY KEY,
    stock_identifier TEXT NOT NULL,
    storage_key      TEXT NOT NULL,
    caption          TEXT NOT NULL DEFAULT '',
    likes            INTEGER NOT NULL DEFAULT 0,
    liked_by         TEXT[] NOT NULL DEFAULT '{}',
    created_ms       BIGINT NOT NULL,
    job_id           TEXT NOT NULL DEFAULT ''
)`

// PostgresRepository stores reels in a single Postgres table keyed by reel_id.
type PostgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository and ensures the
// reels table exists.
func NewPostgresRepository(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresRepository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if _, err := pool.Exec(ctx, reelsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure reels table: %w", err)
	}
	return &PostgresRepository{pool: pool, cfg: cfg}, nil
}

// Close releases the connection pool, bounded by the provided context.
func (r *PostgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) CreateReel(ctx context.Context, reel models.Reel) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reels (reel_id, stock_identifier, storage_key, caption, likes, liked_by, created_ms, job_id)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		reel.ReelID, reel.StockIdentifier, reel.StorageKey, reel.Caption,
		reel.Likes, reel.CloneLikedBy(), reel.Timestamp, reel.JobID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("create reel %s: %w", reel.ReelID, ErrDuplicateReel)
		}
		return fmt.Errorf("insert reel %s: %w", reel.ReelID, err)
	}
	return nil
}

func (r *PostgresRepository) GetReel(ctx context.Context, reelID string) (models.Reel, bool, error) {
	reel, err := scanReel(r.pool.QueryRow(ctx,
		`SELECT reel_id, stock_identifier, storage_key, caption, likes, liked_by, created_ms, job_id
         FROM reels WHERE reel_id = $1`, reelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Reel{}, false, nil
	}
	if err != nil {
		return models.Reel{}, false, fmt.Errorf("select reel %s: %w", reelID, err)
	}
	return reel, true, nil
}

func (r *PostgresRepository) ListReels(ctx context.Context) ([]models.Reel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT reel_id, stock_identifier, storage_key, caption, likes, liked_by, created_ms, job_id
         FROM reels`)
	if err != nil {
		return nil, fmt.Errorf("select reels: %w", err)
	}
	defer rows.Close()

	reels := make([]models.Reel, 0)
	for rows.Next() {
		reel, err := scanReel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reel row: %w", err)
		}
		reels = append(reels, reel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reels: %w", err)
	}
	return reels, nil
}

// AddLike performs the increment and append in one UPDATE statement so the
// database serialises concurrent likes on the same reel.
func (r *PostgresRepository) AddLike(ctx context.Context, reelID, clientID string) (models.Reel, error) {
	reel, err := scanReel(r.pool.QueryRow(ctx,
		`UPDATE reels
         SET likes = likes + 1, liked_by = array_append(liked_by, $2)
         WHERE reel_id = $1
         RETURNING reel_id, stock_identifier, storage_key, caption, likes, liked_by, created_ms, job_id`,
		reelID, clientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Reel{}, fmt.Errorf("like reel %s: %w", reelID, ErrNotFound)
	}
	if err != nil {
		return models.Reel{}, fmt.Errorf("update reel %s: %w", reelID, err)
	}
	return reel, nil
}

// Truncate removes every stored reel. It exists for integration tests that
// need a clean table between scenarios.
func (r *PostgresRepository) Truncate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "TRUNCATE reels"); err != nil {
		return fmt.Errorf("truncate reels: %w", err)
	}
	return nil
}

func scanReel(row pgx.Row) (models.Reel, error) {
	var reel models.Reel
	err := row.Scan(
		&reel.ReelID, &reel.StockIdentifier, &reel.StorageKey, &reel.Caption,
		&reel.Likes, &reel.LikedBy, &reel.Timestamp, &reel.JobID,
	)
	if err != nil {
		return models.Reel{}, err
	}
	if reel.LikedBy == nil {
		reel.LikedBy = []string{}
	}
	return reel, nil
}
