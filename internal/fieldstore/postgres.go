package fieldstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/changeorders/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS field_values (
	field_id   TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects using cfg and ensures the schema exists.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := NewPostgres(pool)
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing pool. The caller owns the schema.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the field_values table if it is missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create field_values table: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, fieldID string) (string, bool, error) {
	if err := ValidateFieldID(fieldID); err != nil {
		return "", false, err
	}
	var value string
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM field_values WHERE field_id = $1`, fieldID,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load field %s: %w", fieldID, err)
	}
	return value, true, nil
}

func (p *Postgres) Save(ctx context.Context, fieldID, value string) error {
	if err := ValidateFieldID(fieldID); err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO field_values (field_id, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (field_id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		fieldID, value,
	); err != nil {
		return fmt.Errorf("save field %s: %w", fieldID, err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]Field, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT field_id, octet_length(value), updated_at FROM field_values ORDER BY field_id`)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	var out []Field
	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.ID, &f.Bytes, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
