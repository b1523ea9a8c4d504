package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool открывает пул соединений к Postgres и проверяет доступность.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// schema — таблица журнала action. Пул её не читает: это аудит,
// а не состояние, которое восстанавливается после перезапуска.
const schema = `
CREATE TABLE IF NOT EXISTS action_records (
	record_id     BIGSERIAL PRIMARY KEY,
	pool_instance UUID        NOT NULL,
	action_id     BIGINT      NOT NULL,
	name          TEXT        NOT NULL,
	status        TEXT        NOT NULL,
	worker_id     TEXT,
	worker_pid    INTEGER,
	submitted_at  TIMESTAMPTZ NOT NULL,
	started_at    TIMESTAMPTZ,
	finished_at   TIMESTAMPTZ NOT NULL,
	error         TEXT,
	UNIQUE (pool_instance, action_id)
);
CREATE INDEX IF NOT EXISTS action_records_finished_at_idx ON action_records (finished_at DESC);
`

// Migrate создаёт таблицы, если их нет.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
