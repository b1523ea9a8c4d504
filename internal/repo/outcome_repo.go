package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Feedactions/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// OutcomeRepo — журнал завершённых action.
//
// id action уникален только внутри одного запуска пула, поэтому
// каждая запись помечается идентификатором экземпляра.
type OutcomeRepo struct {
	pool     *pgxpool.Pool
	instance uuid.UUID
}

// NewOutcomeRepo создаёт новый OutcomeRepo.
func NewOutcomeRepo(pool *pgxpool.Pool, instance uuid.UUID) *OutcomeRepo {
	return &OutcomeRepo{pool: pool, instance: instance}
}

// Instance возвращает идентификатор экземпляра пула.
func (r *OutcomeRepo) Instance() uuid.UUID {
	return r.instance
}

// Save сохраняет запись. Повторная запись того же action игнорируется.
func (r *OutcomeRepo) Save(ctx context.Context, rec domain.ActionRecord) error {
	query := `
		INSERT INTO action_records
			(pool_instance, action_id, name, status, worker_id, worker_pid,
			 submitted_at, started_at, finished_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (pool_instance, action_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		r.instance,
		int64(rec.ID),
		rec.Name,
		string(rec.Status),
		nullString(rec.WorkerID),
		nullInt(rec.WorkerPID),
		rec.SubmittedAt,
		rec.StartedAt,
		rec.FinishedAt,
		nullString(rec.Error),
	)
	if err != nil {
		return fmt.Errorf("insert action record: %w", err)
	}
	return nil
}

// OutcomeFilter — параметры выборки журнала.
type OutcomeFilter struct {
	Status domain.ActionStatus
	Name   string
	Limit  int
	Offset int
}

// normalize проверяет фильтр и подставляет значения по умолчанию.
func (f OutcomeFilter) normalize() (OutcomeFilter, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return f, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, f.Status)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return f, fmt.Errorf("%w: negative limit or offset", ErrInvalidFilter)
	}
	if f.Limit == 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return f, nil
}

// List возвращает записи журнала, новые первыми.
func (r *OutcomeRepo) List(ctx context.Context, filter OutcomeFilter) ([]domain.ActionRecord, error) {
	filter, err := filter.normalize()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT action_id, name, status, worker_id, worker_pid,
		       submitted_at, started_at, finished_at, error
		FROM action_records
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR name = $2)
		ORDER BY finished_at DESC, record_id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		nullString(filter.Name),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list action records: %w", err)
	}
	defer rows.Close()

	var records []domain.ActionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// scanRecord сканирует строку в ActionRecord.
func scanRecord(row pgx.Row) (*domain.ActionRecord, error) {
	var rec domain.ActionRecord
	var actionID int64
	var status string
	var workerID, recErr *string
	var workerPID *int32

	err := row.Scan(
		&actionID,
		&rec.Name,
		&status,
		&workerID,
		&workerPID,
		&rec.SubmittedAt,
		&rec.StartedAt,
		&rec.FinishedAt,
		&recErr,
	)
	if err != nil {
		return nil, fmt.Errorf("scan action record: %w", err)
	}

	rec.ID = uint64(actionID)
	rec.Status = domain.ActionStatus(status)
	if workerID != nil {
		rec.WorkerID = *workerID
	}
	if workerPID != nil {
		rec.WorkerPID = int(*workerPID)
	}
	if recErr != nil {
		rec.Error = *recErr
	}
	return &rec, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullInt возвращает nil для нуля.
func nullInt(v int) *int32 {
	if v == 0 {
		return nil
	}
	n := int32(v)
	return &n
}
