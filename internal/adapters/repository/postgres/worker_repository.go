package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
	pgdb "github.com/ogurasousui/carnet-craft/internal/platform/db/postgres"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
)

const workerColumns = `id, national_id, name, surname, office_code, title, photo_path, photo_data, badge_type, created_at, updated_at`

// WorkerRepository は PostgreSQL を利用した職員永続化の実装です。
type WorkerRepository struct {
	pool pgdb.Queryer
}

// NewWorkerRepository は WorkerRepository を生成します。
func NewWorkerRepository(pool pgdb.Queryer) *WorkerRepository {
	return &WorkerRepository{pool: pool}
}

// Create は職員を新規登録します。
func (r *WorkerRepository) Create(ctx context.Context, w *worker.Worker) (*worker.Worker, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO workers (id, national_id, name, surname, office_code, title, photo_path, photo_data, badge_type, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+workerColumns,
		w.ID,
		w.NationalID,
		w.Name,
		w.Surname,
		w.Office,
		w.Title,
		w.PhotoPath,
		nullableBytes(w.PhotoData),
		string(w.BadgeType),
		w.CreatedAt,
		w.UpdatedAt,
	)

	created, err := scanWorker(row)
	if err != nil {
		return nil, translateWorkerPgError(err)
	}
	return created, nil
}

// Update は身分証番号で特定した職員を更新します。
func (r *WorkerRepository) Update(ctx context.Context, w *worker.Worker) (*worker.Worker, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE workers
           SET name = $1,
               surname = $2,
               office_code = $3,
               title = $4,
               photo_path = $5,
               photo_data = $6,
               badge_type = $7,
               updated_at = $8
         WHERE national_id = $9
        RETURNING `+workerColumns,
		w.Name,
		w.Surname,
		w.Office,
		w.Title,
		w.PhotoPath,
		nullableBytes(w.PhotoData),
		string(w.BadgeType),
		w.UpdatedAt,
		w.NationalID,
	)

	updated, err := scanWorker(row)
	if err != nil {
		return nil, translateWorkerPgError(err)
	}
	return updated, nil
}

// Delete は職員を削除します。発行済みカードは外部キーで連鎖削除されます。
func (r *WorkerRepository) Delete(ctx context.Context, nationalID string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM workers WHERE national_id = $1`, nationalID)
	if err != nil {
		return translateWorkerPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return worker.ErrWorkerNotFound
	}
	return nil
}

// RelocateOffice は oldCode に所属する職員を newCode へ付け替えます。
func (r *WorkerRepository) RelocateOffice(ctx context.Context, oldCode, newCode string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if _, err := exec.Exec(ctx, `UPDATE workers SET office_code = $1 WHERE office_code = $2`, newCode, oldCode); err != nil {
		return translateWorkerPgError(err)
	}
	return nil
}

// FindByNationalID は身分証番号で職員を取得します。
func (r *WorkerRepository) FindByNationalID(ctx context.Context, nationalID string) (*worker.Worker, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+workerColumns+`
          FROM workers
         WHERE national_id = $1
         LIMIT 1
    `, nationalID)

	found, err := scanWorker(row)
	if err != nil {
		return nil, translateWorkerPgError(err)
	}
	return found, nil
}

// ExistsByNationalID は身分証番号の重複有無を返します。
func (r *WorkerRepository) ExistsByNationalID(ctx context.Context, nationalID string) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var exists bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workers WHERE national_id = $1)`, nationalID).Scan(&exists); err != nil {
		return false, translateWorkerPgError(err)
	}
	return exists, nil
}

// List は職員を姓・名の順で取得します。
func (r *WorkerRepository) List(ctx context.Context, filter worker.ListWorkersFilter) ([]*worker.Worker, string, error) {
	if filter.Limit <= 0 {
		return nil, "", worker.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", worker.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 3)
	whereClause := ""
	if strings.TrimSpace(filter.Office) != "" {
		args = append(args, filter.Office)
		whereClause = " WHERE office_code = $" + strconv.Itoa(len(args))
	}

	limitPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, limitWithBuffer)
	offsetPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, filter.Offset)

	query := `
        SELECT ` + workerColumns + `
          FROM workers` + whereClause + `
         ORDER BY surname, name, national_id
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateWorkerPgError(err)
	}
	defer rows.Close()

	workers := make([]*worker.Worker, 0, filter.Limit)
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, "", translateWorkerPgError(err)
		}
		workers = append(workers, w)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateWorkerPgError(err)
	}

	var nextToken string
	if len(workers) == limitWithBuffer {
		workers = workers[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return workers, nextToken, nil
}

func scanWorker(row pgx.Row) (*worker.Worker, error) {
	var (
		w         worker.Worker
		photoData []byte
		badgeType string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(
		&w.ID,
		&w.NationalID,
		&w.Name,
		&w.Surname,
		&w.Office,
		&w.Title,
		&w.PhotoPath,
		&photoData,
		&badgeType,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, worker.ErrWorkerNotFound
		}
		return nil, err
	}

	if len(photoData) > 0 {
		w.PhotoData = photoData
	}
	w.BadgeType = worker.BadgeType(badgeType)
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return &w, nil
}

func translateWorkerPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return worker.ErrWorkerNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return worker.ErrNationalIDAlreadyExists
		case checkViolationCode:
			return worker.ErrInvalidBadgeType
		}
	}

	return err
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
