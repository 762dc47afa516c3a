package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/carnet-craft/internal/core/badge"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
	pgdb "github.com/ogurasousui/carnet-craft/internal/platform/db/postgres"
)

const badgeColumns = `id, worker_id, office_code, sequence_code, issue_date, expiry_date`

// BadgeRepository は PostgreSQL を利用した発行記録の実装です。
type BadgeRepository struct {
	pool pgdb.Queryer
}

// NewBadgeRepository は BadgeRepository を生成します。
func NewBadgeRepository(pool pgdb.Queryer) *BadgeRepository {
	return &BadgeRepository{pool: pool}
}

// FindLatestByWorker は職員の最新の発行記録を取得します。
func (r *BadgeRepository) FindLatestByWorker(ctx context.Context, workerID string) (*badge.Badge, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+badgeColumns+`
          FROM badges
         WHERE worker_id = $1
         ORDER BY issue_date DESC, sequence_code DESC
         LIMIT 1
    `, workerID)

	found, err := scanBadge(row)
	if err != nil {
		return nil, translateBadgePgError(err)
	}
	return found, nil
}

// FindLastSequenceCode は部署で最大の連番コードを返します。
func (r *BadgeRepository) FindLastSequenceCode(ctx context.Context, officeCode string) (string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var code string
	err := exec.QueryRow(ctx, `
        SELECT sequence_code
          FROM badges
         WHERE office_code = $1
         ORDER BY length(sequence_code) DESC, sequence_code DESC
         LIMIT 1
    `, officeCode).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

// Create は発行記録を保存します。
func (r *BadgeRepository) Create(ctx context.Context, b *badge.Badge) (*badge.Badge, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO badges (id, worker_id, office_code, sequence_code, issue_date, expiry_date)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+badgeColumns,
		b.ID,
		b.WorkerID,
		b.OfficeCode,
		b.SequenceCode,
		b.IssueDate,
		b.ExpiryDate,
	)

	created, err := scanBadge(row)
	if err != nil {
		return nil, translateBadgePgError(err)
	}
	return created, nil
}

// ListByWorker は職員の発行履歴を新しい順に取得します。
func (r *BadgeRepository) ListByWorker(ctx context.Context, workerID string) ([]*badge.Badge, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+badgeColumns+`
          FROM badges
         WHERE worker_id = $1
         ORDER BY issue_date DESC, sequence_code DESC
    `, workerID)
	if err != nil {
		return nil, translateBadgePgError(err)
	}
	defer rows.Close()

	var badges []*badge.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, translateBadgePgError(err)
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, translateBadgePgError(err)
	}
	return badges, nil
}

// ServerTime はデータベースの現在時刻を返します。
func (r *BadgeRepository) ServerTime(ctx context.Context) (time.Time, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var now time.Time
	if err := exec.QueryRow(ctx, `SELECT CURRENT_TIMESTAMP`).Scan(&now); err != nil {
		return time.Time{}, err
	}
	return now.UTC(), nil
}

func scanBadge(row pgx.Row) (*badge.Badge, error) {
	var b badge.Badge
	if err := row.Scan(&b.ID, &b.WorkerID, &b.OfficeCode, &b.SequenceCode, &b.IssueDate, &b.ExpiryDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, badge.ErrBadgeNotFound
		}
		return nil, err
	}
	b.IssueDate = b.IssueDate.UTC()
	b.ExpiryDate = b.ExpiryDate.UTC()
	return &b, nil
}

func translateBadgePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return badge.ErrBadgeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return badge.ErrSequenceCodeAlreadyExists
		case foreignKeyViolationCode:
			return worker.ErrWorkerNotFound
		case checkViolationCode:
			return badge.ErrInvalidValidity
		}
	}

	return err
}
