package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/carnet-craft/internal/core/office"
	pgdb "github.com/ogurasousui/carnet-craft/internal/platform/db/postgres"
)

const (
	officeNameConstraint = "offices_name_key"
	officeCodeConstraint = "offices_code_key"
)

// OfficeRepository は PostgreSQL を利用した部署永続化の実装です。
type OfficeRepository struct {
	pool pgdb.Queryer
}

// NewOfficeRepository は OfficeRepository を生成します。
func NewOfficeRepository(pool pgdb.Queryer) *OfficeRepository {
	return &OfficeRepository{pool: pool}
}

// List は登録順に部署を取得します。
func (r *OfficeRepository) List(ctx context.Context) ([]*office.Office, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, name, code, position, created_at
          FROM offices
         ORDER BY position, created_at, id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offices []*office.Office
	for rows.Next() {
		o, err := scanOffice(rows)
		if err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return offices, nil
}

// Create は部署を追加します。
func (r *OfficeRepository) Create(ctx context.Context, o *office.Office) (*office.Office, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO offices (id, name, code, position, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, name, code, position, created_at
    `, o.ID, o.Name, o.Code, o.Position, o.CreatedAt)

	created, err := scanOffice(row)
	if err != nil {
		return nil, translateOfficePgError(err, o)
	}
	return created, nil
}

// Update は oldCode の部署の名前とコードを更新します。
func (r *OfficeRepository) Update(ctx context.Context, oldCode string, o *office.Office) (*office.Office, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE offices
           SET name = $1,
               code = $2
         WHERE code = $3
        RETURNING id, name, code, position, created_at
    `, o.Name, o.Code, oldCode)

	updated, err := scanOffice(row)
	if err != nil {
		return nil, translateOfficePgError(err, o)
	}
	return updated, nil
}

// DeleteByCode は部署を削除します。該当が無くてもエラーにしません。
func (r *OfficeRepository) DeleteByCode(ctx context.Context, code string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if _, err := exec.Exec(ctx, `DELETE FROM offices WHERE code = $1`, code); err != nil {
		return err
	}
	return nil
}

func scanOffice(row pgx.Row) (*office.Office, error) {
	var (
		o         office.Office
		createdAt time.Time
	)
	if err := row.Scan(&o.ID, &o.Name, &o.Code, &o.Position, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, office.ErrOfficeNotFound
		}
		return nil, err
	}
	o.CreatedAt = createdAt.UTC()
	return &o, nil
}

func translateOfficePgError(err error, o *office.Office) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return office.ErrOfficeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		kind := office.DuplicateBoth
		switch pgErr.ConstraintName {
		case officeNameConstraint:
			kind = office.DuplicateName
		case officeCodeConstraint:
			kind = office.DuplicateCode
		}
		return &office.DuplicateError{Kind: kind, Name: o.Name, Code: o.Code}
	}

	return err
}
