package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/carnet-craft/internal/core/office"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var officeColumnNames = []string{"id", "name", "code", "position", "created_at"}

func TestOfficeRepository_List(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM offices ORDER BY position, created_at, id`)).
		WillReturnRows(pgxmock.NewRows(officeColumnNames).
			AddRow("o-1", "Administracion", "ADM", 0, now).
			AddRow("o-2", "Tecnologia", "OTI", 1, now))

	offices, err := NewOfficeRepository(mock).List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(offices) != 2 || offices[0].Code != "ADM" || offices[1].Position != 1 {
		t.Fatalf("unexpected offices: %+v", offices)
	}
}

func TestOfficeRepository_Create_DuplicateKinds(t *testing.T) {
	t.Parallel()

	cases := map[string]office.DuplicateKind{
		officeNameConstraint: office.DuplicateName,
		officeCodeConstraint: office.DuplicateCode,
	}

	for constraint, want := range cases {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("failed to create mock pool: %v", err)
		}

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO offices`)).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: constraint})

		_, err = NewOfficeRepository(mock).Create(context.Background(), &office.Office{Name: "Administracion", Code: "ADM"})
		kind, ok := office.DuplicateKindOf(err)
		if !ok || kind != want {
			t.Fatalf("%s: expected %s, got %v", constraint, want, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("%s: unmet expectations: %v", constraint, err)
		}
		mock.Close()
	}
}

func TestOfficeRepository_Update_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE offices`)).
		WithArgs("Tecnologia", "OTI", "TEC").
		WillReturnRows(pgxmock.NewRows(officeColumnNames))

	_, err = NewOfficeRepository(mock).Update(context.Background(), "TEC", &office.Office{Name: "Tecnologia", Code: "OTI"})
	if !errors.Is(err, office.ErrOfficeNotFound) {
		t.Fatalf("expected ErrOfficeNotFound, got %v", err)
	}
}

func TestOfficeRepository_DeleteByCode_Idempotent(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM offices WHERE code = $1`)).
		WithArgs("ADM").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := NewOfficeRepository(mock).DeleteByCode(context.Background(), "ADM"); err != nil {
		t.Fatalf("expected no error for missing office, got %v", err)
	}
}
