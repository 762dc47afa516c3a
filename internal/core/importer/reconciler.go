package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/carnet-craft/internal/core/office"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
	"go.uber.org/zap"
)

const defaultMaxReportedErrors = 10

var (
	// ErrMissingKeyField は氏名・姓・身分証番号のいずれかが空の場合の行エラーです。
	ErrMissingKeyField = errors.New("importer: name, surname and national id are required")
	// ErrNoOffices は部署が一件も登録されておらず部署を補正できない場合の行エラーです。
	ErrNoOffices = errors.New("importer: office directory is empty")
	// ErrConfirmerRequired は Confirmer が指定されていない場合に返却されます。
	ErrConfirmerRequired = errors.New("importer: confirmer is required")
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// OfficeLookup は部署の解決に必要な操作です。*office.Directory が満たします。
type OfficeLookup interface {
	ResolveCodeToName(code string) (string, bool)
	ResolveNameToCode(name string) (string, bool)
	Default() (office.Office, bool)
}

// Outcome は一行の処理結果です。
type Outcome int

const (
	OutcomeInserted Outcome = iota + 1
	OutcomeUpdated
	OutcomeSkipped
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Summary は取り込み結果の集計です。
type Summary struct {
	Total    int
	Inserted int
	Updated  int
	Skipped  int
	Errored  int
	Warnings int
	// Errors は先頭から最大 N 件の行エラーの説明です。
	Errors []string
}

func (s *Summary) String() string {
	return fmt.Sprintf("total=%d inserted=%d updated=%d skipped=%d errored=%d warnings=%d",
		s.Total, s.Inserted, s.Updated, s.Skipped, s.Errored, s.Warnings)
}

// Reconciler は取り込み行を既存の職員と突き合わせて登録・更新します。
type Reconciler struct {
	workers        worker.Repository
	offices        OfficeLookup
	confirmer      Confirmer
	clock          Clock
	tx             TransactionManager
	logger         *zap.Logger
	nationalIDRule func(string) bool
	maxErrors      int
}

// Option は Reconciler の挙動を変更します。
type Option func(*Reconciler)

// WithClock は時刻の取得元を差し替えます。
func WithClock(clock Clock) Option {
	return func(r *Reconciler) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithTransactionManager は行ごとのトランザクション制御を設定します。
func WithTransactionManager(tx TransactionManager) Option {
	return func(r *Reconciler) {
		if tx != nil {
			r.tx = tx
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStrictNationalID は身分証番号を数字のみに制限します。
func WithStrictNationalID(strict bool) Option {
	return func(r *Reconciler) {
		r.nationalIDRule = worker.NationalIDRule(strict)
	}
}

// WithMaxReportedErrors は Summary に残す行エラーの件数を設定します。
func WithMaxReportedErrors(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxErrors = n
		}
	}
}

// NewReconciler は Reconciler を生成します。
func NewReconciler(workers worker.Repository, offices OfficeLookup, confirmer Confirmer, opts ...Option) *Reconciler {
	r := &Reconciler{
		workers:        workers,
		offices:        offices,
		confirmer:      confirmer,
		clock:          realClock{},
		tx:             noopTransactionManager{},
		logger:         zap.NewNop(),
		nationalIDRule: worker.ValidateNationalID,
		maxErrors:      defaultMaxReportedErrors,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// rowError は行単位で回復可能なエラーです。取り込みは継続します。
type rowError struct {
	err error
}

func (e *rowError) Error() string { return e.err.Error() }
func (e *rowError) Unwrap() error { return e.err }

func rowFailure(err error) error {
	return &rowError{err: err}
}

// Reconcile は行を順番に処理します。各行は個別のトランザクションで確定し、
// 途中で永続化エラーが発生した場合はそれまでの集計とともにエラーを返します。
// 確定済みの行は巻き戻しません。
func (r *Reconciler) Reconcile(ctx context.Context, rows []ImportRow) (*Summary, error) {
	if r.confirmer == nil {
		return nil, ErrConfirmerRequired
	}

	summary := &Summary{}
	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		row := raw.normalized()
		if row.Line == 0 {
			row.Line = i + 1
		}
		summary.Total++

		outcome, warnings, err := r.reconcileRow(ctx, row)
		summary.Warnings += len(warnings)
		for _, w := range warnings {
			r.logger.Warn("import row coerced", zap.Int("line", row.Line), zap.String("national_id", row.NationalID), zap.String("detail", w))
		}

		if err != nil {
			var re *rowError
			if !errors.As(err, &re) {
				return summary, fmt.Errorf("importer: line %d: %w", row.Line, err)
			}
			summary.Errored++
			if len(summary.Errors) < r.maxErrors {
				summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: %v", row.Line, re.err))
			}
			r.logger.Warn("import row rejected", zap.Int("line", row.Line), zap.String("national_id", row.NationalID), zap.Error(re.err))
			continue
		}

		switch outcome {
		case OutcomeInserted:
			summary.Inserted++
		case OutcomeUpdated:
			summary.Updated++
		case OutcomeSkipped:
			summary.Skipped++
			r.logger.Info("import row skipped", zap.Int("line", row.Line), zap.String("national_id", row.NationalID))
		}
	}

	r.logger.Info("import finished",
		zap.Int("total", summary.Total),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errored", summary.Errored),
	)
	return summary, nil
}

func (r *Reconciler) reconcileRow(ctx context.Context, row ImportRow) (Outcome, []string, error) {
	if !row.hasKeyFields() {
		return OutcomeError, nil, rowFailure(ErrMissingKeyField)
	}
	if !r.nationalIDRule(row.NationalID) {
		return OutcomeError, nil, rowFailure(worker.ErrInvalidNationalID)
	}
	if !worker.ValidateName(row.Name) {
		return OutcomeError, nil, rowFailure(worker.ErrInvalidName)
	}
	if !worker.ValidateName(row.Surname) {
		return OutcomeError, nil, rowFailure(worker.ErrInvalidSurname)
	}

	var warnings []string

	if row.PhotoReference != "" && !worker.ValidatePhotoReference(row.PhotoReference) {
		warnings = append(warnings, "photo reference unreadable, ignored")
		row.PhotoReference = ""
	}

	if row.BadgeType != "" {
		if bt, ok := worker.ParseBadgeType(row.BadgeType); ok {
			row.BadgeType = string(bt)
		} else {
			warnings = append(warnings, fmt.Sprintf("badge type %q coerced to %s", row.BadgeType, worker.DefaultBadgeType()))
			row.BadgeType = string(worker.DefaultBadgeType())
		}
	}

	if row.Office != "" {
		code, coerced, err := r.resolveOffice(row.Office)
		if err != nil {
			return OutcomeError, warnings, rowFailure(err)
		}
		if coerced {
			warnings = append(warnings, fmt.Sprintf("office %q coerced to %s", row.Office, code))
		}
		row.Office = code
	}

	var existing *worker.Worker
	if err := r.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := r.workers.FindByNationalID(txCtx, row.NationalID)
		if err != nil {
			if errors.Is(err, worker.ErrWorkerNotFound) {
				return nil
			}
			return err
		}
		existing = found
		return nil
	}); err != nil {
		return OutcomeError, warnings, err
	}

	if existing == nil {
		fillDefaults, fillWarnings, err := r.withInsertDefaults(row)
		if err != nil {
			return OutcomeError, warnings, rowFailure(err)
		}
		warnings = append(warnings, fillWarnings...)
		if err := r.insert(ctx, fillDefaults); err != nil {
			return OutcomeError, warnings, err
		}
		return OutcomeInserted, warnings, nil
	}

	ok, err := r.confirmer.ConfirmUpdate(ctx, existing.Clone(), row)
	if err != nil {
		return OutcomeError, warnings, fmt.Errorf("confirm update: %w", err)
	}
	if !ok {
		return OutcomeSkipped, warnings, nil
	}

	if err := r.merge(ctx, row); err != nil {
		return OutcomeError, warnings, err
	}
	return OutcomeUpdated, warnings, nil
}

// resolveOffice はコードならそのまま、部署名ならコードに変換し、
// どちらでもなければ先頭の部署に補正します。
func (r *Reconciler) resolveOffice(value string) (string, bool, error) {
	if _, ok := r.offices.ResolveCodeToName(value); ok {
		return value, false, nil
	}
	if code, ok := r.offices.ResolveNameToCode(value); ok {
		return code, false, nil
	}
	def, ok := r.offices.Default()
	if !ok {
		return "", false, ErrNoOffices
	}
	return def.Code, true, nil
}

// withInsertDefaults は新規登録時に空の種別と部署を既定値で埋めます。
func (r *Reconciler) withInsertDefaults(row ImportRow) (ImportRow, []string, error) {
	var warnings []string
	if row.BadgeType == "" {
		row.BadgeType = string(worker.DefaultBadgeType())
		warnings = append(warnings, fmt.Sprintf("badge type empty, defaulted to %s", row.BadgeType))
	}
	if row.Office == "" {
		def, ok := r.offices.Default()
		if !ok {
			return row, warnings, ErrNoOffices
		}
		row.Office = def.Code
		warnings = append(warnings, fmt.Sprintf("office empty, defaulted to %s", def.Code))
	}
	return row, warnings, nil
}

func (r *Reconciler) insert(ctx context.Context, row ImportRow) error {
	now := r.clock.Now()
	w := &worker.Worker{
		ID:         uuid.NewString(),
		Name:       row.Name,
		Surname:    row.Surname,
		NationalID: row.NationalID,
		Office:     row.Office,
		Title:      row.Title,
		BadgeType:  worker.BadgeType(row.BadgeType),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	w.SetPhotoReference(row.PhotoReference)

	return r.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		_, err := r.workers.Create(txCtx, w)
		return err
	})
}

// merge は取り込み行で空でないフィールドのみを既存の職員に反映します。
func (r *Reconciler) merge(ctx context.Context, row ImportRow) error {
	return r.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := r.workers.FindByNationalID(txCtx, row.NationalID)
		if err != nil {
			return err
		}

		existing.Name = row.Name
		existing.Surname = row.Surname
		if row.Office != "" {
			existing.Office = row.Office
		}
		if row.Title != "" {
			existing.Title = row.Title
		}
		if row.PhotoReference != "" {
			existing.SetPhotoReference(row.PhotoReference)
		}
		if row.BadgeType != "" {
			existing.BadgeType = worker.BadgeType(row.BadgeType)
		}
		existing.UpdatedAt = r.clock.Now()

		_, err = r.workers.Update(txCtx, existing)
		return err
	})
}
