package badge

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	// WithinSerializable は読み取り結果に基づいて書き込む処理を直列化します。
	WithinSerializable(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinSerializable(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Tracker は職員証の有効性を判定し、必要に応じて再発行します。
type Tracker struct {
	repo         Repository
	tx           TransactionManager
	logger       *zap.Logger
	validityDays int
}

// NewTracker は Tracker を生成します。validityDays が 0 以下なら既定値を使います。
func NewTracker(repo Repository, tx TransactionManager, logger *zap.Logger, validityDays int) *Tracker {
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if validityDays <= 0 {
		validityDays = DefaultValidityDays
	}
	return &Tracker{repo: repo, tx: tx, logger: logger, validityDays: validityDays}
}

// IssueInput は発行判定の入力です。
type IssueInput struct {
	WorkerID   string
	OfficeCode string
	// ValidityDays が 0 の場合は Tracker の既定値を使います。
	ValidityDays int
}

// IssueResult は発行判定の結果です。
type IssueResult struct {
	Badge  *Badge
	Issued bool
}

// GenerateSequenceCode は部署の次の連番コードを返します。
func (t *Tracker) GenerateSequenceCode(ctx context.Context, officeCode string) (string, error) {
	officeCode = strings.TrimSpace(officeCode)
	if officeCode == "" {
		return "", ErrInvalidOfficeCode
	}
	last, err := t.repo.FindLastSequenceCode(ctx, officeCode)
	if err != nil {
		return "", err
	}
	return NextSequenceCode(officeCode, last)
}

// IssueIfNeeded は有効な職員証があればそれを返し、無ければ新しく発行します。
// 有効期間内の繰り返し呼び出しで二枚目が発行されることはありません。
func (t *Tracker) IssueIfNeeded(ctx context.Context, in IssueInput) (*IssueResult, error) {
	workerID := strings.TrimSpace(in.WorkerID)
	if workerID == "" {
		return nil, ErrInvalidWorkerID
	}
	officeCode := strings.TrimSpace(in.OfficeCode)
	if officeCode == "" {
		return nil, ErrInvalidOfficeCode
	}
	if in.ValidityDays < 0 {
		return nil, ErrInvalidValidity
	}
	validityDays := in.ValidityDays
	if validityDays == 0 {
		validityDays = t.validityDays
	}

	var result *IssueResult
	if err := t.tx.WithinSerializable(ctx, func(txCtx context.Context) error {
		now, err := t.repo.ServerTime(txCtx)
		if err != nil {
			return err
		}

		latest, err := t.repo.FindLatestByWorker(txCtx, workerID)
		if err != nil && !errors.Is(err, ErrBadgeNotFound) {
			return err
		}
		if latest == nil {
			t.logger.Info("no badge on record", zap.String("worker_id", workerID))
		}
		if IsCurrent(latest, now) {
			result = &IssueResult{Badge: latest}
			return nil
		}

		code, err := t.GenerateSequenceCode(txCtx, officeCode)
		if err != nil {
			return err
		}

		created, err := t.repo.Create(txCtx, &Badge{
			ID:           uuid.NewString(),
			WorkerID:     workerID,
			OfficeCode:   officeCode,
			SequenceCode: code,
			IssueDate:    now,
			ExpiryDate:   now.Add(time.Duration(validityDays) * 24 * time.Hour),
		})
		if err != nil {
			return err
		}

		t.logger.Info("badge issued",
			zap.String("worker_id", workerID),
			zap.String("sequence_code", created.SequenceCode),
			zap.Time("expiry_date", created.ExpiryDate),
		)
		result = &IssueResult{Badge: created, Issued: true}
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// History は職員の発行履歴を新しい順に返します。
func (t *Tracker) History(ctx context.Context, workerID string) ([]*Badge, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, ErrInvalidWorkerID
	}

	var badges []*Badge
	if err := t.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := t.repo.ListByWorker(txCtx, workerID)
		if err != nil {
			return err
		}
		badges = found
		return nil
	}); err != nil {
		return nil, err
	}
	return badges, nil
}
