package worker

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogurasousui/carnet-craft/internal/core/office"
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

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// DirectoryLoader は部署ディレクトリを読み込みます。*office.Service が満たします。
type DirectoryLoader interface {
	Load(ctx context.Context) (*office.Directory, error)
}

// Service は職員に関するユースケースをまとめます。
type Service struct {
	repo           Repository
	clock          Clock
	tx             TransactionManager
	nationalIDRule func(string) bool
	offices        DirectoryLoader
}

// UseCase は職員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateWorker(ctx context.Context, in CreateWorkerInput) (*Worker, error)
	GetWorker(ctx context.Context, in GetWorkerInput) (*Worker, error)
	ListWorkers(ctx context.Context, in ListWorkersInput) (*ListWorkersResult, error)
	UpdateWorker(ctx context.Context, in UpdateWorkerInput) (*Worker, error)
	DeleteWorker(ctx context.Context, in DeleteWorkerInput) error
}

// Option は Service の挙動を変更します。
type Option func(*Service)

// WithStrictNationalID は身分証番号を数字のみに制限します。
func WithStrictNationalID(strict bool) Option {
	return func(s *Service) {
		s.nationalIDRule = NationalIDRule(strict)
	}
}

// WithOfficeDirectory は手入力の部署を部署ディレクトリで検証します。
// 部署名が指定された場合はコードへ変換して保存します。
func WithOfficeDirectory(d DirectoryLoader) Option {
	return func(s *Service) {
		s.offices = d
	}
}

// NationalIDRule は設定に応じた身分証番号の検証関数を返します。
func NationalIDRule(strict bool) func(string) bool {
	if strict {
		return ValidateNationalIDStrict
	}
	return ValidateNationalID
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{repo: repo, clock: clock, tx: tx, nationalIDRule: ValidateNationalID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateWorkerInput は職員登録時の入力です。
type CreateWorkerInput struct {
	Name           string
	Surname        string
	NationalID     string
	Office         string
	Title          string
	PhotoReference string
	BadgeType      string
}

// UpdateWorkerInput は職員更新時の入力です。nil のフィールドは変更しません。
type UpdateWorkerInput struct {
	NationalID     string
	Name           *string
	Surname        *string
	Office         *string
	Title          *string
	PhotoReference *string
	BadgeType      *string
}

// GetWorkerInput は職員取得時の入力です。
type GetWorkerInput struct {
	NationalID string
}

// DeleteWorkerInput は職員削除時の入力です。
type DeleteWorkerInput struct {
	NationalID string
}

// ListWorkersInput は一覧取得時の入力です。
type ListWorkersInput struct {
	Office    string
	PageSize  int
	PageToken string
}

// ListWorkersResult は一覧取得結果を表します。
type ListWorkersResult struct {
	Workers       []*Worker
	NextPageToken string
}

// CreateWorker は新しい職員を登録します。
func (s *Service) CreateWorker(ctx context.Context, in CreateWorkerInput) (*Worker, error) {
	fields := Fields{
		Name:           strings.TrimSpace(in.Name),
		Surname:        strings.TrimSpace(in.Surname),
		NationalID:     strings.TrimSpace(in.NationalID),
		Office:         strings.TrimSpace(in.Office),
		Title:          strings.TrimSpace(in.Title),
		PhotoReference: in.PhotoReference,
		BadgeType:      strings.TrimSpace(in.BadgeType),
	}
	if !ValidateRequired(fields) {
		return nil, ErrMissingRequiredField
	}
	if !s.nationalIDRule(fields.NationalID) {
		return nil, ErrInvalidNationalID
	}
	if !ValidateName(fields.Name) {
		return nil, ErrInvalidName
	}
	if !ValidateName(fields.Surname) {
		return nil, ErrInvalidSurname
	}
	if !ValidatePhotoReference(fields.PhotoReference) {
		return nil, ErrInvalidPhoto
	}
	badgeType, ok := ParseBadgeType(fields.BadgeType)
	if !ok {
		return nil, ErrInvalidBadgeType
	}
	officeCode, err := s.resolveOffice(ctx, fields.Office)
	if err != nil {
		return nil, err
	}

	var created *Worker
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		exists, err := s.repo.ExistsByNationalID(txCtx, fields.NationalID)
		if err != nil {
			return err
		}
		if exists {
			return ErrNationalIDAlreadyExists
		}

		now := s.clock.Now()
		w := &Worker{
			ID:         uuid.NewString(),
			Name:       fields.Name,
			Surname:    fields.Surname,
			NationalID: fields.NationalID,
			Office:     officeCode,
			Title:      fields.Title,
			BadgeType:  badgeType,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		w.SetPhotoReference(fields.PhotoReference)

		result, err := s.repo.Create(txCtx, w)
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateWorker は職員情報を部分更新します。
func (s *Service) UpdateWorker(ctx context.Context, in UpdateWorkerInput) (*Worker, error) {
	nationalID, err := s.normalizeNationalID(in.NationalID)
	if err != nil {
		return nil, err
	}

	var officeCode string
	if in.Office != nil {
		raw, err := normalizeText(*in.Office, ErrInvalidOffice)
		if err != nil {
			return nil, err
		}
		if officeCode, err = s.resolveOffice(ctx, raw); err != nil {
			return nil, err
		}
	}

	var updated *Worker
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByNationalID(txCtx, nationalID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if !ValidateName(name) {
				return ErrInvalidName
			}
			existing.Name = name
		}
		if in.Surname != nil {
			surname := strings.TrimSpace(*in.Surname)
			if !ValidateName(surname) {
				return ErrInvalidSurname
			}
			existing.Surname = surname
		}
		if in.Office != nil {
			existing.Office = officeCode
		}
		if in.Title != nil {
			title, err := normalizeText(*in.Title, ErrInvalidTitle)
			if err != nil {
				return err
			}
			existing.Title = title
		}
		if in.PhotoReference != nil {
			if !ValidatePhotoReference(*in.PhotoReference) {
				return ErrInvalidPhoto
			}
			existing.SetPhotoReference(*in.PhotoReference)
		}
		if in.BadgeType != nil {
			badgeType, ok := ParseBadgeType(*in.BadgeType)
			if !ok {
				return ErrInvalidBadgeType
			}
			existing.BadgeType = badgeType
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteWorker は職員を削除します。発行済みカードも削除されます。
func (s *Service) DeleteWorker(ctx context.Context, in DeleteWorkerInput) error {
	nationalID, err := s.normalizeNationalID(in.NationalID)
	if err != nil {
		return err
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, nationalID)
	})
}

// GetWorker は身分証番号で職員を取得します。
func (s *Service) GetWorker(ctx context.Context, in GetWorkerInput) (*Worker, error) {
	nationalID, err := s.normalizeNationalID(in.NationalID)
	if err != nil {
		return nil, err
	}

	var result *Worker
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByNationalID(txCtx, nationalID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListWorkers は職員の一覧を姓名順に取得します。
func (s *Service) ListWorkers(ctx context.Context, in ListWorkersInput) (*ListWorkersResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var (
		workers   []*Worker
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.List(txCtx, ListWorkersFilter{
			Office: strings.TrimSpace(in.Office),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return err
		}
		workers = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListWorkersResult{Workers: workers, NextPageToken: nextToken}, nil
}

func (s *Service) normalizeNationalID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !s.nationalIDRule(trimmed) {
		return "", ErrInvalidNationalID
	}
	return trimmed, nil
}

// resolveOffice はコードならそのまま、部署名なら対応するコードを返します。
func (s *Service) resolveOffice(ctx context.Context, raw string) (string, error) {
	if s.offices == nil {
		return raw, nil
	}
	dir, err := s.offices.Load(ctx)
	if err != nil {
		return "", err
	}
	if _, ok := dir.ResolveCodeToName(raw); ok {
		return raw, nil
	}
	if code, ok := dir.ResolveNameToCode(raw); ok {
		return code, nil
	}
	return "", ErrInvalidOffice
}

func normalizeText(raw string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", invalid
	}
	return trimmed, nil
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}

// IsNotFound は err が職員未登録を表すかどうかを返します。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkerNotFound)
}
