package office

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
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

// WorkerRelocator は部署コードの変更を所属職員へ反映します。
type WorkerRelocator interface {
	RelocateOffice(ctx context.Context, oldCode, newCode string) error
}

// Service は部署ディレクトリの読み込みと確定を行います。
type Service struct {
	repo      Repository
	clock     Clock
	tx        TransactionManager
	relocator WorkerRelocator
}

// Option は Service の挙動を変更します。
type Option func(*Service)

// WithWorkerRelocator はコード変更時に職員の所属コードを書き換える実装を設定します。
func WithWorkerRelocator(r WorkerRelocator) Option {
	return func(s *Service) {
		s.relocator = r
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{repo: repo, clock: clock, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load は永続化済みの部署から Directory を構築します。
func (s *Service) Load(ctx context.Context) (*Directory, error) {
	var offices []Office
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.List(txCtx)
		if err != nil {
			return err
		}
		offices = derefAll(found)
		return nil
	}); err != nil {
		return nil, err
	}
	return NewDirectory(offices), nil
}

// Commit は Directory の未確定の変更を一つのトランザクションで永続化します。
// 失敗した場合 Directory の変更は保持されたままになります。
func (s *Service) Commit(ctx context.Context, d *Directory) error {
	if !d.Dirty() {
		return nil
	}

	var persisted []Office
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		for _, change := range d.Pending() {
			if err := s.apply(txCtx, change); err != nil {
				return err
			}
		}
		found, err := s.repo.List(txCtx)
		if err != nil {
			return err
		}
		persisted = derefAll(found)
		return nil
	}); err != nil {
		return err
	}

	d.markCommitted(persisted)
	return nil
}

// Apply は読み込んだディレクトリに edit の変更を加えて確定します。
// edit が失敗した場合は変更を破棄し、確定済みの状態のディレクトリとエラーを返します。
func (s *Service) Apply(ctx context.Context, edit func(*Directory) error) (*Directory, error) {
	d, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := edit(d); err != nil {
		d.Discard()
		return d, err
	}
	if err := s.Commit(ctx, d); err != nil {
		return d, err
	}
	return d, nil
}

// AddOffice は部署を一件追加して即座に確定します。
func (s *Service) AddOffice(ctx context.Context, name, code string) (*Directory, error) {
	return s.Apply(ctx, func(d *Directory) error {
		return d.Add(name, code)
	})
}

// EditOffice は oldCode の部署の名前とコードを変更して即座に確定します。
func (s *Service) EditOffice(ctx context.Context, oldCode, name, code string) (*Directory, error) {
	return s.Apply(ctx, func(d *Directory) error {
		return d.Edit(oldCode, name, code)
	})
}

// RemoveOffice は部署を一件削除して即座に確定します。
func (s *Service) RemoveOffice(ctx context.Context, code string) (*Directory, error) {
	return s.Apply(ctx, func(d *Directory) error {
		d.Remove(code)
		return nil
	})
}

func (s *Service) apply(ctx context.Context, change Change) error {
	switch change.Kind {
	case ChangeAdd:
		o := change.Office
		o.ID = uuid.NewString()
		o.CreatedAt = s.clock.Now()
		if _, err := s.repo.Create(ctx, &o); err != nil {
			return fmt.Errorf("add %s: %w", o.Code, err)
		}
	case ChangeEdit:
		o := change.Office
		if _, err := s.repo.Update(ctx, change.OldCode, &o); err != nil {
			return fmt.Errorf("edit %s: %w", change.OldCode, err)
		}
		if s.relocator != nil && o.Code != change.OldCode {
			if err := s.relocator.RelocateOffice(ctx, change.OldCode, o.Code); err != nil {
				return fmt.Errorf("relocate workers of %s: %w", change.OldCode, err)
			}
		}
	case ChangeRemove:
		if err := s.repo.DeleteByCode(ctx, change.OldCode); err != nil {
			return fmt.Errorf("remove %s: %w", change.OldCode, err)
		}
	default:
		return fmt.Errorf("office: unknown change kind %d", change.Kind)
	}
	return nil
}

func derefAll(offices []*Office) []Office {
	result := make([]Office, 0, len(offices))
	for _, o := range offices {
		if o != nil {
			result = append(result, *o)
		}
	}
	return result
}
