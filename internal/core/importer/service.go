package importer

import (
	"context"

	"github.com/ogurasousui/carnet-craft/internal/core/office"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
)

// DirectoryLoader は部署ディレクトリを読み込みます。*office.Service が満たします。
type DirectoryLoader interface {
	Load(ctx context.Context) (*office.Directory, error)
}

// Service は取り込み一回分の部署ディレクトリを読み込み、Reconciler を実行します。
type Service struct {
	workers worker.Repository
	offices DirectoryLoader
	opts    []Option
}

// NewService は Service を生成します。opts は毎回の Reconciler に適用されます。
func NewService(workers worker.Repository, offices DirectoryLoader, opts ...Option) *Service {
	return &Service{workers: workers, offices: offices, opts: opts}
}

// Import は rows を取り込みます。重複時の判断は confirmer に委ねます。
func (s *Service) Import(ctx context.Context, rows []ImportRow, confirmer Confirmer) (*Summary, error) {
	if confirmer == nil {
		return nil, ErrConfirmerRequired
	}

	dir, err := s.offices.Load(ctx)
	if err != nil {
		return nil, err
	}

	return NewReconciler(s.workers, dir, confirmer, s.opts...).Reconcile(ctx, rows)
}
