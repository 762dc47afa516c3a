package worker

import "context"

// Repository は職員永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, w *Worker) (*Worker, error)
	Update(ctx context.Context, w *Worker) (*Worker, error)
	// Delete は職員を削除します。発行済みカードも連鎖して削除されます。
	Delete(ctx context.Context, nationalID string) error
	FindByNationalID(ctx context.Context, nationalID string) (*Worker, error)
	ExistsByNationalID(ctx context.Context, nationalID string) (bool, error)
	List(ctx context.Context, filter ListWorkersFilter) ([]*Worker, string, error)
}

// ListWorkersFilter は一覧取得用フィルタです。
type ListWorkersFilter struct {
	Office string
	Limit  int
	Offset int
}
