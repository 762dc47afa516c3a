package office

import "context"

// Repository は部署の永続化を行うインターフェースです。
type Repository interface {
	// List は登録順に全部署を返します。
	List(ctx context.Context) ([]*Office, error)
	Create(ctx context.Context, o *Office) (*Office, error)
	// Update は oldCode で特定した部署の名前とコードを更新します。
	Update(ctx context.Context, oldCode string, o *Office) (*Office, error)
	// DeleteByCode は存在しないコードに対してもエラーを返しません。
	DeleteByCode(ctx context.Context, code string) error
}
