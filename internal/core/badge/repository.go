package badge

import (
	"context"
	"time"
)

// Repository は発行記録の永続化を行うインターフェースです。
type Repository interface {
	// FindLatestByWorker は最も新しい発行記録を返します。無ければ ErrBadgeNotFound です。
	FindLatestByWorker(ctx context.Context, workerID string) (*Badge, error)
	// FindLastSequenceCode は部署で最大の連番コードを返します。無ければ空文字です。
	FindLastSequenceCode(ctx context.Context, officeCode string) (string, error)
	Create(ctx context.Context, b *Badge) (*Badge, error)
	ListByWorker(ctx context.Context, workerID string) ([]*Badge, error)
	// ServerTime はデータベース側の現在時刻を返します。
	ServerTime(ctx context.Context) (time.Time, error)
}
