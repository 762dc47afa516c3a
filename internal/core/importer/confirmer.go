package importer

import (
	"context"

	"github.com/ogurasousui/carnet-craft/internal/core/worker"
)

// Confirmer は既存職員と重複する行を更新してよいか判断します。
type Confirmer interface {
	ConfirmUpdate(ctx context.Context, existing *worker.Worker, row ImportRow) (bool, error)
}

// ConfirmerFunc は関数を Confirmer として扱うアダプタです。
type ConfirmerFunc func(ctx context.Context, existing *worker.Worker, row ImportRow) (bool, error)

// ConfirmUpdate は f を呼び出します。
func (f ConfirmerFunc) ConfirmUpdate(ctx context.Context, existing *worker.Worker, row ImportRow) (bool, error) {
	return f(ctx, existing, row)
}

// PolicyConfirmer は常に同じ判断を返す非対話用の Confirmer です。
type PolicyConfirmer struct {
	Update bool
}

// ConfirmUpdate は Update の値を返します。
func (p PolicyConfirmer) ConfirmUpdate(context.Context, *worker.Worker, ImportRow) (bool, error) {
	return p.Update, nil
}

// ConfirmerForPolicy は設定値 (update / skip) から Confirmer を返します。
// ask など非対話で扱えない値の場合は ok が false になります。
func ConfirmerForPolicy(policy string) (Confirmer, bool) {
	switch policy {
	case "update":
		return PolicyConfirmer{Update: true}, true
	case "skip":
		return PolicyConfirmer{Update: false}, true
	default:
		return nil, false
	}
}
