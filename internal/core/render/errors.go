package render

import "errors"

var (
	// ErrMissingField は必須フィールドが欠けている場合に返却されます。
	ErrMissingField = errors.New("render: required field missing")
	// ErrOfficeNotFound は部署コードを部署名に解決できない場合に返却されます。
	ErrOfficeNotFound = errors.New("render: office not found")
	// ErrPhotoUnreadable は写真を読み込めない場合に返却されます。
	ErrPhotoUnreadable = errors.New("render: photo unreadable")
	// ErrTemplateMissing はテンプレートが見つからない場合に返却されます。
	ErrTemplateMissing = errors.New("render: template missing")
	// ErrRasterize は外部の描画処理が失敗した場合に返却されます。
	ErrRasterize = errors.New("render: rasterize failed")
)
