package worker

import (
	"strings"
	"time"
)

// BadgeType はカード種別です。
type BadgeType string

const (
	BadgeProfessional   BadgeType = "Professional"
	BadgeManagerial     BadgeType = "Managerial"
	BadgeAdministrative BadgeType = "Administrative"
	BadgeCoordinator    BadgeType = "Coordinator"
	BadgeLaborer        BadgeType = "Laborer"
	BadgeSecurity       BadgeType = "Security"
)

// BadgeTypes は認識されるカード種別の一覧です。先頭が既定値です。
var BadgeTypes = []BadgeType{
	BadgeProfessional,
	BadgeManagerial,
	BadgeAdministrative,
	BadgeCoordinator,
	BadgeLaborer,
	BadgeSecurity,
}

// 取り込みファイルで使われてきたスペイン語表記
var badgeTypeAliases = map[string]BadgeType{
	"profesional":    BadgeProfessional,
	"gerencial":      BadgeManagerial,
	"administrativo": BadgeAdministrative,
	"coordinador":    BadgeCoordinator,
	"coordinadores":  BadgeCoordinator,
	"obrero":         BadgeLaborer,
	"seguridad":      BadgeSecurity,
}

// DefaultBadgeType は既定のカード種別を返します。
func DefaultBadgeType() BadgeType {
	return BadgeTypes[0]
}

// ParseBadgeType は文字列をカード種別に変換します。大文字小文字は区別しません。
func ParseBadgeType(raw string) (BadgeType, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", false
	}
	for _, bt := range BadgeTypes {
		if strings.ToLower(string(bt)) == key {
			return bt, true
		}
	}
	bt, ok := badgeTypeAliases[key]
	return bt, ok
}

// Worker はカード発行対象の職員エンティティです。
type Worker struct {
	ID         string
	Name       string
	Surname    string
	NationalID string
	Office     string
	Title      string
	PhotoPath  string
	PhotoData  []byte
	BadgeType  BadgeType
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullName は氏名を返します。
func (w *Worker) FullName() string {
	return strings.TrimSpace(w.Name + " " + w.Surname)
}

// PhotoReference は写真の参照を返します。バイナリが保存されていればそれを優先します。
func (w *Worker) PhotoReference() string {
	if len(w.PhotoData) > 0 {
		return string(w.PhotoData)
	}
	return w.PhotoPath
}

// SetPhotoReference は参照の形式に応じてパスまたはバイナリとして写真を設定します。
func (w *Worker) SetPhotoReference(ref string) {
	if ref == "" {
		w.PhotoPath = ""
		w.PhotoData = nil
		return
	}
	if isOpaqueBinary(ref) {
		w.PhotoPath = ""
		w.PhotoData = []byte(ref)
		return
	}
	w.PhotoPath = ref
	w.PhotoData = nil
}

// Fields は検証用のフィールド集合を返します。
func (w *Worker) Fields() Fields {
	return Fields{
		Name:           w.Name,
		Surname:        w.Surname,
		NationalID:     w.NationalID,
		Office:         w.Office,
		Title:          w.Title,
		PhotoReference: w.PhotoReference(),
		BadgeType:      string(w.BadgeType),
	}
}

// Clone はディープコピーを返します。
func (w *Worker) Clone() *Worker {
	if w == nil {
		return nil
	}
	cp := *w
	if w.PhotoData != nil {
		cp.PhotoData = append([]byte(nil), w.PhotoData...)
	}
	return &cp
}
