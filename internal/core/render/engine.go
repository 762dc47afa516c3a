package render

import (
	"context"
	"strings"

	"github.com/ogurasousui/carnet-craft/internal/core/badge"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
)

// EmergencyNotice は QR コードに含める緊急連絡先の案内です。
const EmergencyNotice = "En caso de Emergencia, Perdida, Extravio, Hurto o Robo Debe de Notificar a la oficina de tecnologia de la informacion \n(212) 351 0822 \n\nFUNDALANAVIAL"

var badgeColors = map[worker.BadgeType]string{
	worker.BadgeProfessional:   "#2d29c6",
	worker.BadgeManagerial:     "#ff0000",
	worker.BadgeCoordinator:    "#E08343",
	worker.BadgeLaborer:        "#00913f",
	worker.BadgeSecurity:       "#757575",
	worker.BadgeAdministrative: "#c63b29",
}

// ColorFor はカード種別の配色を返します。未知の種別は既定種別の色です。
func ColorFor(bt worker.BadgeType) string {
	if c, ok := badgeColors[bt]; ok {
		return c
	}
	return badgeColors[worker.DefaultBadgeType()]
}

// QRPayload は QR コードに埋め込む文字列を組み立てます。
func QRPayload(w *worker.Worker, officeName string) string {
	var b strings.Builder
	b.WriteString("V-" + w.NationalID + " \n")
	b.WriteString(w.Name + ". " + w.Surname + ". \n\n")
	b.WriteString(w.Title + " \n")
	b.WriteString(officeName + " \n\n")
	b.WriteString(EmergencyNotice)
	return strings.ToUpper(b.String())
}

// PhotoSource は写真の取得元です。Path と Data のどちらか一方が設定されます。
type PhotoSource struct {
	Path string
	Data []byte
}

// IsBlob は写真がバイナリで渡されているかを返します。
func (p PhotoSource) IsBlob() bool {
	return len(p.Data) > 0
}

// Input は描画エンジンに渡すデータです。Office は部署名に展開済みです。
type Input struct {
	Worker     *worker.Worker
	OfficeName string
	Badge      *badge.Badge
	QRPayload  string
	Photo      PhotoSource
	Color      string
}

// Engine はカードを destPath に描画します。
type Engine interface {
	Render(ctx context.Context, in Input, destPath string) error
	// Extension は出力ファイルの拡張子 (ドットなし) です。
	Extension() string
}
