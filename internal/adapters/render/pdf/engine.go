package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/ogurasousui/carnet-craft/internal/adapters/render/imaging"
	"github.com/ogurasousui/carnet-craft/internal/core/render"
)

// カードの寸法 (mm)
const (
	cardWidth   = 54.0
	cardHeight  = 86.0
	headerH     = 12.0
	photoW      = 24.0
	photoH      = 32.0
	qrSideMM    = 20.0
	dateLayout  = "02/01/2006"
	photoPixelW = 300
	photoPixelH = 400
	qrPixels    = 300
)

// Engine は gofpdf で縦長のカードを PDF として描画します。
type Engine struct {
	title string
}

var _ render.Engine = (*Engine)(nil)

// New は Engine を生成します。title はカード上部の見出しです。
func New(title string) *Engine {
	return &Engine{title: title}
}

// Extension は出力ファイルの拡張子を返します。
func (e *Engine) Extension() string {
	return "pdf"
}

// Render はカードを destPath に書き出します。画像はメモリ上で登録します。
func (e *Engine) Render(ctx context.Context, in render.Input, destPath string) error {
	if in.Worker == nil || in.Badge == nil {
		return render.ErrMissingField
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	photo, err := imaging.LoadPhoto(in.Photo)
	if err != nil {
		return err
	}
	photoPNG, err := imaging.EncodePNG(imaging.FitPhoto(photo, photoPixelW, photoPixelH))
	if err != nil {
		return err
	}
	qr, err := imaging.QRCode(in.QRPayload, qrPixels)
	if err != nil {
		return err
	}
	qrPNG, err := imaging.EncodePNG(qr)
	if err != nil {
		return err
	}

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: cardWidth, Ht: cardHeight},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	r, g, b := hexToRGB(in.Color)
	doc.SetFillColor(r, g, b)
	doc.Rect(0, 0, cardWidth, headerH, "F")
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 8)
	doc.SetXY(0, 2)
	doc.CellFormat(cardWidth, 4, tr(e.title), "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 6)
	doc.CellFormat(cardWidth, 4, tr(strings.ToUpper(string(in.Worker.BadgeType))), "", 1, "C", false, 0, "")

	imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("photo", imgOpts, bytes.NewReader(photoPNG))
	doc.ImageOptions("photo", (cardWidth-photoW)/2, headerH+2, photoW, photoH, false, imgOpts, 0, "")

	doc.SetTextColor(0, 0, 0)
	doc.SetXY(0, headerH+photoH+3)
	doc.SetFont("Helvetica", "B", 8)
	doc.CellFormat(cardWidth, 4, tr(in.Worker.FullName()), "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 6)
	doc.CellFormat(cardWidth, 3, tr("V-"+in.Worker.NationalID), "", 1, "C", false, 0, "")
	doc.CellFormat(cardWidth, 3, tr(in.Worker.Title), "", 1, "C", false, 0, "")
	doc.CellFormat(cardWidth, 3, tr(in.OfficeName), "", 1, "C", false, 0, "")

	qrY := cardHeight - qrSideMM - 2
	doc.RegisterImageOptionsReader("qr", imgOpts, bytes.NewReader(qrPNG))
	doc.ImageOptions("qr", 3, qrY, qrSideMM, qrSideMM, false, imgOpts, 0, "")

	doc.SetFont("Helvetica", "", 5)
	textX := 3 + qrSideMM + 2
	lines := []string{
		in.Badge.SequenceCode,
		"Emision: " + in.Badge.IssueDate.Format(dateLayout),
		"Vence: " + in.Badge.ExpiryDate.Format(dateLayout),
	}
	for i, line := range lines {
		doc.SetXY(textX, qrY+4+float64(i)*4)
		doc.CellFormat(cardWidth-textX-2, 4, tr(line), "", 0, "L", false, 0, "")
	}

	if err := doc.OutputFileAndClose(destPath); err != nil {
		return fmt.Errorf("%w: %v", render.ErrRasterize, err)
	}
	return nil
}

// hexToRGB は "#rrggbb" を RGB に変換します。解釈できない場合は黒です。
func hexToRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
