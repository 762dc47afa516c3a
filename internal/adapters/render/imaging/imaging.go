package imaging

import (
	"bytes"
	"fmt"
	"image"
	stddraw "image/draw"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/ogurasousui/carnet-craft/internal/core/render"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// QRCode は payload を size x size の 8 bit グレースケール QR コード画像にします。
func QRCode(payload string, size int) (image.Image, error) {
	code, err := qr.Encode(payload, qr.L, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("imaging: encode qr: %w", err)
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("imaging: scale qr: %w", err)
	}
	gray := image.NewGray(scaled.Bounds())
	stddraw.Draw(gray, gray.Bounds(), scaled, scaled.Bounds().Min, stddraw.Src)
	return gray, nil
}

// LoadPhoto は写真の取得元から画像を読み込みます。png / jpeg / webp に対応します。
func LoadPhoto(src render.PhotoSource) (image.Image, error) {
	raw := src.Data
	if !src.IsBlob() {
		b, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", src.Path, render.ErrPhotoUnreadable, err)
		}
		raw = b
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err == nil {
		return img, nil
	}
	if decoded, webpErr := webp.Decode(bytes.NewReader(raw)); webpErr == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("%w: %v", render.ErrPhotoUnreadable, err)
}

// FitPhoto は中央を基準に縦横比を合わせて切り出し、width x height に縮小します。
func FitPhoto(img image.Image, width, height int) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	cropW, cropH := srcW, srcW*height/width
	if cropH > srcH {
		cropW, cropH = srcH*width/height, srcH
	}
	// 極端に細長い画像でも 1px 以上を切り出す
	cropW, cropH = max(cropW, 1), max(cropH, 1)
	offset := image.Point{
		X: bounds.Min.X + (srcW-cropW)/2,
		Y: bounds.Min.Y + (srcH-cropH)/2,
	}

	cropped := image.NewRGBA(image.Rect(0, 0, cropW, cropH))
	stddraw.Draw(cropped, cropped.Bounds(), img, offset, stddraw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), xdraw.Over, nil)
	return dst
}

// EncodePNG は画像を PNG のバイト列にします。
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
