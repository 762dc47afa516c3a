package pdf

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ogurasousui/carnet-craft/internal/adapters/render/imaging"
	"github.com/ogurasousui/carnet-craft/internal/core/badge"
	"github.com/ogurasousui/carnet-craft/internal/core/render"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
)

func sampleInput(t *testing.T) render.Input {
	t.Helper()

	img, err := imaging.QRCode("photo", 90)
	if err != nil {
		t.Fatalf("failed to build photo: %v", err)
	}
	raw, err := imaging.EncodePNG(img)
	if err != nil {
		t.Fatalf("failed to encode photo: %v", err)
	}

	w := &worker.Worker{
		ID:         "w-1",
		Name:       "José",
		Surname:    "Núñez",
		NationalID: "12345678",
		Office:     "OF1",
		Title:      "Técnico",
		BadgeType:  worker.BadgeSecurity,
	}
	issued := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	return render.Input{
		Worker:     w,
		OfficeName: "Operaciones",
		Badge: &badge.Badge{
			ID:           "b-1",
			WorkerID:     w.ID,
			OfficeCode:   "OF1",
			SequenceCode: "OF10001",
			IssueDate:    issued,
			ExpiryDate:   issued.AddDate(0, 0, 365),
		},
		QRPayload: render.QRPayload(w, "Operaciones"),
		Photo:     render.PhotoSource{Data: raw},
		Color:     render.ColorFor(w.BadgeType),
	}
}

func TestEngine_Render(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "12345678_Security.pdf")
	engine := New("FUNDALANAVIAL")

	if err := engine.Render(context.Background(), sampleInput(t), dest); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("expected pdf header, got %q", b[:min(len(b), 8)])
	}
	if engine.Extension() != "pdf" {
		t.Fatalf("unexpected extension %s", engine.Extension())
	}
}

func TestEngine_UnreadablePhoto(t *testing.T) {
	t.Parallel()

	in := sampleInput(t)
	in.Photo = render.PhotoSource{Path: filepath.Join(t.TempDir(), "missing.jpg")}
	dest := filepath.Join(t.TempDir(), "out.pdf")

	err := New("FUNDALANAVIAL").Render(context.Background(), in, dest)
	if !errors.Is(err, render.ErrPhotoUnreadable) {
		t.Fatalf("expected ErrPhotoUnreadable, got %v", err)
	}
	if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no output file, got %v", statErr)
	}
}

func TestEngine_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New("FUNDALANAVIAL").Render(ctx, sampleInput(t), filepath.Join(t.TempDir(), "out.pdf"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHexToRGB(t *testing.T) {
	t.Parallel()

	cases := map[string][3]int{
		"#2d29c6": {0x2d, 0x29, 0xc6},
		"ff0000":  {255, 0, 0},
		"#zzz":    {0, 0, 0},
		"":        {0, 0, 0},
	}
	for in, want := range cases {
		r, g, b := hexToRGB(in)
		if [3]int{r, g, b} != want {
			t.Fatalf("hexToRGB(%q) = %d,%d,%d, want %v", in, r, g, b, want)
		}
	}
}
