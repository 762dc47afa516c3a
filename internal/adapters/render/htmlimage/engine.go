package htmlimage

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"image"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/carnet-craft/internal/adapters/render/imaging"
	"github.com/ogurasousui/carnet-craft/internal/core/render"
	"go.uber.org/zap"
)

const (
	dateLayout  = "02/01/2006"
	qrSize      = 300
	photoWidth  = 300
	photoHeight = 400

	defaultRasterizer = "wkhtmltoimage"
	defaultWidth      = 804
	defaultQuality    = 100
	defaultTimeout    = 30 * time.Second
)

// Runner は外部コマンドを実行し、標準出力と標準エラーをまとめて返します。
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Config は HTML テンプレートから PNG を生成するための設定です。
type Config struct {
	TemplatePath   string
	BackgroundPath string
	RasterizerPath string
	Width          int
	Height         int
	Quality        int
	Timeout        time.Duration
}

// Option は Engine の生成オプションです。
type Option func(*Engine)

// WithRunner は外部コマンドの実行方法を差し替えます。
func WithRunner(r Runner) Option {
	return func(e *Engine) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine は HTML テンプレートを外部ラスタライザで PNG に変換します。
type Engine struct {
	cfg    Config
	runner Runner
	logger *zap.Logger
}

var _ render.Engine = (*Engine)(nil)

// New は Engine を生成します。
func New(cfg Config, opts ...Option) *Engine {
	if cfg.RasterizerPath == "" {
		cfg.RasterizerPath = defaultRasterizer
	}
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = defaultQuality
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	e := &Engine{
		cfg:    cfg,
		runner: execRunner{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extension は出力ファイルの拡張子を返します。
func (e *Engine) Extension() string {
	return "png"
}

type templateData struct {
	Name          string
	Surname       string
	NationalID    string
	Title         string
	Office        string
	BadgeType     string
	Color         template.CSS
	SequenceCode  string
	IssueDate     string
	ExpiryDate    string
	PhotoURL      template.URL
	QRURL         template.URL
	BackgroundURL template.URL
}

// Render はカードを destPath に PNG として書き出します。一時ファイルはすべて削除されます。
func (e *Engine) Render(ctx context.Context, in render.Input, destPath string) error {
	if in.Worker == nil || in.Badge == nil {
		return render.ErrMissingField
	}

	tmpl, err := e.loadTemplate()
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp("", "carnet-*")
	if err != nil {
		return fmt.Errorf("htmlimage: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	qr, err := imaging.QRCode(in.QRPayload, qrSize)
	if err != nil {
		return err
	}
	qrPath, err := writePNG(workDir, "qr.png", qr)
	if err != nil {
		return err
	}

	photo, err := imaging.LoadPhoto(in.Photo)
	if err != nil {
		return err
	}
	photoPath, err := writePNG(workDir, "photo.png", imaging.FitPhoto(photo, photoWidth, photoHeight))
	if err != nil {
		return err
	}

	data := templateData{
		Name:         in.Worker.Name,
		Surname:      in.Worker.Surname,
		NationalID:   in.Worker.NationalID,
		Title:        in.Worker.Title,
		Office:       in.OfficeName,
		BadgeType:    string(in.Worker.BadgeType),
		Color:        template.CSS(in.Color),
		SequenceCode: in.Badge.SequenceCode,
		IssueDate:    in.Badge.IssueDate.Format(dateLayout),
		ExpiryDate:   in.Badge.ExpiryDate.Format(dateLayout),
		PhotoURL:     fileURL(photoPath),
		QRURL:        fileURL(qrPath),
	}
	if e.cfg.BackgroundPath != "" {
		data.BackgroundURL = fileURL(e.cfg.BackgroundPath)
	}

	htmlPath := filepath.Join(workDir, "carnet.html")
	if err := writeHTML(htmlPath, tmpl, data); err != nil {
		return err
	}

	if err := e.rasterize(ctx, htmlPath, destPath); err != nil {
		return err
	}

	if _, err := os.Stat(destPath); err != nil {
		return fmt.Errorf("%w: output not written: %v", render.ErrRasterize, err)
	}
	return nil
}

func (e *Engine) loadTemplate() (*template.Template, error) {
	if _, err := os.Stat(e.cfg.TemplatePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", e.cfg.TemplatePath, render.ErrTemplateMissing)
		}
		return nil, fmt.Errorf("htmlimage: stat template: %w", err)
	}
	tmpl, err := template.ParseFiles(e.cfg.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("htmlimage: parse template: %w", err)
	}
	return tmpl, nil
}

func (e *Engine) rasterize(ctx context.Context, htmlPath, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	args := []string{"--quiet", "--format", "png", "--width", strconv.Itoa(e.cfg.Width)}
	if e.cfg.Height > 0 {
		args = append(args, "--height", strconv.Itoa(e.cfg.Height))
	}
	args = append(args,
		"--quality", strconv.Itoa(e.cfg.Quality),
		"--enable-local-file-access",
		"--disable-smart-width",
		htmlPath, destPath,
	)

	started := time.Now()
	output, err := e.runner.Run(ctx, e.cfg.RasterizerPath, args...)
	if err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("%w: %v (%s)", render.ErrRasterize, err, strings.TrimSpace(string(output)))
	}
	e.logger.Debug("badge rasterized",
		zap.String("dest", destPath),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func writePNG(dir, name string, img image.Image) (string, error) {
	raw, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("htmlimage: write %s: %w", name, err)
	}
	return path, nil
}

func writeHTML(path string, tmpl *template.Template, data templateData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("htmlimage: create html: %w", err)
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("htmlimage: execute template: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("htmlimage: close html: %w", err)
	}
	return nil
}

func fileURL(path string) template.URL {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return template.URL(u.String())
}
