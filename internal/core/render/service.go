package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ogurasousui/carnet-craft/internal/core/badge"
	"github.com/ogurasousui/carnet-craft/internal/core/office"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
	"go.uber.org/zap"
)

const (
	defaultMaxReportedErrors = 10
	batchDirLayout           = "carnets_2006_01_02"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// WorkerSource は職員を取得します。*worker.Service が満たします。
type WorkerSource interface {
	GetWorker(ctx context.Context, in worker.GetWorkerInput) (*worker.Worker, error)
}

// DirectoryLoader は部署ディレクトリを読み込みます。*office.Service が満たします。
type DirectoryLoader interface {
	Load(ctx context.Context) (*office.Directory, error)
}

// Issuer は職員証の発行判定を行います。*badge.Tracker が満たします。
type Issuer interface {
	IssueIfNeeded(ctx context.Context, in badge.IssueInput) (*badge.IssueResult, error)
}

// Service はカード生成のユースケースです。
type Service struct {
	workers      WorkerSource
	offices      DirectoryLoader
	issuer       Issuer
	engine       Engine
	logger       *zap.Logger
	clock        Clock
	outputDir    string
	validityDays int
	maxErrors    int
}

// Option は Service の挙動を変更します。
type Option func(*Service)

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock は一括生成のフォルダ名に使う時刻の取得元を差し替えます。
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithOutputDir は出力先の既定ディレクトリを設定します。
func WithOutputDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.outputDir = dir
		}
	}
}

// WithValidityDays は発行時の有効日数を設定します。
func WithValidityDays(days int) Option {
	return func(s *Service) {
		s.validityDays = days
	}
}

// WithMaxReportedErrors は一括生成の集計に残すエラー件数を設定します。
func WithMaxReportedErrors(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxErrors = n
		}
	}
}

// NewService は Service を生成します。
func NewService(workers WorkerSource, offices DirectoryLoader, issuer Issuer, engine Engine, opts ...Option) *Service {
	s := &Service{
		workers:   workers,
		offices:   offices,
		issuer:    issuer,
		engine:    engine,
		logger:    zap.NewNop(),
		clock:     realClock{},
		outputDir: ".",
		maxErrors: defaultMaxReportedErrors,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateInput は一件生成の入力です。
type GenerateInput struct {
	NationalID string
	// OutputDir が空の場合は既定の出力先を使います。
	OutputDir string
}

// GenerateResult は一件生成の結果です。
type GenerateResult struct {
	Path   string
	Badge  *badge.Badge
	Issued bool
}

// BatchInput は一括生成の入力です。
type BatchInput struct {
	NationalIDs []string
	OutputDir   string
}

// BatchSummary は一括生成の集計です。
type BatchSummary struct {
	Dir       string
	Total     int
	Generated int
	Failed    int
	Files     []string
	// Errors は先頭から最大 N 件の失敗の説明です。
	Errors []string
}

// Generate は職員一名分のカードを生成します。
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	dir := in.OutputDir
	if dir == "" {
		dir = s.outputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("render: create output dir: %w", err)
	}

	dirSnapshot, err := s.offices.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, dirSnapshot, strings.TrimSpace(in.NationalID), dir)
}

// GenerateBatch は複数の職員のカードを順番に生成します。
// 一件の失敗は記録して次へ進みます。出力先は日付付きのフォルダです。
func (s *Service) GenerateBatch(ctx context.Context, in BatchInput) (*BatchSummary, error) {
	base := in.OutputDir
	if base == "" {
		base = s.outputDir
	}
	dir := filepath.Join(base, s.clock.Now().Format(batchDirLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("render: create output dir: %w", err)
	}

	dirSnapshot, err := s.offices.Load(ctx)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{Dir: dir}
	for _, raw := range in.NationalIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		nationalID := strings.TrimSpace(raw)
		summary.Total++

		res, err := s.generate(ctx, dirSnapshot, nationalID, dir)
		if err != nil {
			summary.Failed++
			if len(summary.Errors) < s.maxErrors {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", nationalID, err))
			}
			s.logger.Error("badge generation failed", zap.String("national_id", nationalID), zap.Error(err))
			continue
		}
		summary.Generated++
		summary.Files = append(summary.Files, res.Path)
	}

	s.logger.Info("badge batch finished",
		zap.String("dir", dir),
		zap.Int("total", summary.Total),
		zap.Int("generated", summary.Generated),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) generate(ctx context.Context, dir *office.Directory, nationalID, outDir string) (*GenerateResult, error) {
	w, err := s.workers.GetWorker(ctx, worker.GetWorkerInput{NationalID: nationalID})
	if err != nil {
		return nil, err
	}

	if !worker.ValidateRequired(w.Fields()) {
		return nil, fmt.Errorf("%s: %w", nationalID, ErrMissingField)
	}

	officeName, ok := dir.ResolveCodeToName(w.Office)
	if !ok {
		return nil, fmt.Errorf("%s: %w", w.Office, ErrOfficeNotFound)
	}

	photo, err := photoSourceOf(w)
	if err != nil {
		return nil, err
	}

	issued, err := s.issuer.IssueIfNeeded(ctx, badge.IssueInput{
		WorkerID:     w.ID,
		OfficeCode:   w.Office,
		ValidityDays: s.validityDays,
	})
	if err != nil {
		return nil, err
	}

	path, err := AvailableFilename(outDir, w.NationalID, string(w.BadgeType), s.engine.Extension())
	if err != nil {
		return nil, err
	}

	input := Input{
		Worker:     w,
		OfficeName: officeName,
		Badge:      issued.Badge,
		QRPayload:  QRPayload(w, officeName),
		Photo:      photo,
		Color:      ColorFor(w.BadgeType),
	}
	if err := s.engine.Render(ctx, input, path); err != nil {
		return nil, err
	}

	s.logger.Info("badge generated",
		zap.String("national_id", w.NationalID),
		zap.String("sequence_code", issued.Badge.SequenceCode),
		zap.String("path", path),
	)
	return &GenerateResult{Path: path, Badge: issued.Badge, Issued: issued.Issued}, nil
}

func photoSourceOf(w *worker.Worker) (PhotoSource, error) {
	if len(w.PhotoData) > 0 {
		return PhotoSource{Data: w.PhotoData}, nil
	}

	info, err := os.Stat(w.PhotoPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return PhotoSource{}, fmt.Errorf("%s: %w", w.PhotoPath, ErrPhotoUnreadable)
		}
		return PhotoSource{}, fmt.Errorf("%s: %w: %v", w.PhotoPath, ErrPhotoUnreadable, err)
	}
	if !info.Mode().IsRegular() {
		return PhotoSource{}, fmt.Errorf("%s: %w", w.PhotoPath, ErrPhotoUnreadable)
	}
	return PhotoSource{Path: w.PhotoPath}, nil
}
