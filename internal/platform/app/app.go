package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ogurasousui/carnet-craft/internal/adapters/grpc/handler"
	"github.com/ogurasousui/carnet-craft/internal/adapters/render/htmlimage"
	"github.com/ogurasousui/carnet-craft/internal/adapters/render/pdf"
	"github.com/ogurasousui/carnet-craft/internal/adapters/repository/postgres"
	"github.com/ogurasousui/carnet-craft/internal/core/badge"
	"github.com/ogurasousui/carnet-craft/internal/core/importer"
	"github.com/ogurasousui/carnet-craft/internal/core/office"
	"github.com/ogurasousui/carnet-craft/internal/core/render"
	"github.com/ogurasousui/carnet-craft/internal/core/worker"
	"github.com/ogurasousui/carnet-craft/internal/platform/config"
	pg "github.com/ogurasousui/carnet-craft/internal/platform/db/postgres"
	"go.uber.org/zap"
)

// App はコマンド間で共有する依存関係の組み立て結果です。
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Pool      *pgxpool.Pool
	Workers   *worker.Service
	Offices   *office.Service
	Importer  *importer.Service
	Tracker   *badge.Tracker
	Generator *render.Service
}

// New はデータベースに接続し、各ユースケースを組み立てます。
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("app: initialize database pool: %w", err)
	}

	tx := pg.NewTransactionManager(pool)
	workerRepo := postgres.NewWorkerRepository(pool)
	officeRepo := postgres.NewOfficeRepository(pool)
	badgeRepo := postgres.NewBadgeRepository(pool)

	offices := office.NewService(officeRepo, nil, tx, office.WithWorkerRelocator(workerRepo))
	workers := worker.NewService(workerRepo, nil, tx,
		worker.WithStrictNationalID(cfg.Validation.StrictNationalID),
		worker.WithOfficeDirectory(offices),
	)
	tracker := badge.NewTracker(badgeRepo, tx, logger.Named("badge"), cfg.Badge.ValidityDays)

	imp := importer.NewService(workerRepo, offices,
		importer.WithTransactionManager(tx),
		importer.WithLogger(logger.Named("import")),
		importer.WithStrictNationalID(cfg.Validation.StrictNationalID),
		importer.WithMaxReportedErrors(cfg.Render.MaxReportedErrors),
	)

	generator := render.NewService(workers, offices, tracker, NewEngine(cfg.Render, logger),
		render.WithLogger(logger.Named("render")),
		render.WithOutputDir(cfg.Render.OutputDir),
		render.WithValidityDays(cfg.Badge.ValidityDays),
		render.WithMaxReportedErrors(cfg.Render.MaxReportedErrors),
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Workers:   workers,
		Offices:   offices,
		Importer:  imp,
		Tracker:   tracker,
		Generator: generator,
	}, nil
}

// NewEngine は設定された出力形式の描画エンジンを返します。
func NewEngine(cfg config.RenderConfig, logger *zap.Logger) render.Engine {
	if cfg.Format == "pdf" {
		return pdf.New(cfg.Organization)
	}
	return htmlimage.New(htmlimage.Config{
		TemplatePath:   cfg.TemplatePath,
		BackgroundPath: cfg.BackgroundPath,
		RasterizerPath: cfg.RasterizerPath,
		Width:          cfg.Width,
		Height:         cfg.Height,
		Quality:        cfg.Quality,
		Timeout:        cfg.Timeout,
	}, htmlimage.WithLogger(logger.Named("htmlimage")))
}

// Handler は gRPC ハンドラを返します。
func (a *App) Handler() *handler.CarnetGrpcHandler {
	return handler.NewCarnetGrpcHandler(a.Workers, a.Offices, a.Importer, a.Tracker, a.Generator,
		handler.WithDefaultPolicy(a.Config.Import.OnDuplicate),
		handler.WithOutputRoot(a.Config.Render.OutputDir),
	)
}

// Close は保持しているリソースを解放します。
func (a *App) Close() {
	a.Pool.Close()
	_ = a.Logger.Sync()
}
