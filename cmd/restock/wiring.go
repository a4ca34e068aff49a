package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-go/internal/config"
	"github.com/andresuchdata/restock-go/internal/drive"
	"github.com/andresuchdata/restock-go/internal/pipeline"
	"github.com/andresuchdata/restock-go/internal/pipeline/restock"
	"github.com/andresuchdata/restock-go/internal/repository/postgres"
	"github.com/andresuchdata/restock-go/internal/source"
	"github.com/andresuchdata/restock-go/internal/storage"
)

const pipelineName = "restock"

// app holds the long-lived dependencies of one process.
type app struct {
	cfg     *config.Config
	orch    *pipeline.Orchestrator
	runs    *pipeline.Repository
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

// newApp wires sources, the engine and the output sinks from the configuration.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	var db *postgres.DB
	if cfg.Database.Enabled {
		var err error
		db, err = postgres.NewDB(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}

		runDB, err := sql.Open("pgx", cfg.Database.DSN())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open run tracking connection: %w", err)
		}
		a.closers = append(a.closers, runDB.Close)
		a.runs = pipeline.NewRepository(runDB)
	}

	var store *storage.Client
	if cfg.Storage.Enabled {
		var err error
		store, err = storage.NewClient(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
			Prefix:    cfg.Storage.Prefix,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var driveSvc *drive.Service
	if cfg.Drive.CredentialsJSON != "" {
		var err error
		driveSvc, err = drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	sources, err := buildSources(ctx, cfg, db, store, driveSvc)
	if err != nil {
		a.Close()
		return nil, err
	}

	pcfg := pipeline.DefaultPipelineConfig(pipelineName)
	pcfg.OutputDir = cfg.App.OutputDir
	if cfg.Pipeline.Workers > 0 {
		pcfg.WorkerCount = cfg.Pipeline.Workers
	}
	if cfg.Pipeline.RetryAttempts > 0 {
		pcfg.RetryAttempts = cfg.Pipeline.RetryAttempts
	}
	pcfg.RetryBackoff = time.Duration(cfg.Pipeline.RetryBackoffSeconds) * time.Second
	pcfg.SalesExtraDays = cfg.Pipeline.SalesExtraDays

	var runs pipeline.RunStore
	if a.runs != nil {
		runs = a.runs
	}
	a.orch = pipeline.NewOrchestrator(
		pipeline.NewLoader(sources, pcfg),
		restock.NewCalculator(nil),
		pipeline.NewResultWriter(pcfg.OutputDir),
		runs,
		pcfg,
	)

	if store != nil {
		uploader := storage.NewUploader(store, store.Config().Key("output"))
		a.orch.OnFile(uploader.Upload)
	}
	if db != nil {
		a.orch.AddSink(postgres.NewForecastRepository(db).ReplaceForecast)
	}

	return a, nil
}

// buildSources picks the acquisition back end named by INPUT_SOURCE. Remote
// folders are mirrored into the input directory and read from there. A
// configured Drive event sheet always wins over a local one.
func buildSources(ctx context.Context, cfg *config.Config, db *postgres.DB, store *storage.Client, driveSvc *drive.Service) (pipeline.Sources, error) {
	dir := source.NewDir(cfg.App.InputDir)
	sources := pipeline.Sources{
		Sales: dir, Inventory: dir, Warehouse: dir, Incoming: dir,
		EventSheet: dir, Dictionary: dir, Dimensions: dir,
	}

	switch cfg.App.InputSource {
	case "", "dir":
	case "postgres":
		if db == nil {
			return sources, fmt.Errorf("input source postgres requires DB_ENABLED")
		}
		repo := postgres.NewSourceRepository(db)
		sources.Sales = repo
		sources.Inventory = repo
		sources.Warehouse = repo
		sources.Incoming = repo
		sources.Dictionary = repo
		sources.Dimensions = repo
	case "storage":
		if store == nil {
			return sources, fmt.Errorf("input source storage requires STORAGE_ENABLED")
		}
		prefix := store.Config().Key("input") + "/"
		if _, err := storage.DownloadPrefix(ctx, store, prefix, cfg.App.InputDir); err != nil {
			return sources, fmt.Errorf("failed to download inputs: %w", err)
		}
	case "drive":
		if driveSvc == nil {
			return sources, fmt.Errorf("input source drive requires GOOGLE_DRIVE_CREDENTIALS_JSON")
		}
		_, err := drive.NewDownloader(driveSvc).DownloadFolder(ctx, drive.DownloadOptions{
			FolderID:    cfg.Drive.InputFolderID,
			DownloadDir: cfg.App.InputDir,
		})
		if err != nil {
			return sources, fmt.Errorf("failed to download inputs: %w", err)
		}
	default:
		return sources, fmt.Errorf("unknown input source %q", cfg.App.InputSource)
	}

	if driveSvc != nil && cfg.Drive.EventSheetFileID != "" {
		sources.EventSheet = drive.NewEventSheetSource(driveSvc, cfg.Drive.EventSheetFileID)
	}

	log.Info().Str("input_source", cfg.App.InputSource).Str("input_dir", cfg.App.InputDir).Msg("sources configured")
	return sources, nil
}
