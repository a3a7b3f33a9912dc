// Package server initializes and runs the storage server: configuration,
// database, the remote object-store backend, the transfer pipelines, the
// HTTP API and the gRPC health endpoint, with graceful shutdown on signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/cryptox"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/accounts"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/config"
	gs "github.com/Sebastian-Webster/discord-cloud-storage/internal/server/grpc"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/httpapi"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/objstore"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/progress"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/repositories/repomanager"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/transfer"
)

type App struct {
	config *config.Config
	logger logging.Logger

	repos  repomanager.RepositoryManager
	store  objstore.ObjectStore
	http   *httpapi.Server
	health *gs.HealthServer
}

func NewApp(cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	repos, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := newObjectStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	key := cryptox.DeriveKey(cfg.EncryptionPassphrase)

	hub := httpapi.NewHub(logger)
	tracker := progress.NewTracker(hub)

	uploader := transfer.NewUploader(store, repos.Files(), tracker, key, transfer.UploaderConfig{
		ChunkSize:   cfg.ChunkSize,
		Concurrency: cfg.UploadConcurrency,
		MaxRetries:  cfg.MaxUploadRetries,
		MaxRestarts: cfg.MaxWorkerRestarts,
	}, logger)

	downloader := transfer.NewDownloader(store, tracker, key, transfer.DownloaderConfig{
		Concurrency: cfg.DownloadConcurrency,
		MaxRestarts: cfg.MaxWorkerRestarts,
		TempRoot:    cfg.TempDir,
	}, logger)

	deleter := transfer.NewDeleter(store, tracker, transfer.DeleterConfig{
		Concurrency: cfg.DeleteConcurrency,
		MaxRestarts: cfg.MaxWorkerRestarts,
	}, logger)

	accountService := accounts.NewService(repos.Users(), []byte(cfg.SecretKey), cfg.TokenValidityDuration)

	httpServer := httpapi.NewServer(httpapi.Options{
		Addr:      cfg.EndpointAddrHTTP,
		SecretKey: []byte(cfg.SecretKey),
		TempDir:   cfg.TempDir,
	}, accountService, repos.Files(), uploader, downloader, deleter, tracker, hub, logger)

	healthServer := gs.NewHealthServer(cfg.EndpointAddrGRPCHealth, logger,
		func(ctx context.Context) error { return repos.Conn().PingContext(ctx) },
		store.Connect,
	)

	return &App{
		config: cfg,
		logger: logger,
		repos:  repos,
		store:  store,
		http:   httpServer,
		health: healthServer,
	}, nil
}

// newObjectStore selects the remote backend from config.
func newObjectStore(cfg *config.Config, logger logging.Logger) (objstore.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.BackendDiscord:
		return objstore.NewDiscordStore(cfg.DiscordAPIBase, cfg.DiscordBotToken,
			cfg.DiscordChannelID, cfg.RequestTimeout, logger), nil
	case config.BackendS3:
		return objstore.NewS3Store(context.Background(), objstore.S3Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.health.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.repos.Conn().Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
