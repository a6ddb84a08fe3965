package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/viewcasthq/viewcast-server/internal/config"
	"github.com/viewcasthq/viewcast-server/internal/domain/admin"
	"github.com/viewcasthq/viewcast-server/internal/domain/processing"
	"github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/database"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/logger"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/queue"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/realtime"
	userrepo "github.com/viewcasthq/viewcast-server/internal/infrastructure/repository/user"
	videorepo "github.com/viewcasthq/viewcast-server/internal/infrastructure/repository/video"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/storage"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/thumbnail"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/handlers"
)

type Application struct {
	httpServer *httpserver.HttpServer
	pool       *queue.Pool
	hub        *realtime.Hub
	log        zerolog.Logger
}

func (a *Application) Start(ctx context.Context) error {
	a.pool.Start()
	defer func() {
		a.pool.Shutdown()
		a.hub.Close()
	}()
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseDSN,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var (
		store     video.Storage
		local     *storage.LocalStorage
		staticDir string
	)
	if cfg.IsS3Storage() {
		s3Store, err := storage.NewS3Storage(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize object storage")
		}
		store = s3Store
	} else {
		local, err = storage.NewLocalStorage(cfg.LocalStoragePath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize local storage")
		}
		store = local
		staticDir = local.BasePath()
	}

	userRepository := userrepo.NewRepository(db)
	videoRepository := videorepo.NewRepository(db)

	hub := realtime.NewHub(log)
	classifier := processing.NewRandomClassifier(cfg.ClassifierFlagRate, time.Now().UnixNano())
	processor := processing.NewProcessor(videoRepository, hub, classifier, cfg.StageDelay, log)
	pool := queue.NewPool(processor, cfg.WorkerCount, cfg.QueueDepth, log)

	thumbs := thumbnail.NewExtractor(cfg.FFmpegPath, log)

	userService := user.NewService(cfg, userRepository, log)
	videoService := video.NewService(cfg, videoRepository, store, thumbs, pool, log)
	adminService := admin.NewService(userRepository, videoRepository, store, pool, log)

	provider := handlers.NewProvider(cfg, userService, videoService, adminService, hub, localResolver(local), log)
	httpServer := httpserver.New(cfg, log, provider, userService, staticDir)

	app := &Application{
		httpServer: httpServer,
		pool:       pool,
		hub:        hub,
		log:        log,
	}
	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// localResolver avoids a typed-nil interface when the s3 backend is active.
func localResolver(local *storage.LocalStorage) handlers.LocalPathResolver {
	if local == nil {
		return nil
	}
	return local
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
