package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Turbi-kon/online-school-backend/internal/auth"
	"github.com/Turbi-kon/online-school-backend/internal/bus"
	"github.com/Turbi-kon/online-school-backend/internal/config"
	"github.com/Turbi-kon/online-school-backend/internal/database"
	"github.com/Turbi-kon/online-school-backend/internal/gateway"
	"github.com/Turbi-kon/online-school-backend/internal/handler"
	"github.com/Turbi-kon/online-school-backend/internal/registry"
	"github.com/Turbi-kon/online-school-backend/internal/router"
	"github.com/Turbi-kon/online-school-backend/internal/service"
	"github.com/Turbi-kon/online-school-backend/internal/speech"
	"github.com/Turbi-kon/online-school-backend/internal/storage"
	"github.com/Turbi-kon/online-school-backend/internal/transcribe"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API is the HTTP + WebSocket API application.
type API struct {
	cfg *config.Config
	srv *http.Server
	db  *gorm.DB
	bus bus.Bus
}

// NewAPI creates the API application: validates config, runs migrations,
// opens DB and object storage, builds the gateway and router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ctx := context.Background()

	var broadcast bus.Bus
	switch cfg.BusBackend {
	case "redis":
		broadcast, err = bus.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return nil, fmt.Errorf("bus: %w", err)
		}
	default:
		broadcast = bus.NewMemory(logger)
	}

	objects, err := storage.NewMinioStore(ctx,
		cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey,
		cfg.Minio.Bucket, cfg.Minio.UseSSL, logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	store := database.NewStore(db)
	reg := registry.New(store, logger)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret, store)

	channelSvc := service.NewChannelService(store, store, reg, broadcast, logger)
	chatSvc := service.NewChatService(store, store, objects, broadcast, cfg.PresignTTL, logger)
	notifier := service.NewNotifier(store, store, broadcast, logger)

	converter := speech.NewFFmpegConverter(cfg.FFmpegBin, logger)
	transcriber := speech.NewWhisperClient(cfg.WhisperURL, logger)
	transcriptMgr, err := transcribe.NewManager(transcribe.Options{
		Dir:        cfg.TranscribeDir,
		Append:     cfg.TranscribeAppend,
		LockWait:   cfg.TranscribeLockWait,
		PresignTTL: cfg.PresignTTL,
	}, converter, transcriber, objects, logger)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	gw := gateway.New(broadcast, reg, channelSvc, chatSvc, store, verifier, gateway.Config{
		ReadBufferSize:  cfg.WSReadBufferSize,
		WriteBufferSize: cfg.WSWriteBufferSize,
		MaxMessageSize:  cfg.WSMaxMessageSize,
	}, logger)

	r := router.New(
		verifier,
		handler.NewChannelHandler(channelSvc, chatSvc),
		handler.NewUploadHandler(objects, store, cfg.PresignTTL, logger),
		handler.NewNotificationHandler(notifier),
		handler.NewTranscribeHandler(transcriptMgr, cfg.TranscribeMaxUpload, logger),
		handler.NewWSHandler(gw, channelSvc, logger),
		handler.NewHealthHandler(),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, db: db, bus: broadcast}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled; then shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	addr := a.srv.Addr
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", addr)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  Channels:      %s/channels", base)
	log.Printf("  Notifications: %s/notifications", base)
	log.Printf("  WebSocket:     ws://%s:%s/ws/channel/:id", host, a.cfg.HTTPPort)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	_ = a.bus.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
