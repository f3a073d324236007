package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/oshinstar/accounts-apiserver/config"
	"github.com/oshinstar/accounts-apiserver/internal/db"
	"github.com/oshinstar/accounts-apiserver/internal/events"
	"github.com/oshinstar/accounts-apiserver/internal/handlers"
	"github.com/oshinstar/accounts-apiserver/internal/notify"
	"github.com/oshinstar/accounts-apiserver/internal/services"
	"github.com/oshinstar/accounts-apiserver/internal/storage"
	"github.com/oshinstar/accounts-apiserver/internal/store"
	"github.com/oshinstar/accounts-apiserver/internal/token"
	"go.uber.org/zap"
)

// Server wraps the HTTP server, router, and shared resources.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  *events.Publisher
	logger     *zap.Logger
}

// New constructs a Server with all services wired from configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewIssuer(cfg.JWT)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	publisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	phoneCodeRepo := store.NewPhoneCodeRepository(dbConn)

	userService := services.NewUserService(userRepo, publisher, logger)
	twoFactorService := services.NewTwoFactorService(userRepo, publisher, logger)
	verificationService := services.NewVerificationService(userRepo, phoneCodeRepo, notifier, publisher, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, userService, twoFactorService, tokens)
	handlers.SignupRouter(router, userService, verificationService, tokens)
	handlers.CoreRouter(router)

	photos, err := newPhotoStore(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if photos != nil {
		if err := photos.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("ensure photo bucket: %w", err)
		}
		handlers.ProfileRouter(router, userService, photos)
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

// newNotifier builds the outbound notification client. Twilio and SMTP
// are each optional; a missing configuration disables that channel.
func newNotifier(cfg config.Config) (notify.Notifier, error) {
	var twilio *notify.TwilioClient
	if cfg.Twilio.AccountSID != "" {
		client, err := notify.NewTwilioClient(cfg.Twilio)
		if err != nil {
			return nil, err
		}
		twilio = client
	}

	var mail *notify.MailSender
	if cfg.SMTP.Host != "" {
		sender, err := notify.NewMailSender(cfg.SMTP)
		if err != nil {
			return nil, err
		}
		mail = sender
	}

	return notify.NewClient(twilio, mail), nil
}

func newPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (*events.Publisher, error) {
	switch cfg.Events.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := events.NewRabbitMQBackend(cfg.Events.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq backend: %w", err)
		}
		return events.NewPublisher(backend, cfg.Events.Channel, logger), nil
	case "pubsub":
		backend, err := events.NewPubSubBackend(ctx, cfg.Events.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub backend: %w", err)
		}
		return events.NewPublisher(backend, cfg.Events.Channel, logger), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}

func newPhotoStore(ctx context.Context, cfg config.Config) (*storage.PhotoStore, error) {
	switch cfg.Storage.Backend {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio backend: %w", err)
		}
		return storage.NewPhotoStore(client), nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs backend: %w", err)
		}
		return storage.NewPhotoStore(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
