package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-tutor-web/internal/config"
	"github.com/noah-isme/gema-tutor-web/internal/database"
	"github.com/noah-isme/gema-tutor-web/internal/handler"
	"github.com/noah-isme/gema-tutor-web/internal/middleware"
	"github.com/noah-isme/gema-tutor-web/internal/repository"
	"github.com/noah-isme/gema-tutor-web/internal/router"
	"github.com/noah-isme/gema-tutor-web/internal/service"
	"github.com/noah-isme/gema-tutor-web/internal/view"
	"github.com/noah-isme/gema-tutor-web/pkg/backend"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	srv, err := newServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer srv.close()

	listenErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Str("backend", cfg.BackendBaseURL).Msg("starting web server")
		listenErr <- srv.app.Listen(cfg.HTTPAddress())
	}()

	return waitForShutdown(ctx, srv.app, listenErr, logger)
}

type server struct {
	app     *fiber.App
	closers []func() error
}

func (s *server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// newServer wires configuration, stores, the backend client, services and
// handlers into a fiber application.
func newServer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*server, error) {
	srv := &server{}

	var (
		redisClient *redis.Client
		store       repository.SessionStore
	)
	if cfg.RedisURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := database.ConnectRedis(connectCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			return nil, err
		}
		redisClient = client
		srv.closers = append(srv.closers, client.Close)
		store = repository.NewRedisSessionStore(client, cfg.ChannelBase, cfg.SessionTTL)
	} else {
		logger.Warn().Msg("redis url not set; session state is kept in process memory")
		store = repository.NewMemorySessionStore(cfg.SessionTTL)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			srv.close()
			return nil, err
		}
		natsConn = conn
		srv.closers = append(srv.closers, func() error {
			return conn.Drain()
		})
	}

	client, err := backend.New(backend.Config{
		BaseURL:     cfg.BackendBaseURL,
		Logger:      logger,
		Correlation: middleware.CorrelationIDFromContext,
	})
	if err != nil {
		srv.close()
		return nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	identity := service.Identity{StudentID: cfg.StudentID, TeacherID: cfg.TeacherID}
	pages := service.NewSessionPages(store, cfg.ActionLockTTL)
	activity := service.NewActivityPublisher(natsConn, redisClient, cfg.ChannelBase, logger)

	uploadService := service.NewUploadService(client, pages, activity, service.UploadOptions{
		MaxSizeMB:        cfg.UploadMaxSizeMB,
		SummaryMaxLength: cfg.SummaryMaxLength,
		SummarizeTimeout: cfg.SummarizeTimeout,
		Identity:         identity,
	}, logger)
	chatService := service.NewChatService(client, pages, activity, identity, validate, logger)
	homeworkService := service.NewHomeworkService(client, pages, activity, identity, validate, logger)
	examService := service.NewExamService(client, pages, activity, identity, cfg.ExamNumQuestions, validate, logger)
	learningService := service.NewLearningService(client, pages, activity, identity, validate, logger)
	teacherService := service.NewTeacherService(client, pages, activity, identity, cfg.UploadMaxSizeMB, logger)
	loginService := service.NewLoginService(validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		Views:        view.New(),
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
		// uploads wait for the summary, so writes may take up to the summarize deadline
		WriteTimeout: cfg.SummarizeTimeout + time.Minute,
		ReadTimeout:  time.Minute,
		ErrorHandler: handler.ErrorHandler(logger),
	})

	middleware.Register(app, middleware.Config{
		Logger: &logger,
		Session: middleware.SessionConfig{
			Secret:     cfg.SessionSecret,
			CookieName: cfg.SessionCookie,
			TTL:        cfg.SessionTTL,
			Secure:     cfg.IsProduction(),
		},
		AccessLog: !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		HomeHandler:     handler.NewHomeHandler(cfg.IsProduction()),
		LoginHandler:    handler.NewLoginHandler(loginService, logger),
		TeacherHandler:  handler.NewTeacherHandler(teacherService, logger),
		ChatHandler:     handler.NewChatHandler(chatService, logger),
		UploadHandler:   handler.NewUploadHandler(uploadService, cfg.UploadMaxSizeMB, logger),
		HomeworkHandler: handler.NewHomeworkHandler(homeworkService, logger),
		ExamHandler:     handler.NewExamHandler(examService, logger),
		LearningHandler: handler.NewLearningHandler(learningService, logger),
	})

	srv.app = app
	return srv, nil
}

func waitForShutdown(ctx context.Context, app *fiber.App, listenErr <-chan error, logger zerolog.Logger) error {
	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
