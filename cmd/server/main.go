package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lendstack/backoffice-server-go/internal/config"
	"github.com/lendstack/backoffice-server-go/internal/database"
	"github.com/lendstack/backoffice-server-go/internal/handler"
	"github.com/lendstack/backoffice-server-go/internal/jobs"
	"github.com/lendstack/backoffice-server-go/internal/mailer"
	"github.com/lendstack/backoffice-server-go/internal/middleware"
	"github.com/lendstack/backoffice-server-go/internal/redis"
	"github.com/lendstack/backoffice-server-go/internal/repository"
	"github.com/lendstack/backoffice-server-go/internal/service"
	"github.com/lendstack/backoffice-server-go/internal/token"
	"github.com/lendstack/backoffice-server-go/internal/totp"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	adminRepo := repository.NewAdminRepository(db.DB)
	sessionRepo := repository.NewPendingSessionRepository(db)
	backupCodeRepo := repository.NewBackupCodeRepository(db)
	loanRepo := repository.NewLoanRepository(db.DB)
	txnRepo := repository.NewTransactionRepository(db.DB)
	ticketRepo := repository.NewTicketRepository(db.DB)

	totpEngine := totp.NewEngine(cfg.TOTPIssuer)

	tokens, err := token.NewIssuer(token.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.TOTPIssuer,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token issuer")
	}

	var resetMailer mailer.Mailer
	if cfg.SMTPHost != "" {
		resetMailer = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:         cfg.SMTPHost,
			Port:         cfg.SMTPPort,
			Username:     cfg.SMTPUsername,
			Password:     cfg.SMTPPassword,
			From:         cfg.MailFrom,
			ResetBaseURL: cfg.ResetBaseURL,
			TokenTTL:     cfg.ResetTokenTTL,
		})
	} else {
		resetMailer = mailer.NewLogMailer()
		log.Warn().Msg("SMTP_HOST not set; password reset mails go to the log")
	}

	authService := service.NewAuthService(
		adminRepo, sessionRepo, backupCodeRepo,
		totpEngine, tokens,
		cfg.PendingSessionTTL, cfg.MFAMaxAttempts,
	)
	resetService := service.NewPasswordResetService(adminRepo, totpEngine, resetMailer, cfg.ResetTokenTTL)
	loanService := service.NewLoanService(loanRepo, txnRepo)
	ticketService := service.NewTicketService(ticketRepo, adminRepo)

	authMiddleware := middleware.NewAuthMiddleware(adminRepo, tokens)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.APIRateLimitPerMin)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	authHandler := handler.NewAuthHandler(authService, resetService, authMiddleware.Handler)
	backofficeHandler := handler.NewBackofficeHandler(
		loanService, ticketService, adminRepo, backupCodeRepo,
		authMiddleware.Handler, rateLimitMiddleware.Handler,
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Mount("/", authHandler.Routes())
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/", backofficeHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(sessionRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
