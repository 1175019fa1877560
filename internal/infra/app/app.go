package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/config"
	"github.com/arklim/social-platform-auth/internal/infra/database"
	kafkainfra "github.com/arklim/social-platform-auth/internal/infra/kafka"
	"github.com/arklim/social-platform-auth/internal/infra/logger"
	mailinfra "github.com/arklim/social-platform-auth/internal/infra/mail"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	postgresrepo "github.com/arklim/social-platform-auth/internal/repository/postgres"
	"github.com/arklim/social-platform-auth/internal/transport/http/routes"
	"github.com/arklim/social-platform-auth/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	producer *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if err := database.RunMigrations(ctx, cfg.Postgres, log); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init argon2 hasher: %w", err)
	}

	issuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	store := postgresrepo.NewStore(pool)
	repos := postgresrepo.NewRepositories(pool)
	passwordPolicy := security.NewPasswordPolicy()

	var mailSender port.MailSender
	if cfg.SMTP.Host != "" {
		mailSender = mailinfra.NewSMTPSender(cfg.SMTP, log)
	} else {
		log.Info("smtp host not configured, using log sender")
		mailSender = mailinfra.NewLogSender(log)
	}

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	registrationService, err := usecase.NewRegistrationService(usecase.RegistrationConfig{
		UnitOfWork:      store,
		Users:           repos.Users,
		Tokens:          repos.Tokens,
		Hasher:          hasher,
		Policy:          passwordPolicy,
		Issuer:          issuer,
		Mailer:          mailSender,
		Events:          eventPublisher,
		Logger:          log,
		VerificationTTL: cfg.Tokens.VerificationTTL,
		VerifyBaseURL:   cfg.App.BaseURL,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init registration service: %w", err)
	}

	passwordResetService, err := usecase.NewPasswordResetService(usecase.PasswordResetConfig{
		UnitOfWork: store,
		Users:      repos.Users,
		Tokens:     repos.Tokens,
		Hasher:     hasher,
		Policy:     passwordPolicy,
		Mailer:     mailSender,
		Events:     eventPublisher,
		Logger:     log,
		ResetTTL:   cfg.Tokens.ResetTTL,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init password reset service: %w", err)
	}

	sessionService, err := usecase.NewSessionService(usecase.SessionConfig{
		UnitOfWork: store,
		Users:      repos.Users,
		Sessions:   repos.Sessions,
		Hasher:     hasher,
		Issuer:     issuer,
		Events:     eventPublisher,
		Logger:     log,
		SessionTTL: cfg.JWT.SessionTTL,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init session service: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:     cfg,
		Logger:     log,
		Database:   pool,
		Registerer: prometheus.DefaultRegisterer,
		Services: routes.ServiceSet{
			Registration:  registrationService,
			PasswordReset: passwordResetService,
			Sessions:      sessionService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		producer: producer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
