package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-registration/internal/config"
	"github.com/iliyamo/event-registration/internal/database"
	"github.com/iliyamo/event-registration/internal/domain"
	"github.com/iliyamo/event-registration/internal/handler"
	"github.com/iliyamo/event-registration/internal/mailer"
	"github.com/iliyamo/event-registration/internal/middleware"
	"github.com/iliyamo/event-registration/internal/qr"
	"github.com/iliyamo/event-registration/internal/queue"
	"github.com/iliyamo/event-registration/internal/repository"
	"github.com/iliyamo/event-registration/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()
	log.Info().Msg("database connected")

	store := repository.NewStore(db, log)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	mail := mailer.New(cfg.SMTPAddr, cfg.SMTPHost, cfg.SMTPFrom, cfg.SMTPPass, log)
	renderer := qr.New(cfg.QRDir, log)

	// Post-commit side effects go through RabbitMQ when a broker is
	// configured, through detached goroutines otherwise.
	var (
		svc    *domain.Service
		inline *queue.Inline
	)
	if cfg.RabbitURL != "" {
		pub, err := queue.NewPublisher(cfg.RabbitURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq connection failed")
		}
		defer pub.Close()
		svc = domain.NewService(store, pub, log)
		log.Info().Msg("rabbitmq connected")
	} else {
		inline = queue.NewInline(mail, renderer, log)
		svc = domain.NewService(store, inline, log)
		inline.Bind(svc)
		log.Warn().Msg("no RABBITMQ_URL, running side effects in-process")
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if cfg.RabbitURL != "" {
		// The worker's own promotion sweeps dispatch no further tasks,
		// so it can share the service instance.
		w := queue.NewWorker(svc, mail, renderer, log)
		go func() {
			if err := w.Run(workerCtx, cfg.RabbitURL); err != nil && workerCtx.Err() == nil {
				log.Error().Err(err).Msg("queue worker stopped")
			}
		}()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, rate limiting and caching disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cacheCfg := config.LoadCacheConfig()

	authH := handler.NewAuthHandler(cfg, users, tokens)
	eventH := handler.NewEventHandler(store.Events(), users, svc)
	regH := handler.NewRegistrationHandler(svc, store)
	ticketH := handler.NewTicketHandler(svc)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, eventH, cacheCfg, rdb)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterRegistration(e, regH, ticketH, cfg.JWTSecret, limiter)
	router.RegisterOrganizer(e, eventH, cfg.JWTSecret)
	router.RegisterAdmin(e, regH, ticketH, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil {
			log.Info().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	stopWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
