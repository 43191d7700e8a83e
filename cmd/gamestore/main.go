package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/gamestore-backend/internal/cache"
	"github.com/vasiliy-maslov/gamestore-backend/internal/catalog"
	"github.com/vasiliy-maslov/gamestore-backend/internal/config"
	"github.com/vasiliy-maslov/gamestore-backend/internal/db"
	"github.com/vasiliy-maslov/gamestore-backend/internal/handler"
	"github.com/vasiliy-maslov/gamestore-backend/internal/invoice"
	"github.com/vasiliy-maslov/gamestore-backend/internal/metrics"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
	"github.com/vasiliy-maslov/gamestore-backend/internal/payment"
	"github.com/vasiliy-maslov/gamestore-backend/internal/transport"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "gamestore").Logger()

	log.Info().Msg("Gamestore backend starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	pg, err := db.New(context.Background(), cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	sqlxDB, err := db.ConnectSQLX(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open catalog database connection")
	}
	defer sqlxDB.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
	}
	defer redisClient.Close()

	storeMetrics := metrics.New(prometheus.DefaultRegisterer)

	catalogSvc := catalog.NewService(catalog.NewPostgresRepository(sqlxDB))
	orderSvc := order.NewService(
		order.NewPostgresRepository(pg.Pool),
		catalogSvc,
		cache.NewRedisCartCache(redisClient),
		storeMetrics,
	)

	invoices := invoice.NewGenerator(cfg.Invoice.ValidityDays, time.Now)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dispatcher := payment.NewDispatcher(cfg.Payment, invoices, rng, time.Now)
	processor := payment.NewProcessor(orderSvc, dispatcher, storeMetrics, cfg.Payment.GatewayTimeout)

	router := transport.NewRouter(
		handler.NewOrderHandler(orderSvc),
		handler.NewPaymentHandler(processor),
		handler.NewCatalogHandler(catalogSvc),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
