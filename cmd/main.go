/**
 * @description
 * This is the main entry point for the settlement-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * external clients, message brokers, repositories, the core application service,
 * and the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/pushclient: Client for the push notification gateway.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/instapay/settlement-service/internal/api"
	"github.com/instapay/settlement-service/internal/app"
	"github.com/instapay/settlement-service/internal/config"
	"github.com/instapay/settlement-service/internal/store"
	"github.com/instapay/settlement-service/pkg/pushclient"
	rmrabbit "github.com/instapay/settlement-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting settlement-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	// Account-row locking under transfer load holds connections briefly but
	// frequently; size the pool for concurrent settlements.
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish settlement events.
	// This service only needs to publish, so we use a producer.
	var eventProducer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		eventProducer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		eventProducer = rabbitProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the push gateway client. A missing gateway URL should not
	// prevent the service from booting; notification delivery will degrade.
	var pushSender pushclient.Sender
	if strings.TrimSpace(cfg.PushGatewayURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"push gateway not configured; push delivery disabled\" env=PUSH_GATEWAY_URL")
	} else {
		pushSender = pushclient.NewClient(cfg.PushGatewayURL, cfg.PushGatewayAPIKey)
	}

	// Initialize the Redis client backing the PIN attempt limiter.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; pin attempt limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; pin attempt limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; pin attempt limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	settlementService := app.NewService(repository, pushSender, eventProducer)
	if redisClient != nil {
		settlementService.SetPINRateLimiter(
			app.NewRedisPINRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.PINMaxAttempts,
			time.Duration(cfg.PINAttemptWindowSeconds)*time.Second,
		)
	}

	// Start the money request expiry sweeper when expiry is enabled.
	if cfg.MoneyRequestExpiryMinutes > 0 {
		sweeper := app.NewMoneyRequestSweeper(
			repository,
			time.Duration(cfg.MoneyRequestExpiryMinutes)*time.Minute,
			time.Duration(cfg.MoneyRequestSweepIntervalSeconds)*time.Second,
		)
		sweeper.Start(context.Background())
		defer sweeper.Stop()
		log.Printf("level=info component=bootstrap msg=\"money request expiry enabled\" expiry_minutes=%d", cfg.MoneyRequestExpiryMinutes)
	}

	// Initialize the API handlers.
	settlementHandlers := api.NewSettlementHandlers(settlementService)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/", api.SettlementRoutes(settlementHandlers, cfg.JWTSecret, cfg.Origins()))

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
