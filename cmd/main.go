/**
 * @description
 * This is the main entry point for the marketplace-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * external API clients, message brokers, repositories, the core application service,
 * and the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/robfig/cron/v3 (via internal/app): Scheduled background jobs.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/blobclient: Client for the blob storage service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
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
	"github.com/workbridge/marketplace-service/internal/api"
	"github.com/workbridge/marketplace-service/internal/app"
	"github.com/workbridge/marketplace-service/internal/config"
	"github.com/workbridge/marketplace-service/internal/domain"
	"github.com/workbridge/marketplace-service/internal/store"
	"github.com/workbridge/marketplace-service/pkg/blobclient"
	mqrabbit "github.com/workbridge/marketplace-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting marketplace-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

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

	// Initialize the RabbitMQ producer to publish lifecycle events.
	var producer mqrabbit.Publisher
	eventProducer, err := mqrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &mqrabbit.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the client for the blob storage service. Missing blob store
	// config should not prevent the service from booting; attachment
	// resolution will degrade.
	var blobClient *blobclient.Client
	if strings.TrimSpace(cfg.BlobStoreBaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"blob store client not configured; attachment resolution disabled\"")
	} else {
		blobClient = blobclient.NewClient(cfg.BlobStoreBaseURL, cfg.BlobStoreAPIKey)
	}

	// Optional Redis-backed bid rate limiting.
	var redisClient *redis.Client
	if cfg.BidRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; bid rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; bid rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; bid rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	var rateLimiter app.RateLimiter
	if redisClient != nil {
		rateLimiter = app.NewRedisBidRateLimiter(redisClient, cfg.RedisRateLimitPrefix, cfg.BidRateLimitPerMinute, time.Minute)
	}
	marketplaceService := app.NewService(
		repository,
		blobClient,
		producer,
		rateLimiter,
		cfg.PlatformFeeBps,
	)

	// Initialize the API handlers.
	marketplaceHandlers := api.NewMarketplaceHandlers(marketplaceService)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/", api.MarketplaceRoutes(marketplaceHandlers, cfg.ClerkJWKSURL, cfg.CORSAllowedOrigins))

	// Wire up the consumer: milestone releases drive draft invoices.
	milestoneConsumer := app.NewMilestoneReleaseConsumer(marketplaceService)

	rabbitConsumer, err := mqrabbit.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; invoice drafting from releases disabled\" err=%v", err)
	} else {
		defer rabbitConsumer.Close()

		milestoneBindings := map[string]func([]byte) bool{
			domain.EventMilestoneReleased: milestoneConsumer.HandleMessage,
		}
		if err := rabbitConsumer.ConsumeWithBindings(mqrabbit.MarketplaceEventsExchange, cfg.MilestoneEventQueue, milestoneBindings); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"milestone consumer start failed\" err=%v", err)
		}
	}

	// Start the background job scheduler.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	jobs := app.NewJobs(repository, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()

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

	<-scheduler.Stop().Done()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
