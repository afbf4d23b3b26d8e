package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"numislive/internal/api"
	"numislive/internal/api/handlers"
	"numislive/internal/config"
	"numislive/internal/domain"
	"numislive/internal/infrastructure/leader"
	"numislive/internal/infrastructure/mail"
	redisInfra "numislive/internal/infrastructure/redis"
	wsInfra "numislive/internal/infrastructure/websocket"
	"numislive/internal/repository/mysql"
	"numislive/internal/services"
	"numislive/pkg/logger"
)

func main() {
	// .env is a dev convenience; absence is fine.
	_ = godotenv.Load()

	log := logger.New()
	log.Info("Starting NumisLive auction engine")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}
	log.Info("Configuration loaded", "config", cfg.GetConfigString())

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Fatal("Failed to open MySQL", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}()

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Failed to ping MySQL", "error", err)
	}
	if err := mysql.EnsureSchema(ctx, db); err != nil {
		log.Fatal("Failed to ensure schema", "error", err)
	}
	log.Info("Connected to MySQL")

	// Repositories
	listingRepo := mysql.NewMySQLListingRepository(db)
	bidRepo := mysql.NewMySQLBidRepository(db)
	commentRepo := mysql.NewMySQLCommentRepository(db)
	paymentRepo := mysql.NewMySQLPaymentRepository(db)
	userRepo := mysql.NewMySQLUserRepository(db)

	// Redis based components
	stateCache := redisInfra.NewStateCache(rdb)
	eventPublisher := redisInfra.NewEventPublisher(rdb)
	eventSubscriber := redisInfra.NewEventSubscriber(rdb, log)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)

	mailer := mail.NewSMTPMailer(cfg.SMTP, log)
	clock := domain.SystemClock()
	locks := services.NewListingLocks()

	// Services
	bidService := services.NewBidService(listingRepo, bidRepo, locks, eventPublisher, clock, log)
	closer := services.NewCloser(listingRepo, bidRepo, userRepo, locks, eventPublisher, stateCache, mailer, clock, log)
	listingService := services.NewListingService(listingRepo, bidRepo, commentRepo, locks, eventPublisher, clock, log)
	paymentService := services.NewPaymentService(listingRepo, bidRepo, paymentRepo, locks, clock, log)
	sweeper := services.NewSweeper(listingRepo, closer, leaderElection, cfg.Instance.ID, clock,
		cfg.Sweep.Interval, cfg.Sweep.ListingTimeout, log)

	// Websocket fanout
	connManager := wsInfra.NewConnectionManager(log)
	wsHandler := wsInfra.NewHandler(bidService, listingRepo, stateCache, connManager, clock, log)
	listener := services.NewEventListener(connManager, log)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	go func() {
		if err := listener.Start(rootCtx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	if err := sweeper.Start(rootCtx); err != nil {
		log.Fatal("Failed to start sweeper", "error", err)
	}

	// Keep trying for leadership; the sweeper only acts while we hold it.
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(rootCtx, cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
			} else if became {
				log.Info("Became sweep leader", "instance_id", cfg.Instance.ID)
			}
			select {
			case <-rootCtx.Done():
				return
			case <-time.After(10 * time.Second):
			}
		}
	}()

	// Websocket server
	wsAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.WSPort)
	wsServer := &http.Server{Addr: wsAddr, Handler: wsHandler.Router()}
	go func() {
		log.Info("Starting websocket server", "address", wsAddr)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Websocket server failed", "error", err)
		}
	}()

	// API server
	listingHandler := handlers.NewListingHandler(listingService, bidService, closer, log)
	paymentHandler := handlers.NewPaymentHandler(paymentService, log)
	apiServer := api.NewServer(cfg.Server, cfg.Auth.JWTSecret, listingHandler, paymentHandler, log)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("API server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop sweeper", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Websocket server forced to shutdown", "error", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("API server forced to shutdown", "error", err)
	}

	log.Info("NumisLive stopped")
}
