package main

import (
	"context"

	"github.com/cfuentes/bidroom/internal/auction/application"
	"github.com/cfuentes/bidroom/internal/auction/domain"
	auctionhttp "github.com/cfuentes/bidroom/internal/auction/infra/http"
	auctionpg "github.com/cfuentes/bidroom/internal/auction/infra/repository/postgres"
	"github.com/cfuentes/bidroom/internal/auction/infra/roster"
	auctionws "github.com/cfuentes/bidroom/internal/auction/infra/websocket"
	"github.com/cfuentes/bidroom/internal/shared/config"
	"github.com/cfuentes/bidroom/internal/shared/db"
	"github.com/cfuentes/bidroom/internal/shared/db/migrations"
	"github.com/cfuentes/bidroom/internal/shared/httpserver"
	"github.com/cfuentes/bidroom/internal/shared/logger"
	ws "github.com/cfuentes/bidroom/internal/shared/websocket"
	userhttp "github.com/cfuentes/bidroom/internal/user/infra/http"
	userpg "github.com/cfuentes/bidroom/internal/user/infra/repository/postgres"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting bidroom server...")
	cfg := config.Load()

	log.Info("Running database migrations...")
	if err := migrations.RunMigrations(cfg.DB.DSN()); err != nil {
		log.Fatal("Database migration failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.GetPostgresDBPool(ctx, cfg.DB.DSN())
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer pool.Close()

	redisClient, err := db.GetRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("Redis connection failed", zap.Error(err))
	}
	defer redisClient.Close()

	// Repositories and ports
	auctionRepo := auctionpg.NewAuctionRepository(pool)
	bidRepo := auctionpg.NewBidRepository(pool)
	presenceRepo := auctionpg.NewPresenceRepository(pool)
	userRepo := userpg.NewUserRepository(pool)
	onlineRoster := roster.NewRedisRoster(redisClient)

	// Broadcast channel
	hub := ws.NewHub()
	go hub.Run(ctx)
	notifier := auctionws.NewHubNotifier(hub)

	// Use cases
	locks := application.NewRoomLocks()
	clock := application.NewClock(auctionRepo)
	createUC := application.NewCreateAuctionUseCase(auctionRepo, userRepo, pool, clock)
	placeBidUC := application.NewPlaceBidUseCase(auctionRepo, bidRepo, userRepo, locks, pool, notifier)
	endRoomUC := application.NewEndRoomUseCase(auctionRepo, presenceRepo, onlineRoster, locks, pool, notifier)
	deleteUC := application.NewDeleteAuctionUseCase(auctionRepo, bidRepo, presenceRepo, onlineRoster, locks, pool, notifier, clock)
	presence := application.NewPresenceTracker(auctionRepo, presenceRepo, onlineRoster, locks, pool, notifier)
	queries := application.NewRoomQueries(auctionRepo, bidRepo, onlineRoster)
	service := application.NewAuctionService(createUC, placeBidUC, endRoomUC, deleteUC, presence, queries)

	// Auction clock: timers for every active room, re-armed on boot
	clock.SetEndFunc(func(ctx context.Context, roomID string) error {
		_, err := endRoomUC.Execute(ctx, roomID, "", domain.EndReasonTimer)
		return err
	})
	if err := clock.Start(ctx); err != nil {
		log.Fatal("Auction clock failed to start", zap.Error(err))
	}
	defer clock.Stop()

	// Transport
	server := httpserver.NewServer()
	wsHandler := auctionws.NewAuctionWSHandler(service, hub)
	wsHandler.RegisterRoutes(ctx, server.App())
	go wsHandler.ListenForMessages(ctx)
	auctionhttp.NewHandler(service).RegisterRoutes(server.App())
	userhttp.NewHandler(userRepo).RegisterRoutes(server.App())

	if err := server.Start(cfg.ServerAddr); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
}
