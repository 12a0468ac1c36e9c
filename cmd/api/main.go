package main

import (
	"context"
	"log"
	"time"

	"livepoll/config"
	"livepoll/internal/events"
	"livepoll/internal/handler"
	"livepoll/internal/repository"
	"livepoll/internal/server"
	"livepoll/internal/service"
	"livepoll/internal/storage"
	"livepoll/internal/ws"
	"livepoll/pkg/database"
	"livepoll/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	logMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		logMode = logger.ProductionMode
	}
	l := logger.New(logMode)
	logger.SetGlobalLogger(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := repository.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	repo := repository.NewPollRepository(db)

	registry := ws.NewRegistry()
	hub := ws.NewHub(registry, l)

	// With redis enabled, room events take the pub/sub round trip so every
	// instance delivers them; otherwise they go straight to the local hub.
	// Presence stays local either way: each instance counts its own sockets.
	var broadcaster service.Broadcaster = hub
	if cfg.RedisEnabled {
		redisClient := events.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		broadcaster = events.NewRedisBroadcaster(events.NewPublisher(redisClient), l)
		bridge := events.NewRedisBridge(events.NewSubscriber(redisClient), hub)
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				l.Errorf("redis bridge stopped: %s", err)
			}
		}()
	}

	lifecycle := service.NewLifecycleManager(repo, broadcaster, l)
	if err := lifecycle.ScheduleAll(ctx); err != nil {
		l.Errorf("scheduling poll expiries: %s", err)
	}

	polls := service.NewPollService(repo, lifecycle, l)
	votes := service.NewVoteService(repo, lifecycle, l)

	monitor := ws.NewMonitor(registry, hub, cfg.HeartbeatInterval, l)
	go monitor.Run(ctx)

	var previews *storage.PreviewStore
	if cfg.S3Bucket != "" {
		previews, err = storage.NewPreviewStore(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: 15 * time.Minute,
		})
		if err != nil {
			log.Fatalf("Failed to configure preview store: %v", err)
		}
	}

	authorizer := ws.NewAuthorizer(cfg.JWTSecret)
	wsHandler := ws.NewHandler(hub, registry, authorizer, polls, monitor.Interval(), l)

	srv := server.New(cfg, l, hub, db)
	srv.SetupRoutes(&server.Handlers{
		Polls: handler.NewPollHandler(polls, broadcaster, previews, l),
		Votes: handler.NewVoteHandler(votes, broadcaster, l),
		WS:    wsHandler,
	})

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
