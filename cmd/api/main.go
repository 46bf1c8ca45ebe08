package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"pagecraft/internal/api"
	"pagecraft/internal/config"
	"pagecraft/internal/database"
	"pagecraft/internal/editor"
	"pagecraft/internal/notify"
	"pagecraft/internal/persistence"
	"pagecraft/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s backend=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
		cfg.Persistence.Backend,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	store, err := persistence.Open(cfg.Persistence, persistence.Deps{
		DB:      db,
		Redis:   redisClient,
		Objects: storageClient,
	})
	if err != nil {
		log.Fatalf("open snapshot store: %v", err)
	}
	if cfg.Persistence.Backend == config.BackendMemory {
		logger.Warn("page snapshots are kept in memory only and are lost on restart")
	}

	publisher := notify.NewPublisher(redisClient)
	manager := editor.NewManager(store, publisher, logger)

	// 其他进程（admin、其他 api 实例）写入的快照通过通知同步到本地会话。
	listenCtx, stopListen := context.WithCancel(context.Background())
	defer stopListen()
	go func() {
		err := notify.Listen(listenCtx, redisClient, publisher.Origin(), logger, func(msg notify.Message) {
			manager.HandleRemote(listenCtx, msg)
		})
		if err != nil {
			logger.Error("page notification listener stopped", slog.Any("error", err))
		}
	}()

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)

	router := api.NewRouter(logger)
	api.RegisterRoutes(
		router,
		manager,
		asynqClient,
		redisClient,
		logger,
		database.NewAssetStore(db),
		storageClient,
		*cfg,
	)

	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
