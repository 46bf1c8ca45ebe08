package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"pagecraft/internal/config"
	"pagecraft/internal/database"
	"pagecraft/internal/editor"
	"pagecraft/internal/notify"
	"pagecraft/internal/persistence"
	"pagecraft/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.MustLoad()

	// 命令输出走 stdout，日志只保留警告以上。
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	ctx := context.Background()

	// redis 仅在快照后端需要时强制可用；否则只用于通知在线编辑器。
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer redisClient.Close()
	var notifier editor.Notifier
	if err := redisClient.Ping(ctx).Err(); err != nil {
		if cfg.Persistence.Backend == config.BackendRedis {
			log.Fatalf("ping redis: %v", err)
		}
		logger.Warn("redis unavailable, running api processes keep their cached page until restart", slog.Any("error", err))
	} else {
		notifier = notify.NewPublisher(redisClient)
	}

	store, err := persistence.Open(cfg.Persistence, persistence.Deps{
		DB:      db,
		Redis:   redisClient,
		Objects: storageClient,
	})
	if err != nil {
		log.Fatalf("open snapshot store: %v", err)
	}

	a := &app{
		store:   store,
		manager: editor.NewManager(store, notifier, logger),
		db:      db,
		objects: storageClient,
		out:     os.Stdout,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}
