package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v3"

	"github.com/orthrauku-dev/yt-sus/internal/config"
	"github.com/orthrauku-dev/yt-sus/internal/db"
	"github.com/orthrauku-dev/yt-sus/internal/handler"
	"github.com/orthrauku-dev/yt-sus/internal/middleware"
	"github.com/orthrauku-dev/yt-sus/internal/ratelimit"
	"github.com/orthrauku-dev/yt-sus/internal/repository"
	"github.com/orthrauku-dev/yt-sus/internal/router"
	"github.com/orthrauku-dev/yt-sus/internal/service"
)

func main() {
	cfg := config.Load()

	middleware.InitLogger(cfg.LogLevel, "yt-sus-api")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	repo := repository.NewChannelRepo(pool)
	limiter := ratelimit.New()

	voteSvc := service.NewVoteService(repo, cache)
	channelSvc := service.NewChannelService(repo, cache)

	handler.InitMetrics(pool)

	h := &router.Handlers{
		Vote:    handler.NewVoteHandler(voteSvc, limiter),
		Channel: handler.NewChannelHandler(channelSvc),
		Stats:   handler.NewStatsHandler(channelSvc),
		Health:  handler.NewHealthHandler(pool, cache.Client()),
	}

	app := fiber.New(fiber.Config{
		AppName:      "yt-sus API",
		ServerHeader: "yt-sus",
	})

	router.Setup(app, h, cfg.CORSOrigins)

	log.Printf("yt-sus backend starting on :%s (env=%s)", cfg.Port, cfg.Environment)
	log.Fatal(app.Listen(":" + cfg.Port))
}
