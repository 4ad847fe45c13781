package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hxnx/rockola/config"
	"github.com/hxnx/rockola/internal/bot"
)

const usage = `Required environment variables:
  DISCORD_TOKEN          - Discord bot token
  DISCORD_APPLICATION_ID - Discord application ID

Optional environment variables:
  DISCORD_GUILD_ID       - register commands in a single guild (development)
  SHARD_COUNT            - number of shards (0 = auto-detect)
  LOG_LEVEL              - debug, info, warn, error
  AUTO_LEAVE             - leave empty voice channels (default: true)
  RESOLVER               - ytmusic, ytdlp, youtube (default: ytmusic)
  STREAMER               - ytdlp, kkdai, proxy (default: ytdlp)
  RELATED                - ytmusic, spotify (default: ytmusic)
  YTDLP_PATH, FFMPEG_PATH, STREAM_PROXY_URL, YOUTUBE_API_KEY
  SIMILAR_LIMIT, SIMILAR_RATE, RESOLVE_CACHE_TTL

Database (play history):
  DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE

Redis (resolve cache):
  REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, REDIS_DB

Spotify (RELATED=spotify):
  SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n\n%s\n", err, usage)
		os.Exit(1)
	}

	logger := bot.NewLogger(cfg)
	slog.SetDefault(logger)

	mode := "production"
	if cfg.IsDevelopment() {
		mode = "development"
	}
	logger.Info("configuration loaded",
		"mode", mode,
		"log_level", cfg.LogLevel,
		"resolver", cfg.Resolver,
		"streamer", cfg.Streamer,
		"related", cfg.Related,
		"auto_leave", cfg.AutoLeave,
		"database", cfg.HasDatabase(),
		"redis", cfg.HasRedis(),
	)

	b, err := bot.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if err := b.Start(); err != nil {
		logger.Error("bot error", "error", err)
		os.Exit(1)
	}

	logger.Info("bot is running, press CTRL+C to exit")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	if err := b.Stop(); err != nil {
		logger.Error("failed to stop bot", "error", err)
	}
}
