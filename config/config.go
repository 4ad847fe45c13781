package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ResolverYTDLP   = "ytdlp"
	ResolverYTMusic = "ytmusic"
	ResolverYouTube = "youtube"

	StreamerYTDLP = "ytdlp"
	StreamerKKDAI = "kkdai"
	StreamerProxy = "proxy"

	RelatedSpotify = "spotify"
	RelatedYTMusic = "ytmusic"
)

type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN"`
	ApplicationID string `env:"DISCORD_APPLICATION_ID"`

	GuildID string `env:"DISCORD_GUILD_ID"`

	ShardCount int `env:"SHARD_COUNT" envDefault:"0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	AutoLeave bool   `env:"AUTO_LEAVE" envDefault:"true"`

	Resolver string `env:"RESOLVER" envDefault:"ytmusic"`
	Streamer string `env:"STREAMER" envDefault:"ytdlp"`
	Related  string `env:"RELATED" envDefault:"ytmusic"`

	YTDLPPath      string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath     string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	StreamProxyURL string `env:"STREAM_PROXY_URL"`
	YouTubeAPIKey  string `env:"YOUTUBE_API_KEY"`

	SimilarLimit    int           `env:"SIMILAR_LIMIT" envDefault:"10"`
	SimilarRate     float64       `env:"SIMILAR_RATE" envDefault:"2"`
	ResolveCacheTTL time.Duration `env:"RESOLVE_CACHE_TTL" envDefault:"6h"`

	DBHost     string `env:"DB_HOST"`
	DBPort     int    `env:"DB_PORT"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}

	if c.ApplicationID == "" {
		return errors.New("DISCORD_APPLICATION_ID is required")
	}

	switch c.Resolver {
	case ResolverYTDLP, ResolverYTMusic:
	case ResolverYouTube:
		if c.YouTubeAPIKey == "" {
			return errors.New("YOUTUBE_API_KEY is required when RESOLVER=youtube")
		}
	default:
		return fmt.Errorf("RESOLVER must be one of ytdlp, ytmusic, youtube (got %q)", c.Resolver)
	}

	switch c.Streamer {
	case StreamerYTDLP, StreamerKKDAI:
	case StreamerProxy:
		if c.StreamProxyURL == "" {
			return errors.New("STREAM_PROXY_URL is required when STREAMER=proxy")
		}
	default:
		return fmt.Errorf("STREAMER must be one of ytdlp, kkdai, proxy (got %q)", c.Streamer)
	}

	switch c.Related {
	case RelatedYTMusic:
	case RelatedSpotify:
		if !c.HasSpotify() {
			return errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required when RELATED=spotify")
		}
	default:
		return fmt.Errorf("RELATED must be one of spotify, ytmusic (got %q)", c.Related)
	}

	if c.SimilarLimit < 1 || c.SimilarLimit > 50 {
		return errors.New("SIMILAR_LIMIT must be between 1 and 50")
	}

	if c.SimilarRate <= 0 {
		return errors.New("SIMILAR_RATE must be positive")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.GuildID != ""
}

func (c *Config) HasSpotify() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

func (c *Config) HasDatabase() bool {
	return c.DBHost != "" && c.DBName != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisHost != ""
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c *Config) GetDBConfig() *DBConfig {
	return &DBConfig{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c *Config) GetRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
