package config

import (
	"log/slog"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("DISCORD_APPLICATION_ID", "1234")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Resolver != ResolverYTMusic {
		t.Errorf("expected resolver %q, got %q", ResolverYTMusic, cfg.Resolver)
	}
	if cfg.Streamer != StreamerYTDLP {
		t.Errorf("expected streamer %q, got %q", StreamerYTDLP, cfg.Streamer)
	}
	if cfg.SimilarLimit != 10 {
		t.Errorf("expected similar limit 10, got %d", cfg.SimilarLimit)
	}
	if cfg.ResolveCacheTTL != 6*time.Hour {
		t.Errorf("expected cache ttl 6h, got %s", cfg.ResolveCacheTTL)
	}
	if !cfg.AutoLeave {
		t.Error("expected auto leave to default to true")
	}
	if cfg.IsDevelopment() {
		t.Error("expected production mode without DISCORD_GUILD_ID")
	}
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_APPLICATION_ID", "1234")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing token, got nil")
	}
}

func TestLoad_MissingApplicationID(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("DISCORD_APPLICATION_ID", "")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing application id, got nil")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			DiscordToken:  "token",
			ApplicationID: "app",
			Resolver:      ResolverYTDLP,
			Streamer:      StreamerYTDLP,
			Related:       RelatedYTMusic,
			SimilarLimit:  10,
			SimilarRate:   2,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown resolver", mutate: func(c *Config) { c.Resolver = "napster" }, wantErr: true},
		{name: "youtube resolver without key", mutate: func(c *Config) { c.Resolver = ResolverYouTube }, wantErr: true},
		{
			name: "youtube resolver with key",
			mutate: func(c *Config) {
				c.Resolver = ResolverYouTube
				c.YouTubeAPIKey = "key"
			},
		},
		{name: "unknown streamer", mutate: func(c *Config) { c.Streamer = "vlc" }, wantErr: true},
		{name: "proxy streamer without url", mutate: func(c *Config) { c.Streamer = StreamerProxy }, wantErr: true},
		{name: "spotify related without credentials", mutate: func(c *Config) { c.Related = RelatedSpotify }, wantErr: true},
		{
			name: "spotify related with credentials",
			mutate: func(c *Config) {
				c.Related = RelatedSpotify
				c.SpotifyClientID = "id"
				c.SpotifyClientSecret = "secret"
			},
		},
		{name: "similar limit too small", mutate: func(c *Config) { c.SimilarLimit = 0 }, wantErr: true},
		{name: "similar rate zero", mutate: func(c *Config) { c.SimilarRate = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}

	for raw, want := range tests {
		cfg := Config{LogLevel: raw}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("LogLevel %q: expected %v, got %v", raw, want, got)
		}
	}
}
