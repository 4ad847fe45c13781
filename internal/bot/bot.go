package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lmittmann/tint"

	"github.com/hxnx/rockola/config"
	"github.com/hxnx/rockola/internal/database"
	commands "github.com/hxnx/rockola/internal/features"
	musiccmd "github.com/hxnx/rockola/internal/features/music/commands"
	musiclisteners "github.com/hxnx/rockola/internal/features/music/listeners"
	"github.com/hxnx/rockola/internal/music"
	"github.com/hxnx/rockola/internal/redis"
)

type Bot struct {
	config       *config.Config
	log          *slog.Logger
	sessions     []*discordgo.Session
	started      bool
	stopPresence context.CancelFunc

	voice   *music.VoiceManager
	service *music.Service
	router  *commands.Router
	leaver  *musiclisteners.VoiceStateListener
}

func NewLogger(cfg *config.Config) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.SlogLevel(),
		TimeFormat: time.DateTime,
	}))
}

func New(cfg *config.Config, logger *slog.Logger) (*Bot, error) {
	b := &Bot{config: cfg, log: logger}

	sessions, err := newSessions(cfg, logger)
	if err != nil {
		return nil, err
	}
	b.sessions = sessions

	if err := b.wire(); err != nil {
		return nil, err
	}
	return b, nil
}

func newSessions(cfg *config.Config, logger *slog.Logger) ([]*discordgo.Session, error) {
	shardCount := cfg.ShardCount
	if shardCount < 1 {
		s, err := discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return nil, err
		}

		if gw, err := s.GatewayBot(); err == nil && gw.Shards > 0 {
			shardCount = gw.Shards
		} else {
			logger.Warn("failed to auto-detect shard count, defaulting to 1", "error", err)
			shardCount = 1
		}
	}

	sessions := make([]*discordgo.Session, 0, shardCount)
	for shard := range shardCount {
		s, err := discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return nil, err
		}

		s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

		if shardCount > 1 {
			s.Identify.Shard = &[2]int{shard, shardCount}
			s.ShardCount = shardCount
		}

		sessions = append(sessions, s)
	}
	return sessions, nil
}

// wire builds the playback stack. Postgres and Redis are optional: without
// them there is no play history and no resolve cache.
func (b *Bot) wire() error {
	cfg := b.config
	ctx := context.Background()

	var recorder *database.HistoryRepository
	if cfg.HasDatabase() {
		dbConfig := &database.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}
		if err := database.Initialize(dbConfig); err != nil {
			b.log.Warn("database initialization failed, play history disabled", "error", err)
		} else {
			recorder = database.NewHistoryRepository(database.GetDB())
		}
	}

	resolver, err := b.newResolver(ctx)
	if err != nil {
		return err
	}

	if cfg.HasRedis() {
		redisConfig := redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		if client, err := redis.Init(redisConfig); err != nil {
			b.log.Warn("redis initialization failed, resolve cache disabled", "error", err)
		} else {
			resolver = music.NewCachedResolver(resolver, music.NewRedisKV(client), cfg.ResolveCacheTTL, b.log)
		}
	}

	players := music.NewPlayerManager(music.NewFFmpegEncoder(cfg.FFmpegPath, b.log), b.log)
	b.voice = music.NewVoiceManager(&music.DiscordDialer{SessionFor: b.sessionFor, Log: b.log}, players, b.log)

	orchestrator := music.NewOrchestrator(music.NewQueueStore(), players, b.newStreamer(), b.log)
	if recorder != nil {
		orchestrator.WithRecorder(recorder)
	}

	b.service = music.NewService(music.ServiceConfig{
		Voice:        b.voice,
		Resolver:     resolver,
		Related:      b.newRelated(ctx),
		Orchestrator: orchestrator,
		SimilarLimit: cfg.SimilarLimit,
		SimilarRate:  cfg.SimilarRate,
		Logger:       b.log,
	})

	handlers := &musiccmd.Handlers{
		Service: b.service,
		Locate: func(guildID, userID string) (string, error) {
			return music.FindUserVoiceChannel(b.sessionFor(guildID), guildID, userID)
		},
		Log: b.log.With("component", "music_commands"),
	}
	if recorder != nil {
		handlers.Plays = recorder
	}

	b.router = commands.NewRouter(handlers, b.log)
	b.leaver = &musiclisteners.VoiceStateListener{Leaver: b.service, Log: b.log.With("component", "auto_leave")}
	return nil
}

func (b *Bot) newResolver(ctx context.Context) (music.Resolver, error) {
	switch b.config.Resolver {
	case config.ResolverYTDLP:
		return music.NewYTDLPResolver(b.config.YTDLPPath), nil
	case config.ResolverYouTube:
		r, err := music.NewYouTubeAPIResolver(ctx, b.config.YouTubeAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create youtube resolver: %w", err)
		}
		return r, nil
	default:
		return music.NewYTMusicResolver(), nil
	}
}

func (b *Bot) newStreamer() music.Streamer {
	switch b.config.Streamer {
	case config.StreamerKKDAI:
		return music.NewKKDAIStreamer()
	case config.StreamerProxy:
		return music.NewProxyStreamer(b.config.StreamProxyURL)
	default:
		return music.NewYTDLPStreamer(b.config.YTDLPPath, b.log)
	}
}

func (b *Bot) newRelated(ctx context.Context) music.RelatedFinder {
	if b.config.Related == config.RelatedSpotify {
		return music.NewSpotifyRadio(ctx, b.config.SpotifyClientID, b.config.SpotifyClientSecret)
	}
	return music.NewYTMusicRadio()
}

// sessionFor returns the shard session that receives events for guildID.
func (b *Bot) sessionFor(guildID string) *discordgo.Session {
	return b.sessions[shardFor(guildID, len(b.sessions))]
}

func shardFor(guildID string, shardCount int) int {
	if shardCount <= 1 {
		return 0
	}
	id, err := snowflake.Parse(guildID)
	if err != nil {
		return 0
	}
	return int((uint64(id) >> 22) % uint64(shardCount))
}

func (b *Bot) Start() error {
	if b.started {
		return nil
	}

	if len(b.sessions) == 0 {
		return nil
	}

	for _, s := range b.sessions {
		b.registerHandlers(s)
		b.router.AddHandlers(s)
	}

	if _, err := commands.RegisterCommands(b.sessions[0], b.config.ApplicationID, b.config.GuildID, b.log); err != nil {
		b.log.Warn("failed to register slash commands", "error", err)
	}

	for _, s := range b.sessions {
		if err := s.Open(); err != nil {
			return err
		}
	}

	presenceCtx, cancel := context.WithCancel(context.Background())
	b.stopPresence = cancel
	go b.runPresence(presenceCtx)

	b.started = true
	b.log.Info("bot session opened", "shards", len(b.sessions))
	return nil
}

func (b *Bot) registerHandlers(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("bot ready", "user", r.User.Username, "shard", s.ShardID, "guilds", len(r.Guilds))
		b.updatePresence()
	})

	if b.config.AutoLeave {
		s.AddHandler(b.leaver.HandleVoiceStateUpdate)
	}
}

func (b *Bot) Stop() error {
	if !b.started {
		return nil
	}

	b.started = false
	b.stopPresence()

	b.service.Close()
	b.voice.DisconnectAll()

	for _, s := range b.sessions {
		if err := s.Close(); err != nil {
			return err
		}
	}

	if err := database.Close(); err != nil {
		b.log.Warn("failed to close database", "error", err)
	}

	if err := redis.Close(); err != nil {
		b.log.Warn("failed to close redis", "error", err)
	}

	b.log.Info("bot session closed", "shards", len(b.sessions))
	return nil
}
