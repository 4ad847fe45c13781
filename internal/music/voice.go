package music

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	voiceReadyTimeout = 30 * time.Second
	voicePollInterval = 100 * time.Millisecond
	opusSendTimeout   = time.Second
)

// VoiceConnection is a guild's live voice connection.
type VoiceConnection interface {
	OpusSink
	ChannelID() string
	Ready() bool
	Disconnect() error
}

// Dialer joins a voice channel. The returned connection may not be ready yet.
type Dialer interface {
	JoinVoice(guildID, channelID string) (VoiceConnection, error)
}

// VoiceManager keeps at most one voice connection per guild and attaches
// the guild's Player to it.
type VoiceManager struct {
	dialer       Dialer
	players      *PlayerManager
	locks        *guildLocks
	readyTimeout time.Duration
	pollInterval time.Duration
	log          *slog.Logger

	mu    sync.Mutex
	conns map[string]VoiceConnection
}

func NewVoiceManager(dialer Dialer, players *PlayerManager, logger *slog.Logger) *VoiceManager {
	return &VoiceManager{
		dialer:       dialer,
		players:      players,
		locks:        newGuildLocks(),
		readyTimeout: voiceReadyTimeout,
		pollInterval: voicePollInterval,
		log:          logger.With("component", "voice"),
		conns:        make(map[string]VoiceConnection),
	}
}

type dialResult struct {
	conn VoiceConnection
	err  error
}

// Connect returns a ready connection to channelID, reusing the guild's
// current one when it is already there. A connection that is not ready
// within 30 s is torn down and ErrConnectionTimeout is returned.
func (m *VoiceManager) Connect(ctx context.Context, guildID, channelID string) (VoiceConnection, error) {
	unlock := m.locks.lock(guildID)
	defer unlock()

	if conn, ok := m.get(guildID); ok && conn.Ready() && conn.ChannelID() == channelID {
		return conn, nil
	}

	timer := time.NewTimer(m.readyTimeout)
	defer timer.Stop()

	results := make(chan dialResult, 1)
	go func() {
		conn, err := m.dialer.JoinVoice(guildID, channelID)
		results <- dialResult{conn: conn, err: err}
	}()

	var conn VoiceConnection
	select {
	case r := <-results:
		if r.err != nil {
			if r.conn != nil {
				_ = r.conn.Disconnect()
			}
			m.forget(guildID)
			return nil, fmt.Errorf("%w: %v", ErrConnectionTimeout, r.err)
		}
		conn = r.conn
	case <-timer.C:
		m.abandon(guildID, results)
		return nil, ErrConnectionTimeout
	case <-ctx.Done():
		m.abandon(guildID, results)
		return nil, ctx.Err()
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for !conn.Ready() {
		select {
		case <-ticker.C:
		case <-timer.C:
			m.log.Warn("voice connection not ready, disconnecting", "guild_id", guildID, "channel_id", channelID)
			_ = conn.Disconnect()
			m.forget(guildID)
			return nil, ErrConnectionTimeout
		case <-ctx.Done():
			_ = conn.Disconnect()
			m.forget(guildID)
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	m.conns[guildID] = conn
	m.mu.Unlock()

	m.players.Get(guildID).Attach(conn)
	m.log.Info("joined voice channel", "guild_id", guildID, "channel_id", channelID)
	return conn, nil
}

// Disconnect leaves the guild's voice channel. It is a no-op when the bot
// is not connected there.
func (m *VoiceManager) Disconnect(guildID string) error {
	unlock := m.locks.lock(guildID)
	defer unlock()

	conn, ok := m.get(guildID)
	if !ok {
		return nil
	}

	m.forget(guildID)
	if err := conn.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect voice: %w", err)
	}
	m.log.Info("left voice channel", "guild_id", guildID)
	return nil
}

func (m *VoiceManager) DisconnectAll() {
	m.mu.Lock()
	guildIDs := make([]string, 0, len(m.conns))
	for guildID := range m.conns {
		guildIDs = append(guildIDs, guildID)
	}
	m.mu.Unlock()

	for _, guildID := range guildIDs {
		if err := m.Disconnect(guildID); err != nil {
			m.log.Warn("disconnect failed", "guild_id", guildID, "error", err)
		}
	}
}

// ChannelID reports the channel the bot is connected to in a guild.
func (m *VoiceManager) ChannelID(guildID string) (string, bool) {
	conn, ok := m.get(guildID)
	if !ok {
		return "", false
	}
	return conn.ChannelID(), true
}

func (m *VoiceManager) get(guildID string) (VoiceConnection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[guildID]
	return conn, ok
}

func (m *VoiceManager) forget(guildID string) {
	m.mu.Lock()
	delete(m.conns, guildID)
	m.mu.Unlock()
	m.players.Get(guildID).Detach()
}

// abandon disconnects a join that is still in flight once it completes.
func (m *VoiceManager) abandon(guildID string, results <-chan dialResult) {
	m.forget(guildID)
	go func() {
		if r := <-results; r.conn != nil {
			_ = r.conn.Disconnect()
		}
	}()
}

// DiscordDialer joins voice channels through the gateway session that owns
// the guild's shard.
type DiscordDialer struct {
	SessionFor func(guildID string) *discordgo.Session
	Log        *slog.Logger
}

func (d DiscordDialer) JoinVoice(guildID, channelID string) (VoiceConnection, error) {
	s := d.SessionFor(guildID)
	if s == nil {
		return nil, fmt.Errorf("no gateway session for guild %s", guildID)
	}

	vc, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return &discordVoice{vc: vc, log: d.Log}, nil
}

type discordVoice struct {
	vc  *discordgo.VoiceConnection
	log *slog.Logger
}

func (v *discordVoice) SendOpus(ctx context.Context, packet []byte) error {
	select {
	case v.vc.OpusSend <- packet:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(opusSendTimeout):
		v.log.Warn("timeout sending opus frame", "guild_id", v.vc.GuildID)
	}
	return nil
}

func (v *discordVoice) Speaking(speaking bool) {
	if !v.Ready() {
		return
	}
	_ = v.vc.Speaking(speaking)
}

func (v *discordVoice) ChannelID() string {
	v.vc.RLock()
	defer v.vc.RUnlock()
	return v.vc.ChannelID
}

func (v *discordVoice) Ready() bool {
	v.vc.RLock()
	defer v.vc.RUnlock()
	return v.vc.Ready
}

func (v *discordVoice) Disconnect() error {
	return v.vc.Disconnect()
}

// FindUserVoiceChannel returns the voice channel a member is connected to
// in a guild, or ErrNoVoiceChannel.
func FindUserVoiceChannel(s *discordgo.Session, guildID, userID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("discord session is nil")
	}

	if s.State != nil {
		if vs, err := s.State.VoiceState(guildID, userID); err == nil && vs.ChannelID != "" {
			return vs.ChannelID, nil
		}
	}

	guild, err := s.Guild(guildID)
	if err != nil {
		return "", err
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, nil
		}
	}

	return "", ErrNoVoiceChannel
}
