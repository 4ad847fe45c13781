package listeners

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

type Leaver interface {
	Leave(guildID string) error
}

// VoiceStateListener makes the bot leave a guild's voice channel once no
// one else is left in it, or once the bot was moved out of it.
type VoiceStateListener struct {
	Leaver Leaver
	Log    *slog.Logger
}

func (l *VoiceStateListener) HandleVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if s == nil || vs == nil || vs.GuildID == "" {
		return
	}

	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	if botID == "" {
		return
	}

	if vs.UserID == botID && vs.ChannelID == "" {
		l.leave(vs.GuildID, "disconnected")
		return
	}

	guild := getGuildWithVoiceStates(s, vs.GuildID)
	if guild == nil {
		return
	}

	if _, alone := aloneInChannel(guild.VoiceStates, botID); alone {
		l.leave(vs.GuildID, "channel empty")
	}
}

func (l *VoiceStateListener) leave(guildID, reason string) {
	if err := l.Leaver.Leave(guildID); err != nil {
		l.Log.Warn("auto-leave failed", "guild_id", guildID, "reason", reason, "error", err)
		return
	}
	l.Log.Info("left voice channel", "guild_id", guildID, "reason", reason)
}

// aloneInChannel reports the bot's channel and whether nobody else is in it.
func aloneInChannel(states []*discordgo.VoiceState, botID string) (string, bool) {
	botChannelID := ""
	for _, state := range states {
		if state.UserID == botID && state.ChannelID != "" {
			botChannelID = state.ChannelID
			break
		}
	}
	if botChannelID == "" {
		return "", false
	}

	for _, state := range states {
		if state.ChannelID == botChannelID && state.UserID != botID {
			return botChannelID, false
		}
	}
	return botChannelID, true
}

func getGuildWithVoiceStates(s *discordgo.Session, guildID string) *discordgo.Guild {
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g
		}
	}
	g, err := s.Guild(guildID)
	if err != nil {
		return nil
	}
	return g
}
