package commands

import (
	"context"
	"log/slog"

	"github.com/hxnx/rockola/internal/database"
	shared "github.com/hxnx/rockola/internal/features/shared"
	"github.com/hxnx/rockola/internal/music"
)

const (
	msgGuildOnly      = "Este comando solo funciona en un servidor"
	msgNoVoiceChannel = "Debes estar en un canal de voz!"
)

// MusicService is what the music commands need from music.Service.
type MusicService interface {
	Play(ctx context.Context, guildID, channelID, query, requestedBy string) (music.PlayResult, error)
	Similar(ctx context.Context, guildID, channelID, query, requestedBy string) (music.SimilarResult, error)
	Skip(ctx context.Context, guildID string) error
	Stop(guildID string)
}

type HistorySource interface {
	Recent(ctx context.Context, guildID string, limit int) ([]database.HistoryEntry, error)
}

// VoiceLocator returns the voice channel the user is connected to.
type VoiceLocator func(guildID, userID string) (string, error)

// Request is the part of a slash command invocation the handlers read.
type Request struct {
	GuildID string
	UserID  string
	Query   string
}

type Handlers struct {
	Service MusicService
	Plays   HistorySource
	Locate  VoiceLocator
	Log     *slog.Logger
}

// fail logs err and removes the deferred reply so the user is left with
// nothing rather than a stuck "thinking" message.
func (h *Handlers) fail(r shared.Responder, msg string, err error, args ...any) {
	h.Log.Error(msg, append(args, "error", err)...)
	if delErr := r.Delete(); delErr != nil {
		h.Log.Warn("failed to delete deferred reply", "error", delErr)
	}
}

func (h *Handlers) deferReply(r shared.Responder, command string) bool {
	if err := r.Defer(); err != nil {
		h.Log.Error("failed to defer interaction", "command", command, "error", err)
		return false
	}
	return true
}

func (h *Handlers) edit(r shared.Responder, command, content string) {
	if err := r.Edit(content); err != nil {
		h.Log.Error("failed to edit reply", "command", command, "error", err)
	}
}

func (h *Handlers) reply(r shared.Responder, command, content string) {
	if err := r.Reply(content); err != nil {
		h.Log.Error("failed to reply", "command", command, "error", err)
	}
}
