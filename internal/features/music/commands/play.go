package commands

import (
	"context"
	"errors"
	"fmt"

	shared "github.com/hxnx/rockola/internal/features/shared"
	"github.com/hxnx/rockola/internal/music"
)

func (h *Handlers) Play(ctx context.Context, r shared.Responder, req Request) {
	channelID, ok := h.voiceChannel(r, "play", req)
	if !ok {
		return
	}
	if !h.deferReply(r, "play") {
		return
	}

	res, err := h.Service.Play(ctx, req.GuildID, channelID, req.Query, req.UserID)
	switch {
	case errors.Is(err, music.ErrNotFound):
		h.edit(r, "play", notFoundMessage(req.Query))
	case err != nil && res.Track.Title == "":
		h.fail(r, "play failed", err, "guild_id", req.GuildID, "query", req.Query)
	default:
		if err != nil {
			// The track was accepted but could not be started; the user
			// still gets the confirmation.
			h.Log.Error("play failed after resolution", "guild_id", req.GuildID, "title", res.Track.Title, "error", err)
		}
		h.edit(r, "play", fmt.Sprintf("Se agregó **%s** de **%s** a la cola", res.Track.Title, res.Track.Artist))
	}
}

func (h *Handlers) Similar(ctx context.Context, r shared.Responder, req Request) {
	channelID, ok := h.voiceChannel(r, "similar", req)
	if !ok {
		return
	}
	if !h.deferReply(r, "similar") {
		return
	}

	res, err := h.Service.Similar(ctx, req.GuildID, channelID, req.Query, req.UserID)
	switch {
	case errors.Is(err, music.ErrNotFound):
		h.edit(r, "similar", notFoundMessage(req.Query))
		return
	case err != nil && res.Seed.Title == "":
		h.fail(r, "similar failed", err, "guild_id", req.GuildID, "query", req.Query)
		return
	case err != nil:
		// The seed was accepted and the related tracks are being added.
		h.Log.Error("similar failed after resolution", "guild_id", req.GuildID, "title", res.Seed.Title, "error", err)
	}

	h.edit(r, "similar", fmt.Sprintf("Se agregó **%s** de **%s** y %d canciones similares a la cola",
		res.Seed.Title, res.Seed.Artist, res.Related))
}

// voiceChannel replies on its own when the request cannot go further.
func (h *Handlers) voiceChannel(r shared.Responder, command string, req Request) (string, bool) {
	if req.GuildID == "" {
		h.reply(r, command, msgGuildOnly)
		return "", false
	}

	channelID, err := h.Locate(req.GuildID, req.UserID)
	if err != nil || channelID == "" {
		h.reply(r, command, msgNoVoiceChannel)
		return "", false
	}
	return channelID, true
}

func notFoundMessage(query string) string {
	return fmt.Sprintf("No se encontraron resultados para **%s**", query)
}
