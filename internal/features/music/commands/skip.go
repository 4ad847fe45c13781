package commands

import (
	"context"

	shared "github.com/hxnx/rockola/internal/features/shared"
)

func (h *Handlers) Skip(ctx context.Context, r shared.Responder, req Request) {
	if req.GuildID == "" {
		h.reply(r, "skip", msgGuildOnly)
		return
	}
	// The next track may take a few seconds to start.
	if !h.deferReply(r, "skip") {
		return
	}

	if err := h.Service.Skip(ctx, req.GuildID); err != nil {
		h.Log.Error("skip failed", "guild_id", req.GuildID, "error", err)
	}
	h.edit(r, "skip", "Se omitió la canción")
}
