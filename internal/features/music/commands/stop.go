package commands

import (
	"context"

	shared "github.com/hxnx/rockola/internal/features/shared"
)

func (h *Handlers) Stop(_ context.Context, r shared.Responder, req Request) {
	if req.GuildID == "" {
		h.reply(r, "stop", msgGuildOnly)
		return
	}
	if !h.deferReply(r, "stop") {
		return
	}

	h.Service.Stop(req.GuildID)
	h.edit(r, "stop", "Se detuvo la reproducción")
}
