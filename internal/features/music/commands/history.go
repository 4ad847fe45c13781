package commands

import (
	"context"
	"fmt"
	"strings"

	shared "github.com/hxnx/rockola/internal/features/shared"
)

const historyLimit = 10

func (h *Handlers) History(ctx context.Context, r shared.Responder, req Request) {
	if req.GuildID == "" {
		h.reply(r, "historial", msgGuildOnly)
		return
	}
	if !h.deferReply(r, "historial") {
		return
	}

	if h.Plays == nil {
		h.edit(r, "historial", "Todavía no se reprodujo ninguna canción")
		return
	}

	entries, err := h.Plays.Recent(ctx, req.GuildID, historyLimit)
	if err != nil {
		h.fail(r, "history lookup failed", err, "guild_id", req.GuildID)
		return
	}
	if len(entries) == 0 {
		h.edit(r, "historial", "Todavía no se reprodujo ninguna canción")
		return
	}

	var b strings.Builder
	b.WriteString("**Últimas canciones reproducidas**")
	for n, e := range entries {
		fmt.Fprintf(&b, "\n%d. **%s**", n+1, e.Title)
		if e.Artist != "" {
			fmt.Fprintf(&b, " de **%s**", e.Artist)
		}
		fmt.Fprintf(&b, " <t:%d:R>", e.PlayedAt.Unix())
	}
	h.edit(r, "historial", b.String())
}
