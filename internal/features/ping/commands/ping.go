package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/hxnx/rockola/internal/features/ping"
	shared "github.com/hxnx/rockola/internal/features/shared"
)

func Ping(s *discordgo.Session, r shared.Responder) error {
	return r.Reply(ping.StatusOf(s).Message())
}
