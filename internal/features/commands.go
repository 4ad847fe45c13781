package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	musiccmd "github.com/hxnx/rockola/internal/features/music/commands"
	pingcmd "github.com/hxnx/rockola/internal/features/ping/commands"
	shared "github.com/hxnx/rockola/internal/features/shared"
)

const (
	songOption         = "canción"
	interactionTimeout = 60 * time.Second
)

var CommandList = []*discordgo.ApplicationCommand{
	{
		Name:        "play",
		Description: "Reproduce una canción o la agrega a la cola",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        songOption,
				Description: "Nombre o URL de la canción",
				Required:    true,
			},
		},
	},
	{
		Name:        "similar",
		Description: "Agrega una canción y otras similares a la cola",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        songOption,
				Description: "Nombre o URL de la canción",
				Required:    true,
			},
		},
	},
	{
		Name:        "skip",
		Description: "Omite la canción actual",
	},
	{
		Name:        "stop",
		Description: "Detiene la reproducción y vacía la cola",
	},
	{
		Name:        "historial",
		Description: "Muestra las últimas canciones reproducidas",
	},
	{
		Name:        "ping",
		Description: "Muestra el estado del bot",
	},
}

type commandFunc func(ctx context.Context, r shared.Responder, req musiccmd.Request)

// Router dispatches slash commands to their handlers.
type Router struct {
	music *musiccmd.Handlers
	log   *slog.Logger
}

func NewRouter(music *musiccmd.Handlers, logger *slog.Logger) *Router {
	return &Router{music: music, log: logger.With("component", "commands")}
}

func RegisterCommands(s *discordgo.Session, appID, guildID string, logger *slog.Logger) ([]*discordgo.ApplicationCommand, error) {
	scope := "global"
	if guildID != "" {
		scope = fmt.Sprintf("guild:%s", guildID)
	}

	logger.Info("registering commands", "count", len(CommandList), "scope", scope)

	cmds, err := s.ApplicationCommandBulkOverwrite(appID, guildID, CommandList)
	if err != nil {
		return nil, fmt.Errorf("cannot bulk overwrite commands: %w", err)
	}
	return cmds, nil
}

func (r *Router) AddHandlers(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		r.handleCommand(s, i)
	})
}

func (r *Router) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	responder := shared.NewDiscordResponder(s, i.Interaction)

	if data.Name == "ping" {
		if err := pingcmd.Ping(s, responder); err != nil {
			r.log.Error("failed to respond to ping", "error", err)
		}
		return
	}

	handler := r.musicHandler(data.Name)
	if handler == nil {
		r.log.Warn("unknown command", "name", data.Name)
		return
	}

	req := musiccmd.Request{
		GuildID: i.GuildID,
		UserID:  shared.GetInteractionUserID(i),
		Query:   shared.GetOptionString(data.Options, songOption),
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	r.log.Debug("command received", "name", data.Name, "guild_id", req.GuildID, "user_id", req.UserID)
	handler(ctx, responder, req)
}

func (r *Router) musicHandler(name string) commandFunc {
	switch name {
	case "play":
		return r.music.Play
	case "similar":
		return r.music.Similar
	case "skip":
		return r.music.Skip
	case "stop":
		return r.music.Stop
	case "historial":
		return r.music.History
	default:
		return nil
	}
}
