package shared

import (
	"github.com/bwmarrin/discordgo"
)

const maxContentLength = 2000

// Responder answers a single interaction. Handlers talk to it instead of
// the session so they can run without a gateway connection.
type Responder interface {
	// Reply sends an immediate message response.
	Reply(content string) error
	// Defer acknowledges the interaction; the reply is filled in later by Edit.
	Defer() error
	Edit(content string) error
	// Delete removes a deferred reply that never got content.
	Delete() error
}

type DiscordResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func NewDiscordResponder(s *discordgo.Session, i *discordgo.Interaction) *DiscordResponder {
	return &DiscordResponder{session: s, interaction: i}
}

func (r *DiscordResponder) Reply(content string) error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: truncate(content)},
	})
}

func (r *DiscordResponder) Defer() error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func (r *DiscordResponder) Edit(content string) error {
	content = truncate(content)
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{Content: &content})
	return err
}

func (r *DiscordResponder) Delete() error {
	return r.session.InteractionResponseDelete(r.interaction)
}

func truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= maxContentLength {
		return content
	}
	return string(runes[:maxContentLength-1]) + "…"
}

func GetOptionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func GetInteractionUserID(i *discordgo.InteractionCreate) string {
	if i == nil {
		return ""
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
