package shared

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

func TestTruncate(t *testing.T) {
	short := "Se omitió la canción"
	if got := truncate(short); got != short {
		t.Errorf("expected short content unchanged, got %q", got)
	}

	long := strings.Repeat("ñ", maxContentLength+10)
	got := truncate(long)
	if n := utf8.RuneCountInString(got); n != maxContentLength {
		t.Errorf("expected %d runes, got %d", maxContentLength, n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("expected an ellipsis at the end")
	}
}

func TestGetInteractionUserID(t *testing.T) {
	tests := []struct {
		name string
		i    *discordgo.InteractionCreate
		want string
	}{
		{name: "nil", i: nil, want: ""},
		{
			name: "guild member",
			i: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
				Member: &discordgo.Member{User: &discordgo.User{ID: "10"}},
			}},
			want: "10",
		},
		{
			name: "direct message user",
			i:    &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "20"}}},
			want: "20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetInteractionUserID(tt.i); got != tt.want {
				t.Errorf("GetInteractionUserID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetOptionString(t *testing.T) {
	options := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "canción", Type: discordgo.ApplicationCommandOptionString, Value: "Song X"},
	}
	if got := GetOptionString(options, "canción"); got != "Song X" {
		t.Errorf("expected Song X, got %q", got)
	}
	if got := GetOptionString(options, "otra"); got != "" {
		t.Errorf("expected empty value for a missing option, got %q", got)
	}
}
