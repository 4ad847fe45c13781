package music

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyRadio finds related tracks through Spotify recommendations seeded
// with the Spotify match of the seed track.
type SpotifyRadio struct {
	client *spotify.Client
}

func NewSpotifyRadio(ctx context.Context, clientID, clientSecret string) *SpotifyRadio {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return &SpotifyRadio{client: spotify.New(cfg.Client(ctx))}
}

func newSpotifyRadioWithClient(httpClient *http.Client, opts ...spotify.ClientOption) *SpotifyRadio {
	return &SpotifyRadio{client: spotify.New(httpClient, opts...)}
}

func (r *SpotifyRadio) Related(ctx context.Context, seed Track, limit int) ([]Track, error) {
	query := spotifySeedQuery(seed)
	if query == "" {
		return nil, fmt.Errorf("%w: empty seed", ErrResolveFailed)
	}

	result, err := r.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("%w: spotify search: %v", ErrResolveFailed, err)
	}
	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, ErrNotFound
	}
	seedID := result.Tracks.Tracks[0].ID

	recs, err := r.client.GetRecommendations(ctx, spotify.Seeds{Tracks: []spotify.ID{seedID}}, nil, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: spotify recommendations: %v", ErrResolveFailed, err)
	}

	related := make([]Track, 0, len(recs.Tracks))
	for _, t := range recs.Tracks {
		if t.ID == seedID {
			continue
		}
		related = append(related, Track{
			Title:  t.Name,
			Artist: spotifyArtists(t.Artists),
			Source: TrackSourceSpotify,
		})
		if len(related) == limit {
			break
		}
	}
	return related, nil
}

func spotifySeedQuery(seed Track) string {
	title := strings.TrimSpace(seed.Title)
	if title == "" {
		return ""
	}
	if artist := strings.TrimSpace(seed.Artist); artist != "" {
		return fmt.Sprintf("track:%s artist:%s", title, artist)
	}
	return title
}

func spotifyArtists(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	// The primary artist is enough to find the song again.
	return artists[0].Name
}
