package music

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raitonoberu/ytmusic"
)

const ytMusicWatchURL = "https://music.youtube.com/watch?v="

type ytMusicItem struct {
	VideoID  string
	Title    string
	Artists  []string
	Duration time.Duration
}

func (item ytMusicItem) track() Track {
	return Track{
		Title:    strings.TrimSpace(item.Title),
		Artist:   strings.Join(item.Artists, ", "),
		Locator:  ytMusicWatchURL + item.VideoID,
		Source:   TrackSourceYouTubeMusic,
		Duration: item.Duration,
	}
}

func fromYTMusic(items []*ytmusic.TrackItem) []ytMusicItem {
	out := make([]ytMusicItem, 0, len(items))
	for _, it := range items {
		if it == nil || it.VideoID == "" {
			continue
		}
		artists := make([]string, 0, len(it.Artists))
		for _, a := range it.Artists {
			if a.Name != "" {
				artists = append(artists, a.Name)
			}
		}
		out = append(out, ytMusicItem{
			VideoID:  it.VideoID,
			Title:    it.Title,
			Artists:  artists,
			Duration: time.Duration(it.Duration) * time.Second,
		})
	}
	return out
}

func searchYTMusic(_ context.Context, query string) ([]ytMusicItem, error) {
	result, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil, err
	}
	return fromYTMusic(result.Tracks), nil
}

func watchPlaylistYTMusic(_ context.Context, videoID string) ([]ytMusicItem, error) {
	items, err := ytmusic.GetWatchPlaylist(videoID)
	if err != nil {
		return nil, err
	}
	return fromYTMusic(items), nil
}

// YTMusicResolver searches YouTube Music songs. YouTube and YouTube Music
// URLs are resolved by looking up their video id.
type YTMusicResolver struct {
	search func(ctx context.Context, query string) ([]ytMusicItem, error)
	watch  func(ctx context.Context, videoID string) ([]ytMusicItem, error)
}

func NewYTMusicResolver() *YTMusicResolver {
	return &YTMusicResolver{search: searchYTMusic, watch: watchPlaylistYTMusic}
}

func (r *YTMusicResolver) Resolve(ctx context.Context, query string) (Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Track{}, fmt.Errorf("%w: empty input", ErrResolveFailed)
	}

	if looksLikeURL(query) {
		return r.resolveURL(ctx, query)
	}

	items, err := r.search(ctx, query)
	if err != nil {
		return Track{}, fmt.Errorf("%w: ytmusic search: %v", ErrResolveFailed, err)
	}
	if len(items) == 0 {
		return Track{}, ErrNotFound
	}
	return items[0].track(), nil
}

func (r *YTMusicResolver) resolveURL(ctx context.Context, raw string) (Track, error) {
	videoID := youtubeVideoID(raw)
	if videoID == "" {
		return Track{}, ErrNotFound
	}

	// The watch playlist of a video starts with the video itself.
	items, err := r.watch(ctx, videoID)
	if err != nil {
		return Track{}, fmt.Errorf("%w: ytmusic watch playlist: %v", ErrResolveFailed, err)
	}
	for _, it := range items {
		if it.VideoID == videoID {
			return it.track(), nil
		}
	}
	return Track{}, ErrNotFound
}

// YTMusicRadio finds related tracks through the YouTube Music radio mix
// of the seed.
type YTMusicRadio struct {
	search func(ctx context.Context, query string) ([]ytMusicItem, error)
	watch  func(ctx context.Context, videoID string) ([]ytMusicItem, error)
}

func NewYTMusicRadio() *YTMusicRadio {
	return &YTMusicRadio{search: searchYTMusic, watch: watchPlaylistYTMusic}
}

func (r *YTMusicRadio) Related(ctx context.Context, seed Track, limit int) ([]Track, error) {
	videoID := youtubeVideoID(seed.Locator)
	if videoID == "" {
		items, err := r.search(ctx, seed.SearchQuery())
		if err != nil {
			return nil, fmt.Errorf("%w: ytmusic seed search: %v", ErrResolveFailed, err)
		}
		if len(items) == 0 {
			return nil, ErrNotFound
		}
		videoID = items[0].VideoID
	}

	items, err := r.watch(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("%w: ytmusic watch playlist: %v", ErrResolveFailed, err)
	}

	related := make([]Track, 0, limit)
	for _, it := range items {
		if it.VideoID == videoID {
			continue
		}
		t := it.track()
		related = append(related, Track{Title: t.Title, Artist: t.Artist, Source: TrackSourceYouTubeMusic})
		if len(related) == limit {
			break
		}
	}
	return related, nil
}
