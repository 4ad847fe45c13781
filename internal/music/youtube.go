package music

import (
	"context"
	"fmt"
	"html"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubeWatchURL = "https://www.youtube.com/watch?v="

// YouTubeAPIResolver searches videos through the YouTube Data API v3.
type YouTubeAPIResolver struct {
	service *youtube.Service
}

func NewYouTubeAPIResolver(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeAPIResolver, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &YouTubeAPIResolver{service: service}, nil
}

func (r *YouTubeAPIResolver) Resolve(ctx context.Context, query string) (Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Track{}, fmt.Errorf("%w: empty input", ErrResolveFailed)
	}

	if id := youtubeVideoID(query); id != "" {
		return r.lookup(ctx, id)
	}

	resp, err := r.service.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return Track{}, fmt.Errorf("%w: youtube search: %v", ErrResolveFailed, err)
	}

	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		return youtubeTrack(item.Id.VideoId, item.Snippet.Title, item.Snippet.ChannelTitle), nil
	}
	return Track{}, ErrNotFound
}

func (r *YouTubeAPIResolver) lookup(ctx context.Context, videoID string) (Track, error) {
	resp, err := r.service.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return Track{}, fmt.Errorf("%w: youtube videos: %v", ErrResolveFailed, err)
	}

	for _, item := range resp.Items {
		if item.Snippet == nil {
			continue
		}
		return youtubeTrack(item.Id, item.Snippet.Title, item.Snippet.ChannelTitle), nil
	}
	return Track{}, ErrNotFound
}

func youtubeTrack(videoID, title, channel string) Track {
	return Track{
		Title:   html.UnescapeString(title),
		Artist:  strings.TrimSuffix(html.UnescapeString(channel), " - Topic"),
		Locator: youtubeWatchURL + videoID,
		Source:  TrackSourceYouTube,
	}
}
