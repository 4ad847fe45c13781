package music

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Resolver turns free text or a URL into the single best matching track.
type Resolver interface {
	Resolve(ctx context.Context, query string) (Track, error)
}

// RelatedFinder lists metadata-only tracks related to a seed. The results
// carry a title and an artist but no locator.
type RelatedFinder interface {
	Related(ctx context.Context, seed Track, limit int) ([]Track, error)
}

type YTDLPResolver struct {
	Binary  string
	TempDir string
}

func NewYTDLPResolver(binary string) *YTDLPResolver {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPResolver{Binary: binary}
}

func (r *YTDLPResolver) Resolve(ctx context.Context, query string) (Track, error) {
	target := strings.TrimSpace(query)
	if target == "" {
		return Track{}, fmt.Errorf("%w: empty input", ErrResolveFailed)
	}
	if !looksLikeURL(target) {
		target = "ytsearch1:" + target
	}

	args := []string{
		"--no-warnings",
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
	}
	if r.TempDir != "" {
		args = append(args, "--paths", r.TempDir)
	}
	args = append(args, target)

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	if r.TempDir != "" {
		cmd.Env = append(os.Environ(), "TMPDIR="+r.TempDir, "TEMP="+r.TempDir, "TMP="+r.TempDir)
	}
	output, err := cmd.Output()
	if err != nil {
		return Track{}, fmt.Errorf("%w: yt-dlp failed: %v", ErrResolveFailed, err)
	}

	var root ytDLPItem
	if err := json.Unmarshal(output, &root); err != nil {
		return Track{}, fmt.Errorf("%w: invalid json: %v", ErrResolveFailed, err)
	}

	item, ok := pickYTDLPItem(root)
	if !ok {
		return Track{}, ErrNotFound
	}
	return item.track(), nil
}

type ytDLPItem struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Track      string      `json:"track"`
	Artist     string      `json:"artist"`
	Uploader   string      `json:"uploader"`
	Channel    string      `json:"channel"`
	WebpageURL string      `json:"webpage_url"`
	URL        string      `json:"url"`
	Duration   float64     `json:"duration"`
	Thumbnail  string      `json:"thumbnail"`
	Entries    []ytDLPItem `json:"entries"`
}

func (item ytDLPItem) usable() bool {
	return item.WebpageURL != "" || item.URL != ""
}

func (item ytDLPItem) track() Track {
	link := item.WebpageURL
	if link == "" {
		link = item.URL
	}

	title := strings.TrimSpace(item.Track)
	if title == "" {
		title = strings.TrimSpace(item.Title)
	}
	if title == "" {
		title = "Unknown Title"
	}

	artist := firstNonEmpty(item.Artist, item.Channel, item.Uploader)
	// "Artist - Topic" channels carry the artist name.
	artist = strings.TrimSuffix(artist, " - Topic")

	duration := time.Duration(item.Duration * float64(time.Second))
	if duration < 0 {
		duration = 0
	}

	return Track{
		Title:     title,
		Artist:    artist,
		Locator:   link,
		Source:    detectSourceFromURL(link),
		Duration:  duration,
		Thumbnail: item.Thumbnail,
	}
}

func pickYTDLPItem(root ytDLPItem) (ytDLPItem, bool) {
	if len(root.Entries) == 0 {
		return root, root.usable()
	}

	for _, entry := range root.Entries {
		if entry.usable() {
			return entry, true
		}
	}
	return ytDLPItem{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func looksLikeURL(value string) bool {
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return true
	}

	u, err := url.Parse(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func detectSourceFromURL(raw string) TrackSource {
	u, err := url.Parse(raw)
	if err != nil {
		return TrackSourceUnknown
	}

	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "music.youtube.com"):
		return TrackSourceYouTubeMusic
	case strings.Contains(host, "youtube.com"), strings.Contains(host, "youtu.be"):
		return TrackSourceYouTube
	case strings.Contains(host, "soundcloud.com"):
		return TrackSourceSoundCloud
	case strings.Contains(host, "spotify.com"):
		return TrackSourceSpotify
	default:
		return TrackSourceUnknown
	}
}

// youtubeVideoID extracts the video id from a YouTube or YouTube Music URL.
func youtubeVideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "youtu.be"):
		return strings.Trim(u.Path, "/")
	case strings.Contains(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		if id, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			return strings.Trim(id, "/")
		}
	}
	return ""
}
