package music

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
)

const proxyLookupTimeout = 15 * time.Second

// YTDLPStreamer pipes the best audio format of a locator out of yt-dlp.
type YTDLPStreamer struct {
	Binary string
	log    *slog.Logger
}

func NewYTDLPStreamer(binary string, logger *slog.Logger) *YTDLPStreamer {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPStreamer{Binary: binary, log: logger.With("component", "ytdlp")}
}

func (s *YTDLPStreamer) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, errors.New("empty locator")
	}

	args := []string{
		"--no-warnings",
		"--no-playlist",
		"--quiet",
		"-f", "bestaudio/best",
		"-o", "-",
		locator,
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, s.Binary, args...)
	cmd.WaitDelay = 2 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create yt-dlp stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create yt-dlp stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				s.log.Debug("yt-dlp output", "line", line)
			}
		}
	}()

	return &cmdReadCloser{ReadCloser: stdout, cmd: cmd, cancel: cancel}, nil
}

// KKDAIStreamer downloads the audio-only format of a YouTube video directly.
type KKDAIStreamer struct {
	client *youtube.Client
}

func NewKKDAIStreamer() *KKDAIStreamer {
	return &KKDAIStreamer{client: &youtube.Client{}}
}

func (s *KKDAIStreamer) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	video, err := s.client.GetVideoContext(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("failed to load video %s: %w", locator, err)
	}

	format, ok := pickAudioFormat(video.Formats)
	if !ok {
		return nil, fmt.Errorf("no audio format for %s", locator)
	}

	stream, _, err := s.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	return stream, nil
}

// pickAudioFormat prefers Opus, then the highest bitrate.
func pickAudioFormat(formats youtube.FormatList) (*youtube.Format, bool) {
	audio := formats.Type("audio").WithAudioChannels()
	if len(audio) == 0 {
		return nil, false
	}

	best := 0
	for i := 1; i < len(audio); i++ {
		if betterAudio(audio[i], audio[best]) {
			best = i
		}
	}
	return &audio[best], true
}

func betterAudio(a, b youtube.Format) bool {
	aOpus := strings.Contains(a.MimeType, "opus")
	bOpus := strings.Contains(b.MimeType, "opus")
	if aOpus != bOpus {
		return aOpus
	}
	return a.Bitrate > b.Bitrate
}

// ProxyStreamer asks a transcoding proxy for a media URL and then fetches
// it. The proxy answers GET <base>?url=<locator> with {"url": "..."}.
type ProxyStreamer struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewProxyStreamer(baseURL string) *ProxyStreamer {
	return &ProxyStreamer{BaseURL: baseURL, HTTPClient: &http.Client{}}
}

type proxyResponse struct {
	URL string `json:"url"`
}

func (s *ProxyStreamer) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	mediaURL, err := s.lookup(ctx, locator)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("media status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *ProxyStreamer) lookup(ctx context.Context, locator string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, proxyLookupTimeout)
	defer cancel()

	endpoint, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid proxy url: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", locator)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", err
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("proxy status %d", resp.StatusCode)
	}

	var payload proxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("invalid proxy response: %w", err)
	}
	if payload.URL == "" {
		return "", errors.New("proxy returned no media url")
	}

	// Relative media URLs are served by the proxy itself.
	mediaURL, err := endpoint.Parse(payload.URL)
	if err != nil {
		return "", fmt.Errorf("invalid media url: %w", err)
	}
	return mediaURL.String(), nil
}
