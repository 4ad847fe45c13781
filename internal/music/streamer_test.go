package music

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/kkdai/youtube/v2"
)

func TestProxyStreamer_FollowsMediaURL(t *testing.T) {
	var gotLocator string
	mux := http.NewServeMux()
	mux.HandleFunc("/convert", func(w http.ResponseWriter, r *http.Request) {
		gotLocator = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"/media/abc.webm"}`))
	})
	mux.HandleFunc("/media/abc.webm", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("audio-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewProxyStreamer(srv.URL + "/convert")
	stream, err := s.Open(context.Background(), "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	body, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if string(body) != "audio-bytes" {
		t.Errorf("unexpected body: %q", body)
	}
	if gotLocator != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("unexpected locator sent to proxy: %q", gotLocator)
	}
}

func TestProxyStreamer_Failures(t *testing.T) {
	tests := []struct {
		name        string
		proxyStatus int
		proxyBody   string
		mediaStatus int
	}{
		{name: "proxy error", proxyStatus: http.StatusBadGateway, proxyBody: `{}`},
		{name: "missing url", proxyStatus: http.StatusOK, proxyBody: `{}`},
		{name: "invalid json", proxyStatus: http.StatusOK, proxyBody: `not json`},
		{name: "media error", proxyStatus: http.StatusOK, proxyBody: `{"url":"/media"}`, mediaStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/convert", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.proxyStatus)
				_, _ = w.Write([]byte(tt.proxyBody))
			})
			mux.HandleFunc("/media", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.mediaStatus)
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			s := NewProxyStreamer(srv.URL + "/convert")
			if stream, err := s.Open(context.Background(), "locator"); err == nil {
				stream.Close()
				t.Fatal("expected an error")
			}
		})
	}
}

func TestPickAudioFormat(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Bitrate: 500000, AudioChannels: 2},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AudioChannels: 2},
		{ItagNo: 250, MimeType: `audio/webm; codecs="opus"`, Bitrate: 70000, AudioChannels: 2},
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 140000, AudioChannels: 2},
	}

	got, ok := pickAudioFormat(formats)
	if !ok {
		t.Fatal("expected a format")
	}
	if got.ItagNo != 251 {
		t.Errorf("expected itag 251, got %d", got.ItagNo)
	}

	if _, ok := pickAudioFormat(formats[:1]); ok {
		t.Error("expected no audio-only format")
	}
}

func writeFakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("failed to write fake binary: %v", err)
	}
	return path
}

func TestYTDLPStreamer_Open(t *testing.T) {
	bin := writeFakeBinary(t, `for last; do :; done; printf 'audio:%s' "$last"`+"\n")
	s := NewYTDLPStreamer(bin, discardLogger())

	stream, err := s.Open(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("failed to read stream: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if string(body) != "audio:https://youtu.be/abc" {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestYTDLPStreamer_MissingBinary(t *testing.T) {
	s := NewYTDLPStreamer(filepath.Join(t.TempDir(), "missing"), discardLogger())

	if _, err := s.Open(context.Background(), "https://youtu.be/abc"); err == nil {
		t.Error("expected an error for a missing binary")
	}
}
