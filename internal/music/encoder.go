package music

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Encoder turns an arbitrary audio byte stream into Ogg/Opus at 48 kHz
// stereo with 20 ms frames. Closing the returned reader also closes in.
type Encoder interface {
	Encode(ctx context.Context, in io.ReadCloser) (io.ReadCloser, error)
}

type FFmpegEncoder struct {
	Binary string
	log    *slog.Logger
}

func NewFFmpegEncoder(binary string, logger *slog.Logger) *FFmpegEncoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegEncoder{Binary: binary, log: logger.With("component", "ffmpeg")}
}

func (e *FFmpegEncoder) Encode(ctx context.Context, in io.ReadCloser) (io.ReadCloser, error) {
	args := []string{
		"-i", "pipe:0",
		"-vn",
		"-c:a", "libopus",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", "96k",
		"-vbr", "on",
		"-frame_duration", "20",
		"-application", "audio",
		"-f", "ogg",
		"-loglevel", "warning",
		"pipe:1",
	}

	ffmpegCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ffmpegCtx, e.Binary, args...)
	cmd.Stdin = in
	cmd.WaitDelay = 2 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		_ = in.Close()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	go func() {
		reader := bufio.NewReader(stderr)
		for {
			line, err := reader.ReadString('\n')
			if line = strings.TrimSpace(line); line != "" {
				e.log.Debug("ffmpeg output", "line", line)
			}
			if err != nil {
				return
			}
		}
	}()

	return &cmdReadCloser{ReadCloser: stdout, cmd: cmd, cancel: cancel, input: in}, nil
}

// cmdReadCloser kills and reaps the subprocess when the reader is closed.
// input, when set, is the stream feeding the subprocess.
type cmdReadCloser struct {
	io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
	input  io.Closer
}

func (c *cmdReadCloser) Close() error {
	if c.input != nil {
		_ = c.input.Close()
	}
	c.cancel()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.cmd.Wait()
	return nil
}
