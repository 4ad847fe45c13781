package music

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

const frameDuration = 20 * time.Millisecond

// OpusSink receives one 20 ms Opus frame at a time.
type OpusSink interface {
	SendOpus(ctx context.Context, packet []byte) error
	Speaking(speaking bool)
}

// PlayerManager hands out one Player per guild.
type PlayerManager struct {
	mu            sync.Mutex
	players       map[string]*Player
	encoder       Encoder
	onIdle        func(PlaybackTag)
	frameInterval time.Duration
	log           *slog.Logger
}

func NewPlayerManager(encoder Encoder, logger *slog.Logger) *PlayerManager {
	return &PlayerManager{
		players:       make(map[string]*Player),
		encoder:       encoder,
		frameInterval: frameDuration,
		log:           logger,
	}
}

// OnIdle sets the callback every Player invokes when it goes back to Idle.
func (m *PlayerManager) OnIdle(fn func(PlaybackTag)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onIdle = fn
}

func (m *PlayerManager) dispatchIdle(tag PlaybackTag) {
	m.mu.Lock()
	fn := m.onIdle
	m.mu.Unlock()

	if fn != nil {
		fn(tag)
	}
}

func (m *PlayerManager) Get(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.players[guildID]; ok {
		return p
	}

	p := newPlayer(guildID, m.encoder, m.dispatchIdle, m.log)
	p.frameInterval = m.frameInterval
	m.players[guildID] = p
	return p
}

type Player struct {
	guildID       string
	encoder       Encoder
	onIdle        func(PlaybackTag)
	log           *slog.Logger
	frameInterval time.Duration

	mu      sync.Mutex
	sink    OpusSink
	status  PlayerStatus
	seq     uint64
	current PlaybackTag
	cancel  context.CancelFunc
	changed chan struct{}
}

func newPlayer(guildID string, encoder Encoder, onIdle func(PlaybackTag), logger *slog.Logger) *Player {
	return &Player{
		guildID:       guildID,
		encoder:       encoder,
		onIdle:        onIdle,
		log:           logger.With("component", "player", "guild_id", guildID),
		frameInterval: frameDuration,
		changed:       make(chan struct{}),
	}
}

// Attach subscribes the player to a voice connection. The new sink is
// used from the next Play on.
func (p *Player) Attach(sink OpusSink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
}

func (p *Player) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = nil
}

func (p *Player) Status() PlayerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Current returns the tag of the latest playback, if there ever was one.
func (p *Player) Current() (PlaybackTag, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.seq > 0
}

// Play replaces whatever is playing with stream. The replaced playback does
// not produce an idle callback.
func (p *Player) Play(stream io.ReadCloser, track Track) PlaybackTag {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}

	p.seq++
	tag := PlaybackTag{GuildID: p.guildID, Track: track, Seq: p.seq}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.current = tag
	sink := p.sink
	p.setStatusLocked(PlayerBuffering)
	p.mu.Unlock()

	go p.run(ctx, tag, stream, sink)
	return tag
}

// Stop halts the current playback and reports whether anything was
// playing. The idle callback fires for the halted playback.
func (p *Player) Stop() bool {
	p.mu.Lock()
	if p.status == PlayerIdle {
		p.mu.Unlock()
		return false
	}

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	tag := p.current
	p.setStatusLocked(PlayerIdle)
	p.mu.Unlock()

	p.notifyIdle(tag)
	return true
}

// AwaitPlaying blocks until the playback identified by tag reaches
// Playing, ends, or ctx is done.
func (p *Player) AwaitPlaying(ctx context.Context, tag PlaybackTag) error {
	for {
		p.mu.Lock()
		switch {
		case p.current.Seq != tag.Seq:
			p.mu.Unlock()
			return ErrPlaybackReplaced
		case p.status == PlayerPlaying:
			p.mu.Unlock()
			return nil
		case p.status == PlayerIdle:
			p.mu.Unlock()
			return ErrPlaybackEnded
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrPlaybackTimeout, ctx.Err())
		}
	}
}

func (p *Player) run(ctx context.Context, tag PlaybackTag, stream io.ReadCloser, sink OpusSink) {
	err := p.stream(ctx, tag, stream, sink)
	if err != nil {
		p.log.Warn("playback error", "title", tag.Track.Title, "error", err)
	}
	p.finish(tag)
}

func (p *Player) finish(tag PlaybackTag) {
	p.mu.Lock()
	if p.current.Seq != tag.Seq || p.status == PlayerIdle {
		p.mu.Unlock()
		return
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.setStatusLocked(PlayerIdle)
	p.mu.Unlock()

	p.notifyIdle(tag)
}

func (p *Player) stream(ctx context.Context, tag PlaybackTag, stream io.ReadCloser, sink OpusSink) error {
	if sink == nil {
		_ = stream.Close()
		return ErrVoiceNotConnected
	}

	out, err := p.encoder.Encode(ctx, stream)
	if err != nil {
		_ = stream.Close()
		return err
	}
	defer out.Close()

	reader := newOggReader(out)
	ticker := time.NewTicker(p.frameInterval)
	defer ticker.Stop()

	sink.Speaking(true)
	defer sink.Speaking(false)

	framesSent := 0
	for {
		if ctx.Err() != nil {
			p.log.Debug("playback cancelled", "frames", framesSent)
			return nil
		}

		page, err := reader.NextPage()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				p.log.Debug("audio stream ended", "frames", framesSent)
				return nil
			}
			return fmt.Errorf("read ogg page: %w", err)
		}

		if page.isHeader {
			continue
		}

		for _, packet := range page.packets {
			if len(packet) == 0 {
				continue
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			if err := sink.SendOpus(ctx, packet); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("send opus frame %d: %w", framesSent, err)
			}
			framesSent++
			if framesSent == 1 {
				p.markPlaying(tag)
			}
		}
	}
}

func (p *Player) markPlaying(tag PlaybackTag) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current.Seq == tag.Seq && p.status == PlayerBuffering {
		p.setStatusLocked(PlayerPlaying)
	}
}

func (p *Player) setStatusLocked(status PlayerStatus) {
	if p.status == status {
		return
	}
	p.status = status
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Player) notifyIdle(tag PlaybackTag) {
	if p.onIdle != nil {
		go p.onIdle(tag)
	}
}
