package music

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	playbackStartTimeout = 5 * time.Second
	recordTimeout        = 5 * time.Second
)

// Streamer opens the audio byte stream behind a locator. Closing the
// stream releases everything Open acquired.
type Streamer interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// PlaybackRecorder persists playbacks that actually started.
type PlaybackRecorder interface {
	RecordPlayback(ctx context.Context, guildID string, track Track) error
}

// Orchestrator decides what each guild plays next. Every operation on a
// guild runs under that guild's lock; different guilds never block each
// other.
type Orchestrator struct {
	queue        *QueueStore
	players      *PlayerManager
	streamer     Streamer
	recorder     PlaybackRecorder
	locks        *guildLocks
	startTimeout time.Duration
	log          *slog.Logger
}

func NewOrchestrator(queue *QueueStore, players *PlayerManager, streamer Streamer, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		queue:        queue,
		players:      players,
		streamer:     streamer,
		locks:        newGuildLocks(),
		startTimeout: playbackStartTimeout,
		log:          logger.With("component", "orchestrator"),
	}
	players.OnIdle(o.handleIdle)
	return o
}

func (o *Orchestrator) WithRecorder(recorder PlaybackRecorder) *Orchestrator {
	o.recorder = recorder
	return o
}

// Enqueue starts track right away when the guild's player is not playing
// and nothing is pending; otherwise it appends track to the guild's queue.
// A playback stuck in Buffering is replaced.
func (o *Orchestrator) Enqueue(ctx context.Context, guildID string, track Track) (bool, error) {
	unlock := o.locks.lock(guildID)
	defer unlock()

	player := o.players.Get(guildID)
	if player.Status() != PlayerPlaying && o.queue.Pending(guildID) == 0 {
		o.queue.Clear(guildID)
		if _, err := o.startPlayback(ctx, guildID, track); err != nil {
			return false, err
		}
		return true, nil
	}

	o.queue.Append(guildID, track)
	o.log.Debug("track queued", "guild_id", guildID, "title", track.Title, "pending", o.queue.Pending(guildID))
	return false, nil
}

// Skip replaces the current playback with the next pending track, or
// silences the player when nothing is pending.
func (o *Orchestrator) Skip(ctx context.Context, guildID string) error {
	unlock := o.locks.lock(guildID)
	defer unlock()

	if track, ok := o.queue.PopTrack(guildID); ok {
		_, err := o.startPlayback(ctx, guildID, track)
		return err
	}

	o.players.Get(guildID).Stop()
	return nil
}

// Stop clears the guild's queue and halts its player.
func (o *Orchestrator) Stop(guildID string) {
	unlock := o.locks.lock(guildID)
	defer unlock()

	o.queue.Clear(guildID)
	o.players.Get(guildID).Stop()
}

func (o *Orchestrator) Reserve(guildID string) ReservationID {
	unlock := o.locks.lock(guildID)
	defer unlock()
	return o.queue.Reserve(guildID)
}

// Fill puts track into a reserved slot. It reports false when the slot
// was already consumed or cleared. When nothing is playing, for example
// because the track ahead of the slot never started, the queue advances.
func (o *Orchestrator) Fill(guildID string, id ReservationID, track Track) bool {
	unlock := o.locks.lock(guildID)
	defer unlock()

	if !o.queue.Fill(guildID, id, track) {
		return false
	}
	if o.players.Get(guildID).Status() != PlayerPlaying {
		o.advance(context.Background(), guildID)
	}
	return true
}

func (o *Orchestrator) Release(guildID string, id ReservationID) {
	unlock := o.locks.lock(guildID)
	defer unlock()
	o.queue.Release(guildID, id)
}

func (o *Orchestrator) Snapshot(guildID string) []Track {
	return o.queue.List(guildID)
}

func (o *Orchestrator) Status(guildID string) PlayerStatus {
	return o.players.Get(guildID).Status()
}

func (o *Orchestrator) handleIdle(tag PlaybackTag) {
	unlock := o.locks.lock(tag.GuildID)
	defer unlock()

	player := o.players.Get(tag.GuildID)
	current, _ := player.Current()
	if player.Status() != PlayerIdle || current.Seq != tag.Seq {
		o.log.Debug("ignoring stale idle event", "guild_id", tag.GuildID, "seq", tag.Seq, "current_seq", current.Seq)
		return
	}

	o.advance(context.Background(), tag.GuildID)
}

// advance plays the next pending track. Tracks whose stream cannot be
// opened are dropped and the following one is tried.
func (o *Orchestrator) advance(ctx context.Context, guildID string) {
	for {
		track, ok := o.queue.PopTrack(guildID)
		if !ok {
			o.log.Debug("queue drained", "guild_id", guildID)
			return
		}

		_, err := o.startPlayback(ctx, guildID, track)
		if err == nil {
			return
		}

		o.log.Error("failed to start next track", "guild_id", guildID, "title", track.Title, "error", err)
		if !errors.Is(err, ErrStreamOpen) {
			return
		}
	}
}

func (o *Orchestrator) startPlayback(ctx context.Context, guildID string, track Track) (PlaybackTag, error) {
	stream, err := o.streamer.Open(context.WithoutCancel(ctx), track.Locator)
	if err != nil {
		return PlaybackTag{}, fmt.Errorf("%w: %s: %w", ErrStreamOpen, track.Locator, err)
	}

	player := o.players.Get(guildID)
	tag := player.Play(stream, track)

	waitCtx, cancel := context.WithTimeout(ctx, o.startTimeout)
	defer cancel()
	if err := player.AwaitPlaying(waitCtx, tag); err != nil {
		return tag, err
	}

	o.log.Info("now playing", "guild_id", guildID, "title", track.Title, "artist", track.Artist, "seq", tag.Seq)
	o.record(guildID, track)
	return tag, nil
}

func (o *Orchestrator) record(guildID string, track Track) {
	if o.recorder == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := o.recorder.RecordPlayback(ctx, guildID, track); err != nil {
			o.log.Warn("failed to record playback", "guild_id", guildID, "title", track.Title, "error", err)
		}
	}()
}
