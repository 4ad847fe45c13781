package music

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

const defaultSimilarLimit = 10

// VoiceConnector is the part of the VoiceManager the Service drives.
type VoiceConnector interface {
	Connect(ctx context.Context, guildID, channelID string) (VoiceConnection, error)
	Disconnect(guildID string) error
}

type PlayResult struct {
	Track   Track
	Started bool
}

type SimilarResult struct {
	Seed    Track
	Related int
	Started bool
}

// Service runs the /play and /similar flows on top of the orchestrator.
type Service struct {
	voice        VoiceConnector
	resolver     Resolver
	related      RelatedFinder
	orchestrator *Orchestrator
	similarLimit int
	limiter      *rate.Limiter
	shuffle      func([]Track)
	log          *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	fills  sync.WaitGroup
}

type ServiceConfig struct {
	Voice        VoiceConnector
	Resolver     Resolver
	Related      RelatedFinder
	Orchestrator *Orchestrator
	SimilarLimit int
	// SimilarRate is the number of related candidates resolved per second.
	SimilarRate float64
	Logger      *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	limit := cfg.SimilarLimit
	if limit <= 0 {
		limit = defaultSimilarLimit
	}

	every := rate.Inf
	if cfg.SimilarRate > 0 {
		every = rate.Limit(cfg.SimilarRate)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		voice:        cfg.Voice,
		resolver:     cfg.Resolver,
		related:      cfg.Related,
		orchestrator: cfg.Orchestrator,
		similarLimit: limit,
		limiter:      rate.NewLimiter(every, 1),
		shuffle:      shuffleTracks,
		log:          cfg.Logger.With("component", "service"),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Play joins the caller's voice channel, resolves query and enqueues it.
func (s *Service) Play(ctx context.Context, guildID, channelID, query, requestedBy string) (PlayResult, error) {
	if _, err := s.voice.Connect(ctx, guildID, channelID); err != nil {
		return PlayResult{}, err
	}

	track, err := s.resolve(ctx, query, requestedBy)
	if err != nil {
		return PlayResult{}, err
	}

	started, err := s.orchestrator.Enqueue(ctx, guildID, track)
	if err != nil {
		return PlayResult{Track: track}, err
	}

	s.log.Info("track added", "guild_id", guildID, "title", track.Title, "started", started)
	return PlayResult{Track: track, Started: started}, nil
}

// Similar enqueues the seed track and then, in the background, the related
// tracks in shuffled order. Each related track gets its queue slot before
// it is resolved. A seed that fails to start does not cancel the related
// tracks; the error is returned alongside the result.
func (s *Service) Similar(ctx context.Context, guildID, channelID, query, requestedBy string) (SimilarResult, error) {
	if s.related == nil {
		return SimilarResult{}, fmt.Errorf("%w: no related track source configured", ErrResolveFailed)
	}

	if _, err := s.voice.Connect(ctx, guildID, channelID); err != nil {
		return SimilarResult{}, err
	}

	seed, err := s.resolve(ctx, query, requestedBy)
	if err != nil {
		return SimilarResult{}, err
	}

	related, err := s.related.Related(ctx, seed, s.similarLimit)
	if err != nil {
		return SimilarResult{}, err
	}
	if len(related) > s.similarLimit {
		related = related[:s.similarLimit]
	}
	s.shuffle(related)

	started, startErr := s.orchestrator.Enqueue(ctx, guildID, seed)
	if startErr != nil {
		s.log.Error("seed track did not start", "guild_id", guildID, "title", seed.Title, "error", startErr)
	}

	s.fills.Add(1)
	go s.fill(guildID, related, requestedBy)

	return SimilarResult{Seed: seed, Related: len(related), Started: started}, startErr
}

func (s *Service) fill(guildID string, candidates []Track, requestedBy string) {
	defer s.fills.Done()
	log := s.log.With("guild_id", guildID)

	for i, candidate := range candidates {
		id := s.orchestrator.Reserve(guildID)

		if err := s.limiter.Wait(s.ctx); err != nil {
			s.orchestrator.Release(guildID, id)
			return
		}

		track, err := s.resolve(s.ctx, candidate.SearchQuery(), requestedBy)
		if err != nil {
			s.orchestrator.Release(guildID, id)
			log.Warn("similar fill aborted", "candidate", candidate.SearchQuery(), "remaining", len(candidates)-i, "error", err)
			return
		}

		if s.orchestrator.Fill(guildID, id, track) {
			continue
		}

		if _, err := s.orchestrator.Enqueue(s.ctx, guildID, track); err != nil {
			log.Warn("similar fill aborted", "title", track.Title, "remaining", len(candidates)-i-1, "error", err)
			return
		}
	}

	log.Debug("similar fill done", "tracks", len(candidates))
}

func (s *Service) Skip(ctx context.Context, guildID string) error {
	return s.orchestrator.Skip(ctx, guildID)
}

func (s *Service) Stop(guildID string) {
	s.orchestrator.Stop(guildID)
}

// Leave clears the guild's queue, stops playback and leaves the voice
// channel.
func (s *Service) Leave(guildID string) error {
	s.orchestrator.Stop(guildID)
	return s.voice.Disconnect(guildID)
}

// Close cancels background fills and waits for them to return.
func (s *Service) Close() {
	s.cancel()
	s.fills.Wait()
}

func (s *Service) resolve(ctx context.Context, query, requestedBy string) (Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Track{}, ErrNotFound
	}

	track, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		return Track{}, err
	}
	track.RequestedBy = requestedBy
	return track, nil
}

func shuffleTracks(tracks []Track) {
	rand.Shuffle(len(tracks), func(i, j int) {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	})
}
