package music

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"
)

type fakeVoice struct {
	mu          sync.Mutex
	connects    int
	disconnects []string
	err         error
}

func (v *fakeVoice) Connect(_ context.Context, _, channelID string) (VoiceConnection, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connects++
	if v.err != nil {
		return nil, v.err
	}
	conn := &fakeConn{channelID: channelID}
	conn.ready.Store(true)
	return conn, nil
}

func (v *fakeVoice) Disconnect(guildID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disconnects = append(v.disconnects, guildID)
	return nil
}

// queryResolver returns a track titled after the query, unless the query
// is listed in failures.
type queryResolver struct {
	mu       sync.Mutex
	queries  []string
	failures map[string]error
}

func (r *queryResolver) Resolve(_ context.Context, query string) (Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	if err := r.failures[query]; err != nil {
		return Track{}, err
	}
	return Track{Title: query, Artist: "Artist", Locator: "https://youtu.be/" + query}, nil
}

func (r *queryResolver) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

type staticRelated struct {
	tracks []Track
	err    error
}

func (r staticRelated) Related(_ context.Context, _ Track, limit int) ([]Track, error) {
	if r.err != nil {
		return nil, r.err
	}
	if len(r.tracks) > limit {
		return r.tracks[:limit], nil
	}
	return r.tracks, nil
}

func relatedTracks(n int) []Track {
	tracks := make([]Track, n)
	for i := range tracks {
		tracks[i] = Track{Title: fmt.Sprintf("R%d", i), Artist: "Band"}
	}
	return tracks
}

type serviceHarness struct {
	*orchestratorHarness
	svc      *Service
	voice    *fakeVoice
	resolver *queryResolver
}

func newServiceHarness(related RelatedFinder) *serviceHarness {
	h := newOrchestratorHarness("g1")
	voice := &fakeVoice{}
	resolver := &queryResolver{failures: make(map[string]error)}

	svc := NewService(ServiceConfig{
		Voice:        voice,
		Resolver:     resolver,
		Related:      related,
		Orchestrator: h.o,
		SimilarLimit: 10,
		Logger:       discardLogger(),
	})
	return &serviceHarness{orchestratorHarness: h, svc: svc, voice: voice, resolver: resolver}
}

func TestService_PlayStartsThenQueues(t *testing.T) {
	h := newServiceHarness(nil)

	first, err := h.svc.Play(context.Background(), "g1", "c1", "A", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Started || first.Track.Title != "A" || first.Track.RequestedBy != "user-1" {
		t.Errorf("unexpected first result: %+v", first)
	}

	second, err := h.svc.Play(context.Background(), "g1", "c1", "B", "user-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Started {
		t.Error("expected second track to be queued")
	}
	if q := h.o.Snapshot("g1"); !equalTitles(q, "B") {
		t.Errorf("expected queue [B], got %v", titles(q))
	}
}

func TestService_PlayNotFound(t *testing.T) {
	h := newServiceHarness(nil)
	h.resolver.failures["nothing"] = ErrNotFound

	if _, err := h.svc.Play(context.Background(), "g1", "c1", "nothing", "u"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := h.streamer.openCount(); n != 0 {
		t.Errorf("expected no playback attempt, got %d", n)
	}
}

func TestService_ConnectionTimeout(t *testing.T) {
	h := newServiceHarness(staticRelated{tracks: relatedTracks(3)})
	h.voice.err = ErrConnectionTimeout

	if _, err := h.svc.Play(context.Background(), "g1", "c1", "A", "u"); !errors.Is(err, ErrConnectionTimeout) {
		t.Errorf("expected ErrConnectionTimeout from play, got %v", err)
	}
	if _, err := h.svc.Similar(context.Background(), "g1", "c1", "A", "u"); !errors.Is(err, ErrConnectionTimeout) {
		t.Errorf("expected ErrConnectionTimeout from similar, got %v", err)
	}
	if n := h.resolver.calls(); n != 0 {
		t.Errorf("expected no resolution, got %d", n)
	}
	if n := h.streamer.openCount(); n != 0 {
		t.Errorf("expected no playback attempt, got %d", n)
	}
}

func TestService_SimilarEnqueuesSeedAndShuffledRelated(t *testing.T) {
	h := newServiceHarness(staticRelated{tracks: relatedTracks(10)})
	h.svc.shuffle = func(tracks []Track) { slices.Reverse(tracks) }

	res, err := h.svc.Similar(context.Background(), "g1", "c1", "Song X", "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.svc.fills.Wait()

	if res.Related != 10 || res.Seed.Title != "Song X" || !res.Started {
		t.Errorf("unexpected result: %+v", res)
	}
	if got := h.nowPlaying("g1"); got != "Song X" {
		t.Errorf("expected seed to play first, got %q", got)
	}

	want := make([]string, 0, 10)
	for i := 9; i >= 0; i-- {
		want = append(want, fmt.Sprintf("R%d Band", i))
	}
	if q := h.o.Snapshot("g1"); !equalTitles(q, want...) {
		t.Errorf("expected related tracks in shuffled order %v, got %v", want, titles(q))
	}
	if n := h.o.queue.Len("g1"); n != 10 {
		t.Errorf("expected 10 queued entries besides the seed, got %d", n)
	}
}

func TestService_SimilarCountIndependentOfShuffle(t *testing.T) {
	h := newServiceHarness(staticRelated{tracks: relatedTracks(10)})

	res, err := h.svc.Similar(context.Background(), "g1", "c1", "Song X", "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.svc.fills.Wait()

	if res.Related != 10 {
		t.Errorf("expected 10 related tracks reported, got %d", res.Related)
	}

	got := titles(h.o.Snapshot("g1"))
	slices.Sort(got)
	for i, title := range got {
		if want := fmt.Sprintf("R%d Band", i); title != want {
			t.Errorf("position %d: expected %s, got %s", i, want, title)
		}
	}
}

func TestService_SimilarSeedTimeoutStillFills(t *testing.T) {
	h := newServiceHarness(staticRelated{tracks: relatedTracks(10)})
	h.o.startTimeout = 100 * time.Millisecond
	h.streamer.silent["https://youtu.be/Song X"] = true
	h.svc.shuffle = func(tracks []Track) { slices.Reverse(tracks) }

	res, err := h.svc.Similar(context.Background(), "g1", "c1", "Song X", "u")
	if !errors.Is(err, ErrPlaybackTimeout) {
		t.Fatalf("expected ErrPlaybackTimeout, got %v", err)
	}
	if res.Related != 10 || res.Seed.Title != "Song X" || res.Started {
		t.Errorf("unexpected result: %+v", res)
	}
	h.svc.fills.Wait()

	if got := h.nowPlaying("g1"); got != "R9 Band" {
		t.Errorf("expected the first related track to replace the stalled seed, got %q", got)
	}
	if n := len(h.o.Snapshot("g1")); n != 9 {
		t.Errorf("expected the other 9 related tracks queued, got %d", n)
	}
	h.o.Stop("g1")
}

func TestService_SimilarAbortsOnFirstFailure(t *testing.T) {
	h := newServiceHarness(staticRelated{tracks: relatedTracks(5)})
	h.svc.shuffle = func([]Track) {}
	h.resolver.failures["R2 Band"] = ErrResolveFailed

	if _, err := h.svc.Similar(context.Background(), "g1", "c1", "Song X", "u"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.svc.fills.Wait()

	if q := h.o.Snapshot("g1"); !equalTitles(q, "R0 Band", "R1 Band") {
		t.Errorf("expected tracks before the failure to stay, got %v", titles(q))
	}
	if n := h.o.queue.Len("g1"); n != 2 {
		t.Errorf("expected no leftover reservation, got %d entries", n)
	}
	if n := h.resolver.calls(); n != 4 {
		t.Errorf("expected seed plus three candidates to be resolved, got %d", n)
	}
}

func TestService_SimilarRelatedError(t *testing.T) {
	h := newServiceHarness(staticRelated{err: ErrNotFound})

	if _, err := h.svc.Similar(context.Background(), "g1", "c1", "Song X", "u"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := h.streamer.openCount(); n != 0 {
		t.Errorf("expected nothing to play, got %d", n)
	}
}

func TestService_Leave(t *testing.T) {
	h := newServiceHarness(nil)
	if _, err := h.svc.Play(context.Background(), "g1", "c1", "A", "u"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h.svc.Play(context.Background(), "g1", "c1", "B", "u"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := h.svc.Leave("g1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.o.Status("g1") != PlayerIdle {
		t.Errorf("expected idle, got %s", h.o.Status("g1"))
	}
	if n := len(h.o.Snapshot("g1")); n != 0 {
		t.Errorf("expected cleared queue, got %d", n)
	}
	if len(h.voice.disconnects) != 1 || h.voice.disconnects[0] != "g1" {
		t.Errorf("expected a disconnect for g1, got %v", h.voice.disconnects)
	}
}

func TestService_CloseStopsFill(t *testing.T) {
	h := newServiceHarness(staticRelated{tracks: relatedTracks(10)})
	h.svc.limiter.SetLimit(0.001)

	if _, err := h.svc.Similar(context.Background(), "g1", "c1", "Song X", "u"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.svc.Close()

	if n := h.o.queue.Len("g1"); n > 1 {
		t.Errorf("expected the fill to stop early, got %d entries", n)
	}
}
