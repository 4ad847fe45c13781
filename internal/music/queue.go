package music

import (
	"sync"
	"sync/atomic"
)

// QueueStore holds the pending entries of every guild in process memory.
// A guild without an entry and a guild with an empty slice are the same.
type QueueStore struct {
	mu      sync.Mutex
	queues  map[string][]QueueEntry
	nextRes atomic.Uint64
}

func NewQueueStore() *QueueStore {
	return &QueueStore{queues: make(map[string][]QueueEntry)}
}

func (q *QueueStore) Append(guildID string, track Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[guildID] = append(q.queues[guildID], TrackEntry(track))
}

// Reserve appends a reservation slot and returns its id.
func (q *QueueStore) Reserve(guildID string) ReservationID {
	id := ReservationID(q.nextRes.Add(1))

	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[guildID] = append(q.queues[guildID], ReservationEntry(id))
	return id
}

// Fill replaces the reservation in place. It reports false if the
// reservation is no longer queued.
func (q *QueueStore) Fill(guildID string, id ReservationID, track Track) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.queues[guildID]
	for i, e := range entries {
		if e.IsReservation() && e.Reservation == id {
			entries[i] = TrackEntry(track)
			return true
		}
	}
	return false
}

func (q *QueueStore) Release(guildID string, id ReservationID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.queues[guildID]
	for i, e := range entries {
		if e.IsReservation() && e.Reservation == id {
			q.setLocked(guildID, append(entries[:i:i], entries[i+1:]...))
			return
		}
	}
}

// PopTrack removes entries from the front until it finds a track.
// Reservations ahead of it are discarded.
func (q *QueueStore) PopTrack(guildID string) (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.queues[guildID]
	for len(entries) > 0 {
		head := entries[0]
		entries = entries[1:]
		if head.IsReservation() {
			continue
		}
		q.setLocked(guildID, entries)
		return *head.Track, true
	}
	q.setLocked(guildID, nil)
	return Track{}, false
}

// Pending counts queued tracks; reservations are not counted.
func (q *QueueStore) Pending(guildID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, e := range q.queues[guildID] {
		if !e.IsReservation() {
			n++
		}
	}
	return n
}

func (q *QueueStore) Len(guildID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[guildID])
}

func (q *QueueStore) List(guildID string) []Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	tracks := make([]Track, 0, len(q.queues[guildID]))
	for _, e := range q.queues[guildID] {
		if !e.IsReservation() {
			tracks = append(tracks, *e.Track)
		}
	}
	return tracks
}

func (q *QueueStore) Clear(guildID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queues, guildID)
}

func (q *QueueStore) setLocked(guildID string, entries []QueueEntry) {
	if len(entries) == 0 {
		delete(q.queues, guildID)
		return
	}
	q.queues[guildID] = entries
}
