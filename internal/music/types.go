package music

import (
	"strings"
	"time"
)

type TrackSource string

const (
	TrackSourceYouTube      TrackSource = "youtube"
	TrackSourceYouTubeMusic TrackSource = "youtube_music"
	TrackSourceSpotify      TrackSource = "spotify"
	TrackSourceSoundCloud   TrackSource = "soundcloud"
	TrackSourceUnknown      TrackSource = "unknown"
)

// Track is a resolved, playable track. Locator is opaque to everything
// except the Streamer that opens it.
type Track struct {
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	Locator     string        `json:"locator"`
	Source      TrackSource   `json:"source"`
	Duration    time.Duration `json:"duration"`
	Thumbnail   string        `json:"thumbnail"`
	RequestedBy string        `json:"requested_by"`
}

// SearchQuery is the free-text query used to resolve a metadata-only
// track (e.g. a related-track candidate) into a playable one.
func (t Track) SearchQuery() string {
	return strings.TrimSpace(t.Title + " " + t.Artist)
}

type ReservationID uint64

// QueueEntry is either a track or a reservation for a slot whose track is
// still being resolved. Exactly one of the two is set.
type QueueEntry struct {
	Track       *Track
	Reservation ReservationID
}

func TrackEntry(t Track) QueueEntry {
	return QueueEntry{Track: &t}
}

func ReservationEntry(id ReservationID) QueueEntry {
	return QueueEntry{Reservation: id}
}

func (e QueueEntry) IsReservation() bool {
	return e.Track == nil
}

type PlayerStatus int

const (
	PlayerIdle PlayerStatus = iota
	PlayerBuffering
	PlayerPlaying
)

func (s PlayerStatus) String() string {
	switch s {
	case PlayerIdle:
		return "idle"
	case PlayerBuffering:
		return "buffering"
	case PlayerPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// PlaybackTag travels with one playback from Player.Play to the idle
// callback, unchanged.
type PlaybackTag struct {
	GuildID string
	Track   Track
	Seq     uint64
}
