package music

import "errors"

var (
	ErrNotFound          = errors.New("no track matched the query")
	ErrResolveFailed     = errors.New("failed to resolve track metadata")
	ErrStreamOpen        = errors.New("failed to open audio stream")
	ErrPlaybackTimeout   = errors.New("playback did not start in time")
	ErrConnectionTimeout = errors.New("voice connection was not ready in time")
	ErrNoVoiceChannel    = errors.New("user is not in a voice channel")

	ErrVoiceNotConnected = errors.New("voice connection not established")
	ErrPlaybackEnded     = errors.New("playback ended before it started playing")
	ErrPlaybackReplaced  = errors.New("playback replaced by a newer one")
)
