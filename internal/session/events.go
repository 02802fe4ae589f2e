package session

import (
	"github.com/lcrosetto/aria/internal/player"
	"github.com/lcrosetto/aria/internal/queue"
)

// NoticeLevel separates transient informational notices from blocking ones
// that need user acknowledgment.
type NoticeLevel int

const (
	NoticeTransient NoticeLevel = iota
	NoticeBlocking
)

// Notice is a user-visible playback message.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// TrackChange is emitted when the playing track changes.
type TrackChange struct {
	Track *queue.Track
	Index int
}

// QueueChange is emitted when the current queue's contents or identity change.
type QueueChange struct {
	Queue *queue.Queue
}

// State is a snapshot of the session's playback state, recomputed on every
// player event. Remote-control surfaces render affordances from it.
type State struct {
	PlayerState       player.State
	PlayWhenReady     bool
	Shuffled          bool
	Repeat            player.RepeatMode
	Liked             bool
	InLibrary         bool
	CanSkipNext       bool
	CanSkipPrevious   bool
	WaitingForNetwork bool
}
