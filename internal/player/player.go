// Package player defines the media player contract the session drives.
// Audio decoding and rendering belong to the platform media framework; this
// package models its playlist, transport state and event stream.
package player

import "time"

// State is the player's coarse state.
type State int

const (
	Idle State = iota
	Buffering
	Ready
	Ended
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Buffering:
		return "Buffering"
	case Ready:
		return "Ready"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "Off"
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Unknown"
	}
}

// Item is one entry in the player's item list.
type Item struct {
	TrackID  string
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
	IsLocal  bool
}

// Player is the playback surface the session mutates. Implementations must
// deliver events in emission order and must accept all calls from a single
// goroutine; range arguments are half-open [from, to).
type Player interface {
	// Item list
	SetItems(items []Item, startIndex int, startPos time.Duration)
	ReplaceItems(from, to int, items []Item)
	InsertItems(index int, items []Item)
	RemoveItems(from, to int)
	Items() []Item
	ItemCount() int
	CurrentIndex() int
	CurrentItem() (Item, bool)

	// Transport
	Prepare()
	Play()
	Pause()
	Stop()
	SetPlayWhenReady(playWhenReady bool)
	PlayWhenReady() bool
	SeekTo(index int, pos time.Duration)
	Position() time.Duration
	Duration() time.Duration
	State() State
	SetRepeatMode(mode RepeatMode)
	RepeatMode() RepeatMode

	// Events returns the player's event stream. Closed on Close.
	Events() <-chan Event

	Close() error
}
