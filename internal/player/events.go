package player

// TransitionReason says why playback moved to a different item.
type TransitionReason int

const (
	// TransitionAuto is the natural advance when an item finishes.
	TransitionAuto TransitionReason = iota
	// TransitionSeek is an explicit jump (next/previous/seek-to-item).
	TransitionSeek
	// TransitionItemsChanged means the item list itself was replaced.
	TransitionItemsChanged
)

// Event is the sum type of everything the player reports. The session
// handles all of them through a single dispatch function, which keeps the
// transition table explicit and testable without a live player.
type Event interface{ event() }

// ItemTransition is emitted when the current item changes.
type ItemTransition struct {
	Index  int
	Reason TransitionReason
}

// StateChange is emitted when the player state changes.
type StateChange struct {
	State State
}

// PlayerError is emitted when preparing or playing an item fails. Err
// carries the resolution failure class for recovery policy.
type PlayerError struct {
	Index int
	Err   error
}

// PlayWhenReadyChange is emitted when the play/pause intent flips.
type PlayWhenReadyChange struct {
	PlayWhenReady bool
}

func (ItemTransition) event()      {}
func (StateChange) event()         {}
func (PlayerError) event()         {}
func (PlayWhenReadyChange) event() {}
