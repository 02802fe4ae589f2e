package queue

import (
	"strings"
	"time"
)

// Track is a reference to a playable track inside a queue.
//
// ShuffleIndex is the only mutable field: it is this track's position in the
// shuffled traversal order and is owned by the Board while the track is part
// of a queue. Everything else is fixed at creation.
type Track struct {
	ID       string
	Title    string
	Artists  []string
	Album    string
	Duration time.Duration
	IsLocal  bool

	ShuffleIndex int
}

// Artist returns the joined artist names for display.
func (t *Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Clone returns a copy of the track.
func (t *Track) Clone() *Track {
	c := *t
	c.Artists = append([]string(nil), t.Artists...)
	return &c
}

// CloneTracks deep-copies a track slice.
func CloneTracks(tracks []*Track) []*Track {
	out := make([]*Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.Clone()
	}
	return out
}
