// Package queue implements the multi-queue playback model: named queues with
// their own position and shuffle state, a master list with most-recently-used
// ordering, and debounced persistence.
package queue

import "sort"

// Kind distinguishes user-named queues from the auxiliary queues spawned to
// hold ad-hoc additions.
type Kind int

const (
	// Primary is a queue created from a named source (album, playlist, radio).
	Primary Kind = iota
	// Extension is an auxiliary queue seeded from a primary queue to absorb
	// ad-hoc enqueues without mutating the source queue.
	Extension
)

// Queue is an ordered, named collection of tracks with its own playback
// position and shuffle state.
//
// QueuePos always indexes storage order (the unshuffled order). When Shuffled
// is true the traversal order is given by each track's ShuffleIndex, a dense
// permutation of [0, len). Title is a soft match key used to decide whether an
// incoming set of tracks belongs to an existing queue; ID is the real identity.
type Queue struct {
	ID       string
	Title    string
	Kind     Kind
	ParentID string // set when Kind == Extension

	// PlaylistID is the continuation endpoint for radio queues; empty for
	// queues with fixed contents or an exhausted continuation.
	PlaylistID string

	Tracks   []*Track
	QueuePos int
	Shuffled bool
}

// Size returns the number of tracks in the queue.
func (q *Queue) Size() int {
	return len(q.Tracks)
}

// CurrentTrack returns the track at the playback position, or nil.
func (q *Queue) CurrentTrack() *Track {
	if q.QueuePos < 0 || q.QueuePos >= len(q.Tracks) {
		return nil
	}
	return q.Tracks[q.QueuePos]
}

// TracksInOrder returns the tracks in traversal order: storage order when
// unshuffled, ShuffleIndex order when shuffled. The returned slice is fresh;
// the track pointers are shared.
func (q *Queue) TracksInOrder() []*Track {
	out := make([]*Track, len(q.Tracks))
	copy(out, q.Tracks)
	if q.Shuffled {
		sort.Slice(out, func(i, j int) bool {
			return out[i].ShuffleIndex < out[j].ShuffleIndex
		})
	}
	return out
}

// PlayerIndex returns the traversal-order position of the current track,
// i.e. the index the active player should be at. Returns -1 when empty.
func (q *Queue) PlayerIndex() int {
	cur := q.CurrentTrack()
	if cur == nil {
		return -1
	}
	if q.Shuffled {
		return cur.ShuffleIndex
	}
	return q.QueuePos
}

// StorageIndex maps a traversal-order index to a storage-order index.
// Returns -1 when out of range.
func (q *Queue) StorageIndex(traversal int) int {
	if traversal < 0 || traversal >= len(q.Tracks) {
		return -1
	}
	if !q.Shuffled {
		return traversal
	}
	for i, t := range q.Tracks {
		if t.ShuffleIndex == traversal {
			return i
		}
	}
	return -1
}

// IndexOf returns the storage index of the track with the given id, or -1.
func (q *Queue) IndexOf(trackID string) int {
	for i, t := range q.Tracks {
		if t.ID == trackID {
			return i
		}
	}
	return -1
}

// ContainsAll reports whether every given track is already in the queue.
func (q *Queue) ContainsAll(tracks []*Track) bool {
	ids := make(map[string]struct{}, len(q.Tracks))
	for _, t := range q.Tracks {
		ids[t.ID] = struct{}{}
	}
	for _, t := range tracks {
		if _, ok := ids[t.ID]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the queue, suitable for persistence snapshots.
func (q *Queue) Clone() *Queue {
	c := *q
	c.Tracks = CloneTracks(q.Tracks)
	return &c
}

// clampPos keeps QueuePos inside [0, size) for non-empty queues.
func (q *Queue) clampPos() {
	if len(q.Tracks) == 0 {
		q.QueuePos = 0
		return
	}
	if q.QueuePos < 0 {
		q.QueuePos = 0
	}
	if q.QueuePos >= len(q.Tracks) {
		q.QueuePos = len(q.Tracks) - 1
	}
}

// normalizeShuffleIndices rewrites ShuffleIndex values so that the existing
// relative shuffle order becomes a dense permutation of [0, size).
func (q *Queue) normalizeShuffleIndices() {
	order := make([]*Track, len(q.Tracks))
	copy(order, q.Tracks)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].ShuffleIndex < order[j].ShuffleIndex
	})
	for i, t := range order {
		t.ShuffleIndex = i
	}
}
