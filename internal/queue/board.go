package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lcrosetto/aria/internal/player"
)

// DefaultMaxQueues bounds the master list; the least-recently-bubbled queue
// is evicted first when the cap is exceeded.
const DefaultMaxQueues = 20

// saveIdle is how long the board waits after the last mutation before
// flushing pending snapshots to the persister.
const saveIdle = 5 * time.Second

// Persister is the storage contract the board persists through. All writes
// are fire-and-forget: failures are logged and dropped, never surfaced to
// playback.
type Persister interface {
	RewriteQueue(ctx context.Context, q *Queue, position int) error
	UpdateAllQueues(ctx context.Context, qs []*Queue, masterIndex int) error
	DeleteQueue(ctx context.Context, id string) error
	ReadQueues(ctx context.Context) ([]*Queue, int, error)
}

// AddOptions controls how AddQueue merges incoming tracks into the board.
type AddOptions struct {
	Shuffled    bool   // shuffle the target queue after the operation
	ForceInsert bool   // never treat a subset as a jump; always insert
	Replace     bool   // overwrite an existing queue's contents entirely
	Delta       bool   // append only tracks not already in the queue
	StartIndex  int    // index into the incoming list of the track to play
	PlaylistID  string // continuation endpoint; marks the queue as radio
}

// Board is the in-memory master list of queues. It is single-writer: all
// mutations must come from the session goroutine. Persistence is asynchronous
// and coalesced through a Saver.
type Board struct {
	queues      []*Queue
	masterIndex int
	maxQueues   int

	persist Persister // nil disables persistence
	saver   *Saver
	logger  *log.Logger

	newID func() string
}

// NewBoard creates an empty board. persist may be nil (no persistence).
func NewBoard(maxQueues int, persist Persister, logger *log.Logger) *Board {
	if maxQueues <= 0 {
		maxQueues = DefaultMaxQueues
	}
	if logger == nil {
		logger = log.Default()
	}
	b := &Board{
		masterIndex: -1,
		maxQueues:   maxQueues,
		persist:     persist,
		logger:      logger.With("component", "queueboard"),
		newID:       uuid.NewString,
	}
	if persist != nil {
		b.saver = NewSaver(saveIdle, b.logger)
	}
	return b
}

// Close flushes pending saves. The board must not be mutated afterwards.
func (b *Board) Close() {
	if b.saver != nil {
		b.saver.Close()
	}
}

// Queues returns the master list in order. The slice is fresh, the queues
// are shared.
func (b *Board) Queues() []*Queue {
	out := make([]*Queue, len(b.queues))
	copy(out, b.queues)
	return out
}

// Len returns the number of queues on the board.
func (b *Board) Len() int { return len(b.queues) }

// MasterIndex returns the index of the current queue, or -1 when empty.
func (b *Board) MasterIndex() int { return b.masterIndex }

// CurrentQueue returns the current queue, or nil.
func (b *Board) CurrentQueue() *Queue {
	if b.masterIndex < 0 || b.masterIndex >= len(b.queues) {
		return nil
	}
	return b.queues[b.masterIndex]
}

// Restore loads the persisted board snapshot, replacing the in-memory state.
func (b *Board) Restore(ctx context.Context) error {
	if b.persist == nil {
		return nil
	}
	qs, masterIndex, err := b.persist.ReadQueues(ctx)
	if err != nil {
		return fmt.Errorf("read queues: %w", err)
	}
	for _, q := range qs {
		q.clampPos()
		if q.Shuffled {
			q.normalizeShuffleIndices()
		}
	}
	if masterIndex < 0 || masterIndex >= len(qs) {
		masterIndex = len(qs) - 1
	}
	b.queues = qs
	b.masterIndex = masterIndex
	return nil
}

// AddQueue routes an incoming track list onto the board under the given
// title. It returns the queue the tracks ended up in and whether the active
// player needs a reload (false means the addition was non-disruptive).
//
// Priority order: create new queue; replace contents; jump within a matching
// queue (subset, no force-insert); delta-append; append to an extension
// queue; spawn a fresh extension queue.
func (b *Board) AddQueue(title string, tracks []*Track, opts AddOptions) (*Queue, bool) {
	tracks = CloneTracks(tracks)
	start := opts.StartIndex
	if start < 0 || start >= len(tracks) {
		start = 0
	}

	base := b.findByTitle(title)
	if base == nil {
		q := b.spawnQueue(title, Primary, "", tracks, start, opts)
		b.logger.Debug("new queue", "title", title, "tracks", len(tracks))
		return q, true
	}

	switch {
	case opts.Replace:
		base.Tracks = tracks
		base.QueuePos = start
		base.Shuffled = opts.Shuffled
		if opts.PlaylistID != "" {
			base.PlaylistID = opts.PlaylistID
		}
		if base.Shuffled {
			b.reshuffle(base, true)
		}
		b.makeCurrent(base)
		b.BubbleUp(base)
		b.scheduleRewrite(base)
		return base, true

	case !opts.ForceInsert && len(tracks) > 0 && len(tracks) <= base.Size() && base.ContainsAll(tracks):
		// Same logical queue, just jumping around it: no content mutation.
		base.QueuePos = base.IndexOf(tracks[start].ID)
		base.clampPos()
		b.makeCurrent(base)
		b.BubbleUp(base)
		b.scheduleRewrite(base)
		return base, true

	case opts.Delta:
		for _, t := range tracks {
			if base.IndexOf(t.ID) < 0 {
				t.ShuffleIndex = len(base.Tracks)
				base.Tracks = append(base.Tracks, t)
			}
		}
		if len(tracks) > 0 {
			if i := base.IndexOf(tracks[start].ID); i >= 0 {
				base.QueuePos = i
			}
		}
		if opts.Shuffled {
			b.reshuffle(base, true)
			base.Shuffled = true
		}
		b.makeCurrent(base)
		b.BubbleUp(base)
		b.scheduleRewrite(base)
		return base, true
	}

	// Pile-on: route ad-hoc additions to the extension queue so the named
	// source queue keeps its contents.
	ext := base
	if base.Kind != Extension {
		ext = b.findExtension(base.ID)
	}
	if ext != nil {
		for _, t := range tracks {
			t.ShuffleIndex = len(ext.Tracks)
			ext.Tracks = append(ext.Tracks, t)
		}
		b.scheduleRewrite(ext)
		return ext, false
	}

	// Spawn an extension seeded from the base queue's traversal order.
	seed := CloneTracks(base.TracksInOrder())
	pos := len(seed) + start
	seed = append(seed, tracks...)
	q := b.spawnQueue(base.Title, Extension, base.ID, seed, pos, AddOptions{PlaylistID: opts.PlaylistID})
	return q, true
}

// spawnQueue creates a queue, evicts if over capacity, makes it current and
// schedules persistence.
func (b *Board) spawnQueue(title string, kind Kind, parentID string, tracks []*Track, start int, opts AddOptions) *Queue {
	q := &Queue{
		ID:         b.newID(),
		Title:      title,
		Kind:       kind,
		ParentID:   parentID,
		PlaylistID: opts.PlaylistID,
		Tracks:     tracks,
		QueuePos:   start,
	}
	q.clampPos()
	for i, t := range q.Tracks {
		t.ShuffleIndex = i
	}
	if opts.Shuffled {
		q.Shuffled = true
		b.reshuffle(q, true)
	}

	b.evictIfNeeded()
	b.queues = append(b.queues, q)
	b.masterIndex = len(b.queues) - 1
	b.scheduleRewrite(q)
	b.scheduleMaster()
	return q
}

// evictIfNeeded drops the least-recently-bubbled queue to stay under the cap.
func (b *Board) evictIfNeeded() {
	for len(b.queues) >= b.maxQueues {
		victim := b.queues[0]
		b.queues = b.queues[1:]
		if b.masterIndex > 0 {
			b.masterIndex--
		}
		b.scheduleDelete(victim.ID)
		b.logger.Debug("evicted queue", "title", victim.Title)
	}
}

func (b *Board) findByTitle(title string) *Queue {
	// Scan from the end: prefer the most recently used match.
	for i := len(b.queues) - 1; i >= 0; i-- {
		if b.queues[i].Title == title {
			return b.queues[i]
		}
	}
	return nil
}

func (b *Board) findExtension(parentID string) *Queue {
	for i := len(b.queues) - 1; i >= 0; i-- {
		q := b.queues[i]
		if q.Kind == Extension && q.ParentID == parentID {
			return q
		}
	}
	return nil
}

func (b *Board) makeCurrent(q *Queue) {
	for i, cand := range b.queues {
		if cand == q {
			b.masterIndex = i
			return
		}
	}
}

// AddTracks inserts tracks at a traversal-order position (clamped). When the
// insertion lands at or before the current position, QueuePos shifts forward
// so the playing track keeps playing. isRadio marks a background continuation
// append, which does not count as queue usage for recency.
func (b *Board) AddTracks(q *Queue, position int, tracks []*Track, isRadio bool) {
	tracks = CloneTracks(tracks)
	if position < 0 {
		position = 0
	}
	if position > q.Size() {
		position = q.Size()
	}

	if q.Shuffled {
		// Storage order is irrelevant while shuffled: append to storage and
		// splice into the shuffle permutation at the requested slot.
		for _, t := range q.Tracks {
			if t.ShuffleIndex >= position {
				t.ShuffleIndex += len(tracks)
			}
		}
		for i, t := range tracks {
			t.ShuffleIndex = position + i
		}
		q.Tracks = append(q.Tracks, tracks...)
	} else {
		rest := append([]*Track(nil), q.Tracks[position:]...)
		q.Tracks = append(q.Tracks[:position], append(tracks, rest...)...)
		if position <= q.QueuePos {
			q.QueuePos += len(tracks)
		}
		for i, t := range q.Tracks {
			t.ShuffleIndex = i
		}
	}
	q.clampPos()

	if !isRadio {
		b.BubbleUp(q)
	}
	b.scheduleRewrite(q)
}

// RemoveTrack removes the track at a traversal-order index and keeps the
// shuffle permutation dense and QueuePos valid. Returns false when the index
// is out of range.
func (b *Board) RemoveTrack(q *Queue, index int) bool {
	storage := q.StorageIndex(index)
	if storage < 0 {
		return false
	}
	removed := q.Tracks[storage]
	q.Tracks = append(q.Tracks[:storage], q.Tracks[storage+1:]...)

	for _, t := range q.Tracks {
		if t.ShuffleIndex > removed.ShuffleIndex {
			t.ShuffleIndex--
		}
	}

	if storage < q.QueuePos {
		q.QueuePos--
	}
	q.clampPos()

	b.BubbleUp(q)
	b.scheduleRewrite(q)
	return true
}

// Shuffle assigns a fresh uniform permutation to the queue's ShuffleIndex
// values. With preserveCurrent the currently playing track is swapped into
// shuffle slot 0 so playback does not visibly jump.
func (b *Board) Shuffle(q *Queue, preserveCurrent bool) {
	q.Shuffled = true
	b.reshuffle(q, preserveCurrent)
	b.BubbleUp(q)
	b.scheduleRewrite(q)
}

func (b *Board) reshuffle(q *Queue, preserveCurrent bool) {
	perm := rand.Perm(len(q.Tracks))
	for i, t := range q.Tracks {
		t.ShuffleIndex = perm[i]
	}
	if len(q.Tracks) == 0 {
		return
	}
	if preserveCurrent {
		cur := q.Tracks[q.QueuePos]
		for _, t := range q.Tracks {
			if t.ShuffleIndex == 0 {
				t.ShuffleIndex = cur.ShuffleIndex
				break
			}
		}
		cur.ShuffleIndex = 0
		return
	}
	// Start the pass at whichever track landed first.
	for i, t := range q.Tracks {
		if t.ShuffleIndex == 0 {
			q.QueuePos = i
			break
		}
	}
}

// UnShuffle reverts traversal to storage order. ShuffleIndex values are left
// in place; they are ignored while Shuffled is false.
func (b *Board) UnShuffle(q *Queue) {
	q.Shuffled = false
	b.BubbleUp(q)
	b.scheduleRewrite(q)
}

// Move moves a queue within the master list, keeping masterIndex pointed at
// the same queue. Returns false when either index is out of range.
func (b *Board) Move(from, to int) bool {
	if from < 0 || from >= len(b.queues) || to < 0 || to >= len(b.queues) {
		return false
	}
	if from == to {
		return true
	}
	q := b.queues[from]
	b.queues = append(b.queues[:from], b.queues[from+1:]...)
	rest := append([]*Queue(nil), b.queues[to:]...)
	b.queues = append(b.queues[:to], append([]*Queue{q}, rest...)...)

	switch {
	case b.masterIndex == from:
		b.masterIndex = to
	case from < b.masterIndex && to >= b.masterIndex:
		b.masterIndex--
	case from > b.masterIndex && to <= b.masterIndex:
		b.masterIndex++
	}
	b.scheduleMaster()
	return true
}

// MoveTrack moves a track between traversal-order positions within a queue.
// Returns false when either index is out of range.
func (b *Board) MoveTrack(q *Queue, from, to int) bool {
	if from < 0 || from >= q.Size() || to < 0 || to >= q.Size() {
		return false
	}
	if from == to {
		return true
	}

	if q.Shuffled {
		// Move in shuffle space; storage order and QueuePos are untouched.
		for _, t := range q.Tracks {
			si := t.ShuffleIndex
			switch {
			case si == from:
				t.ShuffleIndex = to
			case from < si && si <= to:
				t.ShuffleIndex--
			case to <= si && si < from:
				t.ShuffleIndex++
			}
		}
	} else {
		t := q.Tracks[from]
		q.Tracks = append(q.Tracks[:from], q.Tracks[from+1:]...)
		rest := append([]*Track(nil), q.Tracks[to:]...)
		q.Tracks = append(q.Tracks[:to], append([]*Track{t}, rest...)...)

		switch {
		case q.QueuePos == from:
			q.QueuePos = to
		case from < q.QueuePos && to >= q.QueuePos:
			q.QueuePos--
		case from > q.QueuePos && to <= q.QueuePos:
			q.QueuePos++
		}
	}

	b.BubbleUp(q)
	b.scheduleRewrite(q)
	return true
}

// SetCurrentQueue loads a queue into the active player. When the player's
// current item already matches the queue's target track, only the items
// around it are spliced so playback continues uninterrupted; otherwise the
// item list is replaced wholesale. autoSeek seeks to the start of the target
// item on a full reload.
func (b *Board) SetCurrentQueue(p player.Player, q *Queue, autoSeek bool) {
	b.makeCurrent(q)

	items := playerItems(q)
	pos := q.PlayerIndex()

	cur, ok := p.CurrentItem()
	if ok && pos >= 0 && cur.TrackID == items[pos].TrackID {
		// Seamless splice: leave the playing item in place.
		p.ReplaceItems(0, p.CurrentIndex(), items[:pos])
		p.ReplaceItems(pos+1, p.ItemCount(), items[pos+1:])
	} else {
		p.SetItems(items, pos, 0)
		if autoSeek && pos >= 0 {
			p.SeekTo(pos, 0)
		}
	}
	b.scheduleMaster()
}

// SyncPosition records a player-reported traversal index as the queue's
// current position and schedules persistence.
func (b *Board) SyncPosition(q *Queue, traversal int) {
	if storage := q.StorageIndex(traversal); storage >= 0 {
		q.QueuePos = storage
	}
	b.scheduleRewrite(q)
}

// BubbleUp relocates a queue to the end of the master list, marking it most
// recently used. This is the only recency mechanism; there is no timestamp.
func (b *Board) BubbleUp(q *Queue) {
	idx := -1
	for i, cand := range b.queues {
		if cand == q {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(b.queues)-1 {
		if idx >= 0 {
			b.scheduleMaster()
		}
		return
	}
	b.queues = append(b.queues[:idx], b.queues[idx+1:]...)
	b.queues = append(b.queues, q)
	switch {
	case b.masterIndex == idx:
		b.masterIndex = len(b.queues) - 1
	case b.masterIndex > idx:
		b.masterIndex--
	}
	b.scheduleMaster()
}

// DeleteQueue removes a queue from the board and from storage.
func (b *Board) DeleteQueue(q *Queue) {
	idx := -1
	for i, cand := range b.queues {
		if cand == q {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	b.queues = append(b.queues[:idx], b.queues[idx+1:]...)
	switch {
	case len(b.queues) == 0:
		b.masterIndex = -1
	case b.masterIndex > idx:
		b.masterIndex--
	case b.masterIndex >= len(b.queues):
		b.masterIndex = len(b.queues) - 1
	}
	b.scheduleDelete(q.ID)
	b.scheduleMaster()
}

// Flush forces pending saves to execute now. Used on shutdown paths that
// cannot wait for the idle window.
func (b *Board) Flush() {
	if b.saver != nil {
		b.saver.Flush()
	}
}

func (b *Board) scheduleRewrite(q *Queue) {
	if b.saver == nil {
		return
	}
	snap := q.Clone()
	position := -1
	for i, cand := range b.queues {
		if cand == q {
			position = i
			break
		}
	}
	b.saver.Schedule("queue:"+q.ID, func(ctx context.Context) error {
		return b.persist.RewriteQueue(ctx, snap, position)
	})
}

func (b *Board) scheduleMaster() {
	if b.saver == nil {
		return
	}
	snaps := make([]*Queue, len(b.queues))
	for i, q := range b.queues {
		c := *q
		c.Tracks = nil // master save covers ordering and metadata only
		snaps[i] = &c
	}
	masterIndex := b.masterIndex
	b.saver.Schedule("master", func(ctx context.Context) error {
		return b.persist.UpdateAllQueues(ctx, snaps, masterIndex)
	})
}

func (b *Board) scheduleDelete(id string) {
	if b.saver == nil {
		return
	}
	b.saver.Schedule("queue:"+id, func(ctx context.Context) error {
		return b.persist.DeleteQueue(ctx, id)
	})
}

func playerItems(q *Queue) []player.Item {
	ordered := q.TracksInOrder()
	items := make([]player.Item, len(ordered))
	for i, t := range ordered {
		items[i] = player.Item{
			TrackID:  t.ID,
			Title:    t.Title,
			Artist:   t.Artist(),
			Album:    t.Album,
			Duration: t.Duration,
			IsLocal:  t.IsLocal,
		}
	}
	return items
}
