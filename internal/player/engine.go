package player

import (
	"context"
	"sync"
	"time"
)

const (
	eventBufferSize = 64
	tickInterval    = 200 * time.Millisecond
)

// SourceFunc resolves a track id to a playable source URL. The engine calls
// it whenever an item needs (re)preparing, so evicting a cached URL upstream
// forces a fresh resolution on the next Prepare.
type SourceFunc func(ctx context.Context, trackID string, isLocal bool) (string, error)

// Engine is a headless Player implementation. It keeps the item list and
// transport state machine, resolves sources through a SourceFunc and advances
// through items on a wall-clock tick; actual audio output is delegated to
// the platform media framework.
type Engine struct {
	mu sync.Mutex

	items []Item
	index int
	pos   time.Duration

	state         State
	playWhenReady bool
	repeat        RepeatMode

	source     SourceFunc
	sourceURL  string
	resolveGen int

	events chan Event

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Verify Engine implements Player at compile time.
var _ Player = (*Engine)(nil)

// NewEngine creates an engine resolving sources through the given func.
func NewEngine(source SourceFunc) *Engine {
	e := &Engine{
		source: source,
		state:  Idle,
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}
	e.wg.Add(1)
	go e.tickLoop()
	return e
}

func (e *Engine) Events() <-chan Event { return e.events }

// Close stops the engine and closes the event stream.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	e.wg.Wait()
	close(e.events)
	return nil
}

// emit delivers an event without blocking; slow consumers lose events
// rather than wedging the engine.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}

func (e *Engine) setStateLocked(s State) {
	if e.state == s {
		return
	}
	e.state = s
	e.emit(StateChange{State: s})
}

// SetItems replaces the item list and moves to startIndex.
func (e *Engine) SetItems(items []Item, startIndex int, startPos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append([]Item(nil), items...)
	e.index = clamp(startIndex, 0, len(e.items)-1)
	e.pos = startPos
	e.sourceURL = ""
	e.resolveGen++
	e.setStateLocked(Idle)
	if len(e.items) > 0 {
		e.emit(ItemTransition{Index: e.index, Reason: TransitionItemsChanged})
	}
}

// ReplaceItems replaces the half-open range [from, to) with items. The
// current index shifts with the splice; replacing the range that contains
// the current item resets playback to the start of the spliced-in range.
func (e *Engine) ReplaceItems(from, to int, items []Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	from = clamp(from, 0, len(e.items))
	to = clamp(to, from, len(e.items))

	rest := append([]Item(nil), e.items[to:]...)
	e.items = append(e.items[:from], append(append([]Item(nil), items...), rest...)...)

	delta := len(items) - (to - from)
	switch {
	case e.index >= to:
		e.index += delta
	case e.index >= from:
		e.index = clamp(from, 0, len(e.items)-1)
		e.pos = 0
		e.sourceURL = ""
		e.emit(ItemTransition{Index: e.index, Reason: TransitionItemsChanged})
		if e.state != Idle {
			e.prepareLocked()
		}
	}
}

// InsertItems inserts items at the given index.
func (e *Engine) InsertItems(index int, items []Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	index = clamp(index, 0, len(e.items))
	rest := append([]Item(nil), e.items[index:]...)
	e.items = append(e.items[:index], append(append([]Item(nil), items...), rest...)...)
	if index <= e.index {
		e.index += len(items)
	}
}

// RemoveItems removes the half-open range [from, to).
func (e *Engine) RemoveItems(from, to int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	from = clamp(from, 0, len(e.items))
	to = clamp(to, from, len(e.items))
	if from == to {
		return
	}
	e.items = append(e.items[:from], e.items[to:]...)
	switch {
	case e.index >= to:
		e.index -= to - from
	case e.index >= from:
		e.index = clamp(from, 0, len(e.items)-1)
		e.pos = 0
		e.sourceURL = ""
		if len(e.items) == 0 {
			e.setStateLocked(Idle)
			return
		}
		e.emit(ItemTransition{Index: e.index, Reason: TransitionItemsChanged})
		if e.state != Idle {
			e.prepareLocked()
		}
	}
}

func (e *Engine) Items() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Item(nil), e.items...)
}

func (e *Engine) ItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

func (e *Engine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

func (e *Engine) CurrentItem() (Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index < 0 || e.index >= len(e.items) {
		return Item{}, false
	}
	return e.items[e.index], true
}

// Prepare resolves the current item's source asynchronously. A stale
// resolution (the item changed while it was in flight) is discarded.
func (e *Engine) Prepare() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prepareLocked()
}

func (e *Engine) prepareLocked() {
	if e.index < 0 || e.index >= len(e.items) || e.source == nil {
		return
	}
	e.setStateLocked(Buffering)
	e.resolveGen++
	gen := e.resolveGen
	index := e.index
	trackID := e.items[index].TrackID
	isLocal := e.items[index].IsLocal

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		url, err := e.source(context.Background(), trackID, isLocal)

		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.resolveGen {
			return // superseded, discard
		}
		if err != nil {
			e.setStateLocked(Idle)
			e.emit(PlayerError{Index: index, Err: err})
			return
		}
		e.sourceURL = url
		e.setStateLocked(Ready)
	}()
}

func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playWhenReady {
		e.playWhenReady = true
		e.emit(PlayWhenReadyChange{PlayWhenReady: true})
	}
	if e.state == Idle && len(e.items) > 0 {
		e.prepareLocked()
	}
}

func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playWhenReady {
		e.playWhenReady = false
		e.emit(PlayWhenReadyChange{PlayWhenReady: false})
	}
}

func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playWhenReady {
		e.playWhenReady = false
		e.emit(PlayWhenReadyChange{PlayWhenReady: false})
	}
	e.pos = 0
	e.sourceURL = ""
	e.resolveGen++
	e.setStateLocked(Idle)
}

func (e *Engine) SetPlayWhenReady(playWhenReady bool) {
	if playWhenReady {
		e.Play()
	} else {
		e.Pause()
	}
}

func (e *Engine) PlayWhenReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playWhenReady
}

// SeekTo moves to an item and position. Seeking to a different item emits a
// transition and re-prepares.
func (e *Engine) SeekTo(index int, pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.items) == 0 {
		return
	}
	index = clamp(index, 0, len(e.items)-1)
	changed := index != e.index
	e.index = index
	e.pos = pos
	if changed {
		e.sourceURL = ""
		e.emit(ItemTransition{Index: index, Reason: TransitionSeek})
		if e.state != Idle {
			e.prepareLocked()
		}
	}
}

func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index < 0 || e.index >= len(e.items) {
		return 0
	}
	return e.items[e.index].Duration
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) SetRepeatMode(mode RepeatMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repeat = mode
}

func (e *Engine) RepeatMode() RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repeat
}

func (e *Engine) tickLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			e.tick(elapsed)
		case <-e.done:
			return
		}
	}
}

func (e *Engine) tick(elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Ready || !e.playWhenReady {
		return
	}
	if e.index < 0 || e.index >= len(e.items) {
		return
	}
	e.pos += elapsed
	if dur := e.items[e.index].Duration; dur > 0 && e.pos >= dur {
		e.advanceLocked()
	}
}

// advanceLocked moves to the next item when the current one finishes,
// honoring the repeat mode.
func (e *Engine) advanceLocked() {
	e.pos = 0
	if e.repeat == RepeatOne {
		e.emit(ItemTransition{Index: e.index, Reason: TransitionAuto})
		return
	}
	next := e.index + 1
	if next >= len(e.items) {
		if e.repeat != RepeatAll {
			e.setStateLocked(Ended)
			return
		}
		next = 0
	}
	e.index = next
	e.sourceURL = ""
	e.emit(ItemTransition{Index: next, Reason: TransitionAuto})
	e.prepareLocked()
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
