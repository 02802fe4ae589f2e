package player

import (
	"sync"
	"time"
)

// ReplaceCall records one ReplaceItems invocation.
type ReplaceCall struct {
	From, To int
	Items    []Item
}

// Mock is a test double for Player. It keeps the same item-list bookkeeping
// as the engine, records mutating calls and lets tests emit events manually.
type Mock struct {
	mu sync.Mutex

	items []Item
	index int
	pos   time.Duration

	state         State
	playWhenReady bool
	repeat        RepeatMode

	events chan Event

	setItemsCalls int
	replaceCalls  []ReplaceCall
	insertCalls   int
	prepareCalls  int
	seekCalls     []int
}

// NewMock creates a mock player.
func NewMock() *Mock {
	return &Mock{
		state:  Idle,
		events: make(chan Event, eventBufferSize),
	}
}

// Verify Mock implements Player at compile time.
var _ Player = (*Mock)(nil)

func (m *Mock) SetItems(items []Item, startIndex int, startPos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]Item(nil), items...)
	m.index = clamp(startIndex, 0, len(m.items)-1)
	m.pos = startPos
	m.setItemsCalls++
}

func (m *Mock) ReplaceItems(from, to int, items []Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from = clamp(from, 0, len(m.items))
	to = clamp(to, from, len(m.items))
	rest := append([]Item(nil), m.items[to:]...)
	m.items = append(m.items[:from], append(append([]Item(nil), items...), rest...)...)
	if m.index >= to {
		m.index += len(items) - (to - from)
	}
	m.replaceCalls = append(m.replaceCalls, ReplaceCall{From: from, To: to, Items: items})
}

func (m *Mock) InsertItems(index int, items []Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	index = clamp(index, 0, len(m.items))
	rest := append([]Item(nil), m.items[index:]...)
	m.items = append(m.items[:index], append(append([]Item(nil), items...), rest...)...)
	if index <= m.index {
		m.index += len(items)
	}
	m.insertCalls++
}

func (m *Mock) RemoveItems(from, to int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from = clamp(from, 0, len(m.items))
	to = clamp(to, from, len(m.items))
	m.items = append(m.items[:from], m.items[to:]...)
	if m.index >= to {
		m.index -= to - from
	} else if m.index >= from {
		m.index = clamp(from, 0, len(m.items)-1)
	}
}

func (m *Mock) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Item(nil), m.items...)
}

func (m *Mock) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Mock) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *Mock) CurrentItem() (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index < 0 || m.index >= len(m.items) {
		return Item{}, false
	}
	return m.items[m.index], true
}

func (m *Mock) Prepare() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepareCalls++
	m.state = Ready
}

func (m *Mock) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playWhenReady = true
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playWhenReady = false
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playWhenReady = false
	m.state = Idle
}

func (m *Mock) SetPlayWhenReady(p bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playWhenReady = p
}

func (m *Mock) PlayWhenReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playWhenReady
}

func (m *Mock) SeekTo(index int, pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = clamp(index, 0, len(m.items)-1)
	m.pos = pos
	m.seekCalls = append(m.seekCalls, index)
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index < 0 || m.index >= len(m.items) {
		return 0
	}
	return m.items[m.index].Duration
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) SetRepeatMode(mode RepeatMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repeat = mode
}

func (m *Mock) RepeatMode() RepeatMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repeat
}

func (m *Mock) Events() <-chan Event { return m.events }

func (m *Mock) Close() error {
	close(m.events)
	return nil
}

// Test helpers

// Emit pushes an event onto the stream.
func (m *Mock) Emit(ev Event) { m.events <- ev }

// SimulateTransition moves the mock to index and emits the transition.
func (m *Mock) SimulateTransition(index int, reason TransitionReason) {
	m.mu.Lock()
	m.index = clamp(index, 0, len(m.items)-1)
	m.pos = 0
	m.mu.Unlock()
	m.Emit(ItemTransition{Index: index, Reason: reason})
}

// SimulateError emits a playback error for the current index.
func (m *Mock) SimulateError(err error) {
	m.mu.Lock()
	index := m.index
	m.mu.Unlock()
	m.Emit(PlayerError{Index: index, Err: err})
}

func (m *Mock) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = pos
}

func (m *Mock) SetItemsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setItemsCalls
}

func (m *Mock) ReplaceCalls() []ReplaceCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ReplaceCall(nil), m.replaceCalls...)
}

func (m *Mock) PrepareCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prepareCalls
}

func (m *Mock) SeekCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.seekCalls...)
}
