// Package session is the playback orchestrator: it owns the single player
// instance, routes player events into queue and database updates, and applies
// the error-recovery policy. All player and board mutation happens under one
// lock, so the two are never touched concurrently.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lcrosetto/aria/internal/catalog"
	"github.com/lcrosetto/aria/internal/player"
	"github.com/lcrosetto/aria/internal/queue"
	"github.com/lcrosetto/aria/internal/resolver"
	"github.com/lcrosetto/aria/internal/store"
)

const (
	// maxStreamRefreshes bounds in-place refreshes of an expired stream URL
	// before the error falls through to the skip-or-stop policy.
	maxStreamRefreshes = 3

	// errorBudget is the runaway guard: each error adds 2, each successful
	// transition subtracts 1. Above the budget playback pauses instead of
	// cycling through the whole queue on a systemic fault.
	errorBudget = 3

	// loadMoreThreshold triggers a continuation fetch when fewer upcoming
	// items remain in a radio queue.
	loadMoreThreshold = 5

	// previousRestartsAfter: Previous restarts the current track instead of
	// jumping back when playback is past this position.
	previousRestartsAfter = 3 * time.Second

	asyncTimeout = 30 * time.Second
)

// CatalogService is the slice of the catalog API the session needs beyond
// stream resolution.
type CatalogService interface {
	Radio(ctx context.Context, trackID string) ([]catalog.Item, string, error)
	Continuation(ctx context.Context, endpoint string) ([]catalog.Item, string, error)
	RegisterPlayback(ctx context.Context, trackingURL string) error
}

// StreamResolver is the resolver surface used for cache control.
type StreamResolver interface {
	Evict(trackID string)
	CachedFormat(trackID string) (catalog.Format, bool)
}

// Library is the database surface the session writes playback bookkeeping
// through. May be nil to disable persistence of flags and stats.
type Library interface {
	Song(ctx context.Context, id string) (*store.Song, error)
	SetLiked(ctx context.Context, id, title string, liked bool) error
	SetInLibrary(ctx context.Context, id, title string, inLibrary bool) error
	IncrementPlayCount(ctx context.Context, id, title string) error
	IncrementTotalPlayTime(ctx context.Context, id string, d time.Duration) error
	InsertEvent(ctx context.Context, e store.Event) error
	Format(ctx context.Context, trackID string) (catalog.Format, error)
	SavePosition(ctx context.Context, pos time.Duration) error
	LastPosition(ctx context.Context) (time.Duration, error)
}

// Options configure the orchestrator.
type Options struct {
	SkipOnError bool
}

// PlayRequest is the single public entry point payload for "start playing
// this thing".
type PlayRequest struct {
	Title         string
	Tracks        []*queue.Track
	StartIndex    int
	Shuffled      bool
	Replace       bool
	ForceInsert   bool
	Delta         bool
	PlaylistID    string
	PlayWhenReady bool
}

// Orchestrator coordinates the player, the queue board, the resolver and the
// database. Commands may be called from any goroutine; they serialize on the
// internal lock together with the player event loop.
type Orchestrator struct {
	mu sync.Mutex

	player   player.Player
	board    *queue.Board
	resolver StreamResolver
	catalog  CatalogService
	library  Library

	skipOnError bool

	online            bool
	waitingForNetwork bool
	consecutiveErrors int
	streamRefreshes   int

	liked     bool
	inLibrary bool

	// loadGen invalidates in-flight async fetches when the current queue or
	// track changes under them.
	loadGen int

	lastTrackID string
	lastStart   time.Time

	subsMu sync.Mutex
	subs   []*Subscription

	logger *log.Logger
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates an orchestrator and starts its player event loop. catalog and
// library may be nil (no radio continuation, no stats persistence).
func New(p player.Player, board *queue.Board, res StreamResolver, cat CatalogService, lib Library, opts Options, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	o := &Orchestrator{
		player:      p,
		board:       board,
		resolver:    res,
		catalog:     cat,
		library:     lib,
		skipOnError: opts.SkipOnError,
		online:      true,
		logger:      logger.With("component", "session"),
		done:        make(chan struct{}),
	}
	o.wg.Add(1)
	go o.eventLoop()
	return o
}

// Subscribe registers a new event subscriber.
func (o *Orchestrator) Subscribe() *Subscription {
	sub := newSubscription()
	o.subsMu.Lock()
	o.subs = append(o.subs, sub)
	o.subsMu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its done channel.
func (o *Orchestrator) Unsubscribe(sub *Subscription) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	for i, s := range o.subs {
		if s == sub {
			o.subs = append(o.subs[:i], o.subs[i+1:]...)
			sub.close()
			return
		}
	}
}

// Restore reattaches the persisted board snapshot and seeks to the last known
// position without starting playback.
func (o *Orchestrator) Restore(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.board.Restore(ctx); err != nil {
		return err
	}
	q := o.board.CurrentQueue()
	if q == nil || q.Size() == 0 {
		return nil
	}
	o.board.SetCurrentQueue(o.player, q, false)

	if o.library != nil {
		if pos, err := o.library.LastPosition(ctx); err == nil && pos > 0 {
			o.player.SeekTo(q.PlayerIndex(), pos)
		}
	}
	o.player.SetPlayWhenReady(false)
	o.player.Prepare()
	o.afterQueueChange(q)
	return nil
}

// PlayQueue routes the request's tracks onto the board and, when the board
// reports the addition as disruptive, reloads the player and starts playback.
func (o *Orchestrator) PlayQueue(req PlayRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playQueueLocked(req)
}

func (o *Orchestrator) playQueueLocked(req PlayRequest) {
	q, reload := o.board.AddQueue(req.Title, req.Tracks, queue.AddOptions{
		Shuffled:    req.Shuffled,
		ForceInsert: req.ForceInsert,
		Replace:     req.Replace,
		Delta:       req.Delta,
		StartIndex:  req.StartIndex,
		PlaylistID:  req.PlaylistID,
	})
	if !reload {
		o.mirrorAppend(q)
		o.notifyQueue(q)
		return
	}

	o.loadGen++
	o.board.SetCurrentQueue(o.player, q, true)
	o.player.SetPlayWhenReady(req.PlayWhenReady)
	o.player.Prepare()
	o.resetErrorState()
	o.afterQueueChange(q)
}

// EnqueueNext inserts tracks right after the playing item in the current
// queue. With no current queue it starts a new one.
func (o *Orchestrator) EnqueueNext(tracks []*queue.Track) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enqueueAt(tracks, true)
}

// EnqueueEnd appends tracks to the end of the current queue.
func (o *Orchestrator) EnqueueEnd(tracks []*queue.Track) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enqueueAt(tracks, false)
}

func (o *Orchestrator) enqueueAt(tracks []*queue.Track, next bool) {
	q := o.board.CurrentQueue()
	if q == nil {
		o.playQueueLocked(PlayRequest{Title: "Queue", Tracks: tracks, PlayWhenReady: true})
		return
	}

	pos := q.Size()
	if next {
		pos = q.PlayerIndex() + 1
	}
	o.board.AddTracks(q, pos, tracks, false)
	o.player.InsertItems(pos, toItems(tracks))
	o.notifyQueue(q)
	o.notifyState()
}

// Toggle flips the play/pause intent.
func (o *Orchestrator) Toggle() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player.PlayWhenReady() {
		o.player.Pause()
	} else {
		o.player.Play()
	}
}

// Next skips to the following item, wrapping under repeat-all.
func (o *Orchestrator) Next() {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := o.player.CurrentIndex()
	count := o.player.ItemCount()
	switch {
	case idx+1 < count:
		o.player.SeekTo(idx+1, 0)
	case count > 0 && o.player.RepeatMode() == player.RepeatAll:
		o.player.SeekTo(0, 0)
	default:
		return
	}
	o.player.Prepare()
}

// Previous restarts the current track when playback is past a few seconds,
// otherwise jumps to the preceding item.
func (o *Orchestrator) Previous() {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := o.player.CurrentIndex()
	if o.player.Position() > previousRestartsAfter || idx <= 0 {
		o.player.SeekTo(idx, 0)
		return
	}
	o.player.SeekTo(idx-1, 0)
	o.player.Prepare()
}

// SeekTo seeks within the current item.
func (o *Orchestrator) SeekTo(pos time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.player.SeekTo(o.player.CurrentIndex(), pos)
}

// ToggleShuffle flips the current queue's shuffle state and splices the
// player item list so the playing track is uninterrupted.
func (o *Orchestrator) ToggleShuffle() {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.board.CurrentQueue()
	if q == nil {
		return
	}
	if q.Shuffled {
		o.board.UnShuffle(q)
	} else {
		o.board.Shuffle(q, true)
	}
	o.board.SetCurrentQueue(o.player, q, false)
	o.notifyQueue(q)
	o.notifyState()
}

// CycleRepeat advances the repeat mode Off -> All -> One -> Off.
func (o *Orchestrator) CycleRepeat() {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.player.RepeatMode() {
	case player.RepeatOff:
		o.player.SetRepeatMode(player.RepeatAll)
	case player.RepeatAll:
		o.player.SetRepeatMode(player.RepeatOne)
	case player.RepeatOne:
		o.player.SetRepeatMode(player.RepeatOff)
	}
	o.notifyState()
}

// ToggleLike flips the liked flag of the playing track.
func (o *Orchestrator) ToggleLike() {
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.currentTrackLocked()
	if t == nil || o.library == nil {
		return
	}
	o.liked = !o.liked
	o.writeAsync("like", func(ctx context.Context) error {
		return o.library.SetLiked(ctx, t.ID, t.Title, o.liked)
	})
	o.notifyState()
}

// ToggleLibrary flips the library membership of the playing track.
func (o *Orchestrator) ToggleLibrary() {
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.currentTrackLocked()
	if t == nil || o.library == nil {
		return
	}
	o.inLibrary = !o.inLibrary
	o.writeAsync("library", func(ctx context.Context) error {
		return o.library.SetInLibrary(ctx, t.ID, t.Title, o.inLibrary)
	})
	o.notifyState()
}

// StartRadio builds a radio queue seeded by the playing track and starts it.
func (o *Orchestrator) StartRadio() {
	o.mu.Lock()
	seed := o.currentTrackLocked()
	if seed == nil || o.catalog == nil {
		o.mu.Unlock()
		return
	}
	gen := o.loadGen
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()

		items, continuation, err := o.catalog.Radio(ctx, seed.ID)
		if err != nil {
			o.logger.Warn("radio fetch failed", "seed", seed.ID, "err", err)
			o.notifyNotice(Notice{Level: NoticeTransient, Message: "could not start radio"})
			return
		}

		o.mu.Lock()
		defer o.mu.Unlock()
		if gen != o.loadGen {
			// The session moved on while we were fetching.
			return
		}
		tracks := append([]*queue.Track{seed.Clone()}, toTracks(items)...)
		o.playQueueLocked(PlayRequest{
			Title:         seed.Title + " Radio",
			Tracks:        tracks,
			PlaylistID:    continuation,
			Replace:       true,
			PlayWhenReady: true,
		})
	}()
}

// OnNetworkChanged tells the session about connectivity transitions. Going
// online while waiting for the network resumes playback in place.
func (o *Orchestrator) OnNetworkChanged(online bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.online = online
	if online && o.waitingForNetwork {
		o.waitingForNetwork = false
		o.player.Prepare()
		o.player.Play()
		o.logger.Info("network restored, resuming playback")
		o.notifyState()
	}
}

// State returns the current session state snapshot.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

// CurrentTrack returns the playing track, or nil.
func (o *Orchestrator) CurrentTrack() *queue.Track {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentTrackLocked()
}

// CurrentQueue returns the current queue, or nil.
func (o *Orchestrator) CurrentQueue() *queue.Queue {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.board.CurrentQueue()
}

// Position returns the playback position within the current item.
func (o *Orchestrator) Position() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.player.Position()
}

// Duration returns the duration of the current item.
func (o *Orchestrator) Duration() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.player.Duration()
}

// Close persists the playback position, flushes pending queue saves and
// releases the player.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.library != nil {
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		if err := o.library.SavePosition(ctx, o.player.Position()); err != nil {
			o.logger.Warn("save position failed", "err", err)
		}
		cancel()
	}
	o.mu.Unlock()

	o.board.Flush()
	o.board.Close()

	err := o.player.Close()

	close(o.done)
	o.wg.Wait()

	o.subsMu.Lock()
	for _, s := range o.subs {
		s.close()
	}
	o.subs = nil
	o.subsMu.Unlock()
	return err
}

func (o *Orchestrator) eventLoop() {
	defer o.wg.Done()
	events := o.player.Events()
	for {
		select {
		case <-o.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			o.dispatch(ev)
		}
	}
}

// dispatch is the single handler for the player's event sum type. Events are
// processed in emission order.
func (o *Orchestrator) dispatch(ev player.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch e := ev.(type) {
	case player.ItemTransition:
		o.handleTransition(e)
	case player.StateChange:
		o.notifyState()
	case player.PlayWhenReadyChange:
		o.notifyState()
	case player.PlayerError:
		o.handleError(e)
	}
}

func (o *Orchestrator) handleTransition(e player.ItemTransition) {
	q := o.board.CurrentQueue()
	if q == nil {
		return
	}

	o.board.SyncPosition(q, e.Index)

	// A successful transition pays down the error budget and resets the
	// per-track refresh counter.
	if o.consecutiveErrors > 0 {
		o.consecutiveErrors--
	}
	o.streamRefreshes = 0
	o.waitingForNetwork = false

	// Splice-induced transitions re-report the track already playing; stats
	// only move when the track actually changes (or repeat-one replays it).
	t := q.CurrentTrack()
	if t != nil && (t.ID != o.lastTrackID || e.Reason == player.TransitionAuto) {
		o.accountPlayTime()
		o.lastTrackID = t.ID
		o.lastStart = time.Now()
		o.recordPlayback(t, q.PlaylistID)
		o.refreshFlags(t)
	}

	// Wrap-around under shuffle + repeat-all gets a fresh permutation.
	if e.Reason == player.TransitionAuto && e.Index == 0 && q.Shuffled &&
		o.player.RepeatMode() == player.RepeatAll && q.Size() > 1 {
		o.board.Shuffle(q, false)
		o.board.SetCurrentQueue(o.player, q, true)
		o.player.Prepare()
	}

	o.maybeLoadMore(q, e.Index)
	o.notifyTrack(t, e.Index)
	o.notifyState()
}

// maybeLoadMore fetches the next continuation page when a radio queue runs
// low on upcoming items.
func (o *Orchestrator) maybeLoadMore(q *queue.Queue, traversal int) {
	if q.PlaylistID == "" || o.catalog == nil {
		return
	}
	if q.Size()-traversal-1 >= loadMoreThreshold {
		return
	}

	endpoint := q.PlaylistID
	queueID := q.ID
	gen := o.loadGen

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()

		items, next, err := o.catalog.Continuation(ctx, endpoint)
		if err != nil {
			o.logger.Warn("continuation fetch failed", "err", err)
			return
		}

		o.mu.Lock()
		defer o.mu.Unlock()
		cur := o.board.CurrentQueue()
		if gen != o.loadGen || cur == nil || cur.ID != queueID || cur.PlaylistID != endpoint {
			// Stale result: the queue changed while we were fetching.
			return
		}
		cur.PlaylistID = next
		tracks := toTracks(items)
		o.board.AddTracks(cur, cur.Size(), tracks, true)
		o.player.InsertItems(o.player.ItemCount(), toItems(tracks))
		o.notifyQueue(cur)
	}()
}

// handleError applies the per-class recovery policy. The orchestrator is the
// sole decision point; lower layers never skip tracks on their own.
func (o *Orchestrator) handleError(e player.PlayerError) {
	switch {
	case errors.Is(e.Err, resolver.ErrNoInternet):
		// External cause: does not count toward the error budget.
		o.waitingForNetwork = true
		o.logger.Info("waiting for network", "index", e.Index)
		o.notifyNotice(Notice{Level: NoticeTransient, Message: "waiting for network"})
		o.notifyState()

	case errors.Is(e.Err, resolver.ErrAuthRequired):
		o.player.SetPlayWhenReady(false)
		o.logger.Error("authentication required", "index", e.Index)
		o.notifyNotice(Notice{Level: NoticeBlocking, Message: "sign-in required to play this track"})
		o.notifyState()

	case errors.Is(e.Err, resolver.ErrStreamExpired):
		if o.streamRefreshes < maxStreamRefreshes {
			o.streamRefreshes++
			o.refreshStream(e.Index)
			return
		}
		o.logger.Warn("stream refresh budget exhausted", "index", e.Index)
		o.skipOrStop(e)

	default:
		o.skipOrStop(e)
	}
}

// refreshStream re-resolves an expired URL in place: evict the cached entry
// and re-insert the same logical item, preserving position and intent.
func (o *Orchestrator) refreshStream(index int) {
	items := o.player.Items()
	if index < 0 || index >= len(items) {
		return
	}
	item := items[index]
	pos := o.player.Position()
	playWhenReady := o.player.PlayWhenReady()

	o.resolver.Evict(item.TrackID)
	o.player.ReplaceItems(index, index+1, []player.Item{item})
	o.player.SeekTo(index, pos)
	o.player.SetPlayWhenReady(playWhenReady)
	o.player.Prepare()
	o.logger.Debug("refreshing expired stream", "track", item.TrackID, "attempt", o.streamRefreshes)
	o.notifyNotice(Notice{Level: NoticeTransient, Message: "refreshing stream"})
}

// skipOrStop applies the global policy for unclassified errors, guarded by
// the runaway budget.
func (o *Orchestrator) skipOrStop(e player.PlayerError) {
	o.consecutiveErrors += 2
	o.streamRefreshes = 0

	if o.consecutiveErrors > errorBudget {
		o.player.SetPlayWhenReady(false)
		o.logger.Error("error budget exhausted, stopping", "index", e.Index, "err", e.Err)
		o.notifyNotice(Notice{Level: NoticeBlocking, Message: "playback stopped after repeated errors"})
		o.notifyState()
		return
	}

	if !o.skipOnError {
		o.player.SetPlayWhenReady(false)
		o.notifyNotice(Notice{Level: NoticeBlocking, Message: "playback error: " + e.Err.Error()})
		o.notifyState()
		return
	}

	o.logger.Warn("skipping item on error", "index", e.Index, "err", e.Err)
	count := o.player.ItemCount()
	next := e.Index + 1
	if next >= count {
		if o.player.RepeatMode() != player.RepeatAll || count == 0 {
			o.player.SetPlayWhenReady(false)
			o.notifyState()
			return
		}
		next = 0
	}
	o.player.SeekTo(next, 0)
	o.player.Prepare()
}

// accountPlayTime credits listened time to the track we are leaving.
func (o *Orchestrator) accountPlayTime() {
	if o.library == nil || o.lastTrackID == "" || o.lastStart.IsZero() {
		return
	}
	played := time.Since(o.lastStart)
	id := o.lastTrackID
	o.writeAsync("play time", func(ctx context.Context) error {
		return o.library.IncrementTotalPlayTime(ctx, id, played)
	})
}

// recordPlayback bumps counters and reports the playback start upstream.
func (o *Orchestrator) recordPlayback(t *queue.Track, playlistID string) {
	if t.IsLocal {
		return
	}
	id, title := t.ID, t.Title

	if o.library != nil {
		o.writeAsync("play count", func(ctx context.Context) error {
			if err := o.library.IncrementPlayCount(ctx, id, title); err != nil {
				return err
			}
			return o.library.InsertEvent(ctx, store.Event{TrackID: id, PlaylistID: playlistID})
		})
	}

	if o.catalog == nil || o.resolver == nil {
		return
	}
	lib := o.library
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()
		trackingURL := ""
		if f, ok := o.resolver.CachedFormat(id); ok {
			trackingURL = f.TrackingURL
		} else if lib != nil {
			if f, err := lib.Format(ctx, id); err == nil {
				trackingURL = f.TrackingURL
			}
		}
		if trackingURL == "" {
			return
		}
		if err := o.catalog.RegisterPlayback(ctx, trackingURL); err != nil {
			o.logger.Debug("playback registration failed", "track", id, "err", err)
		}
	}()
}

// refreshFlags reloads the liked/library flags for the playing track.
func (o *Orchestrator) refreshFlags(t *queue.Track) {
	o.liked = false
	o.inLibrary = false
	if o.library == nil {
		return
	}
	id := t.ID
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()
		song, err := o.library.Song(ctx, id)
		if err != nil {
			return
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		cur := o.currentTrackLocked()
		if cur == nil || cur.ID != id {
			return
		}
		o.liked = song.Liked
		o.inLibrary = song.InLibrary
		o.notifyState()
	}()
}

// mirrorAppend reflects a non-disruptive board append into the player's item
// list when the appended queue is the one being played.
func (o *Orchestrator) mirrorAppend(q *queue.Queue) {
	if o.board.CurrentQueue() != q {
		return
	}
	ordered := q.TracksInOrder()
	have := o.player.ItemCount()
	if len(ordered) <= have {
		return
	}
	o.player.InsertItems(have, toItems(ordered[have:]))
}

func (o *Orchestrator) afterQueueChange(q *queue.Queue) {
	t := q.CurrentTrack()
	if t != nil {
		o.lastTrackID = t.ID
		o.lastStart = time.Now()
		o.refreshFlags(t)
	}
	o.notifyQueue(q)
	o.notifyTrack(t, q.PlayerIndex())
	o.notifyState()
}

func (o *Orchestrator) resetErrorState() {
	o.consecutiveErrors = 0
	o.streamRefreshes = 0
	o.waitingForNetwork = false
}

func (o *Orchestrator) currentTrackLocked() *queue.Track {
	q := o.board.CurrentQueue()
	if q == nil {
		return nil
	}
	return q.CurrentTrack()
}

func (o *Orchestrator) stateLocked() State {
	idx := o.player.CurrentIndex()
	count := o.player.ItemCount()
	repeat := o.player.RepeatMode()

	shuffled := false
	if q := o.board.CurrentQueue(); q != nil {
		shuffled = q.Shuffled
	}
	return State{
		PlayerState:       o.player.State(),
		PlayWhenReady:     o.player.PlayWhenReady(),
		Shuffled:          shuffled,
		Repeat:            repeat,
		Liked:             o.liked,
		InLibrary:         o.inLibrary,
		CanSkipNext:       count > 0 && (idx+1 < count || repeat == player.RepeatAll),
		CanSkipPrevious:   count > 0,
		WaitingForNetwork: o.waitingForNetwork,
	}
}

// writeAsync runs a fire-and-forget database write. Failures are logged and
// dropped; bookkeeping loss never disturbs playback.
func (o *Orchestrator) writeAsync(what string, fn func(ctx context.Context) error) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			o.logger.Warn("database write failed", "what", what, "err", err)
		}
	}()
}

func (o *Orchestrator) notifyState() {
	state := o.stateLocked()
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	for _, s := range o.subs {
		s.sendState(state)
	}
}

func (o *Orchestrator) notifyTrack(t *queue.Track, index int) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	for _, s := range o.subs {
		s.sendTrack(TrackChange{Track: t, Index: index})
	}
}

func (o *Orchestrator) notifyQueue(q *queue.Queue) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	for _, s := range o.subs {
		s.sendQueue(QueueChange{Queue: q})
	}
}

func (o *Orchestrator) notifyNotice(n Notice) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	for _, s := range o.subs {
		s.sendNotice(n)
	}
}

func toItems(tracks []*queue.Track) []player.Item {
	items := make([]player.Item, len(tracks))
	for i, t := range tracks {
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

func toTracks(items []catalog.Item) []*queue.Track {
	tracks := make([]*queue.Track, len(items))
	for i, it := range items {
		tracks[i] = &queue.Track{
			ID:       it.ID,
			Title:    it.Title,
			Artists:  it.Artists,
			Album:    it.Album,
			Duration: it.Duration,
		}
	}
	return tracks
}
