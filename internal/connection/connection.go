// Package connection is the read-mostly facade control surfaces talk to. It
// holds no state of its own: reads delegate to the session and the store,
// writes forward to the session unchanged, so it can never diverge from the
// session's truth.
package connection

import (
	"context"
	"errors"
	"time"

	"github.com/lcrosetto/aria/internal/catalog"
	"github.com/lcrosetto/aria/internal/lyrics"
	"github.com/lcrosetto/aria/internal/queue"
	"github.com/lcrosetto/aria/internal/session"
	"github.com/lcrosetto/aria/internal/store"
)

// ErrNoTrack is returned by track-derived reads when nothing is playing.
var ErrNoTrack = errors.New("no current track")

// Formats is the store surface for persisted stream format metadata.
type Formats interface {
	Format(ctx context.Context, trackID string) (catalog.Format, error)
}

// Downloads is the offline-download boundary.
type Downloads interface {
	Enqueue(ctx context.Context, trackID string, isLocal bool) error
	Remove(ctx context.Context, trackID string) error
	Status(ctx context.Context, trackID string) (*store.Download, error)
}

// Connection exposes playback state and forwards intents to the session.
type Connection struct {
	session   *session.Orchestrator
	formats   Formats        // may be nil
	lyrics    *lyrics.Client // may be nil
	downloads Downloads      // may be nil
}

// New creates a connection. formats, lyricsClient and downloads may be nil.
func New(s *session.Orchestrator, formats Formats, lyricsClient *lyrics.Client, downloads Downloads) *Connection {
	return &Connection{
		session:   s,
		formats:   formats,
		lyrics:    lyricsClient,
		downloads: downloads,
	}
}

// Subscribe registers for session events.
func (c *Connection) Subscribe() *session.Subscription {
	return c.session.Subscribe()
}

// Unsubscribe removes a subscription.
func (c *Connection) Unsubscribe(sub *session.Subscription) {
	c.session.Unsubscribe(sub)
}

// State returns the current session state snapshot.
func (c *Connection) State() session.State {
	return c.session.State()
}

// CurrentTrack returns the playing track, or nil.
func (c *Connection) CurrentTrack() *queue.Track {
	return c.session.CurrentTrack()
}

// CurrentQueue returns the current queue, or nil.
func (c *Connection) CurrentQueue() *queue.Queue {
	return c.session.CurrentQueue()
}

// Position returns the playback position within the current item.
func (c *Connection) Position() time.Duration {
	return c.session.Position()
}

// Duration returns the duration of the current item.
func (c *Connection) Duration() time.Duration {
	return c.session.Duration()
}

// Format returns the persisted stream format of the playing track.
func (c *Connection) Format(ctx context.Context) (catalog.Format, error) {
	t := c.session.CurrentTrack()
	if t == nil || c.formats == nil {
		return catalog.Format{}, ErrNoTrack
	}
	return c.formats.Format(ctx, t.ID)
}

// Lyrics returns parsed lyrics for the playing track, synced when available.
func (c *Connection) Lyrics(ctx context.Context) (*lyrics.Lyrics, error) {
	t := c.session.CurrentTrack()
	if t == nil || c.lyrics == nil {
		return nil, ErrNoTrack
	}
	r, err := c.lyrics.ForTrack(ctx, t.ID, t.Artist(), t.Title, t.Duration)
	if err != nil {
		return nil, err
	}
	l := r.Parse()
	if l == nil {
		return nil, lyrics.ErrNotFound
	}
	return l, nil
}

// PlayQueue forwards a play request to the session.
func (c *Connection) PlayQueue(req session.PlayRequest) {
	c.session.PlayQueue(req)
}

// EnqueueNext inserts tracks after the playing item.
func (c *Connection) EnqueueNext(tracks []*queue.Track) {
	c.session.EnqueueNext(tracks)
}

// EnqueueEnd appends tracks to the current queue.
func (c *Connection) EnqueueEnd(tracks []*queue.Track) {
	c.session.EnqueueEnd(tracks)
}

// Toggle flips play/pause.
func (c *Connection) Toggle() { c.session.Toggle() }

// Next skips forward.
func (c *Connection) Next() { c.session.Next() }

// Previous restarts or skips back.
func (c *Connection) Previous() { c.session.Previous() }

// SeekTo seeks within the current item.
func (c *Connection) SeekTo(pos time.Duration) { c.session.SeekTo(pos) }

// TriggerShuffle toggles shuffle on the current queue.
func (c *Connection) TriggerShuffle() { c.session.ToggleShuffle() }

// CycleRepeat advances the repeat mode.
func (c *Connection) CycleRepeat() { c.session.CycleRepeat() }

// ToggleLike flips the liked flag of the playing track.
func (c *Connection) ToggleLike() { c.session.ToggleLike() }

// ToggleLibrary flips the library membership of the playing track.
func (c *Connection) ToggleLibrary() { c.session.ToggleLibrary() }

// StartRadio starts a radio seeded by the playing track.
func (c *Connection) StartRadio() { c.session.StartRadio() }

// DownloadCurrent enqueues the playing track for offline download.
func (c *Connection) DownloadCurrent(ctx context.Context) error {
	t := c.session.CurrentTrack()
	if t == nil || c.downloads == nil {
		return ErrNoTrack
	}
	return c.downloads.Enqueue(ctx, t.ID, t.IsLocal)
}

// RemoveDownload drops the download request for a track.
func (c *Connection) RemoveDownload(ctx context.Context, trackID string) error {
	if c.downloads == nil {
		return ErrNoTrack
	}
	return c.downloads.Remove(ctx, trackID)
}

// DownloadStatus returns the download state for a track.
func (c *Connection) DownloadStatus(ctx context.Context, trackID string) (*store.Download, error) {
	if c.downloads == nil {
		return nil, store.ErrNotFound
	}
	return c.downloads.Status(ctx, trackID)
}
