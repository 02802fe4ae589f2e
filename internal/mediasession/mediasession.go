//go:build linux

// Package mediasession exposes playback to the desktop over MPRIS. Remote
// commands map one to one onto session intents through the connection facade,
// and affordances are recomputed from the session state on every event.
package mediasession

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/lcrosetto/aria/internal/connection"
	"github.com/lcrosetto/aria/internal/player"
	"github.com/lcrosetto/aria/internal/session"
)

// Adapter connects the playback session to MPRIS over D-Bus.
type Adapter struct {
	conn   *connection.Connection
	server *server.Server
	sub    *session.Subscription
	done   chan struct{}
}

// New creates and starts a new media session adapter.
func New(conn *connection.Connection) (*Adapter, error) {
	a := &Adapter{
		conn: conn,
		done: make(chan struct{}),
	}

	rootAdapter := &rootAdapter{}
	playerAdapter := &playerAdapter{conn: conn}

	a.server = server.NewServer("aria", rootAdapter, playerAdapter)
	a.sub = conn.Subscribe()

	go func() {
		_ = a.server.Listen()
	}()

	// MPRIS clients read properties on demand through the adapter getters;
	// the subscription only needs draining so the session never sees a full
	// buffer from an idle subscriber.
	go a.drain()

	return a, nil
}

func (a *Adapter) drain() {
	for {
		select {
		case <-a.done:
			return
		case <-a.sub.Done:
			return
		case <-a.sub.StateChanged:
		case <-a.sub.TrackChanged:
		case <-a.sub.QueueChanged:
		case <-a.sub.Notices:
		}
	}
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	close(a.done)
	a.conn.Unsubscribe(a.sub)
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - the daemon manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil // Track list interface not implemented
}

func (r *rootAdapter) Identity() (string, error) {
	return "Aria", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mp4", "audio/webm", "audio/opus"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and optional
// interfaces.
type playerAdapter struct {
	conn *connection.Connection
}

func (p *playerAdapter) Next() error {
	p.conn.Next()
	return nil
}

func (p *playerAdapter) Previous() error {
	p.conn.Previous()
	return nil
}

func (p *playerAdapter) Pause() error {
	if p.conn.State().PlayWhenReady {
		p.conn.Toggle()
	}
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.conn.Toggle()
	return nil
}

func (p *playerAdapter) Stop() error {
	if p.conn.State().PlayWhenReady {
		p.conn.Toggle()
	}
	return nil
}

func (p *playerAdapter) Play() error {
	if !p.conn.State().PlayWhenReady {
		p.conn.Toggle()
	}
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	pos := p.conn.Position() + time.Duration(offset)*time.Microsecond
	if pos < 0 {
		pos = 0
	}
	p.conn.SeekTo(pos)
	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	p.conn.SeekTo(time.Duration(position) * time.Microsecond)
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	state := p.conn.State()
	switch state.PlayerState {
	case player.Ready, player.Buffering:
		if state.PlayWhenReady {
			return types.PlaybackStatusPlaying, nil
		}
		return types.PlaybackStatusPaused, nil
	case player.Idle, player.Ended:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	track := p.conn.CurrentTrack()
	if track == nil {
		return types.Metadata{}, nil
	}

	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(track.ID)),
		Length:  types.Microseconds(track.Duration.Microseconds()),
		Title:   track.Title,
		Artist:  track.Artists,
		Album:   track.Album,
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil // Volume control not exposed via the session
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	return p.conn.Position().Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.conn.State().CanSkipNext, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.conn.State().CanSkipPrevious, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.conn.CurrentTrack() != nil, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	switch p.conn.State().Repeat {
	case player.RepeatOne:
		return types.LoopStatusTrack, nil
	case player.RepeatAll:
		return types.LoopStatusPlaylist, nil
	case player.RepeatOff:
		return types.LoopStatusNone, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	want := player.RepeatOff
	switch status {
	case types.LoopStatusNone:
		want = player.RepeatOff
	case types.LoopStatusTrack:
		want = player.RepeatOne
	case types.LoopStatusPlaylist:
		want = player.RepeatAll
	}
	// CycleRepeat is the only write surface; advance until the mode matches.
	for i := 0; i < 3 && p.conn.State().Repeat != want; i++ {
		p.conn.CycleRepeat()
	}
	return nil
}

// Shuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) Shuffle() (bool, error) {
	return p.conn.State().Shuffled, nil
}

// SetShuffle implements OrgMprisMediaPlayer2PlayerAdapterShuffle.
func (p *playerAdapter) SetShuffle(shuffle bool) error {
	if p.conn.State().Shuffled != shuffle {
		p.conn.TriggerShuffle()
	}
	return nil
}

func formatTrackID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
