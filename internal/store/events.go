package store

import (
	"context"
	"time"
)

// Event is one playback occurrence, recorded when a track transitions out.
type Event struct {
	TrackID    string
	PlaylistID string
	PlayTime   time.Duration
	CreatedAt  time.Time
}

// InsertEvent appends a playback event.
func (s *Store) InsertEvent(ctx context.Context, e Event) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playback_events (track_id, playlist_id, play_time_ms, created_at)
		VALUES (?, ?, ?, ?)
	`, e.TrackID, nullIfEmpty(e.PlaylistID), e.PlayTime.Milliseconds(), createdAt.Unix())
	return err
}

// EventCount returns the number of recorded playback events for a track.
func (s *Store) EventCount(ctx context.Context, trackID string) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM playback_events WHERE track_id = ?`, trackID)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
