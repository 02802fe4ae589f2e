package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/lcrosetto/aria/internal/db"
)

// Song is the per-track row of user flags and playback counters.
type Song struct {
	ID            string
	Title         string
	Liked         bool
	InLibrary     bool
	DownloadedAt  time.Time
	PlayCount     int64
	TotalPlayTime time.Duration
}

// Song returns the row for a track id, or ErrNotFound.
func (s *Store) Song(ctx context.Context, id string) (*Song, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, liked, in_library, downloaded_at, play_count, total_play_time_ms
		FROM songs
		WHERE id = ?
	`, id)

	song := &Song{}
	var liked, inLibrary int
	var downloadedAt sql.NullInt64
	var totalMS int64
	err := row.Scan(&song.ID, &song.Title, &liked, &inLibrary, &downloadedAt, &song.PlayCount, &totalMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	song.Liked = liked != 0
	song.InLibrary = inLibrary != 0
	song.DownloadedAt = dbutil.NullUnixTime(downloadedAt)
	song.TotalPlayTime = time.Duration(totalMS) * time.Millisecond
	return song, nil
}

// SetLiked flips the liked flag, inserting the row if needed.
func (s *Store) SetLiked(ctx context.Context, id, title string, liked bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (id, title, liked) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET liked = excluded.liked
	`, id, title, boolToInt(liked))
	return err
}

// SetInLibrary flips the library membership flag, inserting the row if needed.
func (s *Store) SetInLibrary(ctx context.Context, id, title string, inLibrary bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (id, title, in_library) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET in_library = excluded.in_library
	`, id, title, boolToInt(inLibrary))
	return err
}

// SetDownloadedAt records (or clears, with the zero time) the download
// timestamp of a track.
func (s *Store) SetDownloadedAt(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (id, downloaded_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET downloaded_at = excluded.downloaded_at
	`, id, dbutil.UnixOrNil(at))
	return err
}

// IncrementPlayCount bumps the play counter for a track.
func (s *Store) IncrementPlayCount(ctx context.Context, id, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (id, title, play_count) VALUES (?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET play_count = play_count + 1
	`, id, title)
	return err
}

// IncrementTotalPlayTime adds listened time to a track's counter.
func (s *Store) IncrementTotalPlayTime(ctx context.Context, id string, d time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (id, total_play_time_ms) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET total_play_time_ms = total_play_time_ms + excluded.total_play_time_ms
	`, id, d.Milliseconds())
	return err
}
