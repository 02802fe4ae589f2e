package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Download statuses.
const (
	DownloadPending   = "pending"
	DownloadCompleted = "completed"
)

// Download is one row of offline-download state.
type Download struct {
	TrackID     string
	Status      string
	EnqueuedAt  time.Time
	CompletedAt time.Time
}

// CreateDownload marks a track as pending download. Re-enqueueing an
// existing row resets it to pending.
func (s *Store) CreateDownload(ctx context.Context, trackID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (track_id, status, enqueued_at) VALUES (?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			status = excluded.status,
			enqueued_at = excluded.enqueued_at,
			completed_at = NULL
	`, trackID, DownloadPending, time.Now().Unix())
	return err
}

// UpdateDownloadStatus sets the status of a download, stamping completed_at
// when the status is completed.
func (s *Store) UpdateDownloadStatus(ctx context.Context, trackID, status string) error {
	var completedAt any
	if status == DownloadCompleted {
		completedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE downloads SET status = ?, completed_at = ? WHERE track_id = ?
	`, status, completedAt, trackID)
	return err
}

// RemoveDownload deletes the download row for a track.
func (s *Store) RemoveDownload(ctx context.Context, trackID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM downloads WHERE track_id = ?`, trackID)
	return err
}

// Download returns the download row for a track, or ErrNotFound.
func (s *Store) Download(ctx context.Context, trackID string) (*Download, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT track_id, status, enqueued_at, completed_at
		FROM downloads
		WHERE track_id = ?
	`, trackID)

	d := &Download{}
	var enqueuedAt int64
	var completedAt sql.NullInt64
	err := row.Scan(&d.TrackID, &d.Status, &enqueuedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.EnqueuedAt = time.Unix(enqueuedAt, 0)
	if completedAt.Valid {
		d.CompletedAt = time.Unix(completedAt.Int64, 0)
	}
	return d, nil
}
