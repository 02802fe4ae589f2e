package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lcrosetto/aria/internal/catalog"
)

// UpsertFormat stores the latest stream format metadata for a track.
func (s *Store) UpsertFormat(ctx context.Context, trackID string, f catalog.Format) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO formats (track_id, itag, mime_type, codec, bitrate, sample_rate, content_length, loudness, tracking_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			itag = excluded.itag,
			mime_type = excluded.mime_type,
			codec = excluded.codec,
			bitrate = excluded.bitrate,
			sample_rate = excluded.sample_rate,
			content_length = excluded.content_length,
			loudness = excluded.loudness,
			tracking_url = excluded.tracking_url,
			updated_at = excluded.updated_at
	`, trackID, f.Itag, f.MimeType, f.Codec, f.Bitrate, f.SampleRate,
		f.ContentLength, f.Loudness, f.TrackingURL, time.Now().Unix())
	return err
}

// Format returns the persisted format metadata for a track, or ErrNotFound.
func (s *Store) Format(ctx context.Context, trackID string) (catalog.Format, error) {
	var f catalog.Format
	row := s.db.QueryRowContext(ctx, `
		SELECT itag, mime_type, codec, bitrate, sample_rate, content_length, loudness, tracking_url
		FROM formats
		WHERE track_id = ?
	`, trackID)
	err := row.Scan(&f.Itag, &f.MimeType, &f.Codec, &f.Bitrate, &f.SampleRate,
		&f.ContentLength, &f.Loudness, &f.TrackingURL)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Format{}, ErrNotFound
	}
	if err != nil {
		return catalog.Format{}, err
	}
	return f, nil
}
