package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	dbutil "github.com/lcrosetto/aria/internal/db"
	"github.com/lcrosetto/aria/internal/queue"
)

// Verify Store satisfies the board's persistence contract at compile time.
var _ queue.Persister = (*Store)(nil)

// RewriteQueue replaces a queue snapshot wholesale: metadata row plus the
// full track list.
func (s *Store) RewriteQueue(ctx context.Context, q *queue.Queue, position int) error {
	return dbutil.WithTxContext(ctx, s.db, func(tx *sql.Tx) error {
		if err := upsertQueueMeta(tx, q, position); err != nil {
			return err
		}

		if _, err := tx.Exec(`DELETE FROM queue_tracks WHERE queue_id = ?`, q.ID); err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO queue_tracks (queue_id, position, track_id, title, artists, album, duration_ms, is_local, shuffle_index)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range q.Tracks {
			artists, err := json.Marshal(t.Artists)
			if err != nil {
				return err
			}
			_, err = stmt.Exec(q.ID, i, t.ID, t.Title, string(artists), t.Album,
				t.Duration.Milliseconds(), boolToInt(t.IsLocal), t.ShuffleIndex)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateAllQueues persists the master ordering and per-queue metadata,
// leaving track contents untouched.
func (s *Store) UpdateAllQueues(ctx context.Context, qs []*queue.Queue, masterIndex int) error {
	return dbutil.WithTxContext(ctx, s.db, func(tx *sql.Tx) error {
		for i, q := range qs {
			if err := upsertQueueMeta(tx, q, i); err != nil {
				return err
			}
		}
		_, err := tx.Exec(`
			INSERT INTO board_state (id, master_index) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET master_index = excluded.master_index
		`, masterIndex)
		return err
	})
}

// DeleteQueue removes a queue and its tracks.
func (s *Store) DeleteQueue(ctx context.Context, id string) error {
	return dbutil.WithTxContext(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM queue_tracks WHERE queue_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM queues WHERE id = ?`, id)
		return err
	})
}

// ReadQueues loads the persisted board: queues in master order plus the
// master index.
func (s *Store) ReadQueues(ctx context.Context) ([]*queue.Queue, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, kind, parent_id, playlist_id, queue_pos, shuffled
		FROM queues
		ORDER BY position
	`)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	var queues []*queue.Queue
	for rows.Next() {
		q := &queue.Queue{}
		var kind int
		var parentID, playlistID sql.NullString
		var shuffled int
		if err := rows.Scan(&q.ID, &q.Title, &kind, &parentID, &playlistID, &q.QueuePos, &shuffled); err != nil {
			return nil, -1, err
		}
		q.Kind = queue.Kind(kind)
		q.ParentID = dbutil.NullStringValue(parentID)
		q.PlaylistID = dbutil.NullStringValue(playlistID)
		q.Shuffled = shuffled != 0
		queues = append(queues, q)
	}
	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	for _, q := range queues {
		tracks, err := s.readQueueTracks(ctx, q.ID)
		if err != nil {
			return nil, -1, err
		}
		q.Tracks = tracks
	}

	masterIndex := -1
	row := s.db.QueryRowContext(ctx, `SELECT master_index FROM board_state WHERE id = 1`)
	if err := row.Scan(&masterIndex); err != nil && !isNoRows(err) {
		return nil, -1, err
	}
	return queues, masterIndex, nil
}

func (s *Store) readQueueTracks(ctx context.Context, queueID string) ([]*queue.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, title, artists, album, duration_ms, is_local, shuffle_index
		FROM queue_tracks
		WHERE queue_id = ?
		ORDER BY position
	`, queueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []*queue.Track
	for rows.Next() {
		t := &queue.Track{}
		var artists sql.NullString
		var durationMS int64
		var isLocal int
		if err := rows.Scan(&t.ID, &t.Title, &artists, &t.Album, &durationMS, &isLocal, &t.ShuffleIndex); err != nil {
			return nil, err
		}
		if artists.Valid && artists.String != "" {
			if err := json.Unmarshal([]byte(artists.String), &t.Artists); err != nil {
				t.Artists = nil
			}
		}
		t.Duration = time.Duration(durationMS) * time.Millisecond
		t.IsLocal = isLocal != 0
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// SavePosition records the last known playback position for startup restore.
func (s *Store) SavePosition(ctx context.Context, pos time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO board_state (id, master_index, position_ms) VALUES (1, -1, ?)
		ON CONFLICT(id) DO UPDATE SET position_ms = excluded.position_ms
	`, pos.Milliseconds())
	return err
}

// LastPosition returns the persisted playback position.
func (s *Store) LastPosition(ctx context.Context) (time.Duration, error) {
	var ms int64
	row := s.db.QueryRowContext(ctx, `SELECT position_ms FROM board_state WHERE id = 1`)
	if err := row.Scan(&ms); err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func upsertQueueMeta(tx *sql.Tx, q *queue.Queue, position int) error {
	_, err := tx.Exec(`
		INSERT INTO queues (id, title, kind, parent_id, playlist_id, queue_pos, shuffled, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			kind = excluded.kind,
			parent_id = excluded.parent_id,
			playlist_id = excluded.playlist_id,
			queue_pos = excluded.queue_pos,
			shuffled = excluded.shuffled,
			position = excluded.position
	`, q.ID, q.Title, int(q.Kind), nullIfEmpty(q.ParentID), nullIfEmpty(q.PlaylistID),
		q.QueuePos, boolToInt(q.Shuffled), position)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}
