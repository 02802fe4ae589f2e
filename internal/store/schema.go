package store

import (
	"database/sql"
)

const currentSchemaVersion = 3

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS queues (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			kind INTEGER NOT NULL DEFAULT 0,
			parent_id TEXT,
			playlist_id TEXT,
			queue_pos INTEGER NOT NULL DEFAULT 0,
			shuffled INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_queues_position ON queues(position);

		CREATE TABLE IF NOT EXISTS queue_tracks (
			queue_id TEXT NOT NULL REFERENCES queues(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			track_id TEXT NOT NULL,
			title TEXT NOT NULL,
			artists TEXT,
			album TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			is_local INTEGER NOT NULL DEFAULT 0,
			shuffle_index INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (queue_id, position)
		);

		CREATE TABLE IF NOT EXISTS board_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			master_index INTEGER NOT NULL DEFAULT -1,
			position_ms INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS formats (
			track_id TEXT PRIMARY KEY,
			itag INTEGER,
			mime_type TEXT,
			codec TEXT,
			bitrate INTEGER,
			sample_rate INTEGER,
			content_length INTEGER,
			loudness REAL,
			tracking_url TEXT,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS songs (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			liked INTEGER NOT NULL DEFAULT 0,
			in_library INTEGER NOT NULL DEFAULT 0,
			downloaded_at INTEGER,
			play_count INTEGER NOT NULL DEFAULT 0,
			total_play_time_ms INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS playback_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			track_id TEXT NOT NULL,
			playlist_id TEXT,
			play_time_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_playback_events_track ON playback_events(track_id);

		CREATE TABLE IF NOT EXISTS downloads (
			track_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			enqueued_at INTEGER NOT NULL,
			completed_at INTEGER
		);

		PRAGMA foreign_keys = ON;
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	if err != nil {
		return err
	}

	// Migration: add playlist_id column if missing
	_, _ = db.Exec(`ALTER TABLE queues ADD COLUMN playlist_id TEXT`)

	// Migration: add position_ms column if missing
	_, _ = db.Exec(`ALTER TABLE board_state ADD COLUMN position_ms INTEGER NOT NULL DEFAULT 0`)

	return nil
}
