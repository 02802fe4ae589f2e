// Package downloader tracks offline-download requests keyed by track id.
// It owns the download bookkeeping only; fetching and storing audio bytes is
// delegated to the platform download service.
package downloader

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lcrosetto/aria/internal/store"
)

// ErrLocalTrack is returned when a download is requested for an on-device
// track.
var ErrLocalTrack = errors.New("local tracks cannot be downloaded")

// Storage is the store surface the manager persists through.
type Storage interface {
	CreateDownload(ctx context.Context, trackID string) error
	UpdateDownloadStatus(ctx context.Context, trackID, status string) error
	RemoveDownload(ctx context.Context, trackID string) error
	Download(ctx context.Context, trackID string) (*store.Download, error)
	SetDownloadedAt(ctx context.Context, id string, at time.Time) error
}

// Manager coordinates download state transitions.
type Manager struct {
	storage Storage
	logger  *log.Logger
}

// New creates a download manager.
func New(storage Storage, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		storage: storage,
		logger:  logger.With("component", "downloader"),
	}
}

// Enqueue requests a download for a track. Local tracks are rejected.
func (m *Manager) Enqueue(ctx context.Context, trackID string, isLocal bool) error {
	if isLocal {
		return ErrLocalTrack
	}
	if err := m.storage.CreateDownload(ctx, trackID); err != nil {
		return err
	}
	m.logger.Debug("download enqueued", "track", trackID)
	return nil
}

// Complete marks a download finished and stamps the track's downloaded-at
// timestamp.
func (m *Manager) Complete(ctx context.Context, trackID string) error {
	if err := m.storage.UpdateDownloadStatus(ctx, trackID, store.DownloadCompleted); err != nil {
		return err
	}
	if err := m.storage.SetDownloadedAt(ctx, trackID, time.Now()); err != nil {
		return err
	}
	m.logger.Debug("download completed", "track", trackID)
	return nil
}

// Remove deletes the download request and clears the downloaded-at timestamp.
func (m *Manager) Remove(ctx context.Context, trackID string) error {
	if err := m.storage.RemoveDownload(ctx, trackID); err != nil {
		return err
	}
	return m.storage.SetDownloadedAt(ctx, trackID, time.Time{})
}

// Status returns the download state for a track, or store.ErrNotFound.
func (m *Manager) Status(ctx context.Context, trackID string) (*store.Download, error) {
	return m.storage.Download(ctx, trackID)
}
