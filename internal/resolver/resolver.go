// Package resolver turns track ids into playable stream URLs, with an
// expiry-aware cache and a typed failure taxonomy.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/lcrosetto/aria/internal/catalog"
)

const (
	// expiryMargin is the remaining lifetime below which a cached URL is
	// treated as stale, so playback never races expiry mid-stream.
	expiryMargin = 30 * time.Second

	resolveTimeout = 30 * time.Second
)

// CatalogClient is the slice of the catalog API the resolver needs.
type CatalogClient interface {
	ResolveStream(ctx context.Context, trackID string, quality catalog.Quality) (*catalog.PlaybackData, error)
}

// FormatStore persists stream format metadata per track.
type FormatStore interface {
	UpsertFormat(ctx context.Context, trackID string, f catalog.Format) error
}

// Source is a resolved, playable stream for a track.
type Source struct {
	TrackID   string
	URL       string
	ExpiresAt time.Time
	Format    catalog.Format
}

type cacheEntry struct {
	url       string
	expiresAt time.Time
	format    catalog.Format
}

// Resolver resolves tracks to stream URLs. The cache is advisory: entries
// may turn out wrong and callers must tolerate eviction plus retry.
type Resolver struct {
	mu    sync.Mutex
	cache map[string]cacheEntry

	catalog CatalogClient
	formats FormatStore // may be nil

	margin  time.Duration
	timeout time.Duration
	quality catalog.Quality
	now     func() time.Time
	logger  *log.Logger
}

// Options tune the resolver; zero values take defaults.
type Options struct {
	ExpiryMargin time.Duration
	Timeout      time.Duration
	Quality      catalog.Quality
}

// New creates a resolver. formats may be nil to skip metadata persistence.
func New(c CatalogClient, formats FormatStore, opts Options, logger *log.Logger) *Resolver {
	if opts.ExpiryMargin <= 0 {
		opts.ExpiryMargin = expiryMargin
	}
	if opts.Timeout <= 0 {
		opts.Timeout = resolveTimeout
	}
	if opts.Quality == "" {
		opts.Quality = catalog.QualityAuto
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		cache:   make(map[string]cacheEntry),
		catalog: c,
		formats: formats,
		margin:  opts.ExpiryMargin,
		timeout: opts.Timeout,
		quality: opts.Quality,
		now:     time.Now,
		logger:  logger.With("component", "resolver"),
	}
}

// Resolve returns a playable source for the track. Cached URLs are reused
// while they have more than the expiry margin of lifetime left. online=false
// short-circuits to ErrNoInternet without touching the network.
func (r *Resolver) Resolve(ctx context.Context, trackID string, isLocal, online bool) (*Source, error) {
	if isLocal {
		return nil, fmt.Errorf("%s: %w", trackID, ErrLocalTrack)
	}

	if src, ok := r.cached(trackID); ok {
		return src, nil
	}

	if !online {
		return nil, ErrNoInternet
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.catalog.ResolveStream(ctx, trackID, r.quality)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", trackID, classify(err))
	}

	expiresAt := r.now().Add(data.ExpiresIn)
	r.mu.Lock()
	r.cache[trackID] = cacheEntry{url: data.StreamURL, expiresAt: expiresAt, format: data.Format}
	r.mu.Unlock()

	// Refresh the persisted format row on every successful resolution.
	// Failures here must not fail playback.
	if r.formats != nil {
		if err := r.formats.UpsertFormat(ctx, trackID, data.Format); err != nil {
			r.logger.Warn("format upsert failed", "track", trackID, "err", err)
		}
	}

	r.logger.Debug("resolved stream",
		"track", trackID,
		"codec", data.Format.Codec,
		"bitrate", humanize.SI(float64(data.Format.Bitrate), "bps"),
		"size", humanize.Bytes(uint64(max(data.Format.ContentLength, 0))), //nolint:gosec // clamped non-negative
		"expires_in", data.ExpiresIn)

	return &Source{
		TrackID:   trackID,
		URL:       data.StreamURL,
		ExpiresAt: expiresAt,
		Format:    data.Format,
	}, nil
}

func (r *Resolver) cached(trackID string) (*Source, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache[trackID]
	if !ok {
		return nil, false
	}
	if r.now().Add(r.margin).After(e.expiresAt) {
		delete(r.cache, trackID)
		return nil, false
	}
	return &Source{
		TrackID:   trackID,
		URL:       e.url,
		ExpiresAt: e.expiresAt,
		Format:    e.format,
	}, true
}

// Evict drops the cached URL for a track, forcing the next Resolve to hit
// the network. Used for the in-place refresh of expired streams.
func (r *Resolver) Evict(trackID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, trackID)
}

// Clear empties the cache.
func (r *Resolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]cacheEntry)
}

// CachedFormat returns the format metadata from the most recent resolution
// of the track, if still cached.
func (r *Resolver) CachedFormat(trackID string) (catalog.Format, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache[trackID]
	return e.format, ok
}
