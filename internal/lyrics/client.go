// Package lyrics parses LRC lyrics and fetches them from the lrclib.net API,
// with a small per-track cache so repeated lookups for the playing track do
// not hit the network.
package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when no lyrics are found.
var ErrNotFound = errors.New("lyrics not found")

const (
	baseURL   = "https://lrclib.net/api"
	userAgent = "aria/1.0 (https://github.com/lcrosetto/aria)"
)

// Result represents the response from the lrclib API.
type Result struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// HasSyncedLyrics returns true if the result contains synced (LRC) lyrics.
func (r *Result) HasSyncedLyrics() bool {
	return r.SyncedLyrics != ""
}

// HasPlainLyrics returns true if the result contains plain text lyrics.
func (r *Result) HasPlainLyrics() bool {
	return r.PlainLyrics != ""
}

// Parse converts the result into parsed lyrics, preferring the synced form.
// Plain lyrics come back with zero timestamps. Returns nil when the result
// holds no usable lyrics.
func (r *Result) Parse() *Lyrics {
	var l *Lyrics
	switch {
	case r.HasSyncedLyrics():
		parsed, err := ParseLRC(strings.NewReader(r.SyncedLyrics))
		if err != nil {
			return nil
		}
		l = parsed
	case r.HasPlainLyrics():
		l = &Lyrics{}
		for _, line := range strings.Split(r.PlainLyrics, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				l.Lines = append(l.Lines, Line{Text: line})
			}
		}
	default:
		return nil
	}
	if len(l.Lines) == 0 {
		return nil
	}
	if l.Artist == "" {
		l.Artist = r.ArtistName
	}
	if l.Title == "" {
		l.Title = r.TrackName
	}
	if l.Album == "" {
		l.Album = r.AlbumName
	}
	return l
}

// Client is an lrclib.net API client.
type Client struct {
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]*Result
}

// New creates a new lyrics client.
func New() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: make(map[string]*Result),
	}
}

// ForTrack fetches lyrics for a track, caching results per track id. Cached
// misses are not retried until Evict.
func (c *Client) ForTrack(ctx context.Context, trackID, artist, title string, duration time.Duration) (*Result, error) {
	c.mu.Lock()
	if r, ok := c.cache[trackID]; ok {
		c.mu.Unlock()
		if r == nil {
			return nil, ErrNotFound
		}
		return r, nil
	}
	c.mu.Unlock()

	r, err := c.Get(ctx, artist, title, duration)
	if errors.Is(err, ErrNotFound) {
		c.mu.Lock()
		c.cache[trackID] = nil
		c.mu.Unlock()
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[trackID] = r
	c.mu.Unlock()
	return r, nil
}

// Evict drops the cached result for a track.
func (c *Client) Evict(trackID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, trackID)
}

// Get fetches lyrics by artist, title, and optionally duration.
func (c *Client) Get(ctx context.Context, artist, title string, duration time.Duration) (*Result, error) {
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	if duration > 0 {
		params.Set("duration", fmt.Sprintf("%.0f", duration.Seconds()))
	}

	reqURL := fmt.Sprintf("%s/get?%s", baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}
