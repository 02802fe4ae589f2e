// Package catalog provides the client for the remote catalog service:
// stream-URL resolution, radio seeds, list continuations and playback
// registration.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "aria/1.0 (https://github.com/lcrosetto/aria)"

// Client is a rate-limited catalog API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// New creates a catalog client. ratePerSecond bounds outgoing requests.
func New(baseURL string, ratePerSecond float64) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

type playerResponse struct {
	StreamURL        string  `json:"streamUrl"`
	ExpiresInSeconds int     `json:"expiresInSeconds"`
	Format           Format  `json:"format"`
	LoudnessDB       float64 `json:"loudnessDb"`
}

// ResolveStream obtains a signed, time-limited stream URL for a track.
func (c *Client) ResolveStream(ctx context.Context, trackID string, quality Quality) (*PlaybackData, error) {
	params := url.Values{}
	params.Set("id", trackID)
	params.Set("quality", string(quality))

	var resp playerResponse
	if err := c.getJSON(ctx, "/player", params, &resp); err != nil {
		return nil, err
	}
	if resp.StreamURL == "" {
		return nil, fmt.Errorf("catalog: empty stream url for %s", trackID)
	}
	if resp.Format.Loudness == 0 {
		resp.Format.Loudness = resp.LoudnessDB
	}
	return &PlaybackData{
		StreamURL: resp.StreamURL,
		ExpiresIn: time.Duration(resp.ExpiresInSeconds) * time.Second,
		Format:    resp.Format,
	}, nil
}

type listResponse struct {
	Items []struct {
		ID              string   `json:"id"`
		Title           string   `json:"title"`
		Artists         []string `json:"artists"`
		Album           string   `json:"album"`
		DurationSeconds int      `json:"durationSeconds"`
	} `json:"items"`
	Continuation string `json:"continuation"`
}

func (r *listResponse) items() []Item {
	items := make([]Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = Item{
			ID:       it.ID,
			Title:    it.Title,
			Artists:  it.Artists,
			Album:    it.Album,
			Duration: time.Duration(it.DurationSeconds) * time.Second,
		}
	}
	return items
}

// Radio fetches the first page of a radio seeded by a track. Returns the
// items and the continuation endpoint for subsequent pages.
func (c *Client) Radio(ctx context.Context, trackID string) ([]Item, string, error) {
	params := url.Values{}
	params.Set("seed", trackID)

	var resp listResponse
	if err := c.getJSON(ctx, "/radio", params, &resp); err != nil {
		return nil, "", err
	}
	return resp.items(), resp.Continuation, nil
}

// Continuation fetches the next page of a continuation-capable listing.
// An empty returned endpoint means the listing is exhausted.
func (c *Client) Continuation(ctx context.Context, endpoint string) ([]Item, string, error) {
	params := url.Values{}
	params.Set("continuation", endpoint)

	var resp listResponse
	if err := c.getJSON(ctx, "/continuation", params, &resp); err != nil {
		return nil, "", err
	}
	return resp.items(), resp.Continuation, nil
}

// RegisterPlayback reports a playback start to the tracking URL returned
// with the stream format.
func (c *Client) RegisterPlayback(ctx context.Context, trackingURL string) error {
	if trackingURL == "" {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackingURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
