package catalog

import "time"

// Quality is the preferred audio stream quality.
type Quality string

const (
	QualityAuto Quality = "auto"
	QualityLow  Quality = "low"
	QualityHigh Quality = "high"
)

// Format is the technical metadata of a resolved stream, persisted per track
// and refreshed on every resolution.
type Format struct {
	Itag          int     `json:"itag"`
	MimeType      string  `json:"mimeType"`
	Codec         string  `json:"codec"`
	Bitrate       int     `json:"bitrate"`
	SampleRate    int     `json:"sampleRate"`
	ContentLength int64   `json:"contentLength"`
	Loudness      float64 `json:"loudnessDb"`
	TrackingURL   string  `json:"trackingUrl"`
}

// PlaybackData is a successful stream resolution: a signed, time-limited URL
// plus the stream's technical metadata.
type PlaybackData struct {
	StreamURL string
	ExpiresIn time.Duration
	Format    Format
}

// Item is a track reference returned by catalog listings (radio pages,
// continuations).
type Item struct {
	ID       string
	Title    string
	Artists  []string
	Album    string
	Duration time.Duration
}

// StatusError is a non-2xx catalog response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "catalog: unexpected status " + e.Status
}
