// Package notify sends desktop notifications over D-Bus. The daemon uses it
// to announce track changes; on platforms without a session bus it degrades
// to a no-op.
package notify

// Urgency is the freedesktop notification priority.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification is one desktop notification.
type Notification struct {
	Title      string
	Body       string // optional, basic markup allowed
	Icon       string // icon name or image path
	Timeout    int32  // ms, -1 = server default, 0 = never expire
	ReplacesID uint32 // 0 = new notification, >0 = replace existing
	Urgency    Urgency
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID. A no-op notifier
	// returns 0 and a nil error.
	Notify(n Notification) (uint32, error)
	// Close dismisses a notification by ID.
	Close(id uint32) error
}

// Announcer posts now-playing notifications, replacing the previous one so
// skipping through a queue does not stack popups.
type Announcer struct {
	notifier Notifier
	lastID   uint32
}

// NewAnnouncer wraps a notifier. notifier must not be nil.
func NewAnnouncer(notifier Notifier) *Announcer {
	return &Announcer{notifier: notifier}
}

// TrackChanged announces the track now playing. Empty titles are ignored.
func (a *Announcer) TrackChanged(title, artist, album string) {
	body := artist
	if title == "" {
		return
	}
	if album != "" {
		if body != "" {
			body += " - " + album
		} else {
			body = album
		}
	}
	id, err := a.notifier.Notify(Notification{
		Title:      title,
		Body:       body,
		Icon:       "audio-x-generic",
		Timeout:    5000,
		ReplacesID: a.lastID,
		Urgency:    UrgencyLow,
	})
	if err != nil {
		return
	}
	a.lastID = id
}
