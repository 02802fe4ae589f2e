package resolver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/lcrosetto/aria/internal/catalog"
)

// Resolution failure classes. The session applies a distinct recovery policy
// to each; the resolver itself never decides to retry or skip.
var (
	// ErrNoInternet: no connectivity. Recoverable; wait and resume.
	ErrNoInternet = errors.New("no internet connection")
	// ErrTimeout: the resolution request timed out. Recoverable; retry.
	ErrTimeout = errors.New("stream resolution timed out")
	// ErrAuthRequired: the catalog demands a signed-in session. Fatal to the
	// session; user action needed.
	ErrAuthRequired = errors.New("authentication required")
	// ErrStreamExpired: the signed URL outlived its validity. Recoverable
	// with a bounded forced re-resolution.
	ErrStreamExpired = errors.New("stream url expired")
	// ErrLocalTrack: resolution was asked for an on-device track. Contract
	// violation; local files must never reach the resolver.
	ErrLocalTrack = errors.New("local tracks are not resolvable")
)

// RemoteError is an unclassified catalog failure, handled by the global
// skip-or-stop policy.
type RemoteError struct {
	Code int
	Msg  string
}

func (e *RemoteError) Error() string {
	return "remote error: " + e.Msg
}

// classify maps transport and catalog errors onto the failure taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrNoInternet
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrNoInternet
	}

	var statusErr *catalog.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusUnauthorized, http.StatusPaymentRequired:
			return ErrAuthRequired
		case http.StatusForbidden, http.StatusGone:
			// Signed URLs report expiry as 403/410.
			return ErrStreamExpired
		default:
			return &RemoteError{Code: statusErr.Code, Msg: statusErr.Status}
		}
	}

	return &RemoteError{Msg: err.Error()}
}
