package link

import (
	"errors"
	"fmt"
)

// Sentinel errors for link failures. The supervisor treats all of them as
// recoverable: it cleans up, cools down, and restarts the connection cycle.
var (
	// ErrLinkUnavailable indicates the remote could not be reached after the
	// address-type fallback was tried.
	ErrLinkUnavailable = errors.New("link unavailable")

	// ErrWriteFailed indicates a descriptor write was rejected by the remote.
	ErrWriteFailed = errors.New("descriptor write failed")

	// ErrSubscriptionFailed indicates the notification-enable sequence could
	// not be completed after its retry budget.
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrLinkClosed indicates the connection dropped while waiting for data.
	ErrLinkClosed = errors.New("link closed")
)

// NotFoundError reports a missing GATT resource during discovery.
type NotFoundError struct {
	Resource string   // "service", "characteristic", "descriptor"
	UUIDs    []string // [serviceUUID] or [serviceUUID, charUUID]
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	return fmt.Sprintf("%s %q not found in service %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], e.UUIDs[0])
}

// IsNotFound reports whether err is a NotFoundError for any resource.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
