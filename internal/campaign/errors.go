package campaign

import (
	"errors"
	"fmt"
)

// Precondition errors. Each aborts a run before any dispatch.
var (
	ErrNotAuthenticated   = errors.New("campaign: not authenticated")
	ErrNoValidRecipients  = errors.New("campaign: no valid recipients")
	ErrEmptyMessage       = errors.New("campaign: message is empty")
	ErrMissingAttachment  = errors.New("campaign: attachment missing")
	ErrAttachmentTooLarge = errors.New("campaign: attachment exceeds 5 MiB")
)

// ErrCampaignRunning is returned when a run is triggered while another is
// still in progress.
var ErrCampaignRunning = errors.New("campaign: already running")

// AuthError is a well-formed login rejection from the mail service.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// IsPrecondition reports whether err aborted a run before dispatch.
func IsPrecondition(err error) bool {
	switch {
	case errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrNoValidRecipients),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrMissingAttachment),
		errors.Is(err, ErrAttachmentTooLarge):
		return true
	}
	return false
}
