package domain

import (
	"time"

	"github.com/google/uuid"
)

// Flow identifies which user action produced an outcome.
type Flow string

const (
	FlowForm  Flow = "form"
	FlowImage Flow = "image"
)

// Status is the terminal state of one reconciliation.
type Status string

const (
	StatusUpdated        Status = "updated"
	StatusPartialFailure Status = "partial_failure"
	StatusNoOp           Status = "noop"
	StatusAuthError      Status = "auth_error"
	StatusFailed         Status = "failed"
	StatusImageUpdated   Status = "image_updated"
	StatusImageFailed    Status = "image_failed"
)

// Success reports whether the status represents a completed write (or a no-op).
func (s Status) Success() bool {
	return s == StatusUpdated || s == StatusNoOp || s == StatusImageUpdated
}

// Outcome is the single aggregate result of one submit or image update.
// It is built fresh per action, reported once and then discarded.
type Outcome struct {
	ID     string `json:"id"`
	Flow   Flow   `json:"flow"`
	UserID string `json:"userId"`

	IdentityWriteAttempted bool  `json:"identityWriteAttempted"`
	IdentityWriteSucceeded *bool `json:"identityWriteSucceeded,omitempty"`
	AppStoreWriteAttempted bool  `json:"appStoreWriteAttempted"`
	AppStoreWriteSucceeded *bool `json:"appStoreWriteSucceeded,omitempty"`
	UsernameSyncAttempted  bool  `json:"usernameSyncAttempted"`
	UsernameSyncSucceeded  *bool `json:"usernameSyncSucceeded,omitempty"`

	Status    Status    `json:"status"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Message   string    `json:"message"`

	CompletedAt time.Time `json:"completedAt"`
}

// NewOutcome starts an outcome for the given flow and user.
func NewOutcome(flow Flow, userID string) *Outcome {
	return &Outcome{
		ID:     uuid.NewString(),
		Flow:   flow,
		UserID: userID,
	}
}

// Fail marks the outcome failed with the given status and error.
func (o *Outcome) Fail(status Status, err error) {
	o.Status = status
	o.ErrorKind = KindOf(err)
	o.Message = MessageOf(err)
}

// Succeed marks the outcome finished with the given status and message.
func (o *Outcome) Succeed(status Status, message string) {
	o.Status = status
	o.ErrorKind = KindNone
	o.Message = message
}

// BoolPtr is a small helper for the optional success flags.
func BoolPtr(b bool) *bool { return &b }
