package approval

import "errors"

var (
	// ErrNotFound is returned when a referenced expense or approval step
	// does not exist, or the step does not belong to the acting approver.
	ErrNotFound = errors.New("no matching pending approval")

	// ErrAlreadyDecided is returned when a decision is submitted for a step
	// that has already left PENDING. The recorded decision is never
	// overwritten.
	ErrAlreadyDecided = errors.New("approval step already decided")

	// ErrExpenseFinalized is returned when a decision is submitted for an
	// expense whose status is already terminal.
	ErrExpenseFinalized = errors.New("expense already finalized")

	// ErrUpstreamUnavailable wraps directory or policy store failures during
	// sequence build. The build leaves no partial state and can be retried.
	ErrUpstreamUnavailable = errors.New("upstream lookup failed")
)
