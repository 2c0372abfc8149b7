package dispatch

import "errors"

// Setup failures. Any of these ends a run as Failed before the first send.
var (
	ErrDriverUnavailable      = errors.New("browser driver unavailable")
	ErrAuthenticationRejected = errors.New("authentication rejected")
	ErrCredentialParse        = errors.New("no usable credentials")
	ErrEmptyMessageQueue      = errors.New("no messages to send")
)

// Per-message failures. The message is skipped and the run continues.
var (
	ErrElementNotFound = errors.New("message input not found")
	ErrSendProtocol    = errors.New("send protocol failed")
)

var (
	// ErrRunActive is returned by Controller.Start while a worker is running.
	ErrRunActive = errors.New("a run is already active")
	// ErrInvalidJob wraps job validation failures.
	ErrInvalidJob = errors.New("invalid dispatch job")
)
