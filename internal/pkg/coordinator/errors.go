package coordinator

import "errors"

var (
	// ErrReauthRequired is unrecoverable until the credentials are fixed.
	ErrReauthRequired = errors.New("reauthentication required")

	// ErrUpdateFailed is transient; the last good snapshot is kept.
	ErrUpdateFailed = errors.New("update failed")

	ErrUnknownBroker = errors.New("unknown mqtt server")
)
