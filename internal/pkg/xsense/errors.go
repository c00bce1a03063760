package xsense

import "errors"

var (
	// ErrAuthFailed means the credentials were rejected. The user has to fix them.
	ErrAuthFailed = errors.New("xsense: authentication failed")

	// ErrSessionExpired means the session token is no longer accepted; logging in again may help.
	ErrSessionExpired = errors.New("xsense: session expired")

	// ErrNotFound is returned for resources the account does not have, e.g. house state
	// of a house without a hub.
	ErrNotFound = errors.New("xsense: resource not found")

	// ErrAPIFailure covers transport errors and unexpected responses.
	ErrAPIFailure = errors.New("xsense: api failure")
)
