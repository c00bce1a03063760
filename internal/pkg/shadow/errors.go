package shadow

import "errors"

var (
	ErrNotConnected     = errors.New("shadow: client not connected")
	ErrConnectionFailed = errors.New("shadow: connection failed")
	ErrPublishFailed    = errors.New("shadow: publish failed")
	ErrSubscribeFailed  = errors.New("shadow: subscribe failed")
	ErrInvalidTopic     = errors.New("shadow: topic cannot be empty")
)
