package notify

import "errors"

// Sentinel kinds for notification errors.
var (
	ErrNoBrokers = errors.New("no kafka brokers configured")
	ErrNoTopic   = errors.New("no kafka topic configured")
)
