package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrAuthNotReady   = errors.New("authentication not ready")
	ErrSubmitInFlight = errors.New("submission already in flight")
	ErrReportInFlight = errors.New("report already in flight")
	ErrFormNotFound   = errors.New("form not found")
	ErrNotStarted     = errors.New("service not started")
)
