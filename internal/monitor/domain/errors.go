package domain

import "errors"

var (
	ErrUnknownCategory  = errors.New("unknown problem category")
	ErrBundleNotFound   = errors.New("settings bundle not found")
	ErrEventLogDisabled = errors.New("event log database not configured")
)
