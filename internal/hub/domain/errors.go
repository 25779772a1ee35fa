package domain

import "errors"

var (
	ErrUnauthorized = errors.New("hub rejected the API token")
	ErrNotFound     = errors.New("hub resource not found")
)
