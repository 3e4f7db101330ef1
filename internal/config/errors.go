package config

import "errors"

var (
	// ErrNotFound is returned when a requested resource does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedDriver is returned by Open for an unknown store driver.
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)
