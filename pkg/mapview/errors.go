package mapview

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when an operation needs a map view or geo
	// marker that does not exist yet.
	ErrNotInitialized = errors.New("map view not initialized")

	// ErrLocationUnavailable wraps every failure of the location service.
	ErrLocationUnavailable = errors.New("location unavailable")
)

// NetworkError is a failed search request.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
