package services

import (
	"errors"
	"fmt"

	"github.com/nikhilsoni22/teen-theory-backend/store"
)

// Failure taxonomy shared by every service. Handlers match these with
// errors.Is to pick a status code; messages are safe to return to the
// caller.
var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCredentials  = errors.New("invalid or expired token")
	ErrUpstreamUnavailable = errors.New("document store unavailable")
	// ErrPartialApply reports that the authoritative mutation succeeded
	// but the mirror fan-out failed for one or more referenced users.
	// It is logged and never propagated to the caller as a failure.
	ErrPartialApply = errors.New("partial mirror apply")
)

// mapStoreErr folds store failures into the service taxonomy.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	default:
		return err
	}
}
