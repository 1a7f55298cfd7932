package usecase

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrUpstreamFetch marks a provider call that failed at the transport or
	// status level. The unit of work is skipped and the run continues.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
	// ErrUpstreamSchema marks a provider payload missing or malforming an
	// expected field. The run is aborted.
	ErrUpstreamSchema = errors.New("upstream payload malformed")
)

// abortsRun reports whether err must stop a reconciliation pass instead of
// skipping the current unit.
func abortsRun(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUpstreamSchema) {
		return true
	}
	return ctx.Err() != nil
}
