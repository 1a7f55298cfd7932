package jobrun

import "context"

type Repository interface {
	// Record upserts the run row identified by RunID with the event's status.
	Record(ctx context.Context, event Event) error
}
