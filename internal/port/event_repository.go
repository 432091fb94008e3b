package port

import (
	"context"
	"errors"
)

// ErrDuplicateEvent means a seen-event marker already exists for the ID.
var ErrDuplicateEvent = errors.New("event already seen")

type SeenEventRepository interface {
	// Seen reports whether a marker exists for eventID
	Seen(ctx context.Context, eventID string) (bool, error)

	// Insert creates the marker, returning ErrDuplicateEvent if it exists
	Insert(ctx context.Context, eventID string) error
}
