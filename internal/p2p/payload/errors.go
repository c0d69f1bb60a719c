package payload

import (
	"errors"
	"fmt"

	"github.com/smilo-platform/smilo-sync/types"
)

var (
	// ErrHandlerMissing is returned when a payload type has no registered
	// handler.
	ErrHandlerMissing = errors.New("no handler registered")
	// ErrDuplicateHandler is returned when two handlers support the same
	// payload type.
	ErrDuplicateHandler = errors.New("duplicate handler")
)

// UnroutableTypeError is returned for a message whose type has no handler.
type UnroutableTypeError struct {
	Tag string
}

func (e UnroutableTypeError) Error() string {
	return fmt.Sprintf("no handler for payload type %q", e.Tag)
}

func missingToken(pt types.PayloadType, idx int) error {
	return fmt.Errorf("%s payload: missing token %d", pt, idx)
}
