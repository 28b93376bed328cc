package ledger

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrCapacityExceeded is returned when an allocation would push a room's
	// overlapping active allocations past its capacity.
	ErrCapacityExceeded = errors.New("room capacity exceeded")
	// ErrOccupantAlreadyAllocated is returned when the occupant already holds
	// an active allocation overlapping the requested interval.
	ErrOccupantAlreadyAllocated = errors.New("occupant already has an active allocation")
	// ErrDuplicateAllocation mirrors the unique (user, room, start_date) key.
	ErrDuplicateAllocation = errors.New("allocation already exists for occupant, room and start date")
	// ErrAllocationNotActive is returned when terminating an allocation that
	// is already closed.
	ErrAllocationNotActive = errors.New("allocation is not active")

	ErrRoomNotFound       = errors.New("room not found")
	ErrOccupantNotFound   = errors.New("occupant not found")
	ErrAllocationNotFound = errors.New("allocation not found")
)

// IsNotFound reports whether err is one of the ledger's not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrOccupantNotFound) ||
		errors.Is(err, ErrAllocationNotFound)
}

// ValidationError carries field-level detail for malformed input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records a problem with field and returns the receiver.
func (e *ValidationError) Add(field, msg string) *ValidationError {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
	return e
}

// OrNil returns nil when no field was recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
