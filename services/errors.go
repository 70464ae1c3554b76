package services

import "errors"

// Scheduling errors. Validation failures are rejected before any mutation;
// conflict and qualification failures are recoverable and surfaced to the
// caller with no partial state change.
var (
	ErrValidation     = errors.New("event interval is invalid")
	ErrDuplicateID    = errors.New("event id already exists")
	ErrEventNotFound  = errors.New("event not found")
	ErrConflict       = errors.New("teacher is already booked for an overlapping event")
	ErrNotQualified   = errors.New("substitute is not qualified for the subject")
	ErrDragInProgress = errors.New("a drag interaction is already in progress")
	ErrNotDragging    = errors.New("no drag interaction in progress")
	ErrReconciliation = errors.New("persistence confirmation failed")
	ErrInvalidView    = errors.New("unknown calendar view")
)
