package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"repre_go/models"

	"github.com/google/uuid"
)

// EventPatch describes a partial update. Nil fields are left untouched.
type EventPatch struct {
	Title               *string
	Description         *string
	Location            *string
	StartTime           *time.Time
	EndTime             *time.Time
	Category            *string
	SubjectID           *uint
	Color               *string
	SubstituteTeacherID *uint
	ClearSubstitute     bool
}

// Snapshot is the pre-image of the single event a mutation touched. Restoring
// it reinstates exactly that entry; mutations confirmed in the meantime for
// other events are left alone.
type Snapshot struct {
	id   string
	prev *models.CalendarEvent // nil when the event did not exist before
}

// EventStore is the in-memory authoritative representation of calendar events
// for the active view. It is the sole writer of CalendarEvent state; all
// mutations validate the interval invariant before touching the map and hand
// back a Snapshot for the rollback contract.
type EventStore struct {
	mu     sync.RWMutex
	events map[string]models.CalendarEvent
}

func NewEventStore() *EventStore {
	return &EventStore{events: make(map[string]models.CalendarEvent)}
}

// Hydrate replaces the store contents with events loaded from persistence.
func (s *EventStore) Hydrate(events []models.CalendarEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]models.CalendarEvent, len(events))
	for _, ev := range events {
		s.events[ev.ID] = ev
	}
}

// Add inserts a new event, assigning a UUID when none is set.
func (s *EventStore) Add(ev models.CalendarEvent) (models.CalendarEvent, Snapshot, error) {
	if err := validateEvent(ev); err != nil {
		return models.CalendarEvent{}, Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	} else if _, exists := s.events[ev.ID]; exists {
		return models.CalendarEvent{}, Snapshot{}, fmt.Errorf("%w: %s", ErrDuplicateID, ev.ID)
	}
	if ev.Category == "" {
		ev.Category = models.CategoryWork
	}
	if err := s.doubleBookedLocked(ev); err != nil {
		return models.CalendarEvent{}, Snapshot{}, err
	}
	s.events[ev.ID] = ev
	return ev, Snapshot{id: ev.ID}, nil
}

// Update applies a patch to an existing event. A patch violating the interval
// invariant is rejected and the store is left unchanged.
func (s *EventStore) Update(id string, patch EventPatch) (models.CalendarEvent, Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return models.CalendarEvent{}, Snapshot{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	next := applyPatch(ev, patch)
	if err := validateEvent(next); err != nil {
		return models.CalendarEvent{}, Snapshot{}, err
	}
	// Re-check double-booking only when the patch moves the interval or
	// changes who covers the lesson; cosmetic updates to an event that
	// already overlaps (a fresh duplicate) must stay possible.
	if patch.StartTime != nil || patch.EndTime != nil ||
		patch.SubstituteTeacherID != nil || patch.ClearSubstitute {
		if err := s.doubleBookedLocked(next); err != nil {
			return models.CalendarEvent{}, Snapshot{}, err
		}
	}
	s.events[id] = next
	return next, Snapshot{id: id, prev: &ev}, nil
}

// Remove deletes an event. Deletion is terminal.
func (s *EventStore) Remove(id string) (models.CalendarEvent, Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return models.CalendarEvent{}, Snapshot{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	delete(s.events, id)
	return ev, Snapshot{id: id, prev: &ev}, nil
}

// Duplicate clones an event under a fresh identifier with the same time range
// and a suffixed title. A substitute assignment is never carried over.
func (s *EventStore) Duplicate(id string) (models.CalendarEvent, Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return models.CalendarEvent{}, Snapshot{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	// The clone lands on the source interval on purpose and is rescheduled
	// by the caller, so the double-booking check does not apply here.
	clone := ev
	clone.ID = uuid.NewString()
	clone.Title = ev.Title + " (copy)"
	clone.SubstituteTeacherID = nil
	s.events[clone.ID] = clone
	return clone, Snapshot{id: clone.ID}, nil
}

// Get returns a single event by id.
func (s *EventStore) Get(id string) (models.CalendarEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	return ev, ok
}

// List returns events intersecting the half-open range, ordered by start time
// ascending with the id as a deterministic tie-break.
func (s *EventStore) List(r DateRange) []models.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CalendarEvent, 0)
	for _, ev := range s.events {
		if Overlaps(ev.StartTime, ev.EndTime, r.Start, r.End) {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out
}

// All returns every event in the store, in list order.
func (s *EventStore) All() []models.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CalendarEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sortEvents(out)
	return out
}

// Len returns the number of events currently held.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Restore reinstates the pre-image of the one event its snapshot covers.
func (s *EventStore) Restore(snap Snapshot) {
	if snap.id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.prev == nil {
		delete(s.events, snap.id)
		return
	}
	s.events[snap.id] = *snap.prev
}

// Overlaps is the standard half-open interval test.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// doubleBookedLocked reports ErrConflict when the covering teacher of ev
// already covers an overlapping event. The event never conflicts with itself.
func (s *EventStore) doubleBookedLocked(ev models.CalendarEvent) error {
	for _, other := range s.events {
		if other.ID == ev.ID || other.CoveredBy() != ev.CoveredBy() {
			continue
		}
		if Overlaps(other.StartTime, other.EndTime, ev.StartTime, ev.EndTime) {
			return fmt.Errorf("%w: overlaps event %s", ErrConflict, other.ID)
		}
	}
	return nil
}

func sortEvents(events []models.CalendarEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})
}

func applyPatch(ev models.CalendarEvent, patch EventPatch) models.CalendarEvent {
	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Location != nil {
		ev.Location = *patch.Location
	}
	if patch.StartTime != nil {
		ev.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		ev.EndTime = *patch.EndTime
	}
	if patch.Category != nil {
		ev.Category = *patch.Category
	}
	if patch.SubjectID != nil {
		ev.SubjectID = patch.SubjectID
	}
	if patch.Color != nil {
		ev.Color = *patch.Color
	}
	if patch.ClearSubstitute {
		ev.SubstituteTeacherID = nil
	} else if patch.SubstituteTeacherID != nil {
		ev.SubstituteTeacherID = patch.SubstituteTeacherID
	}
	return ev
}

func validateEvent(ev models.CalendarEvent) error {
	if !ev.EndTime.After(ev.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", ErrValidation)
	}
	if ev.TeacherID == 0 {
		return fmt.Errorf("%w: teacher is required", ErrValidation)
	}
	if ev.Category != "" && !isValidCategory(ev.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, ev.Category)
	}
	return nil
}

func isValidCategory(category string) bool {
	switch category {
	case models.CategoryWork, models.CategoryPersonal, models.CategoryImportant, models.CategoryOther:
		return true
	}
	return false
}
