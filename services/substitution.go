package services

import (
	"fmt"
	"sync"
	"time"

	"repre_go/models"
)

// TeacherDirectory resolves teacher names and subject qualifications. Backed
// by the database in production and by an in-memory fake in tests.
type TeacherDirectory interface {
	NameOf(teacherID uint) (string, bool)
	Qualified(subjectID, teacherID uint) bool
}

// PlanEntry is one row of the representation plan, a read-only projection of
// all events with an assigned substitute.
type PlanEntry struct {
	EventID        string    `json:"event_id"`
	Title          string    `json:"title"`
	Location       string    `json:"location,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	TeacherName    string    `json:"teacher_name"`
	SubstituteName string    `json:"substitute_name"`
}

// PlanUnknownTeacher is rendered when a teacher reference cannot be resolved.
const PlanUnknownTeacher = "unknown"

// SubstitutionService detects booking conflicts and assigns substitutes to
// vacated lessons. It only reads events and writes substitute_teacher_id.
type SubstitutionService struct {
	engine   *CalendarEngine
	teachers TeacherDirectory

	mu sync.Mutex // one assignment validates and writes as a single step
}

func NewSubstitutionService(engine *CalendarEngine, teachers TeacherDirectory) *SubstitutionService {
	return &SubstitutionService{engine: engine, teachers: teachers}
}

// FindConflicts returns every event whose covering teacher is teacherID and
// whose [start, end) interval overlaps the half-open query range, in
// deterministic list order. An event never conflicts with itself because the
// scan is driven purely by interval overlap against the range.
func (s *SubstitutionService) FindConflicts(teacherID uint, r DateRange) []models.CalendarEvent {
	out := make([]models.CalendarEvent, 0)
	for _, ev := range s.engine.Store().All() {
		if ev.CoveredBy() != teacherID {
			continue
		}
		if Overlaps(ev.StartTime, ev.EndTime, r.Start, r.End) {
			out = append(out, ev)
		}
	}
	return out
}

// AssignSubstitute validates that the substitute is free for the event's
// interval and qualified for its subject, then records the assignment. Both
// failure modes are recoverable and leave the event untouched, however often
// the call is repeated.
func (s *SubstitutionService) AssignSubstitute(eventID string, substituteID uint) (models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated models.CalendarEvent
	err := s.engine.Mutate(func() error {
		ev, ok := s.engine.Store().Get(eventID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		for _, other := range s.engine.Store().All() {
			if other.ID == ev.ID || other.CoveredBy() != substituteID {
				continue
			}
			if Overlaps(other.StartTime, other.EndTime, ev.StartTime, ev.EndTime) {
				return fmt.Errorf("%w: event %s", ErrConflict, other.ID)
			}
		}
		if ev.SubjectID != nil && !s.teachers.Qualified(*ev.SubjectID, substituteID) {
			return fmt.Errorf("%w: subject %d", ErrNotQualified, *ev.SubjectID)
		}
		sub := substituteID
		var uerr error
		updated, uerr = s.engine.UpdateLocked(eventID, EventPatch{SubstituteTeacherID: &sub}, ActionSubstitute)
		return uerr
	})
	if err != nil {
		return models.CalendarEvent{}, err
	}
	return updated, nil
}

// ClearSubstitute removes an assignment, handing the lesson back to its
// owning teacher.
func (s *SubstitutionService) ClearSubstitute(eventID string) (models.CalendarEvent, error) {
	return s.engine.UpdateEvent(eventID, EventPatch{ClearSubstitute: true})
}

// RepresentationPlan projects all substituted events joined with teacher
// names for display. Unresolved teacher references render as "unknown"
// instead of failing.
func (s *SubstitutionService) RepresentationPlan() []PlanEntry {
	entries := make([]PlanEntry, 0)
	for _, ev := range s.engine.Store().All() {
		if ev.SubstituteTeacherID == nil {
			continue
		}
		entries = append(entries, PlanEntry{
			EventID:        ev.ID,
			Title:          ev.Title,
			Location:       ev.Location,
			StartTime:      ev.StartTime,
			EndTime:        ev.EndTime,
			TeacherName:    s.teacherName(ev.TeacherID),
			SubstituteName: s.teacherName(*ev.SubstituteTeacherID),
		})
	}
	return entries
}

func (s *SubstitutionService) teacherName(id uint) string {
	if name, ok := s.teachers.NameOf(id); ok {
		return name
	}
	return PlanUnknownTeacher
}
