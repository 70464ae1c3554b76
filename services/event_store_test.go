package services

import (
	"errors"
	"testing"
	"time"

	"repre_go/models"
)

func lessonAt(id string, teacherID uint, start time.Time, d time.Duration) models.CalendarEvent {
	return models.CalendarEvent{
		ID:        id,
		Title:     "Lesson " + id,
		StartTime: start,
		EndTime:   start.Add(d),
		Category:  models.CategoryWork,
		TeacherID: teacherID,
	}
}

func TestStoreAddAssignsID(t *testing.T) {
	s := NewEventStore()
	ev, _, err := s.Add(lessonAt("", 1, date(2025, time.March, 10), time.Hour))
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if ev.ID == "" {
		t.Error("Add did not assign an ID")
	}
	if _, ok := s.Get(ev.ID); !ok {
		t.Error("added event not retrievable")
	}
}

func TestStoreAddRejectsDuplicateID(t *testing.T) {
	s := NewEventStore()
	if _, _, err := s.Add(lessonAt("dup", 1, date(2025, time.March, 10), time.Hour)); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	_, _, err := s.Add(lessonAt("dup", 1, date(2025, time.March, 11), time.Hour))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("got %v, want ErrDuplicateID", err)
	}
}

func TestStoreValidation(t *testing.T) {
	s := NewEventStore()
	start := date(2025, time.March, 10)

	tests := []struct {
		name string
		ev   models.CalendarEvent
	}{
		{"end before start", models.CalendarEvent{TeacherID: 1, StartTime: start, EndTime: start.Add(-time.Hour), Category: models.CategoryWork}},
		{"zero duration", models.CalendarEvent{TeacherID: 1, StartTime: start, EndTime: start, Category: models.CategoryWork}},
		{"missing teacher", models.CalendarEvent{StartTime: start, EndTime: start.Add(time.Hour), Category: models.CategoryWork}},
		{"unknown category", models.CalendarEvent{TeacherID: 1, StartTime: start, EndTime: start.Add(time.Hour), Category: "meeting"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.Add(tt.ev); !errors.Is(err, ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}
	if s.Len() != 0 {
		t.Errorf("rejected events leaked into the store: %d", s.Len())
	}
}

func TestStoreAddRejectsDoubleBooking(t *testing.T) {
	s := NewEventStore()
	nine := date(2025, time.March, 10).Add(9 * time.Hour)
	s.Add(lessonAt("first", 1, nine, time.Hour))

	tests := []struct {
		name    string
		ev      models.CalendarEvent
		wantErr bool
	}{
		{"same teacher overlapping", lessonAt("", 1, nine.Add(30*time.Minute), time.Hour), true},
		{"same teacher back to back", lessonAt("", 1, nine.Add(time.Hour), time.Hour), false},
		{"other teacher overlapping", lessonAt("", 2, nine, time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Add(tt.ev)
			if tt.wantErr && !errors.Is(err, ErrConflict) {
				t.Errorf("got %v, want ErrConflict", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Add failed: %v", err)
			}
		})
	}
}

func TestStoreAddChecksTheCoveringTeacher(t *testing.T) {
	s := NewEventStore()
	nine := date(2025, time.March, 10).Add(9 * time.Hour)

	// Teacher 2 substitutes for teacher 1, so teacher 2 is the one booked
	sub := uint(2)
	covered := lessonAt("covered", 1, nine, time.Hour)
	covered.SubstituteTeacherID = &sub
	s.Add(covered)

	if _, _, err := s.Add(lessonAt("", 2, nine.Add(30*time.Minute), time.Hour)); !errors.Is(err, ErrConflict) {
		t.Errorf("substitute double-booked: got %v, want ErrConflict", err)
	}
	if _, _, err := s.Add(lessonAt("", 1, nine.Add(30*time.Minute), time.Hour)); err != nil {
		t.Errorf("absent owner wrongly treated as booked: %v", err)
	}
}

func TestStoreUpdateRejectsDoubleBooking(t *testing.T) {
	s := NewEventStore()
	nine := date(2025, time.March, 10).Add(9 * time.Hour)
	s.Add(lessonAt("busy", 1, nine, time.Hour))
	target, _, _ := s.Add(lessonAt("target", 1, nine.Add(2*time.Hour), time.Hour))

	moved := nine.Add(30 * time.Minute)
	end := moved.Add(time.Hour)
	_, _, err := s.Update(target.ID, EventPatch{StartTime: &moved, EndTime: &end})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}

	got, _ := s.Get(target.ID)
	if !got.StartTime.Equal(target.StartTime) {
		t.Errorf("rejected move mutated the event: start = %v", got.StartTime)
	}
}

func TestStoreDuplicateCloneCanBeRenamed(t *testing.T) {
	s := NewEventStore()
	s.Add(lessonAt("a", 1, date(2025, time.March, 10), time.Hour))
	clone, _, _ := s.Duplicate("a")

	// The clone shares the source interval until rescheduled; cosmetic
	// updates must not trip the double-booking check.
	title := "Lesson a (moved copy)"
	if _, _, err := s.Update(clone.ID, EventPatch{Title: &title}); err != nil {
		t.Fatalf("renaming an unscheduled clone failed: %v", err)
	}

	// Moving it onto a free slot clears the overlap
	start := date(2025, time.March, 10).Add(3 * time.Hour)
	end := start.Add(time.Hour)
	if _, _, err := s.Update(clone.ID, EventPatch{StartTime: &start, EndTime: &end}); err != nil {
		t.Fatalf("rescheduling the clone failed: %v", err)
	}
}

func TestStoreUpdateRejectedPatchLeavesStateUntouched(t *testing.T) {
	s := NewEventStore()
	start := date(2025, time.March, 10)
	ev, _, _ := s.Add(lessonAt("a", 1, start, time.Hour))

	bad := start.Add(-2 * time.Hour)
	if _, _, err := s.Update(ev.ID, EventPatch{EndTime: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}

	got, _ := s.Get(ev.ID)
	if !got.EndTime.Equal(ev.EndTime) {
		t.Errorf("end time changed to %v after a rejected patch", got.EndTime)
	}
}

func TestStoreRemoveIsTerminal(t *testing.T) {
	s := NewEventStore()
	ev, _, _ := s.Add(lessonAt("a", 1, date(2025, time.March, 10), time.Hour))

	if _, _, err := s.Remove(ev.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, _, err := s.Remove(ev.ID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("second Remove got %v, want ErrEventNotFound", err)
	}
}

func TestStoreDuplicate(t *testing.T) {
	s := NewEventStore()
	sub := uint(9)
	ev := lessonAt("a", 1, date(2025, time.March, 10), time.Hour)
	ev.SubstituteTeacherID = &sub
	s.Add(ev)

	clone, _, err := s.Duplicate("a")
	if err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}
	if clone.ID == "a" {
		t.Error("clone kept the source ID")
	}
	if clone.Title != "Lesson a (copy)" {
		t.Errorf("clone title = %q", clone.Title)
	}
	if clone.SubstituteTeacherID != nil {
		t.Error("substitute assignment carried over to the clone")
	}
	if !clone.StartTime.Equal(ev.StartTime) || !clone.EndTime.Equal(ev.EndTime) {
		t.Error("clone interval differs from the source")
	}
}

func TestStoreListOrderingIsDeterministic(t *testing.T) {
	s := NewEventStore()
	start := date(2025, time.March, 10)
	s.Add(lessonAt("b", 1, start, time.Hour))
	s.Add(lessonAt("a", 2, start, time.Hour)) // same start, tie broken by id
	s.Add(lessonAt("c", 3, start.Add(-time.Hour), time.Hour))

	r := DateRange{Start: start.AddDate(0, 0, -1), End: start.AddDate(0, 0, 1)}
	for i := 0; i < 10; i++ {
		got := s.List(r)
		if len(got) != 3 {
			t.Fatalf("List returned %d events", len(got))
		}
		if got[0].ID != "c" || got[1].ID != "a" || got[2].ID != "b" {
			t.Fatalf("order was %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
		}
	}
}

func TestStoreListHalfOpenBoundaries(t *testing.T) {
	s := NewEventStore()
	day := date(2025, time.March, 10)
	s.Add(lessonAt("before", 1, day.Add(-time.Hour), time.Hour)) // ends exactly at range start
	s.Add(lessonAt("at-end", 1, day.AddDate(0, 0, 1), time.Hour)) // starts exactly at range end
	s.Add(lessonAt("inside", 1, day.Add(9*time.Hour), time.Hour))

	got := s.List(DateRange{Start: day, End: day.AddDate(0, 0, 1)})
	if len(got) != 1 || got[0].ID != "inside" {
		t.Errorf("half-open boundaries leaked: %d events", len(got))
	}
}

func TestOverlaps(t *testing.T) {
	base := date(2025, time.March, 10)
	tests := []struct {
		name   string
		aStart time.Duration
		aEnd   time.Duration
		bStart time.Duration
		bEnd   time.Duration
		want   bool
	}{
		{"identical", 0, 60, 0, 60, true},
		{"partial", 0, 60, 30, 90, true},
		{"contained", 0, 90, 30, 60, true},
		{"back to back", 0, 60, 60, 120, false},
		{"disjoint", 0, 60, 120, 180, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(
				base.Add(tt.aStart*time.Minute), base.Add(tt.aEnd*time.Minute),
				base.Add(tt.bStart*time.Minute), base.Add(tt.bEnd*time.Minute),
			)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreRestore(t *testing.T) {
	s := NewEventStore()
	ev, _, _ := s.Add(lessonAt("a", 1, date(2025, time.March, 10), time.Hour))

	title := "changed"
	_, snap, _ := s.Update(ev.ID, EventPatch{Title: &title})

	s.Restore(snap)
	got, _ := s.Get(ev.ID)
	if got.Title != ev.Title {
		t.Errorf("title after restore = %q, want %q", got.Title, ev.Title)
	}
}

func TestStoreRestoreTouchesOnlyItsEvent(t *testing.T) {
	s := NewEventStore()
	day := date(2025, time.March, 10)
	added, addSnap, _ := s.Add(lessonAt("a", 1, day.Add(9*time.Hour), time.Hour))
	other, _, _ := s.Add(lessonAt("b", 1, day.Add(11*time.Hour), time.Hour))

	// Restoring the add pre-image removes that event and nothing else
	s.Restore(addSnap)
	if _, ok := s.Get(added.ID); ok {
		t.Error("restored add still present")
	}
	if _, ok := s.Get(other.ID); !ok {
		t.Error("unrelated event removed by restore")
	}

	// The zero snapshot is inert
	s.Restore(Snapshot{})
	if s.Len() != 1 {
		t.Errorf("zero snapshot changed the store: %d events", s.Len())
	}
}
