package services

import (
	"errors"
	"testing"
	"time"
)

// fakeDirectory serves names and qualifications from maps.
type fakeDirectory struct {
	names map[uint]string
	quals map[uint]map[uint]bool // subjectID -> teacherID -> qualified
}

func (d *fakeDirectory) NameOf(teacherID uint) (string, bool) {
	name, ok := d.names[teacherID]
	return name, ok
}

func (d *fakeDirectory) Qualified(subjectID, teacherID uint) bool {
	return d.quals[subjectID][teacherID]
}

func newSubstitutionFixture(t *testing.T) (*SubstitutionService, *CalendarEngine, *fakeDirectory) {
	t.Helper()
	engine := NewCalendarEngine(NewEventStore(), &fakeGateway{})
	dir := &fakeDirectory{
		names: map[uint]string{1: "Alice Carter", 2: "Bob Nguyen"},
		quals: map[uint]map[uint]bool{},
	}
	return NewSubstitutionService(engine, dir), engine, dir
}

func TestAssignSubstitute(t *testing.T) {
	subs, engine, _ := newSubstitutionFixture(t)
	ev, _ := engine.CreateEvent(lessonAt("", 1, date(2025, time.March, 10).Add(9*time.Hour), time.Hour))
	engine.Flush()

	got, err := subs.AssignSubstitute(ev.ID, 2)
	if err != nil {
		t.Fatalf("AssignSubstitute failed: %v", err)
	}
	if got.SubstituteTeacherID == nil || *got.SubstituteTeacherID != 2 {
		t.Error("substitute not recorded")
	}
	if got.TeacherID != 1 {
		t.Error("owning teacher changed")
	}
	if got.CoveredBy() != 2 {
		t.Errorf("CoveredBy = %d, want the substitute", got.CoveredBy())
	}
}

func TestAssignSubstituteDoubleBookingFailsRepeatably(t *testing.T) {
	subs, engine, _ := newSubstitutionFixture(t)
	nine := date(2025, time.March, 10).Add(9 * time.Hour)

	target, _ := engine.CreateEvent(lessonAt("", 1, nine, time.Hour))
	// The substitute already covers an overlapping lesson of their own
	engine.CreateEvent(lessonAt("", 2, nine.Add(30*time.Minute), time.Hour))
	engine.Flush()

	for i := 0; i < 2; i++ {
		_, err := subs.AssignSubstitute(target.ID, 2)
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("attempt %d: got %v, want ErrConflict", i+1, err)
		}
		got, _ := engine.Store().Get(target.ID)
		if got.SubstituteTeacherID != nil {
			t.Fatalf("attempt %d: failed assignment mutated the event", i+1)
		}
	}
}

func TestAssignSubstituteBackToBackIsNoConflict(t *testing.T) {
	subs, engine, _ := newSubstitutionFixture(t)
	nine := date(2025, time.March, 10).Add(9 * time.Hour)

	target, _ := engine.CreateEvent(lessonAt("", 1, nine, time.Hour))
	// The substitute's own lesson ends exactly when the target starts
	engine.CreateEvent(lessonAt("", 2, nine.Add(-time.Hour), time.Hour))
	engine.Flush()

	if _, err := subs.AssignSubstitute(target.ID, 2); err != nil {
		t.Fatalf("back-to-back intervals reported as conflict: %v", err)
	}
}

func TestAssignSubstituteChecksQualification(t *testing.T) {
	subs, engine, dir := newSubstitutionFixture(t)
	nine := date(2025, time.March, 10).Add(9 * time.Hour)

	subjectID := uint(7)
	ev := lessonAt("", 1, nine, time.Hour)
	ev.SubjectID = &subjectID
	created, _ := engine.CreateEvent(ev)
	engine.Flush()

	_, err := subs.AssignSubstitute(created.ID, 2)
	if !errors.Is(err, ErrNotQualified) {
		t.Fatalf("got %v, want ErrNotQualified", err)
	}
	got, _ := engine.Store().Get(created.ID)
	if got.SubstituteTeacherID != nil {
		t.Error("failed assignment mutated the event")
	}

	// Qualify and retry: the same call must now succeed
	dir.quals[subjectID] = map[uint]bool{2: true}
	if _, err := subs.AssignSubstitute(created.ID, 2); err != nil {
		t.Fatalf("qualified retry failed: %v", err)
	}
}

func TestAssignSubstituteUnknownEvent(t *testing.T) {
	subs, _, _ := newSubstitutionFixture(t)
	if _, err := subs.AssignSubstitute("no-such-event", 2); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("got %v, want ErrEventNotFound", err)
	}
}

func TestClearSubstitute(t *testing.T) {
	subs, engine, _ := newSubstitutionFixture(t)
	ev, _ := engine.CreateEvent(lessonAt("", 1, date(2025, time.March, 10).Add(9*time.Hour), time.Hour))
	engine.Flush()

	subs.AssignSubstitute(ev.ID, 2)
	got, err := subs.ClearSubstitute(ev.ID)
	if err != nil {
		t.Fatalf("ClearSubstitute failed: %v", err)
	}
	if got.SubstituteTeacherID != nil {
		t.Error("substitute still set")
	}
	if got.CoveredBy() != 1 {
		t.Errorf("CoveredBy = %d, want the owner", got.CoveredBy())
	}
}

func TestFindConflictsFollowsCoverage(t *testing.T) {
	subs, engine, _ := newSubstitutionFixture(t)
	nine := date(2025, time.March, 10).Add(9 * time.Hour)

	ev, _ := engine.CreateEvent(lessonAt("", 1, nine, time.Hour))
	engine.Flush()
	subs.AssignSubstitute(ev.ID, 2)

	window := DateRange{Start: nine.Add(-time.Hour), End: nine.Add(2 * time.Hour)}

	// Once substituted the lesson counts against the substitute, not the owner
	if got := subs.FindConflicts(1, window); len(got) != 0 {
		t.Errorf("owner still reported busy: %d conflicts", len(got))
	}
	got := subs.FindConflicts(2, window)
	if len(got) != 1 || got[0].ID != ev.ID {
		t.Errorf("substitute conflicts = %d", len(got))
	}
}

func TestRepresentationPlan(t *testing.T) {
	subs, engine, dir := newSubstitutionFixture(t)
	nine := date(2025, time.March, 10).Add(9 * time.Hour)

	covered, _ := engine.CreateEvent(lessonAt("", 1, nine, time.Hour))
	engine.CreateEvent(lessonAt("", 1, nine.Add(2*time.Hour), time.Hour)) // no substitute, not in plan
	engine.Flush()
	subs.AssignSubstitute(covered.ID, 2)

	plan := subs.RepresentationPlan()
	if len(plan) != 1 {
		t.Fatalf("plan has %d entries, want 1", len(plan))
	}
	entry := plan[0]
	if entry.EventID != covered.ID {
		t.Errorf("entry event = %s", entry.EventID)
	}
	if entry.TeacherName != "Alice Carter" || entry.SubstituteName != "Bob Nguyen" {
		t.Errorf("names = %q / %q", entry.TeacherName, entry.SubstituteName)
	}

	// An unresolvable teacher renders as the sentinel instead of failing
	delete(dir.names, 2)
	plan = subs.RepresentationPlan()
	if plan[0].SubstituteName != PlanUnknownTeacher {
		t.Errorf("unresolved substitute = %q, want %q", plan[0].SubstituteName, PlanUnknownTeacher)
	}
}
