package services

import (
	"testing"
	"time"

	"repre_go/models"
)

type fakeAvailability struct {
	windows map[uint][]models.TeacherAvailability
}

func (f *fakeAvailability) AvailabilityOf(teacherID uint) []models.TeacherAvailability {
	return f.windows[teacherID]
}

type capturingNotifier struct {
	events []models.CalendarEvent
}

func (n *capturingNotifier) UncoveredLessons(events []models.CalendarEvent) {
	n.events = append(n.events, events...)
}

func TestCheckUncoveredLessons(t *testing.T) {
	engine := NewCalendarEngine(NewEventStore(), &fakeGateway{})
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) // a Monday
	tomorrow := date(2025, time.March, 11)

	// Teacher 1 is available Tuesday 08:00 to 12:00; teacher 2 has no windows
	// and is treated as always available.
	availability := &fakeAvailability{windows: map[uint][]models.TeacherAvailability{
		1: {{TeacherID: 1, DayOfWeek: int(time.Tuesday), StartMinute: 8 * 60, EndMinute: 12 * 60}},
	}}
	notifier := &capturingNotifier{}

	// Outside the owner's availability window and without a substitute
	uncovered, _ := engine.CreateEvent(lessonAt("", 1, tomorrow.Add(14*time.Hour), time.Hour))
	// Inside the window
	engine.CreateEvent(lessonAt("", 1, tomorrow.Add(9*time.Hour), time.Hour))
	// Outside the window but already covered by a substitute
	sub := uint(2)
	coveredEv := lessonAt("", 1, tomorrow.Add(16*time.Hour), time.Hour)
	coveredEv.SubstituteTeacherID = &sub
	engine.CreateEvent(coveredEv)
	// No windows configured for teacher 2
	engine.CreateEvent(lessonAt("", 2, tomorrow.Add(18*time.Hour), time.Hour))
	// Today, not tomorrow
	engine.CreateEvent(lessonAt("", 1, now.Add(2*time.Hour), time.Hour))
	engine.Flush()

	rs := NewReminderScheduler(engine, availability, notifier)
	rs.now = func() time.Time { return now }
	rs.CheckUncoveredLessons()

	if len(notifier.events) != 1 {
		t.Fatalf("notified about %d lessons, want 1", len(notifier.events))
	}
	if notifier.events[0].ID != uncovered.ID {
		t.Errorf("notified about %s, want %s", notifier.events[0].ID, uncovered.ID)
	}
}

func TestCheckUncoveredLessonsQuietWhenAllCovered(t *testing.T) {
	engine := NewCalendarEngine(NewEventStore(), &fakeGateway{})
	notifier := &capturingNotifier{}
	rs := NewReminderScheduler(engine, &fakeAvailability{}, notifier)
	rs.now = func() time.Time { return date(2025, time.March, 10) }

	rs.CheckUncoveredLessons()

	if len(notifier.events) != 0 {
		t.Errorf("notified with an empty calendar: %d", len(notifier.events))
	}
}
