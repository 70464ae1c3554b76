package services

import (
	"log"
	"time"

	"repre_go/models"

	"github.com/robfig/cron/v3"
)

// UncoveredNotifier receives the needs-substitute digest for fan-out.
type UncoveredNotifier interface {
	UncoveredLessons(events []models.CalendarEvent)
}

// AvailabilitySource supplies a teacher's advisory weekly windows.
type AvailabilitySource interface {
	AvailabilityOf(teacherID uint) []models.TeacherAvailability
}

// ReminderScheduler runs a daily check for next-day lessons that have no
// substitute and fall outside the owning teacher's availability windows, and
// hands them to the fan-out service.
type ReminderScheduler struct {
	engine       *CalendarEngine
	availability AvailabilitySource
	notifier     UncoveredNotifier
	cron         *cron.Cron
	now          func() time.Time // injectable for tests
}

func NewReminderScheduler(engine *CalendarEngine, availability AvailabilitySource, notifier UncoveredNotifier) *ReminderScheduler {
	return &ReminderScheduler{
		engine:       engine,
		availability: availability,
		notifier:     notifier,
		cron:         cron.New(),
		now:          time.Now,
	}
}

// Start schedules the daily check at 06:00.
func (rs *ReminderScheduler) Start() {
	if _, err := rs.cron.AddFunc("0 6 * * *", rs.CheckUncoveredLessons); err != nil {
		log.Printf("Failed to schedule uncovered lesson check: %v", err)
		return
	}
	rs.cron.Start()
	log.Println("Reminder scheduler started")
}

// Stop halts the cron loop.
func (rs *ReminderScheduler) Stop() {
	rs.cron.Stop()
}

// CheckUncoveredLessons collects tomorrow's lessons that still need a
// substitute and notifies the organization admins.
func (rs *ReminderScheduler) CheckUncoveredLessons() {
	tomorrow := rs.now().AddDate(0, 0, 1)
	window, err := RangeForView(tomorrow, ViewDay, time.Monday)
	if err != nil {
		return
	}

	uncovered := make([]models.CalendarEvent, 0)
	for _, ev := range rs.engine.List(window) {
		if ev.SubstituteTeacherID != nil {
			continue
		}
		if rs.coveredByAvailability(ev) {
			continue
		}
		uncovered = append(uncovered, ev)
	}

	if len(uncovered) == 0 {
		return
	}
	log.Printf("Uncovered lesson check: %d lesson(s) need a substitute", len(uncovered))
	if rs.notifier != nil {
		rs.notifier.UncoveredLessons(uncovered)
	}
}

// coveredByAvailability reports whether the full event interval sits inside
// one of the owning teacher's advisory windows. Teachers without windows are
// treated as always available.
func (rs *ReminderScheduler) coveredByAvailability(ev models.CalendarEvent) bool {
	windows := rs.availability.AvailabilityOf(ev.TeacherID)
	if len(windows) == 0 {
		return true
	}
	day := int(ev.StartTime.Weekday())
	startMin := ev.StartTime.Hour()*60 + ev.StartTime.Minute()
	endMin := ev.EndTime.Hour()*60 + ev.EndTime.Minute()
	sy, sm, sd := ev.StartTime.Date()
	ey, em, ed := ev.EndTime.Date()
	if sy != ey || sm != em || sd != ed {
		// multi-day events never fit a single daily window
		return false
	}
	for _, w := range windows {
		if w.DayOfWeek == day && w.StartMinute <= startMin && endMin <= w.EndMinute {
			return true
		}
	}
	return false
}

