package notifications

import (
	"errors"
	"sync"
	"testing"
	"time"

	"repre_go/models"
)

// fakeStore implements the guarded read-state transition in memory.
type fakeStore struct {
	mu          sync.Mutex
	rows        []models.Notification
	nextID      uint
	failInsert  bool
	transitions int
}

func (s *fakeStore) Insert(ns []models.Notification) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return nil, errors.New("insert refused")
	}
	for i := range ns {
		s.nextID++
		ns[i].ID = s.nextID
		s.rows = append(s.rows, ns[i])
	}
	return ns, nil
}

func (s *fakeStore) MarkRead(notificationID, userID uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID != notificationID || s.rows[i].UserID != userID {
			continue
		}
		if s.rows[i].Read {
			return nil
		}
		s.rows[i].Read = true
		s.rows[i].ReadAt = &at
		s.transitions++
		return nil
	}
	return nil
}

type fakeHub struct {
	mu       sync.Mutex
	messages map[uint]int
}

func (h *fakeHub) BroadcastToUser(userID uint, message interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.messages == nil {
		h.messages = make(map[uint]int)
	}
	h.messages[userID]++
}

type fakeResolver struct {
	recipients []uint
	orgID      uint
	admins     map[uint][]uint
}

func (r *fakeResolver) ScheduleChangeRecipients(ev models.CalendarEvent) ([]uint, uint) {
	return r.recipients, r.orgID
}

func (r *fakeResolver) OrganizationOfTeacher(teacherID uint) uint { return r.orgID }

func (r *fakeResolver) AdminsOf(organizationID uint) []uint { return r.admins[organizationID] }

type failingSender struct{ calls int }

func (s *failingSender) Send(userID uint, title, body string, metadata map[string]interface{}) error {
	s.calls++
	return errors.New("sender unavailable")
}

func TestNotifyCreatesOneRowPerRecipient(t *testing.T) {
	store := &fakeStore{}
	svc := NewServiceWith(store, &fakeHub{}, &fakeResolver{})

	err := svc.Notify(Payload{
		OrganizationID: 1,
		Type:           "info",
		Title:          "Schedule changed",
		Message:        "Your Tuesday lesson moved.",
		Recipients:     []uint{10, 11, 12},
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if len(store.rows) != 3 {
		t.Fatalf("inserted %d rows, want 3", len(store.rows))
	}
	seen := map[uint]bool{}
	for _, row := range store.rows {
		if seen[row.UserID] {
			t.Errorf("user %d received more than one row", row.UserID)
		}
		seen[row.UserID] = true
		if row.Read {
			t.Error("row created already read")
		}
	}
}

func TestNotifyRequiresRecipients(t *testing.T) {
	svc := NewServiceWith(&fakeStore{}, nil, nil)
	if err := svc.Notify(Payload{Title: "x"}); err == nil {
		t.Error("Notify accepted an empty recipient list")
	}
}

func TestNotifyPopupChannelBroadcasts(t *testing.T) {
	store := &fakeStore{}
	hub := &fakeHub{}
	svc := NewServiceWith(store, hub, nil)

	if err := svc.Notify(Payload{
		Type:       "info",
		Title:      "t",
		Message:    "m",
		Recipients: []uint{10, 11},
		Channels:   []string{"normal", "popup"},
	}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if hub.messages[10] != 1 || hub.messages[11] != 1 {
		t.Errorf("broadcasts = %v, want one per recipient", hub.messages)
	}
}

func TestNotifyChannelFailureDoesNotUndoRows(t *testing.T) {
	store := &fakeStore{}
	sender := &failingSender{}
	svc := NewServiceWith(store, nil, nil)
	svc.RegisterSender("line", sender)

	err := svc.Notify(Payload{
		Type:       "warning",
		Title:      "t",
		Message:    "m",
		Recipients: []uint{10},
		Channels:   []string{"line"},
	})
	if err != nil {
		t.Fatalf("Notify surfaced a channel failure: %v", err)
	}
	if sender.calls != 1 {
		t.Errorf("sender called %d times", sender.calls)
	}
	if len(store.rows) != 1 {
		t.Errorf("rows = %d after channel failure, want 1", len(store.rows))
	}
}

func TestNotifyInsertFailureSurfaces(t *testing.T) {
	svc := NewServiceWith(&fakeStore{failInsert: true}, nil, nil)
	if err := svc.Notify(Payload{Type: "info", Title: "t", Message: "m", Recipients: []uint{10}}); err == nil {
		t.Error("Notify swallowed a store failure")
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	svc := NewServiceWith(store, nil, nil)
	svc.Notify(Payload{Type: "info", Title: "t", Message: "m", Recipients: []uint{10}})

	id := store.rows[0].ID
	for i := 0; i < 3; i++ {
		if err := svc.MarkRead(id, 10); err != nil {
			t.Fatalf("MarkRead call %d failed: %v", i+1, err)
		}
	}
	if store.transitions != 1 {
		t.Errorf("read transitions = %d, want exactly 1", store.transitions)
	}
	firstReadAt := *store.rows[0].ReadAt

	svc.MarkRead(id, 10)
	if !store.rows[0].ReadAt.Equal(firstReadAt) {
		t.Error("repeated MarkRead moved the read timestamp")
	}
}

func TestMarkReadUnknownRowIsNoOp(t *testing.T) {
	svc := NewServiceWith(&fakeStore{}, nil, nil)
	if err := svc.MarkRead(999, 10); err != nil {
		t.Errorf("MarkRead on unknown row returned %v", err)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	store := &fakeStore{}
	svc := NewServiceWith(store, nil, nil)
	svc.Notify(Payload{Type: "info", Title: "t", Message: "m", Recipients: []uint{10}})

	// A different user cannot flip someone else's row
	svc.MarkRead(store.rows[0].ID, 11)
	if store.rows[0].Read {
		t.Error("row marked read by a non-owner")
	}
}

func TestScheduleChangedFansOut(t *testing.T) {
	store := &fakeStore{}
	resolver := &fakeResolver{recipients: []uint{10, 11}, orgID: 1}
	svc := NewServiceWith(store, &fakeHub{}, resolver)

	ev := models.CalendarEvent{ID: "ev-1", Title: "Algebra", TeacherID: 1,
		StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)}
	svc.ScheduleChanged(ev, ActionSubstituteAssigned)

	if len(store.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(store.rows))
	}
	for _, row := range store.rows {
		if row.Type != "warning" {
			t.Errorf("substitute assignment fanned out as %q, want warning", row.Type)
		}
		if row.OrganizationID != 1 {
			t.Errorf("organization = %d", row.OrganizationID)
		}
	}
}

func TestUncoveredLessonsNotifiesAdminsPerOrganization(t *testing.T) {
	store := &fakeStore{}
	resolver := &fakeResolver{orgID: 1, admins: map[uint][]uint{1: {20, 21}}}
	svc := NewServiceWith(store, nil, resolver)

	svc.UncoveredLessons([]models.CalendarEvent{
		{ID: "a", Title: "Algebra", TeacherID: 1},
		{ID: "b", Title: "Biology", TeacherID: 2},
	})

	if len(store.rows) != 2 {
		t.Fatalf("rows = %d, want one per admin", len(store.rows))
	}
}

func TestNormalizeChannels(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty defaults to normal", nil, []string{"normal"}},
		{"unknown values dropped", []string{"sms", "popup"}, []string{"popup"}},
		{"duplicates collapsed", []string{"line", "line", "normal"}, []string{"line", "normal"}},
		{"all unknown falls back", []string{"sms", "carrier-pigeon"}, []string{"normal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeChannels(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
