package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"repre_go/models"
)

// fakeGateway records persistence calls and can be told to fail. saveHook, when
// set, runs before the recorded save and may block or refuse individual events.
type fakeGateway struct {
	mu         sync.Mutex
	failSave   bool
	failDelete bool
	saves      []string
	deletes    []string
	saveHook   func(ev models.CalendarEvent) error
}

func (g *fakeGateway) LoadEvents(ctx context.Context, r DateRange) ([]models.CalendarEvent, error) {
	return nil, nil
}

func (g *fakeGateway) SaveEvent(ctx context.Context, ev models.CalendarEvent) error {
	if g.saveHook != nil {
		if err := g.saveHook(ev); err != nil {
			return err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSave {
		return errors.New("save refused")
	}
	g.saves = append(g.saves, ev.ID)
	return nil
}

func (g *fakeGateway) savedIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.saves...)
}

func (g *fakeGateway) DeleteEvent(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failDelete {
		return errors.New("delete refused")
	}
	g.deletes = append(g.deletes, id)
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	actions []string
}

func (n *recordingNotifier) ScheduleChanged(ev models.CalendarEvent, action string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions = append(n.actions, action)
}

func newTestEngine(gw *fakeGateway) *CalendarEngine {
	return NewCalendarEngine(NewEventStore(), gw)
}

func TestEngineCreateConfirms(t *testing.T) {
	gw := &fakeGateway{}
	notifier := &recordingNotifier{}
	engine := newTestEngine(gw)
	engine.SetNotifier(notifier)

	ev, err := engine.CreateEvent(lessonAt("", 1, date(2025, time.March, 10), time.Hour))
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	engine.Flush()

	if len(gw.saves) != 1 || gw.saves[0] != ev.ID {
		t.Errorf("gateway saves = %v", gw.saves)
	}
	if len(notifier.actions) != 1 || notifier.actions[0] != ActionCreated {
		t.Errorf("notifier actions = %v", notifier.actions)
	}
}

func TestEngineFailedCreateRollsBack(t *testing.T) {
	gw := &fakeGateway{failSave: true}
	notifier := &recordingNotifier{}
	engine := newTestEngine(gw)
	engine.SetNotifier(notifier)

	ev, err := engine.CreateEvent(lessonAt("", 1, date(2025, time.March, 10), time.Hour))
	if err != nil {
		t.Fatalf("CreateEvent failed synchronously: %v", err)
	}

	// The optimistic insert is visible before the confirmation settles
	if _, ok := engine.Store().Get(ev.ID); !ok {
		t.Fatal("optimistic insert not visible")
	}

	engine.Flush()

	if _, ok := engine.Store().Get(ev.ID); ok {
		t.Error("event survived a failed persistence confirmation")
	}
	if len(notifier.actions) != 0 {
		t.Errorf("notifier fired on a failed confirmation: %v", notifier.actions)
	}
}

func TestEngineFailedUpdateRestoresPreviousValue(t *testing.T) {
	gw := &fakeGateway{}
	engine := newTestEngine(gw)

	ev, _ := engine.CreateEvent(lessonAt("", 1, date(2025, time.March, 10), time.Hour))
	engine.Flush()

	gw.mu.Lock()
	gw.failSave = true
	gw.mu.Unlock()

	title := "renamed"
	if _, err := engine.UpdateEvent(ev.ID, EventPatch{Title: &title}); err != nil {
		t.Fatalf("UpdateEvent failed synchronously: %v", err)
	}
	engine.Flush()

	got, ok := engine.Store().Get(ev.ID)
	if !ok {
		t.Fatal("event vanished")
	}
	if got.Title != ev.Title {
		t.Errorf("title = %q after rollback, want %q", got.Title, ev.Title)
	}
}

func TestEngineFailedDeleteRestoresEvent(t *testing.T) {
	gw := &fakeGateway{}
	engine := newTestEngine(gw)

	ev, _ := engine.CreateEvent(lessonAt("", 1, date(2025, time.March, 10), time.Hour))
	engine.Flush()

	gw.mu.Lock()
	gw.failDelete = true
	gw.mu.Unlock()

	if err := engine.DeleteEvent(ev.ID); err != nil {
		t.Fatalf("DeleteEvent failed synchronously: %v", err)
	}
	engine.Flush()

	if _, ok := engine.Store().Get(ev.ID); !ok {
		t.Error("event not restored after failed delete confirmation")
	}
}

func TestEngineRollbackPreservesUnrelatedConfirmedCreate(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{}
	gw.saveHook = func(ev models.CalendarEvent) error {
		if ev.ID == "doomed" {
			<-release
			return errors.New("save refused")
		}
		return nil
	}
	engine := newTestEngine(gw)

	day := date(2025, time.March, 10)
	doomed, err := engine.CreateEvent(lessonAt("doomed", 1, day.Add(9*time.Hour), time.Hour))
	if err != nil {
		t.Fatalf("first CreateEvent failed: %v", err)
	}
	survivor, err := engine.CreateEvent(lessonAt("survivor", 1, day.Add(11*time.Hour), time.Hour))
	if err != nil {
		t.Fatalf("second CreateEvent failed: %v", err)
	}

	// Let the second create confirm while the first one is still in flight
	deadline := time.Now().Add(2 * time.Second)
	for len(gw.savedIDs()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("second create never confirmed")
		}
		time.Sleep(time.Millisecond)
	}

	close(release)
	engine.Flush()

	if _, ok := engine.Store().Get(doomed.ID); ok {
		t.Error("event survived its failed persistence confirmation")
	}
	if _, ok := engine.Store().Get(survivor.ID); !ok {
		t.Error("independently confirmed event erased by an unrelated rollback")
	}
}

func TestEngineReconciliationFailureCarriesSentinel(t *testing.T) {
	gw := &fakeGateway{failSave: true}
	engine := newTestEngine(gw)

	errs := make(chan error, 1)
	engine.SetReconcileHandler(func(err error) { errs <- err })

	if _, err := engine.CreateEvent(lessonAt("", 1, date(2025, time.March, 10), time.Hour)); err != nil {
		t.Fatalf("CreateEvent failed synchronously: %v", err)
	}
	engine.Flush()

	select {
	case err := <-errs:
		if !errors.Is(err, ErrReconciliation) {
			t.Errorf("got %v, want ErrReconciliation", err)
		}
	default:
		t.Fatal("reconcile handler never called")
	}
}

func TestEngineCreateRejectsDoubleBooking(t *testing.T) {
	engine := newTestEngine(&fakeGateway{})
	nine := date(2025, time.March, 10).Add(9 * time.Hour)

	if _, err := engine.CreateEvent(lessonAt("", 1, nine, time.Hour)); err != nil {
		t.Fatalf("first CreateEvent failed: %v", err)
	}
	_, err := engine.CreateEvent(lessonAt("", 1, nine.Add(30*time.Minute), time.Hour))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	engine.Flush()

	if engine.Store().Len() != 1 {
		t.Errorf("store holds %d events after a rejected create, want 1", engine.Store().Len())
	}
}

func TestEngineDuplicate(t *testing.T) {
	gw := &fakeGateway{}
	engine := newTestEngine(gw)

	ev, _ := engine.CreateEvent(lessonAt("", 1, date(2025, time.March, 10), time.Hour))
	clone, err := engine.DuplicateEvent(ev.ID)
	if err != nil {
		t.Fatalf("DuplicateEvent failed: %v", err)
	}
	engine.Flush()

	if clone.ID == ev.ID {
		t.Error("duplicate kept the source ID")
	}
	if engine.Store().Len() != 2 {
		t.Errorf("store holds %d events, want 2", engine.Store().Len())
	}
}
