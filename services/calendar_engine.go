package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"repre_go/models"

	"github.com/sirupsen/logrus"
)

// Mutation actions reported to the change notifier.
const (
	ActionCreated    = "created"
	ActionUpdated    = "updated"
	ActionDeleted    = "deleted"
	ActionDuplicated = "duplicated"
	ActionSubstitute = "substitute_assigned"
)

// PersistenceGateway is the external persistence collaborator. The engine
// calls it after the optimistic local mutation and reconciles on error.
type PersistenceGateway interface {
	LoadEvents(ctx context.Context, r DateRange) ([]models.CalendarEvent, error)
	SaveEvent(ctx context.Context, ev models.CalendarEvent) error
	DeleteEvent(ctx context.Context, id string) error
}

// ChangeNotifier receives confirmed schedule mutations for fan-out.
type ChangeNotifier interface {
	ScheduleChanged(ev models.CalendarEvent, action string)
}

// CalendarEngine applies mutations to the in-memory store first and confirms
// them through the persistence gateway asynchronously. A failed confirmation
// restores the pre-mutation snapshot; the caller is never paused while the
// round trip completes.
type CalendarEngine struct {
	store       *EventStore
	gateway     PersistenceGateway
	notifier    ChangeNotifier
	onReconcile func(error)

	mu sync.Mutex // serializes mutations so compound operations never interleave
	wg sync.WaitGroup
}

func NewCalendarEngine(store *EventStore, gateway PersistenceGateway) *CalendarEngine {
	return &CalendarEngine{store: store, gateway: gateway}
}

// SetNotifier wires the fan-out service. Optional; nil disables fan-out.
func (e *CalendarEngine) SetNotifier(n ChangeNotifier) {
	e.notifier = n
}

// SetReconcileHandler registers a callback for failed persistence
// confirmations. The error always wraps ErrReconciliation; the rollback has
// already happened when the callback runs.
func (e *CalendarEngine) SetReconcileHandler(fn func(error)) {
	e.onReconcile = fn
}

// Store exposes the underlying event store for read-only collaborators.
func (e *CalendarEngine) Store() *EventStore {
	return e.store
}

// LoadRange hydrates the store with the persisted events for a view window.
func (e *CalendarEngine) LoadRange(ctx context.Context, r DateRange) error {
	events, err := e.gateway.LoadEvents(ctx, r)
	if err != nil {
		return err
	}
	e.store.Hydrate(events)
	return nil
}

// CreateEvent adds an event optimistically and confirms it in the background.
func (e *CalendarEngine) CreateEvent(ev models.CalendarEvent) (models.CalendarEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	created, snap, err := e.store.Add(ev)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	e.confirm(created, ActionCreated, snap, func(ctx context.Context) error {
		return e.gateway.SaveEvent(ctx, created)
	})
	return created, nil
}

// UpdateEvent patches an event optimistically and confirms it in the background.
func (e *CalendarEngine) UpdateEvent(id string, patch EventPatch) (models.CalendarEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateLocked(id, patch, ActionUpdated)
}

// DeleteEvent removes an event optimistically. Deletion is terminal.
func (e *CalendarEngine) DeleteEvent(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed, snap, err := e.store.Remove(id)
	if err != nil {
		return err
	}
	e.confirm(removed, ActionDeleted, snap, func(ctx context.Context) error {
		return e.gateway.DeleteEvent(ctx, id)
	})
	return nil
}

// DuplicateEvent clones an event under a new identifier.
func (e *CalendarEngine) DuplicateEvent(id string) (models.CalendarEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	clone, snap, err := e.store.Duplicate(id)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	e.confirm(clone, ActionDuplicated, snap, func(ctx context.Context) error {
		return e.gateway.SaveEvent(ctx, clone)
	})
	return clone, nil
}

// List returns the events intersecting the range, in deterministic order.
func (e *CalendarEngine) List(r DateRange) []models.CalendarEvent {
	return e.store.List(r)
}

// Mutate runs fn while holding the engine mutation lock. Compound
// validate-then-write operations use it so no other mutation can interleave
// between the validation pass and the write.
func (e *CalendarEngine) Mutate(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// UpdateLocked is the write half of a compound operation already holding the
// lock through Mutate.
func (e *CalendarEngine) UpdateLocked(id string, patch EventPatch, action string) (models.CalendarEvent, error) {
	return e.updateLocked(id, patch, action)
}

// Flush waits for all in-flight persistence confirmations. Used by tests and
// graceful shutdown.
func (e *CalendarEngine) Flush() {
	e.wg.Wait()
}

func (e *CalendarEngine) updateLocked(id string, patch EventPatch, action string) (models.CalendarEvent, error) {
	updated, snap, err := e.store.Update(id, patch)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	e.confirm(updated, action, snap, func(ctx context.Context) error {
		return e.gateway.SaveEvent(ctx, updated)
	})
	return updated, nil
}

// confirm runs the persistence round trip without blocking the caller. An
// in-flight confirmation cannot be cancelled, only reconciled on failure by
// rolling back to the last known-good snapshot.
func (e *CalendarEngine) confirm(ev models.CalendarEvent, action string, snap Snapshot, persist func(context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := persist(ctx); err != nil {
			e.store.Restore(snap)
			rerr := fmt.Errorf("%w: %s %s: %v", ErrReconciliation, action, ev.ID, err)
			logrus.WithFields(logrus.Fields{
				"event_id": ev.ID,
				"action":   action,
				"error":    rerr.Error(),
			}).Warn("persistence confirmation failed, local state rolled back")
			if e.onReconcile != nil {
				e.onReconcile(rerr)
			}
			return
		}
		if e.notifier != nil {
			e.notifier.ScheduleChanged(ev, action)
		}
	}()
}
