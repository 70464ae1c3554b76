package services

import (
	"math"
	"time"

	"repre_go/models"
)

// Drag grid constants. One visual grid row is 20px and represents 15 minutes;
// the duration only grows after two full rows (40px) of vertical travel.
const (
	DragDefaultDuration = 30 * time.Minute
	DragMinimumDuration = 15 * time.Minute
	DragSnapStep        = 15 * time.Minute
	DragPixelsPerStep   = 40.0
	DragGridRowPixels   = 20.0
)

// DragPhase is the state of the interaction machine.
type DragPhase int

const (
	DragIdle DragPhase = iota
	DragDragging
)

// PointerPosition is one raw pointer sample, already resolved by the input
// layer to a grid-snapped time, a resource lane and a pixel anchor. Passing it
// explicitly keeps the machine replayable without a UI harness.
type PointerPosition struct {
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	SnappedY float64   `json:"snapped_y"`
	Column   int       `json:"column"`
	Time     time.Time `json:"time"`
}

// DragState is the ephemeral interaction value. It exists only between
// drag-start and drag-end/cancel and is never persisted. Position is the
// drag-start anchor; the committed slot always begins at its snapped time.
type DragState struct {
	Position PointerPosition
	Duration time.Duration
}

// EventDraft is the creation request emitted on commit.
type EventDraft struct {
	Title     string
	Category  string
	TeacherID uint
	SubjectID *uint
	StartTime time.Time
	EndTime   time.Time
	Column    int
}

// DragMachine converts pointer input into a provisional, grid-snapped time
// slot. One machine serves one interaction session; transitions are
// synchronous and never interleave.
type DragMachine struct {
	phase DragPhase
	state DragState
	lastY float64 // snappedY of the most recent sample
}

func NewDragMachine() *DragMachine {
	return &DragMachine{phase: DragIdle}
}

// Phase returns the current machine phase.
func (m *DragMachine) Phase() DragPhase {
	return m.phase
}

// State returns the current ephemeral drag state.
func (m *DragMachine) State() DragState {
	return m.state
}

// Start begins a drag at the given position with the default duration. A
// second Start while already dragging is rejected; the prior drag keeps
// running untouched.
func (m *DragMachine) Start(pos PointerPosition) error {
	if m.phase == DragDragging {
		return ErrDragInProgress
	}
	m.phase = DragDragging
	m.state = DragState{Position: pos, Duration: DragDefaultDuration}
	m.lastY = pos.SnappedY
	return nil
}

// Move re-derives the duration from the vertical pixel delta since the last
// sample, snapped to the grid step and clamped to the minimum. The delta is
// applied on top of the previous duration, so sequences of sub-step moves
// round to zero individually and never accumulate.
func (m *DragMachine) Move(pos PointerPosition) error {
	if m.phase != DragDragging {
		return ErrNotDragging
	}
	deltaPixels := pos.SnappedY - m.lastY
	steps := math.Round(deltaPixels / DragPixelsPerStep)
	duration := time.Duration(steps)*DragSnapStep + m.state.Duration
	if duration < DragMinimumDuration {
		duration = DragMinimumDuration
	}
	m.state.Duration = duration
	m.lastY = pos.SnappedY
	return nil
}

// End commits the drag, emitting a draft whose interval is the start
// position's snapped time plus the accumulated duration, and returns the
// machine to idle.
func (m *DragMachine) End() (EventDraft, error) {
	if m.phase != DragDragging {
		return EventDraft{}, ErrNotDragging
	}
	start := m.state.Position.Time
	draft := EventDraft{
		Category:  models.CategoryWork,
		StartTime: start,
		EndTime:   start.Add(m.state.Duration),
		Column:    m.state.Position.Column,
	}
	m.reset()
	return draft, nil
}

// Cancel aborts the drag with no observable side effect.
func (m *DragMachine) Cancel() error {
	if m.phase != DragDragging {
		return ErrNotDragging
	}
	m.reset()
	return nil
}

func (m *DragMachine) reset() {
	m.phase = DragIdle
	m.state = DragState{}
	m.lastY = 0
}
