package controllers

import (
	"errors"
	"sync"
	"time"

	"repre_go/config"
	"repre_go/middleware"
	"repre_go/models"
	"repre_go/services"
	"repre_go/utils"

	"github.com/gofiber/fiber/v2"
)

// EventController serves the calendar: range listing, event CRUD, the drag
// interaction and substitute assignment.
type EventController struct {
	engine *services.CalendarEngine
	subs   *services.SubstitutionService

	dragMu sync.Mutex
	drags  map[uint]*services.DragMachine // one interaction session per user
}

func NewEventController(engine *services.CalendarEngine, subs *services.SubstitutionService) *EventController {
	return &EventController{
		engine: engine,
		subs:   subs,
		drags:  make(map[uint]*services.DragMachine),
	}
}

// statusForError maps service errors to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrEventNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrNotQualified),
		errors.Is(err, services.ErrDuplicateID),
		errors.Is(err, services.ErrDragInProgress),
		errors.Is(err, services.ErrNotDragging):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidView):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
}

// parseRangeQuery resolves the view and date query parameters to a half-open
// window. Defaults to the week containing today.
func parseRangeQuery(c *fiber.Ctx) (services.DateRange, services.CalendarView, error) {
	view, err := services.ParseView(c.Query("view", string(services.ViewWeek)))
	if err != nil {
		return services.DateRange{}, "", err
	}

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, perr := time.Parse("2006-01-02", raw)
		if perr != nil {
			return services.DateRange{}, "", services.ErrValidation
		}
		date = parsed
	}

	r, err := services.RangeForView(date, view, config.AppConfig.WeekStartDay)
	if err != nil {
		return services.DateRange{}, "", err
	}
	return r, view, nil
}

// GetCalendar returns all events intersecting the requested window.
func (ec *EventController) GetCalendar(c *fiber.Ctx) error {
	r, view, err := parseRangeQuery(c)
	if err != nil {
		return errorJSON(c, err)
	}

	events := ec.engine.List(r)
	dtos := make([]utils.EventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, utils.ToEventDTO(ev))
	}

	return c.JSON(fiber.Map{
		"view":   view,
		"range":  r,
		"events": dtos,
	})
}

// Navigate steps the selected date one unit forward or back and returns the
// resulting date and window.
func (ec *EventController) Navigate(c *fiber.Ctx) error {
	view, err := services.ParseView(c.Query("view", string(services.ViewWeek)))
	if err != nil {
		return errorJSON(c, err)
	}

	raw := c.Query("date")
	if raw == "" {
		return errorJSON(c, services.ErrValidation)
	}
	date, perr := time.Parse("2006-01-02", raw)
	if perr != nil {
		return errorJSON(c, services.ErrValidation)
	}

	direction := c.Query("direction", services.DirectionNext)
	if direction != services.DirectionNext && direction != services.DirectionPrevious {
		return errorJSON(c, services.ErrValidation)
	}

	next := services.Navigate(date, view, direction)
	r, err := services.RangeForView(next, view, config.AppConfig.WeekStartDay)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"view":  view,
		"date":  next.Format("2006-01-02"),
		"range": r,
	})
}

// EventRequest is the create payload.
type EventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Category    string    `json:"category"`
	TeacherID   uint      `json:"teacher_id"`
	SubjectID   *uint     `json:"subject_id"`
	Color       string    `json:"color"`
}

// EventUpdateRequest carries only the fields the client wants changed.
type EventUpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Category    *string    `json:"category"`
	SubjectID   *uint      `json:"subject_id"`
	Color       *string    `json:"color"`
}

// CreateEvent adds an event to the calendar.
func (ec *EventController) CreateEvent(c *fiber.Ctx) error {
	var req EventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ev, err := ec.engine.CreateEvent(models.CalendarEvent{
		Title:       utils.SanitizeString(req.Title),
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Category:    req.Category,
		TeacherID:   req.TeacherID,
		SubjectID:   req.SubjectID,
		Color:       req.Color,
	})
	if err != nil {
		return errorJSON(c, err)
	}

	middleware.LogActivity(c, "CREATE", "events", ev.ID, fiber.Map{"title": ev.Title})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Event created successfully",
		"event":   utils.ToEventDTO(ev),
	})
}

// GetEvent returns a single event by ID.
func (ec *EventController) GetEvent(c *fiber.Ctx) error {
	ev, ok := ec.engine.Store().Get(c.Params("id"))
	if !ok {
		return errorJSON(c, services.ErrEventNotFound)
	}
	return c.JSON(fiber.Map{"event": utils.ToEventDTO(ev)})
}

// UpdateEvent applies a partial update to an event.
func (ec *EventController) UpdateEvent(c *fiber.Ctx) error {
	var req EventUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ev, err := ec.engine.UpdateEvent(c.Params("id"), services.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Category:    req.Category,
		SubjectID:   req.SubjectID,
		Color:       req.Color,
	})
	if err != nil {
		return errorJSON(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "events", ev.ID, nil)

	return c.JSON(fiber.Map{
		"message": "Event updated successfully",
		"event":   utils.ToEventDTO(ev),
	})
}

// DeleteEvent removes an event permanently.
func (ec *EventController) DeleteEvent(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := ec.engine.DeleteEvent(id); err != nil {
		return errorJSON(c, err)
	}

	middleware.LogActivity(c, "DELETE", "events", id, nil)

	return c.JSON(fiber.Map{"message": "Event deleted successfully"})
}

// DuplicateEvent clones an event under a fresh ID.
func (ec *EventController) DuplicateEvent(c *fiber.Ctx) error {
	ev, err := ec.engine.DuplicateEvent(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}

	middleware.LogActivity(c, "CREATE", "events", ev.ID, fiber.Map{"duplicated_from": c.Params("id")})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Event duplicated successfully",
		"event":   utils.ToEventDTO(ev),
	})
}

// machineFor returns the drag machine of the current user, creating it on
// first use.
func (ec *EventController) machineFor(userID uint) *services.DragMachine {
	ec.dragMu.Lock()
	defer ec.dragMu.Unlock()
	m, ok := ec.drags[userID]
	if !ok {
		m = services.NewDragMachine()
		ec.drags[userID] = m
	}
	return m
}

// DragStart begins a slot-selection drag for the current user.
func (ec *EventController) DragStart(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var pos services.PointerPosition
	if err := c.BodyParser(&pos); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	m := ec.machineFor(user.ID)
	if err := m.Start(pos); err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"state": m.State()})
}

// DragMove feeds one pointer sample into the running drag.
func (ec *EventController) DragMove(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var pos services.PointerPosition
	if err := c.BodyParser(&pos); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	m := ec.machineFor(user.ID)
	if err := m.Move(pos); err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"state": m.State()})
}

// DragEndRequest supplies the event details the pointer cannot express.
type DragEndRequest struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	TeacherID uint   `json:"teacher_id"`
	SubjectID *uint  `json:"subject_id"`
	Color     string `json:"color"`
}

// DragEnd commits the drag as a new event at the dragged slot.
func (ec *EventController) DragEnd(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var req DragEndRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	m := ec.machineFor(user.ID)
	draft, err := m.End()
	if err != nil {
		return errorJSON(c, err)
	}

	category := draft.Category
	if req.Category != "" {
		category = req.Category
	}
	ev, err := ec.engine.CreateEvent(models.CalendarEvent{
		Title:     utils.SanitizeString(req.Title),
		StartTime: draft.StartTime,
		EndTime:   draft.EndTime,
		Category:  category,
		TeacherID: req.TeacherID,
		SubjectID: req.SubjectID,
		Color:     req.Color,
	})
	if err != nil {
		return errorJSON(c, err)
	}

	middleware.LogActivity(c, "CREATE", "events", ev.ID, fiber.Map{"via": "drag"})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Event created successfully",
		"event":   utils.ToEventDTO(ev),
	})
}

// DragCancel aborts the running drag with no side effect.
func (ec *EventController) DragCancel(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	m := ec.machineFor(user.ID)
	if err := m.Cancel(); err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Drag cancelled"})
}

// GetTeacherConflicts lists the events a teacher already covers inside the
// requested window.
func (ec *EventController) GetTeacherConflicts(c *fiber.Ctx) error {
	teacherID, err := c.ParamsInt("id")
	if err != nil || teacherID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid teacher ID",
		})
	}

	r, _, err := parseRangeQuery(c)
	if err != nil {
		return errorJSON(c, err)
	}

	conflicts := ec.subs.FindConflicts(uint(teacherID), r)
	dtos := make([]utils.EventDTO, 0, len(conflicts))
	for _, ev := range conflicts {
		dtos = append(dtos, utils.ToEventDTO(ev))
	}

	return c.JSON(fiber.Map{
		"teacher_id": teacherID,
		"range":      r,
		"conflicts":  dtos,
	})
}

// AssignSubstituteRequest names the covering teacher.
type AssignSubstituteRequest struct {
	SubstituteTeacherID uint `json:"substitute_teacher_id"`
}

// AssignSubstitute puts a substitute on an event after conflict and
// qualification checks.
func (ec *EventController) AssignSubstitute(c *fiber.Ctx) error {
	var req AssignSubstituteRequest
	if err := c.BodyParser(&req); err != nil || req.SubstituteTeacherID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ev, err := ec.subs.AssignSubstitute(c.Params("id"), req.SubstituteTeacherID)
	if err != nil {
		return errorJSON(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "events", ev.ID, fiber.Map{
		"substitute_teacher_id": req.SubstituteTeacherID,
	})

	return c.JSON(fiber.Map{
		"message": "Substitute assigned successfully",
		"event":   utils.ToEventDTO(ev),
	})
}

// ClearSubstitute hands the lesson back to its owning teacher.
func (ec *EventController) ClearSubstitute(c *fiber.Ctx) error {
	ev, err := ec.subs.ClearSubstitute(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "events", ev.ID, fiber.Map{"substitute_cleared": true})

	return c.JSON(fiber.Map{
		"message": "Substitute cleared successfully",
		"event":   utils.ToEventDTO(ev),
	})
}

// GetRepresentationPlan lists every substituted lesson with resolved names.
func (ec *EventController) GetRepresentationPlan(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plan": ec.subs.RepresentationPlan()})
}

// ExportRepresentationPlan streams the plan as an XLSX workbook.
func (ec *EventController) ExportRepresentationPlan(c *fiber.Ctx) error {
	f, err := services.ExportRepresentationPlan(ec.subs.RepresentationPlan())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build export",
		})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build export",
		})
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="representation-plan.xlsx"`)
	return c.Send(buf.Bytes())
}
