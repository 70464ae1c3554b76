package routes

import (
	"repre_go/controllers"
	"repre_go/middleware"
	"repre_go/services"
	"repre_go/services/notifications"
	"repre_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// Deps bundles the long-lived services the route handlers close over.
type Deps struct {
	Hub          *websocket.Hub
	Engine       *services.CalendarEngine
	Substitution *services.SubstitutionService
	Notify       *notifications.Service
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, deps Deps) {
	// Initialize controllers
	authController := &controllers.AuthController{}
	teacherController := &controllers.TeacherController{}
	subjectController := &controllers.SubjectController{}
	healthController := &controllers.HealthController{}
	logController := &controllers.LogController{}
	eventController := controllers.NewEventController(deps.Engine, deps.Substitution)
	notificationController := controllers.NewNotificationController(deps.Notify)
	wsController := controllers.NewWebSocketController(deps.Hub)

	// API group
	api := app.Group("/api")

	// Authentication routes (no middleware)
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Get("/profile", middleware.JWTMiddleware(), authController.GetProfile)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware())

	// Profile routes (authenticated users)
	protected.Get("/profile", authController.GetProfile)
	protected.Put("/profile/password", authController.ChangePassword)
	protected.Post("/auth/logout", authController.Logout)

	// User management
	protected.Post("/users", middleware.RequireOwnerOrAdmin(), authController.Register)

	// Calendar routes
	calendar := protected.Group("/calendar", middleware.RequireTeacherOrAbove())
	calendar.Get("/", eventController.GetCalendar)
	calendar.Get("/navigate", eventController.Navigate)

	// Event management routes
	events := protected.Group("/events", middleware.RequireTeacherOrAbove())
	events.Post("/", eventController.CreateEvent)
	events.Get("/:id", eventController.GetEvent)
	events.Put("/:id", eventController.UpdateEvent)
	events.Delete("/:id", eventController.DeleteEvent)
	events.Post("/:id/duplicate", eventController.DuplicateEvent)

	// Substitute assignment
	events.Post("/:id/substitute", middleware.RequireOwnerOrAdmin(), eventController.AssignSubstitute)
	events.Delete("/:id/substitute", middleware.RequireOwnerOrAdmin(), eventController.ClearSubstitute)

	// Drag interaction routes: one session per authenticated user
	drag := protected.Group("/drag", middleware.RequireTeacherOrAbove())
	drag.Post("/start", eventController.DragStart)
	drag.Post("/move", eventController.DragMove)
	drag.Post("/end", eventController.DragEnd)
	drag.Post("/cancel", eventController.DragCancel)

	// Representation plan
	plan := protected.Group("/plan", middleware.RequireTeacherOrAbove())
	plan.Get("/", eventController.GetRepresentationPlan)
	plan.Get("/export", middleware.RequireOwnerOrAdmin(), eventController.ExportRepresentationPlan)

	// Teacher management routes
	teachers := protected.Group("/teachers")
	teachers.Get("/", middleware.RequireTeacherOrAbove(), teacherController.GetTeachers)
	teachers.Get("/:id", middleware.RequireTeacherOrAbove(), teacherController.GetTeacher)
	teachers.Post("/", middleware.RequireOwnerOrAdmin(), teacherController.CreateTeacher)
	teachers.Put("/:id", middleware.RequireOwnerOrAdmin(), teacherController.UpdateTeacher)
	teachers.Put("/:id/availability", middleware.RequireOwnerOrAdmin(), teacherController.SetAvailability)
	teachers.Get("/:id/conflicts", middleware.RequireTeacherOrAbove(), eventController.GetTeacherConflicts)

	// Subject management routes
	subjects := protected.Group("/subjects")
	subjects.Get("/", middleware.RequireTeacherOrAbove(), subjectController.GetSubjects)
	subjects.Post("/", middleware.RequireOwnerOrAdmin(), subjectController.CreateSubject)
	subjects.Put("/:id", middleware.RequireOwnerOrAdmin(), subjectController.UpdateSubject)
	subjects.Delete("/:id", middleware.RequireOwnerOrAdmin(), subjectController.DeleteSubject)

	// Notification management routes
	notifs := protected.Group("/notifications")
	notifs.Get("/", notificationController.GetNotifications)
	notifs.Get("/unread-count", notificationController.GetUnreadCount)
	notifs.Get("/stats", middleware.RequireOwnerOrAdmin(), notificationController.GetNotificationStats)
	notifs.Get("/:id", notificationController.GetNotification)
	notifs.Post("/", middleware.RequireOwnerOrAdmin(), notificationController.CreateNotification)
	notifs.Patch("/:id/read", notificationController.MarkAsRead)
	notifs.Patch("/mark-all-read", notificationController.MarkAllAsRead)

	// Log management routes (Admin/Owner only)
	logs := protected.Group("/logs", middleware.RequireOwnerOrAdmin())
	logs.Get("/", logController.GetLogs)
	logs.Post("/flush-cache", logController.FlushCachedLogs)

	// Health endpoint
	api.Get("/health", healthController.GetHealthStatus)

	// WebSocket routes
	ws := protected.Group("/ws")
	ws.Get("/stats", middleware.RequireOwnerOrAdmin(), wsController.GetWebSocketStats)

	// WebSocket connection endpoint - use websocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		// IsWebSocketUpgrade returns true if the client
		// requested upgrade to the WebSocket protocol.
		if fiberws.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", wsController.WebSocketHandler())
}

// SetupStaticRoutes configures static file serving
func SetupStaticRoutes(app *fiber.App) {
	// Serve static files if needed
	app.Static("/", "./public")
}
