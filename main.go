package main

import (
	"context"
	"log"
	"os"
	"time"

	"repre_go/config"
	"repre_go/database"
	"repre_go/database/seeders"
	"repre_go/handlers"
	"repre_go/middleware"
	"repre_go/routes"
	"repre_go/services"
	"repre_go/services/notifications"
	"repre_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func init() {
	// Initialize logging
	setupLogging()

	// Load configuration
	config.LoadConfig()

	// Connect to database
	database.Connect()

	// Seed baseline data on an empty database
	if os.Getenv("SEED_ON_BOOT") == "true" {
		seeders.SeedAll()
	}
}

func main() {
	// Create WebSocket hub first
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))

	// Custom middleware
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.LogActivityMiddleware())

	// Liveness endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "Representation Plan API",
			"version": "1.0.0",
		})
	})

	// Calendar engine: authoritative in-memory store confirmed against MySQL
	store := services.NewEventStore()
	gateway := services.NewGormPersistenceGateway(database.DB)
	engine := services.NewCalendarEngine(store, gateway)

	// Hydrate the current month plus its neighbours on boot
	hydrateRange := services.DateRange{
		Start: time.Now().AddDate(0, -1, 0),
		End:   time.Now().AddDate(0, 2, 0),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := engine.LoadRange(ctx, hydrateRange); err != nil {
		logrus.WithError(err).Warn("Failed to hydrate calendar events")
	}
	cancel()

	// Notification fan-out wired to the WebSocket hub and LINE
	notifService := notifications.NewService()
	notifService.SetGateway(wsHub)
	lineService := services.NewLineMessagingService()
	if lineService.Bot != nil {
		notifService.RegisterSender("line", services.NewLineChannelSender(lineService, database.DB))
	}
	if config.AppConfig.UseRedisNotifications {
		stopNotif := make(chan struct{})
		notifService.StartWorker(stopNotif)
	}
	engine.SetNotifier(notifService)

	// Substitution resolver and the daily uncovered-lesson check
	subs := services.NewSubstitutionService(engine, services.NewGormTeacherDirectory(database.DB))
	reminders := services.NewReminderScheduler(engine,
		services.NewGormAvailabilitySource(database.DB), notifService)
	reminders.Start()

	// API routes
	routes.SetupRoutes(app, routes.Deps{
		Hub:          wsHub,
		Engine:       engine,
		Substitution: subs,
		Notify:       notifService,
	})
	routes.SetupStaticRoutes(app)

	// LINE webhook for account linking
	lineChannelSecret := os.Getenv("LINE_CHANNEL_SECRET")
	lineChannelToken := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")
	if lineChannelSecret != "" && lineChannelToken != "" {
		lineHandler := handlers.NewLineWebhookHandler(database.DB)
		app.Post("/line/webhook", lineHandler.Handle)
		log.Println("LINE webhook enabled at /line/webhook")
	} else {
		log.Println("LINE webhook disabled: missing LINE_CHANNEL_SECRET or LINE_CHANNEL_ACCESS_TOKEN")
	}

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	// Start server (listen on all interfaces for Docker/production)
	port := ":" + config.AppConfig.Port
	log.Printf("Server starting on port %s", config.AppConfig.Port)
	log.Printf("Environment: %s", config.AppConfig.AppEnv)

	if err := app.Listen(port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// setupLogging configures the logging system
func setupLogging() {
	// Create logs directory if it doesn't exist
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Warning: Could not create logs directory: %v", err)
	}

	// Configure logrus
	logrus.SetFormatter(&logrus.JSONFormatter{})

	// Set log level
	level, err := logrus.ParseLevel("info") // Default to info
	if err == nil {
		logrus.SetLevel(level)
	}

	// Log to both file and stdout in development
	if os.Getenv("APP_ENV") == "development" {
		logrus.SetOutput(os.Stdout)
	} else {
		// In production, log to file
		file, err := os.OpenFile("logs/app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logrus.SetOutput(file)
		}
	}
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Log the error
	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	// Send error response
	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
