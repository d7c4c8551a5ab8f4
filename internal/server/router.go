// Package server assembles the HTTP router from services and handlers.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"tripsync/internal/config"
	_ "tripsync/internal/docs" // registers the swagger spec
	"tripsync/internal/handlers"
	"tripsync/internal/middleware"
	"tripsync/internal/services"
)

// Services bundles every service the router needs.
type Services struct {
	Users         services.UserServicer
	Audit         services.AuditServicer
	Trips         services.TripServicer
	Events        services.EventServicer
	Budgets       services.BudgetServicer
	Expenses      services.ExpenseServicer
	Collaborators services.CollaboratorServicer
	Messages      services.MessageServicer
	Ideas         services.IdeaServicer
	Polls         services.PollServicer
	Tags          services.TagServicer
}

// NewServices builds the services on db. notify receives trip change
// events; nil disables them.
func NewServices(db *gorm.DB, notify services.Notifier) *Services {
	return &Services{
		Users:         services.NewUserService(db),
		Audit:         services.NewAuditService(db),
		Trips:         services.NewTripService(db, notify),
		Events:        services.NewEventService(db, notify),
		Budgets:       services.NewBudgetService(db, notify),
		Expenses:      services.NewExpenseService(db, notify),
		Collaborators: services.NewCollaboratorService(db, notify),
		Messages:      services.NewMessageService(db, notify),
		Ideas:         services.NewIdeaService(db, notify),
		Polls:         services.NewPollService(db, notify),
		Tags:          services.NewTagService(db),
	}
}

// Options configures NewRouter.
type Options struct {
	CORSOrigins []string
	// Stream upgrades trip WebSocket connections. Required.
	Stream handlers.StreamServer
	// Ping reports database health on /api/health. Optional.
	Ping func() error
	// AuthRatePerMinute throttles the public auth routes per client IP.
	// Zero disables the limit.
	AuthRatePerMinute int
	AuthRateBurst     int
}

// NewRouter wires every route of the API.
func NewRouter(svc *Services, opts Options) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Audit)
	tripHandler := handlers.NewTripHandler(svc.Trips, svc.Audit)
	eventHandler := handlers.NewEventHandler(svc.Events)
	budgetHandler := handlers.NewBudgetHandler(svc.Budgets, svc.Audit)
	expenseHandler := handlers.NewExpenseHandler(svc.Expenses, svc.Audit)
	collaboratorHandler := handlers.NewCollaboratorHandler(svc.Collaborators, svc.Audit)
	messageHandler := handlers.NewMessageHandler(svc.Messages, svc.Trips, opts.Stream)
	ideaHandler := handlers.NewIdeaHandler(svc.Ideas)
	pollHandler := handlers.NewPollHandler(svc.Polls)
	tagHandler := handlers.NewTagHandler(svc.Tags)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(opts.CORSOrigins))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		if opts.Ping != nil {
			if err := opts.Ping(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.Use(middleware.RateLimit(opts.AuthRatePerMinute, opts.AuthRateBurst))
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.GET("/invitations", collaboratorHandler.ListInvitations)

	trips := protected.Group("/trips")
	trips.POST("", tripHandler.CreateTrip)
	trips.GET("", tripHandler.ListTrips)
	trips.GET("/:id", tripHandler.GetTrip)
	trips.PATCH("/:id", tripHandler.UpdateTrip)
	trips.DELETE("/:id", tripHandler.DeleteTrip)
	trips.PATCH("/:id/archive", tripHandler.ArchiveTrip)
	trips.POST("/:id/duplicate", tripHandler.DuplicateTrip)

	// Itinerary
	trips.POST("/:id/events", eventHandler.CreateEvent)
	trips.GET("/:id/events", eventHandler.ListEvents)
	trips.PUT("/:id/events/reorder", eventHandler.ReorderEvents)
	trips.GET("/:id/events/:eventId", eventHandler.GetEvent)
	trips.PATCH("/:id/events/:eventId", eventHandler.UpdateEvent)
	trips.DELETE("/:id/events/:eventId", eventHandler.DeleteEvent)
	trips.GET("/:id/itinerary", eventHandler.GetItinerary)
	trips.GET("/:id/export/calendar", eventHandler.ExportCalendar)

	// Money
	trips.GET("/:id/budget", budgetHandler.GetBudget)
	trips.PATCH("/:id/budget", budgetHandler.UpdateBudget)
	trips.POST("/:id/expenses", expenseHandler.CreateExpense)
	trips.GET("/:id/expenses", expenseHandler.ListExpenses)
	trips.GET("/:id/expenses/:expenseId", expenseHandler.GetExpense)
	trips.DELETE("/:id/expenses/:expenseId", expenseHandler.DeleteExpense)
	trips.GET("/:id/balances", expenseHandler.GetBalances)

	// Sharing
	trips.POST("/:id/collaborators", collaboratorHandler.InviteCollaborator)
	trips.GET("/:id/collaborators", collaboratorHandler.ListCollaborators)
	trips.POST("/:id/collaborators/accept", collaboratorHandler.AcceptInvitation)
	trips.POST("/:id/collaborators/decline", collaboratorHandler.DeclineInvitation)
	trips.PATCH("/:id/collaborators/:userId", collaboratorHandler.UpdateRole)
	trips.DELETE("/:id/collaborators/:userId", collaboratorHandler.RemoveCollaborator)

	// Group chat and decisions
	trips.POST("/:id/messages", messageHandler.PostMessage)
	trips.GET("/:id/messages", messageHandler.ListMessages)
	trips.GET("/:id/ws", messageHandler.Stream)
	trips.POST("/:id/ideas", ideaHandler.CreateIdea)
	trips.GET("/:id/ideas", ideaHandler.ListIdeas)
	trips.POST("/:id/ideas/:ideaId/vote", ideaHandler.VoteIdea)
	trips.DELETE("/:id/ideas/:ideaId/vote", ideaHandler.RemoveVote)
	trips.DELETE("/:id/ideas/:ideaId", ideaHandler.DeleteIdea)
	trips.POST("/:id/polls", pollHandler.CreatePoll)
	trips.GET("/:id/polls", pollHandler.ListPolls)
	trips.POST("/:id/polls/:pollId/vote", pollHandler.Vote)
	trips.POST("/:id/tags", tagHandler.CreateTag)
	trips.GET("/:id/tags", tagHandler.ListTags)
	trips.DELETE("/:id/tags/:tagId", tagHandler.DeleteTag)

	return router
}

// NewFromConfig is NewRouter with CORS and rate limits taken from cfg.
func NewFromConfig(cfg *config.Config, svc *Services, stream handlers.StreamServer, ping func() error) *gin.Engine {
	return NewRouter(svc, Options{
		CORSOrigins:       cfg.CORSOrigins,
		Stream:            stream,
		Ping:              ping,
		AuthRatePerMinute: cfg.AuthRatePerMinute,
		AuthRateBurst:     cfg.AuthRateBurst,
	})
}
