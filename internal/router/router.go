package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/taskhub/api/handler"
)

type Handlers struct {
	Auth         *apiHandler.AuthHandler
	Profile      *apiHandler.ProfileHandler
	Task         *apiHandler.TaskHandler
	Subscription *apiHandler.SubscriptionHandler
	Category     *apiHandler.CategoryHandler
	Push         *apiHandler.PushHandler
	Health       *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/register", handlers.Auth.Register)
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", authMiddleware(handlers.Auth.Refresh))
	r.POST("/api/v1/auth/logout", authMiddleware(handlers.Auth.Logout))

	// Protected routes
	r.GET("/api/v1/profile", authMiddleware(handlers.Profile.GetProfile))

	r.GET("/api/v1/categories", authMiddleware(handlers.Category.ListCategories))
	r.POST("/api/v1/categories", authMiddleware(handlers.Category.CreateCategory))
	r.GET("/api/v1/categories/{id}", authMiddleware(handlers.Category.GetCategory))

	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/priority", authMiddleware(handlers.Task.GetPriorityTasks))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.PATCH("/api/v1/tasks/{id}/state", authMiddleware(handlers.Task.SetState))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	r.POST("/api/v1/tasks/{id}/subscribe/{userId}", authMiddleware(handlers.Subscription.Subscribe))
	r.DELETE("/api/v1/tasks/{id}/unsubscribe/{userId}", authMiddleware(handlers.Subscription.Unsubscribe))
	r.GET("/api/v1/tasks/{id}/subscribers", authMiddleware(handlers.Subscription.ListSubscribers))

	r.GET("/ws", authMiddleware(handlers.Push.Connect))

	return r
}
