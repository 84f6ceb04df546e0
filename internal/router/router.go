package router

import (
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	apiHandler "github.com/fastygo/reminders/api/handler"
)

type Handlers struct {
	Task         *apiHandler.TaskHandler
	Notification *apiHandler.NotificationHandler
	Job          *apiHandler.JobHandler
	Health       *apiHandler.HealthHandler
}

// Options holds the optional surfaces. A nil Metrics gatherer disables /metrics.
type Options struct {
	Metrics prometheus.Gatherer
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler, opts Options) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	if opts.Metrics != nil {
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{}),
		))
	}

	// Protected routes
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	r.POST("/api/v1/tasks/{id}/complete", authMiddleware(handlers.Task.CompleteTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	r.GET("/api/v1/notifications", authMiddleware(handlers.Notification.List))
	r.POST("/api/v1/notifications/mark-read", authMiddleware(handlers.Notification.MarkRead))

	if handlers.Job != nil {
		r.GET("/api/v1/reminders/jobs", authMiddleware(handlers.Job.List))
	}

	return r
}
