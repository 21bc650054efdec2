// Package server assembles the gin engine for the api binary.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/dailygist/internal/job"
	"github.com/joshu-sajeev/dailygist/internal/scheduler"
	"github.com/joshu-sajeev/dailygist/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Jobs      job.JobHandlerInterface
	Scheduler *scheduler.Handler

	// CronSecret guards every /api route.
	CronSecret string

	// Health, when set, is checked by GET /health.
	Health func(ctx context.Context) error
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.ErrorHandler())

	r.GET("/health", health(d.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.BearerAuth(d.CronSecret))
	{
		api.POST("/cron/trigger", d.Scheduler.Trigger)
		api.POST("/cron/reconcile", d.Jobs.Reconcile)

		api.POST("/jobs/claim", d.Jobs.Claim)
		api.GET("/jobs/:id", d.Jobs.Get)
		api.POST("/jobs/:id/ready", d.Jobs.MarkReady)
		api.POST("/jobs/:id/failed", d.Jobs.MarkFailed)
		api.POST("/jobs/:id/progress", d.Jobs.Progress)

		api.GET("/owners/:owner_id/jobs", d.Jobs.ListByOwner)
	}

	return r
}

func health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
