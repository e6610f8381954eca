package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quiknotes/core/internal/middleware"
	"github.com/quiknotes/core/internal/modules/auth"
	"github.com/quiknotes/core/internal/modules/gateway"
	"github.com/quiknotes/core/internal/modules/markdown"
	"github.com/quiknotes/core/internal/modules/notes"
	"github.com/quiknotes/core/internal/pkg/response"
)

func (a *App) registerRoutes() {
	r := a.router
	authMW := middleware.Auth(a.db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	api := r.Group("/api/v1")

	api.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	authSvc := auth.NewService(a.db)
	auth.NewHandler(authSvc, a.registry).RegisterRoutes(api, authMW)

	notes.NewHandler(a.registry).RegisterRoutes(api, authMW)
	markdown.NewHandler(a.registry).RegisterRoutes(api, authMW)
	gateway.RegisterRoutes(r, api, a.hub)
}
