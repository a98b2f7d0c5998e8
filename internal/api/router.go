// Package api assembles the HTTP surface of the judge service.
package api

import (
	"github.com/gin-gonic/gin"

	submitctl "grader/internal/submit/controller"
	taskctl "grader/internal/task/controller"
)

// Deps carries the controllers mounted on the router.
type Deps struct {
	Submit *submitctl.SubmitController
	Task   *taskctl.TaskController
	// AuthToken guards every route except the healthchecker. Empty
	// disables auth.
	AuthToken string
}

// NewRouter builds the gin engine with the full route table.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(TraceMiddleware())
	router.Use(RequestLogger())

	router.GET("/api/healthchecker", deps.Submit.Healthchecker)

	authed := router.Group("/api", AuthMiddleware(deps.AuthToken))
	{
		authed.POST("/submit", deps.Submit.Submit)
		authed.POST("/task/:id", deps.Task.Upload)
		authed.GET("/task/:id", deps.Task.Download)
		authed.DELETE("/task/:id", deps.Task.Delete)
		authed.GET("/desc/:id", deps.Task.Statement)
		authed.GET("/manifest/:id", deps.Task.Manifest)
	}

	return router
}
