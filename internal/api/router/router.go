package router

import (
	"net/http"

	"github.com/cuongbtq/knowledge-assistant/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "ask-api-service",
		})
	})

	// Prometheus exposition for this process
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	askHandler := handler.NewAskHandler(deps)

	// POST /ask - submit a question, returns 202 with a job_id
	r.POST("/ask", askHandler.SubmitQuestion)

	// GET /ask - list jobs with filtering and pagination
	r.GET("/ask", askHandler.ListJobs)

	// GET /ask/:job_id - poll a job's status and result
	r.GET("/ask/:job_id", askHandler.GetJob)

	return r
}
