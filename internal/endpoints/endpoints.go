package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"loadtest-server/internal/dispatcher"
	"loadtest-server/internal/reporter"
)

const (
	allowedHeaders = "authorization, x-client-info, apikey, content-type"
	allowedMethods = "GET, POST, DELETE, OPTIONS"
)

// Endpoints wraps the dispatcher and reporter behind the HTTP API
type Endpoints struct {
	dispatcher dispatcher.IDispatcher
	reporter   reporter.IReporter
	log        *logrus.Entry
}

func NewEndpoints(d dispatcher.IDispatcher, r reporter.IReporter, log *logrus.Entry) *Endpoints {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Endpoints{
		dispatcher: d,
		reporter:   r,
		log:        log.WithField("component", "endpoints"),
	}
}

// SetupRouter registers every route on a new gin engine
func (e *Endpoints) SetupRouter(p *Prometheus) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), e.requestLogger(), cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if p != nil {
		router.GET("/metrics", e.HandlerFunc(p))
	}

	api := router.Group("/api/v1")
	{
		api.OPTIONS("/loadtest", preflight)
		api.OPTIONS("/loadtest/*any", preflight)
		api.POST("/loadtest", e.PostLoadTestEndpoint)
		api.GET("/loadtest", e.GetLoadTestsEndpoint)
		api.GET("/loadtest/:id", e.GetLoadTestByIDEndpoint)
		api.DELETE("/loadtest/:id", e.DeleteLoadTestEndpoint)
		api.GET("/loadtest/:id/report", e.GetReportEndpoint)
	}

	return router
}

// cors adds permissive CORS headers to every response
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", allowedHeaders)
		h.Set("Access-Control-Allow-Methods", allowedMethods)
		c.Next()
	}
}

// preflight answers CORS preflight requests with an empty body
func preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (e *Endpoints) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		e.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("Request served")
	}
}
