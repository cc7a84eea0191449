package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"card-validator/pkg/metrics"
	"card-validator/pkg/middleware"
)

// NewRouter wires the handlers into a gin engine
func NewRouter(handlers *Handlers, log *logrus.Logger, allowOrigin string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(allowOrigin))
	router.SetHTMLTemplate(Templates())

	router.GET("/", handlers.ShowForm)
	router.POST("/views/:id/fields", handlers.UpdateFields)
	router.POST("/views/:id/submit", handlers.SubmitForm)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}
