package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Wikid82/logwarden/internal/api/handlers"
	"github.com/Wikid82/logwarden/internal/services"
)

// Dependencies are the services the API reads from. Gatherer and Queue are
// optional.
type Dependencies struct {
	DB            *gorm.DB
	Alerts        *services.AlertService
	Sources       *services.LogSourceService
	Records       *services.LogRecordService
	Notifications *services.NotificationService
	Queue         handlers.QueueReporter
	Gatherer      prometheus.Gatherer
}

// Register wires up the versioned API and the metrics endpoint.
func Register(router *gin.Engine, deps Dependencies) {
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		})))
	}

	api := router.Group("/api/v1")
	api.GET("/health", handlers.HealthHandler(deps.DB, deps.Queue))

	alertHandler := handlers.NewAlertHandler(deps.Alerts)
	api.GET("/alerts", alertHandler.List)
	api.GET("/alerts/:id", alertHandler.Get)
	api.POST("/alerts/:id/deactivate", alertHandler.Deactivate)
	api.POST("/alerts/:id/activate", alertHandler.Activate)

	sourceHandler := handlers.NewSourceHandler(deps.Sources)
	api.GET("/sources", sourceHandler.List)
	api.POST("/sources/:id/activate", sourceHandler.Activate)
	api.POST("/sources/:id/deactivate", sourceHandler.Deactivate)

	recordHandler := handlers.NewRecordHandler(deps.Records)
	api.GET("/records/:id", recordHandler.Get)

	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/read", notificationHandler.MarkAsRead)
	api.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
}
