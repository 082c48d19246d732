package handlers

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Wikid82/logwarden/internal/version"
)

// QueueReporter exposes the analysis backlog for health output.
type QueueReporter interface {
	QueueLen() int
}

// getLocalIP returns the non-loopback local IP of the host
func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}

// HealthHandler responds with service metadata, store reachability and the
// analysis backlog. An unreachable store turns the response into a 503.
func HealthHandler(db *gorm.DB, queue QueueReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code, dbStatus = "degraded", http.StatusServiceUnavailable, "unreachable"
		}

		resp := gin.H{
			"status":      status,
			"service":     version.Name,
			"version":     version.Version,
			"git_commit":  version.GitCommit,
			"build_time":  version.BuildTime,
			"internal_ip": getLocalIP(),
			"database":    dbStatus,
		}
		if queue != nil {
			resp["analysis_queue"] = queue.QueueLen()
		}
		c.JSON(code, resp)
	}
}
