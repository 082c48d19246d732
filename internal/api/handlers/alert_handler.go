package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/logwarden/internal/api/middleware"
	"github.com/Wikid82/logwarden/internal/services"
)

type AlertHandler struct {
	service *services.AlertService
}

func NewAlertHandler(service *services.AlertService) *AlertHandler {
	return &AlertHandler{service: service}
}

// List returns alerts newest first. ?active=true limits it to active alerts.
func (h *AlertHandler) List(c *gin.Context) {
	alerts, err := h.service.List(c.Query("active") == "true")
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("list alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *AlertHandler) Get(c *gin.Context) {
	alert, err := h.service.GetByID(c.Param("id"))
	if errors.Is(err, services.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alert"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *AlertHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *AlertHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *AlertHandler) setActive(c *gin.Context, active bool) {
	id := c.Param("id")
	var err error
	if active {
		err = h.service.Activate(id)
	} else {
		err = h.service.Deactivate(id)
	}
	if errors.Is(err, services.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "active": active})
}
