package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/logwarden/internal/api/middleware"
	"github.com/Wikid82/logwarden/internal/services"
)

// NotificationHandler serves the in-app alert notifications.
type NotificationHandler struct {
	service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List returns alert notifications newest first. ?alert_id narrows it to one
// alert; otherwise ?unread=true keeps only unread ones.
func (h *NotificationHandler) List(c *gin.Context) {
	var (
		notifications any
		err           error
	)
	if alertID := c.Query("alert_id"); alertID != "" {
		notifications, err = h.service.ListForAlert(alertID)
	} else {
		notifications, err = h.service.List(c.Query("unread") == "true")
	}
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("list alert notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alert notifications"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	err := h.service.MarkAsRead(c.Param("id"))
	if errors.Is(err, services.ErrNotificationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert notification not found"})
		return
	}
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("mark alert notification read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark alert notification as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert notification marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	if err := h.service.MarkAllAsRead(); err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("mark all alert notifications read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark all alert notifications as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All alert notifications marked as read"})
}
