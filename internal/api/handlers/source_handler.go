package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/logwarden/internal/services"
)

type SourceHandler struct {
	service *services.LogSourceService
}

func NewSourceHandler(service *services.LogSourceService) *SourceHandler {
	return &SourceHandler{service: service}
}

func (h *SourceHandler) List(c *gin.Context) {
	sources, err := h.service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sources"})
		return
	}
	c.JSON(http.StatusOK, sources)
}

// Activate and Deactivate take effect the next time watchers start.
func (h *SourceHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *SourceHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *SourceHandler) setActive(c *gin.Context, active bool) {
	id := c.Param("id")
	var err error
	if active {
		err = h.service.Activate(id)
	} else {
		err = h.service.Deactivate(id)
	}
	if errors.Is(err, services.ErrSourceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update source"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "active": active})
}
