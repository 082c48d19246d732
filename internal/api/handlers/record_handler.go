package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/logwarden/internal/services"
)

type RecordHandler struct {
	service *services.LogRecordService
}

func NewRecordHandler(service *services.LogRecordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// Get returns a log record with its analysis, if one exists yet.
func (h *RecordHandler) Get(c *gin.Context) {
	rec, err := h.service.FindByID(c.Param("id"))
	if errors.Is(err, services.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get record"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
