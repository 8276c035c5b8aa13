package handlers

import (
	"net/http"
	"strconv"

	"kidbook/internal/middleware"
	"kidbook/internal/models"

	"github.com/gin-gonic/gin"
)

// Waitlist handlers

// JoinWaitlist - POST /api/waitlist
// Встать в очередь на заполненный сеанс
func (h *Handlers) JoinWaitlist(c *gin.Context) {
	var req models.JoinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parentID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	response, err := h.services.Waitlist.Join(c.Request.Context(), parentID, &req)
	if err != nil {
		respondError(c, err, "Failed to join waitlist")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListMyWaitlist - GET /api/waitlist
// Записи текущего родителя в листах ожидания
func (h *Handlers) ListMyWaitlist(c *gin.Context) {
	parentID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entries, err := h.services.Waitlist.ListByParent(c.Request.Context(), parentID)
	if err != nil {
		respondError(c, err, "Failed to list waitlist entries")
		return
	}

	c.JSON(http.StatusOK, entries)
}

// ListSlotWaitlist - GET /api/slots/:id/waitlist
// Живая очередь сеанса для площадки
func (h *Handlers) ListSlotWaitlist(c *gin.Context) {
	slotID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot id"})
		return
	}

	entries, err := h.services.Waitlist.ListBySlot(c.Request.Context(), slotID)
	if err != nil {
		respondError(c, err, "Failed to list slot waitlist")
		return
	}

	c.JSON(http.StatusOK, entries)
}

// ConvertWaitlist - POST /api/waitlist/convert
// Превратить уведомлённую запись в бронирование
func (h *Handlers) ConvertWaitlist(c *gin.Context) {
	var req models.ConvertWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parentID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	response, err := h.services.Waitlist.Convert(c.Request.Context(), parentID, &req)
	if err != nil {
		respondError(c, err, "Failed to convert waitlist entry")
		return
	}

	c.JSON(http.StatusCreated, response)
}
