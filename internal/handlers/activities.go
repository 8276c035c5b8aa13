package handlers

import (
	"net/http"
	"strconv"

	"kidbook/internal/models"

	"github.com/gin-gonic/gin"
)

// Activities handlers

// CreateActivity - POST /api/activities
// Создать активность площадки
func (h *Handlers) CreateActivity(c *gin.Context) {
	var req models.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if user, ok := currentUser(c); ok && user.Role == models.RoleVenueAdmin {
		// Администратор площадки создаёт активности только у себя
		if user.VenueID == nil || *user.VenueID != req.VenueID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
	}

	response, err := h.services.Activities.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create activity")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListActivities - GET /api/activities
// Каталог активностей с поиском
func (h *Handlers) ListActivities(c *gin.Context) {
	query := c.Query("query")
	category := c.Query("category")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 50"})
		return
	}

	response, err := h.services.Activities.List(c.Request.Context(), query, category, page, pageSize)
	if err != nil {
		respondError(c, err, "Failed to list activities")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetActivity - GET /api/activities/:id
func (h *Handlers) GetActivity(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity id"})
		return
	}

	activity, err := h.services.Activities.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get activity")
		return
	}

	c.JSON(http.StatusOK, activity)
}

// CreateSlot - POST /api/slots
// Создать сеанс активности
func (h *Handlers) CreateSlot(c *gin.Context) {
	var req models.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Slots.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create slot")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListSlotAvailability - GET /api/activities/:id/slots
// Сеансы активности со свободными местами
func (h *Handlers) ListSlotAvailability(c *gin.Context) {
	activityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid activity id"})
		return
	}

	payload, err := h.services.Slots.Availability(c.Request.Context(), activityID)
	if err != nil {
		respondError(c, err, "Failed to list slot availability")
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}

// CancelSlot - PATCH /api/slots/:id/cancel
// Отменить сеанс целиком с полным возвратом кредитов
func (h *Handlers) CancelSlot(c *gin.Context) {
	slotID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot id"})
		return
	}

	var body struct {
		Reason *string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	cancelled, err := h.services.Slots.Cancel(c.Request.Context(), slotID, body.Reason)
	if err != nil {
		respondError(c, err, "Failed to cancel slot")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cancelled_bookings": len(cancelled)})
}

// CompleteSlot - PATCH /api/slots/:id/complete
// Закрыть прошедший сеанс и зафиксировать итоги бронирований
func (h *Handlers) CompleteSlot(c *gin.Context) {
	slotID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot id"})
		return
	}

	finished, err := h.services.Slots.Complete(c.Request.Context(), slotID)
	if err != nil {
		respondError(c, err, "Failed to complete slot")
		return
	}

	c.JSON(http.StatusOK, gin.H{"completed_bookings": len(finished)})
}

// VenueReport - GET /api/venues/:id/report
// Сводка площадки по бронированиям и посещаемости
func (h *Handlers) VenueReport(c *gin.Context) {
	venueID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid venue id"})
		return
	}

	report, err := h.services.Reports.VenueReport(c.Request.Context(), venueID)
	if err != nil {
		respondError(c, err, "Failed to build venue report")
		return
	}

	c.JSON(http.StatusOK, report)
}
