package handlers

import (
	"net/http"
	"strconv"

	"kidbook/internal/middleware"
	"kidbook/internal/models"

	"github.com/gin-gonic/gin"
)

// Bookings handlers

// CreateBooking - POST /api/bookings
// Создать бронирование
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parentID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	response, err := h.services.Bookings.Create(c.Request.Context(), parentID, &req)
	if err != nil {
		respondError(c, err, "Failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListBookings - GET /api/bookings
// Бронирования текущего родителя
func (h *Handlers) ListBookings(c *gin.Context) {
	parentID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	response, err := h.services.Bookings.ListByParent(c.Request.Context(), parentID)
	if err != nil {
		respondError(c, err, "Failed to list bookings")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetBooking - GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	response, err := h.services.Bookings.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get booking")
		return
	}

	// Родитель видит только свои бронирования
	if user, ok := currentUser(c); ok && user.Role == models.RoleParent && response.ParentID != user.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// ConfirmBooking - PATCH /api/bookings/confirm
// Площадка принимает бронирование
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	var req models.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.services.Bookings.Confirm(c.Request.Context(), req.BookingID)
	if err != nil {
		respondError(c, err, "Failed to confirm booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking - PATCH /api/bookings/cancel
// Отменить бронирование
func (h *Handlers) CancelBooking(c *gin.Context) {
	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	response, err := h.services.Bookings.Cancel(c.Request.Context(), user, &req)
	if err != nil {
		respondError(c, err, "Failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, response)
}

// MarkAttendance - PATCH /api/bookings/attendance
// Отметить посещаемость ребёнка на сеансе
func (h *Handlers) MarkAttendance(c *gin.Context) {
	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() || !req.Status.Final() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be present or no_show"})
		return
	}

	bc, err := h.services.Bookings.MarkAttendance(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to mark attendance")
		return
	}

	c.JSON(http.StatusOK, bc)
}
