package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "kidbook/internal/errors"
	"kidbook/internal/metrics"
	"kidbook/internal/middleware"
	"kidbook/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// setupRouter собирает роуты без middleware аутентификации, поэтому
// хендлеры доходят только до валидации и проверки контекста.
func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandlers(nil, nil)

	api := r.Group("/api")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.GET("", h.ListBookings)
			bookings.GET("/:id", h.GetBooking)
			bookings.PATCH("/confirm", h.ConfirmBooking)
			bookings.PATCH("/cancel", h.CancelBooking)
			bookings.PATCH("/attendance", h.MarkAttendance)
		}

		waitlist := api.Group("/waitlist")
		{
			waitlist.POST("", h.JoinWaitlist)
			waitlist.POST("/convert", h.ConvertWaitlist)
		}

		credits := api.Group("/credits")
		{
			credits.POST("/allocate", h.AllocateCredits)
			credits.GET("/account", h.GetMyAccount)
			credits.GET("/accounts/:id/transactions", h.ListAccountTransactions)
			credits.GET("/accounts/:id/verify", h.VerifyCreditAccount)
			credits.GET("/report", h.CreditReport)
		}
	}

	return r
}

// fakeAuth подкладывает аутентифицированного пользователя, как BasicAuth
func fakeAuth(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(middleware.ContextWithUserID(c.Request.Context(), userID))
	}
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateBookingValidation(t *testing.T) {
	r := setupRouter()

	// Без тела
	w := doJSON(r, "POST", "/api/bookings", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Без детей
	w = doJSON(r, "POST", "/api/bookings", gin.H{"slot_id": 1, "child_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Валидное тело, но нет аутентифицированного пользователя
	w = doJSON(r, "POST", "/api/bookings", models.CreateBookingRequest{
		SlotID:   1,
		ChildIDs: []string{"7b5f1c1e-4f58-4c58-9a39-7c1a5d2f0f10"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListBookingsRequiresAuth(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("GET", "/api/bookings", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetBookingInvalidID(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("GET", "/api/bookings/abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmBookingValidation(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "PATCH", "/api/bookings/confirm", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelBookingRequiresUser(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "PATCH", "/api/bookings/cancel", models.CancelBookingRequest{BookingID: 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMarkAttendanceValidation(t *testing.T) {
	r := setupRouter()

	// pending не является финальным статусом
	w := doJSON(r, "PATCH", "/api/bookings/attendance", gin.H{
		"booking_child_id": 1,
		"status":           "pending",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "PATCH", "/api/bookings/attendance", gin.H{
		"booking_child_id": 1,
		"status":           "late",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinWaitlistValidation(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "POST", "/api/waitlist", gin.H{"slot_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "POST", "/api/waitlist/convert", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllocateCreditsValidation(t *testing.T) {
	r := setupRouter()

	// month вне диапазона
	w := doJSON(r, "POST", "/api/credits/allocate", models.AllocateCreditsRequest{
		UserID: 1,
		Year:   2026,
		Month:  13,
		Amount: 40,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// amount должен быть положительным
	w = doJSON(r, "POST", "/api/credits/allocate", gin.H{
		"user_id": 1,
		"year":    2026,
		"month":   3,
		"amount":  0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMyAccountRequiresAuth(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("GET", "/api/credits/account", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMyAccountMonthValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandlers(nil, nil)
	r.GET("/api/credits/account", fakeAuth(1), h.GetMyAccount)

	// Аутентификация проходит, запрос падает на валидации периода
	for _, month := range []string{"0", "13", "-1"} {
		req, _ := http.NewRequest("GET", "/api/credits/account?year=2026&month="+month, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "month=%s", month)
	}
}

func TestListTransactionsInvalidID(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("GET", "/api/credits/accounts/abc/transactions", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyAccountInvalidID(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("GET", "/api/credits/accounts/abc/verify", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreditReportRequiresCompany(t *testing.T) {
	r := setupRouter()

	req, _ := http.NewRequest("GET", "/api/credits/report", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		code int
	}{
		{apperrors.ErrNotFound, http.StatusNotFound},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{apperrors.ErrForbidden, http.StatusForbidden},
		{apperrors.ErrInsufficientCredits, http.StatusConflict},
		{apperrors.ErrSlotFull, http.StatusConflict},
		{apperrors.ErrSlotClosed, http.StatusConflict},
		{apperrors.ErrSlotNotFull, http.StatusConflict},
		{apperrors.ErrDuplicateWaitlistEntry, http.StatusConflict},
		{apperrors.ErrAllocationExists, http.StatusConflict},
		{apperrors.ErrAccountClosed, http.StatusConflict},
		{apperrors.ErrHoldExpired, http.StatusConflict},
		{apperrors.NewInvalidTransition("completed", "pending"), http.StatusConflict},
		{apperrors.ErrSessionNotResolved, http.StatusUnprocessableEntity},
		{fmt.Errorf("pq: connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err, "Something failed")
		assert.Equal(t, tc.code, w.Code, "error %v", tc.err)
	}
}

func TestRespondErrorCountsLedgerInconsistency(t *testing.T) {
	gin.SetMode(gin.TestMode)

	before := testutil.ToFloat64(metrics.LedgerInconsistencies)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, &apperrors.LedgerInconsistencyError{
		AccountID: 7,
		Detail:    "cached used=3, replay used=5",
	}, "Something failed")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LedgerInconsistencies))
}
