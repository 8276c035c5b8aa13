package handlers

import (
	"net/http"
	"strconv"
	"time"

	"kidbook/internal/middleware"
	"kidbook/internal/models"

	"github.com/gin-gonic/gin"
)

// Credits handlers

// AllocateCredits - POST /api/credits/allocate
// Месячное начисление кредитов сотруднику (HR)
func (h *Handlers) AllocateCredits(c *gin.Context) {
	var req models.AllocateCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	response, err := h.services.Credits.Allocate(c.Request.Context(), actorID, &req)
	if err != nil {
		respondError(c, err, "Failed to allocate credits")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// AdjustCredits - POST /api/credits/adjust
// Ручная корректировка баланса (HR)
func (h *Handlers) AdjustCredits(c *gin.Context) {
	var req models.AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	tx, err := h.services.Credits.Adjust(c.Request.Context(), actorID, &req)
	if err != nil {
		respondError(c, err, "Failed to adjust credits")
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// GetMyAccount - GET /api/credits/account
// Счёт текущего пользователя за период, по умолчанию текущий месяц
func (h *Handlers) GetMyAccount(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	now := time.Now()
	year, _ := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	month, _ := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be between 1 and 12"})
		return
	}

	response, err := h.services.Credits.GetAccount(c.Request.Context(), userID, year, month)
	if err != nil {
		respondError(c, err, "Failed to get credit account")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListAccountTransactions - GET /api/credits/accounts/:id/transactions
// Лента проводок счёта
func (h *Handlers) ListAccountTransactions(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	txs, err := h.services.Credits.ListTransactions(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, txs)
}

// VerifyCreditAccount - GET /api/credits/accounts/:id/verify
// Сверка кешированного баланса с полным реплеем проводок
func (h *Handlers) VerifyCreditAccount(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	if err := h.services.Credits.VerifyAccount(c.Request.Context(), accountID); err != nil {
		respondError(c, err, "Failed to verify credit account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "status": "consistent"})
}

// CreditReport - GET /api/credits/report
// HR-отчёт по кредитам компании за период
func (h *Handlers) CreditReport(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok || user.CompanyID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	now := time.Now()
	year, _ := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	month, _ := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be between 1 and 12"})
		return
	}

	report, err := h.services.Credits.CompanyReport(c.Request.Context(), *user.CompanyID, year, month)
	if err != nil {
		respondError(c, err, "Failed to build credit report")
		return
	}

	c.JSON(http.StatusOK, report)
}
