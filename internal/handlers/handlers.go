package handlers

import (
	"log/slog"
	"net/http"

	"kidbook/internal/cache"
	apperrors "kidbook/internal/errors"
	"kidbook/internal/metrics"
	"kidbook/internal/models"
	"kidbook/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services     *service.Services
	valkeyClient *cache.ValkeyClient
}

func NewHandlers(services *service.Services, valkeyClient *cache.ValkeyClient) *Handlers {
	return &Handlers{
		services:     services,
		valkeyClient: valkeyClient,
	}
}

// currentUser возвращает пользователя, загруженного RequireRole
func currentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("current_user")
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// respondError переводит доменные ошибки в HTTP статусы
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case err == apperrors.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case err == apperrors.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case err == apperrors.ErrForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case err == apperrors.ErrInsufficientCredits,
		err == apperrors.ErrSlotFull,
		err == apperrors.ErrSlotClosed,
		err == apperrors.ErrSlotNotFull,
		err == apperrors.ErrDuplicateWaitlistEntry,
		err == apperrors.ErrAllocationExists,
		err == apperrors.ErrAccountClosed,
		err == apperrors.ErrHoldExpired:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsInvalidTransition(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err == apperrors.ErrSessionNotResolved:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case apperrors.IsLedgerInconsistency(err):
		metrics.LedgerInconsistencies.Inc()
		slog.Error("Ledger inconsistency detected", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	default:
		slog.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
