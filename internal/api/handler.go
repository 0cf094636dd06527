package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"warranty-backend/config"
	"warranty-backend/internal/orders"
	"warranty-backend/internal/store"
	"warranty-backend/internal/warranty"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *warranty.Service
	store   store.Store
	cfg     *config.Config
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(svc *warranty.Service, st store.Store, cfg *config.Config, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		svc:     svc,
		store:   st,
		cfg:     cfg,
		webpush: webpushOptions,
	}
}

// respondErr translates core errors into HTTP responses.
func respondErr(c *gin.Context, err error) {
	var vErr *warranty.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "field": vErr.Field})
	case errors.Is(err, warranty.ErrBadToken):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, warranty.ErrNotFound), errors.Is(err, orders.ErrOrderNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrOrderNotEligible),
		errors.Is(err, orders.ErrNoPhoneOnOrder),
		errors.Is(err, orders.ErrPhoneMismatch):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, warranty.ErrAlreadyActive),
		errors.Is(err, warranty.ErrNotReactivatable),
		errors.Is(err, store.ErrDuplicate):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
