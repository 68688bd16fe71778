package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pantrylens/backend/internal/domain"
	"github.com/pantrylens/backend/internal/logx"
	"github.com/rs/zerolog"
)

// PricingService is the usecase surface the handlers depend on
type PricingService interface {
	RecordPrice(ctx context.Context, report *domain.PriceReport) (*domain.PriceObservation, error)
	CheapestStore(ctx context.Context, itemName string, maxDays int) (*domain.CheapestStoreResult, error)
	OptimalStores(ctx context.Context, items []domain.ShoppingListItem, maxDays, maxStores int) (*domain.OptimalStoresResult, error)
	OptimalStoresForList(ctx context.Context, listID string, maxDays, maxStores int) (*domain.OptimalStoresResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	pricing PricingService
	logger  zerolog.Logger
}

// NewHandler creates a new HTTP handler. pricing may be nil, in which case
// the pricing endpoints answer 501.
func NewHandler(pricing PricingService) *Handler {
	return &Handler{
		pricing: pricing,
		logger:  logx.Component("http_handler"),
	}
}

// optimalStoresRequest is the body of POST /shopping-lists/optimal-stores
type optimalStoresRequest struct {
	Items     []domain.ShoppingListItem `json:"items"`
	MaxDays   int                       `json:"maxDays"`
	MaxStores int                       `json:"maxStores"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pantrylens-backend",
		"version": "1.0.0",
	})
}

// RecordPrice handles POST /api/v1/prices
func (h *Handler) RecordPrice(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	var report domain.PriceReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	obs, err := h.pricing.RecordPrice(c.Request.Context(), &report)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, obs)
}

// CheapestStore handles GET /api/v1/prices/cheapest?item=&maxDays=
func (h *Handler) CheapestStore(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	item := strings.TrimSpace(c.Query("item"))
	if item == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item query parameter is required"})
		return
	}

	maxDays, ok := intQuery(c, "maxDays")
	if !ok {
		return
	}

	result, err := h.pricing.CheapestStore(c.Request.Context(), item, maxDays)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// OptimalStores handles POST /api/v1/shopping-lists/optimal-stores
func (h *Handler) OptimalStores(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	var req optimalStoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.pricing.OptimalStores(c.Request.Context(), req.Items, req.MaxDays, req.MaxStores)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// OptimalStoresForList handles GET /api/v1/shopping-lists/:id/optimal-stores
func (h *Handler) OptimalStoresForList(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	maxDays, ok := intQuery(c, "maxDays")
	if !ok {
		return
	}
	maxStores, ok := intQuery(c, "maxStores")
	if !ok {
		return
	}

	result, err := h.pricing.OptimalStoresForList(c.Request.Context(), c.Param("id"), maxDays, maxStores)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) configured(c *gin.Context) bool {
	if h.pricing == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "pricing service not configured"})
		return false
	}
	return true
}

// respondError maps usecase errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptyList):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPriceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrListNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	case errors.Is(err, domain.ErrStorageFailure):
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("storage failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price storage temporarily unavailable"})
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// intQuery parses an optional integer query parameter, answering 400 when it is malformed
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return value, true
}
