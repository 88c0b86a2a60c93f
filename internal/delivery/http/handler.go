package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dealscout/backend/internal/domain"
	"github.com/dealscout/backend/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
)

// SearchUsecase runs product searches
type SearchUsecase interface {
	Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error)
}

// ProductUsecase serves product detail and similar products
type ProductUsecase interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	SimilarProducts(ctx context.Context, id string, limit int) ([]domain.ScoredProduct, error)
}

// CacheStatsFunc reports the state of every response cache
type CacheStatsFunc func() []cache.Stats

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search   SearchUsecase
	products ProductUsecase
	stats    CacheStatsFunc
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(search SearchUsecase, products ProductUsecase, stats CacheStatsFunc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		search:   search,
		products: products,
		stats:    stats,
		logger:   logger.With("component", "http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "dealscout-backend",
		"version": "1.0.0",
	})
}

// Search handles POST /api/v1/search
func (h *Handler) Search(c *gin.Context) {
	var req domain.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.search.Search(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("search failed", "query", req.Query, "err", err, "request_id", requestID(c))
		respondError(c, http.StatusInternalServerError, "search failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetProduct handles GET /api/v1/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.productError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": p,
	})
}

// SimilarProducts handles GET /api/v1/products/:id/similar
func (h *Handler) SimilarProducts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	id := c.Param("id")
	products, err := h.products.SimilarProducts(c.Request.Context(), id, limit)
	if err != nil {
		h.productError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"productId": id,
		"products":  products,
		"count":     len(products),
	})
}

// CacheStats handles GET /api/v1/cache/stats
func (h *Handler) CacheStats(c *gin.Context) {
	var stats []cache.Stats
	if h.stats != nil {
		stats = h.stats()
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"caches":  stats,
	})
}

func (h *Handler) productError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("product lookup failed", "id", c.Param("id"), "err", err, "request_id", requestID(c))
		respondError(c, http.StatusInternalServerError, "product lookup failed")
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}
