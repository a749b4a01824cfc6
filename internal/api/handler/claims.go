package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/repository"
	"github.com/timmy/veris/internal/service"
)

// ClaimReader reads stored verified claims.
type ClaimReader interface {
	GetByID(ctx context.Context, id string) (*domain.VerifiedClaim, error)
	List(ctx context.Context, filter domain.ClaimFilter) ([]domain.VerifiedClaim, error)
}

// SimilarSearcher finds stored claims close to a query.
type SimilarSearcher interface {
	Similar(ctx context.Context, q *service.SimilarQuery) ([]repository.SearchResult, error)
}

// ClaimsHandler handles stored-claim endpoints.
type ClaimsHandler struct {
	claims  ClaimReader
	similar SimilarSearcher
}

// NewClaimsHandler creates a new claims handler.
// Parameters:
//   - claims: claim store.
//   - similar: similarity index; nil disables /claims/similar.
// Returns:
//   - *ClaimsHandler: initialized handler.
func NewClaimsHandler(claims ClaimReader, similar SimilarSearcher) *ClaimsHandler {
	return &ClaimsHandler{
		claims:  claims,
		similar: similar,
	}
}

// ListClaims handles GET /api/v1/claims.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ClaimsHandler) ListClaims(c *gin.Context) {
	filter := domain.ClaimFilter{
		OriginURL: c.Query("origin_url"),
	}
	if s := c.Query("status"); s != "" {
		status, ok := domain.ParseStatus(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status: " + s})
			return
		}
		filter.Status = status
	}
	if cat := c.Query("category"); cat != "" {
		filter.Category = domain.ParseCategory(cat)
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	claims, err := h.claims.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list claims: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": claims,
		"count":   len(claims),
	})
}

// GetClaim handles GET /api/v1/claims/:id.
func (h *ClaimsHandler) GetClaim(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Claim ID is required"})
		return
	}

	claim, err := h.claims.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrClaimNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Claim not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get claim: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, claim)
}

// SimilarClaims handles GET /api/v1/claims/similar?q=.
func (h *ClaimsHandler) SimilarClaims(c *gin.Context) {
	if h.similar == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Similarity index is disabled"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	q := &service.SimilarQuery{Query: query}
	q.TopK, _ = strconv.Atoi(c.DefaultQuery("top_k", "10"))
	if cat := c.Query("category"); cat != "" {
		q.Category = domain.ParseCategory(cat)
	}
	if s := c.Query("status"); s != "" {
		status, ok := domain.ParseStatus(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status: " + s})
			return
		}
		q.Status = status
	}

	results, err := h.similar.Similar(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"total":   len(results),
	})
}
