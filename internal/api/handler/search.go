package handler

import (
	"context"
	"net/http"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/service"
	"github.com/gin-gonic/gin"
)

type searcher interface {
	Search(ctx context.Context, req *service.SearchRequest) (*service.SearchResponse, error)
	GetStats(ctx context.Context) (*domain.Stats, error)
}

// SearchHandler handles search-related endpoints.
type SearchHandler struct {
	searchService searcher
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - searchService: search service instance.
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(searchService searcher) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// TextSearch handles POST /api/v1/search.
func (h *SearchHandler) TextSearch(c *gin.Context) {
	var req service.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	h.search(c, &req)
}

// TextSearchGet handles GET /api/v1/search?q=...&count=...
func (h *SearchHandler) TextSearchGet(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		badRequest(c, "Query parameter 'q' is required")
		return
	}
	h.search(c, &service.SearchRequest{
		Query: query,
		Count: queryInt(c, "count", 0),
	})
}

func (h *SearchHandler) search(c *gin.Context, req *service.SearchRequest) {
	result, err := h.searchService.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Search failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStats handles GET /api/v1/stats.
func (h *SearchHandler) GetStats(c *gin.Context) {
	stats, err := h.searchService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}
