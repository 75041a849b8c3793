package handler

import (
	"context"
	"net/http"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/service"
	"github.com/gin-gonic/gin"
)

type jokeReader interface {
	ListJokes(ctx context.Context, limit, offset int) (*service.JokeListResponse, error)
	GetJoke(ctx context.Context, id int64) (*domain.JokeView, error)
}

type jokeWriter interface {
	AddJoke(ctx context.Context, req *service.AddJokeRequest) (*service.AddJokeResponse, error)
	UpdateJoke(ctx context.Context, id int64, req *service.UpdateJokeRequest) (*domain.JokeView, error)
	DeleteJoke(ctx context.Context, id int64) error
	RefreshBridge(ctx context.Context, id int64) (*service.RefreshBridgeResponse, error)
	ImportSegments(ctx context.Context, req *service.ImportSegmentsRequest) (*service.ImportSegmentsResponse, error)
}

// JokeHandler handles joke CRUD and segment import.
type JokeHandler struct {
	reader jokeReader
	writer jokeWriter
}

func NewJokeHandler(reader jokeReader, writer jokeWriter) *JokeHandler {
	return &JokeHandler{reader: reader, writer: writer}
}

// ListJokes handles GET /api/v1/jokes?limit=&offset=.
func (h *JokeHandler) ListJokes(c *gin.Context) {
	result, err := h.reader.ListJokes(c.Request.Context(), queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err, "Failed to list jokes")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetJoke handles GET /api/v1/jokes/:id.
func (h *JokeHandler) GetJoke(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	joke, err := h.reader.GetJoke(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Joke not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "segment": joke})
}

// AddJoke handles POST /api/v1/jokes.
func (h *JokeHandler) AddJoke(c *gin.Context) {
	var req service.AddJokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	resp, err := h.writer.AddJoke(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to add joke")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateJoke handles PUT /api/v1/jokes/:id.
func (h *JokeHandler) UpdateJoke(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.UpdateJokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	joke, err := h.writer.UpdateJoke(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update joke")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "segment": joke})
}

// DeleteJoke handles DELETE /api/v1/jokes/:id.
func (h *JokeHandler) DeleteJoke(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.writer.DeleteJoke(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete joke")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Joke deleted"})
}

// RefreshBridge handles POST /api/v1/jokes/:id/refresh-bridge.
func (h *JokeHandler) RefreshBridge(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.writer.RefreshBridge(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to refresh bridge")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ImportSegments handles POST /api/v1/segments/import.
func (h *JokeHandler) ImportSegments(c *gin.Context) {
	var req service.ImportSegmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	resp, err := h.writer.ImportSegments(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to import segments")
		return
	}
	c.JSON(http.StatusOK, resp)
}
