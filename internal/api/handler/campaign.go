package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/Khushalgogia/joke-manager-v12/internal/service"
	"github.com/gin-gonic/gin"
)

type campaignGenerator interface {
	Generate(ctx context.Context, headline string, count int) (*domain.CampaignResult, error)
}

type campaignLoader interface {
	Load(ctx context.Context, id string) (*domain.CampaignResult, error)
	Recent(ctx context.Context, limit int) ([]service.ArchivedCampaign, error)
}

// CampaignHandler handles campaign generation and archived campaign lookups.
type CampaignHandler struct {
	generator campaignGenerator
	archive   campaignLoader
}

// NewCampaignHandler creates a campaign handler. archive may be nil when
// campaign archiving is disabled.
func NewCampaignHandler(generator campaignGenerator, archive campaignLoader) *CampaignHandler {
	return &CampaignHandler{generator: generator, archive: archive}
}

// CampaignRequest is the body of POST /api/v1/campaigns.
type CampaignRequest struct {
	Headline string `json:"headline" binding:"required"`
	Count    int    `json:"count"`
}

// Generate handles POST /api/v1/campaigns.
// A hard failure still returns the failed campaign body with a non-2xx status.
func (h *CampaignHandler) Generate(c *gin.Context) {
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), req.Headline, req.Count)
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			logger.With(logger.Fields{logger.FieldFailureKind: domain.KindOf(err)}).
				WithError(err).
				Error(c.Request.Context(), "Campaign failed: headline=%q", req.Headline)
		}
		if result == nil {
			result = domain.FailedCampaign(req.Headline, err)
		}
		c.JSON(status, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListCampaigns handles GET /api/v1/campaigns?limit=, newest archived campaigns first.
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	if !h.archiveEnabled(c) {
		return
	}
	limit := queryInt(c, "limit", 20)
	if limit <= 0 || limit > 200 {
		badRequest(c, "limit must be between 1 and 200")
		return
	}

	campaigns, err := h.archive.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "Failed to list campaigns")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "campaigns": campaigns, "count": len(campaigns)})
}

// GetCampaign handles GET /api/v1/campaigns/:id.
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	if !h.archiveEnabled(c) {
		return
	}

	result, err := h.archive.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load campaign")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CampaignHandler) archiveEnabled(c *gin.Context) bool {
	if h.archive != nil {
		return true
	}
	respondError(c, domain.NewError(domain.KindConfig, "campaign archive",
		fmt.Errorf("%w: storage is disabled", domain.ErrNotConfigured)), "Campaign archive unavailable")
	return false
}
