package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/Khushalgogia/joke-manager-v12/internal/service"
	"github.com/Khushalgogia/joke-manager-v12/internal/source"
	"github.com/Khushalgogia/joke-manager-v12/internal/source/staging"
	"github.com/gin-gonic/gin"
)

type bridgeBackfiller interface {
	FillMissingBridges(ctx context.Context, afterID int64, batchSize int) (*service.BackfillReport, error)
}

type segmentExtractor interface {
	ExtractReport(ctx context.Context, sourceID, transcript, language string) (*service.ExtractionReport, error)
}

type sourceIngester interface {
	IngestFromSource(ctx context.Context, src source.Source, limit int, opts *service.IngestOptions) (*service.IngestStats, error)
}

// AdminHandler handles maintenance operations: bridge backfill, transcript
// extraction and ingest of staged segment manifests.
type AdminHandler struct {
	backfill   bridgeBackfiller
	extractor  segmentExtractor
	ingest     sourceIngester
	stagingDir string

	// Ingest job state
	mu            sync.RWMutex
	isRunning     bool
	currentStats  *service.IngestStats
	lastRunTime   time.Time
	lastRunStatus string
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - backfill: joke service used to fill missing bridges.
//   - extractor: transcript segment extractor.
//   - ingest: ingest service used for staged manifests.
//   - stagingDir: directory of <source>/segments.jsonl manifests.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(backfill bridgeBackfiller, extractor segmentExtractor, ingest sourceIngester, stagingDir string) *AdminHandler {
	return &AdminHandler{
		backfill:   backfill,
		extractor:  extractor,
		ingest:     ingest,
		stagingDir: stagingDir,
	}
}

// FillMissingRequest is the body of POST /api/v1/admin/fill-missing.
type FillMissingRequest struct {
	BatchSize int `json:"batch_size"`
	// AfterID resumes from the next_after_id of a previous report.
	AfterID int64 `json:"after_id"`
}

// FillMissing handles POST /api/v1/admin/fill-missing. An empty body uses the default batch size.
func (h *AdminHandler) FillMissing(c *gin.Context) {
	var req FillMissingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request: "+err.Error())
			return
		}
	}
	if req.BatchSize < 0 || req.BatchSize > 500 {
		badRequest(c, "batch_size must be between 1 and 500")
		return
	}
	if req.AfterID < 0 {
		badRequest(c, "after_id must not be negative")
		return
	}

	report, err := h.backfill.FillMissingBridges(c.Request.Context(), req.AfterID, req.BatchSize)
	if err != nil {
		respondError(c, err, "Failed to fill missing bridges")
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExtractRequest is the body of POST /api/v1/segments/extract.
type ExtractRequest struct {
	SourceID   string `json:"video_id" binding:"required"`
	Transcript string `json:"transcript" binding:"required"`
	Language   string `json:"language"`
	// Stage writes the extracted segments to the staging manifest for review.
	Stage bool `json:"stage"`
}

// ExtractSegments handles POST /api/v1/segments/extract.
func (h *AdminHandler) ExtractSegments(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if req.Language == "" {
		req.Language = "english"
	}
	if req.Stage && !validSourceID(req.SourceID) {
		badRequest(c, "Invalid video_id: "+req.SourceID)
		return
	}

	ctx := logger.SetSourceID(c.Request.Context(), req.SourceID)
	report, err := h.extractor.ExtractReport(ctx, req.SourceID, req.Transcript, req.Language)
	if err != nil {
		respondError(c, err, "Extraction failed")
		return
	}

	resp := gin.H{"success": true, "extraction": report}
	if req.Stage {
		path, err := staging.WriteManifest(h.stagingDir, req.SourceID, report.Segments)
		if err != nil {
			respondError(c, err, "Failed to stage segments")
			return
		}
		logger.CtxInfo(ctx, "Staged %d segments at %s", report.Count, path)
		resp["manifest"] = path
	}
	c.JSON(http.StatusOK, resp)
}

// validSourceID rejects ids that would escape the staging directory.
func validSourceID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// IngestRequest represents the ingest API request.
type IngestRequest struct {
	SourceID       string `json:"video_id" binding:"required"`
	Limit          int    `json:"limit" binding:"omitempty,min=1,max=10000"`
	SkipEnrichment bool   `json:"skip_enrichment"`
}

// IngestResponse represents the ingest API response.
type IngestResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Stats   *service.IngestStats `json:"stats,omitempty"`
}

// IngestStatusResponse represents the ingest status.
type IngestStatusResponse struct {
	IsRunning      bool                 `json:"is_running"`
	LastRunTime    string               `json:"last_run_time,omitempty"`
	LastRunStatus  string               `json:"last_run_status,omitempty"`
	CurrentStats   *service.IngestStats `json:"current_stats,omitempty"`
	StagingSources []string             `json:"staging_sources"`
}

// TriggerIngest handles POST /api/v1/admin/ingest: imports a staged manifest.
// Only one ingest runs at a time; a concurrent request gets 409.
func (h *AdminHandler) TriggerIngest(c *gin.Context) {
	ctx := c.Request.Context()

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "Invalid ingest request: client_ip=%s, error=%v", c.ClientIP(), err)
		badRequest(c, err.Error())
		return
	}
	sourceID := strings.TrimSpace(req.SourceID)
	if !validSourceID(sourceID) {
		badRequest(c, "Invalid video_id: "+req.SourceID)
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Ingest request rejected: already running, video_id=%s", sourceID)
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Ingest is already running"})
		return
	}
	h.isRunning = true
	h.currentStats = nil
	h.mu.Unlock()

	ctx = logger.SetSourceID(ctx, sourceID)
	logger.CtxInfo(ctx, "Starting ingest: limit=%d, skip_enrichment=%v", req.Limit, req.SkipEnrichment)

	// detached from the request so a client disconnect does not abort a half-written batch
	ingestCtx := context.WithoutCancel(ctx)
	src := staging.NewAdapter(h.stagingDir, sourceID)
	startTime := time.Now()
	stats, err := h.ingest.IngestFromSource(ingestCtx, src, req.Limit, &service.IngestOptions{
		SkipEnrichment: req.SkipEnrichment,
	})
	duration := time.Since(startTime)

	h.mu.Lock()
	h.isRunning = false
	h.currentStats = stats
	h.lastRunTime = time.Now()
	if err != nil {
		h.lastRunStatus = "failed: " + err.Error()
	} else {
		h.lastRunStatus = "success"
	}
	h.mu.Unlock()

	if err != nil {
		logger.With(logger.Fields{
			logger.FieldDurationMs: duration.Milliseconds(),
		}).WithError(err).Error(ctx, "Ingest failed")
		respondError(c, err, "Ingest failed")
		return
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: duration.Milliseconds(),
		logger.FieldCount:      stats.AddedItems,
	}).Info(ctx, "Ingest completed: total=%d, added=%d, skipped=%d, failed=%d",
		stats.TotalItems, stats.AddedItems, stats.SkippedItems, stats.FailedItems)

	c.JSON(http.StatusOK, IngestResponse{
		Success: true,
		Message: "Ingest completed successfully",
		Stats:   stats,
	})
}

// GetIngestStatus handles GET /api/v1/admin/ingest/status.
func (h *AdminHandler) GetIngestStatus(c *gin.Context) {
	sources, err := staging.ListStagingSources(h.stagingDir)
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "Failed to list staging sources: %v", err)
	}
	if sources == nil {
		sources = []string{}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := IngestStatusResponse{
		IsRunning:      h.isRunning,
		LastRunStatus:  h.lastRunStatus,
		CurrentStats:   h.currentStats,
		StagingSources: sources,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}
