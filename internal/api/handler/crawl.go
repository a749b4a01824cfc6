package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/timmy/veris/internal/logger"
	"github.com/timmy/veris/internal/service"
	"github.com/timmy/veris/internal/source"
)

// Crawler runs a crawl over a source.
type Crawler interface {
	Run(ctx context.Context, src source.Source, limit int, opts *service.CrawlOptions) (*service.CrawlStats, error)
}

// CrawlHandler triggers crawls and reports their state. One crawl runs at a time.
type CrawlHandler struct {
	crawler Crawler
	sources map[string]source.Source

	mu            sync.RWMutex
	isRunning     bool
	currentStats  *service.CrawlStats
	lastRunTime   time.Time
	lastRunStatus string
}

// NewCrawlHandler creates a new crawl handler.
// Parameters:
//   - crawler: crawl service.
//   - sources: source adapters keyed by name.
// Returns:
//   - *CrawlHandler: initialized handler.
func NewCrawlHandler(crawler Crawler, sources map[string]source.Source) *CrawlHandler {
	return &CrawlHandler{
		crawler: crawler,
		sources: sources,
	}
}

// CrawlRequest represents the crawl API request.
type CrawlRequest struct {
	Source string `json:"source" binding:"required"`
	Limit  int    `json:"limit" binding:"required,min=1,max=10000"`
	Force  bool   `json:"force"`
}

// CrawlStatusResponse represents the crawl status.
type CrawlStatusResponse struct {
	IsRunning     bool                `json:"is_running"`
	LastRunTime   string              `json:"last_run_time,omitempty"`
	LastRunStatus string              `json:"last_run_status,omitempty"`
	CurrentStats  *service.CrawlStats `json:"current_stats,omitempty"`
}

// TriggerCrawl handles POST /api/v1/admin/crawl. The crawl runs in the
// background; poll GET /api/v1/admin/crawl for progress.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *CrawlHandler) TriggerCrawl(c *gin.Context) {
	ctx := c.Request.Context()

	var req CrawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "Invalid crawl request: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, ok := h.sources[req.Source]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown source: " + req.Source})
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "Crawl is already running"})
		return
	}
	h.isRunning = true
	h.currentStats = nil
	h.mu.Unlock()

	logger.CtxInfo(ctx, "Starting crawl: source=%s, limit=%d, force=%v", req.Source, req.Limit, req.Force)

	// Detached from the request so the crawl outlives the HTTP call.
	crawlCtx := logger.FromContext(ctx).WithContext(context.Background())
	go h.run(crawlCtx, src, req)

	c.JSON(http.StatusAccepted, gin.H{"message": "Crawl started", "source": req.Source})
}

func (h *CrawlHandler) run(ctx context.Context, src source.Source, req CrawlRequest) {
	start := time.Now()
	stats, err := h.crawler.Run(ctx, src, req.Limit, &service.CrawlOptions{Force: req.Force})

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
		logger.With(logger.Fields{}).Since(start).Error(ctx, "Crawl failed: source=%s, error=%v", req.Source, err)
		return
	}
	logger.With(logger.Fields{
		logger.FieldCount: stats.ProcessedItems,
	}).Since(start).Info(ctx, "Crawl completed: source=%s, total=%d, skipped=%d, failed=%d, claims=%d",
		req.Source, stats.TotalItems, stats.SkippedItems, stats.FailedItems, stats.Claims)
}

// GetCrawlStatus handles GET /api/v1/admin/crawl.
func (h *CrawlHandler) GetCrawlStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := CrawlStatusResponse{
		IsRunning:     h.isRunning,
		LastRunStatus: h.lastRunStatus,
		CurrentStats:  h.currentStats,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}
