package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/folio-pulse/app/analytics"
	"github.com/lysyi3m/folio-pulse/app/cfg"
	"github.com/lysyi3m/folio-pulse/app/dashboard"
	"github.com/lysyi3m/folio-pulse/app/unread"
)

func NewHandler(engine ReportEngine, counter *unread.Counter, syncer UnreadSyncer,
	session SessionManager, version string) *Handler {
	return &Handler{
		engine:  engine,
		counter: counter,
		syncer:  syncer,
		session: session,
		version: version,
	}
}

// reportResponse renders a report together with the failure banner of the
// most recent pass when that pass failed.
type reportResponse struct {
	*dashboard.Report
	Error string `json:"error,omitempty"`
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":     time.Now().In(time.Local).Format(time.RFC3339),
		"version":       h.version,
		"unread":        h.counter.Count(),
		"authenticated": h.session.State().Authenticated,
	}
	if subject := h.session.Subject(); subject != "" {
		health["subject"] = subject
	}

	if report, _ := h.engine.Current(); report != nil {
		health["last_report"] = report.GeneratedAt.In(time.Local).Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, health)
}

// GetReport refreshes when a range is requested or nothing is cached yet,
// otherwise it serves the cached report.
func (h *Handler) GetReport(c *gin.Context) {
	r, ok := rangeParam(c)
	if !ok {
		return
	}

	report, err := h.engine.Current()
	if r != "" || report == nil {
		report, err = h.engine.Refresh(c.Request.Context(), r)
	}

	renderReport(c, report, err)
}

func (h *Handler) PostRefresh(c *gin.Context) {
	r, ok := rangeParam(c)
	if !ok {
		return
	}

	report, err := h.engine.Refresh(c.Request.Context(), r)
	renderReport(c, report, err)
}

func (h *Handler) GetStats(c *gin.Context) {
	report, banner, ok := h.cachedReport(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generated_at": report.GeneratedAt,
		"stats":        report.Stats,
		"failures":     report.Failures,
		"error":        banner,
	})
}

func (h *Handler) GetTimeline(c *gin.Context) {
	report, banner, ok := h.cachedReport(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generated_at": report.GeneratedAt,
		"range":        report.Range,
		"timeline":     report.Timeline,
		"monthly":      report.Monthly,
		"messages":     report.Messages,
		"error":        banner,
	})
}

// GetFeed serves one configured feed view. Unknown views are rejected before
// any refresh runs.
func (h *Handler) GetFeed(c *gin.Context) {
	view := c.DefaultQuery("view", cfg.FeedViewDashboard)

	settings := h.engine.Settings()
	policy, found := settings.Feed(view)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown feed view",
			"view":  view,
			"views": settings.FeedViews(),
		})
		return
	}

	report, banner, ok := h.cachedReport(c)
	if !ok {
		return
	}

	events := report.Feeds[view]
	if events == nil {
		events = []analytics.ActivityEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"generated_at": report.GeneratedAt,
		"view":         view,
		"limit":        policy.Limit,
		"events":       events,
		"total":        len(events),
		"error":        banner,
	})
}

func (h *Handler) GetUnread(c *gin.Context) {
	c.JSON(http.StatusOK, h.syncer.Status())
}

func (h *Handler) PostUnreadIncrement(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.counter.Increment()})
}

func (h *Handler) PostUnreadDecrement(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.counter.DecrementFloor0()})
}

func (h *Handler) PostUnreadReset(c *gin.Context) {
	h.counter.ResetToZero()
	c.JSON(http.StatusOK, gin.H{"count": 0})
}

func (h *Handler) PostUnreadSync(c *gin.Context) {
	ran, err := h.syncer.SyncNow(c.Request.Context())
	if err != nil {
		slog.Error("Unread sync failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to sync unread messages",
			"details": err.Error(),
			"count":   h.counter.Count(),
		})
		return
	}

	status := h.syncer.Status()
	c.JSON(http.StatusOK, gin.H{
		"synced": ran,
		"count":  status.Count,
		"state":  status.State,
	})
}

func (h *Handler) PostSession(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	if err := h.session.Login(req.Token); err != nil {
		slog.Warn("Login rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid access token",
			"details": err.Error(),
		})
		return
	}

	response := gin.H{
		"authenticated": true,
		"subject":       h.session.Subject(),
	}
	if expiresAt := h.session.ExpiresAt(); !expiresAt.IsZero() {
		response["expires_at"] = expiresAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	h.session.Logout()
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

// cachedReport returns the cached report, running one refresh when nothing
// has been built yet. It writes the error response itself when ok is false.
func (h *Handler) cachedReport(c *gin.Context) (*dashboard.Report, string, bool) {
	report, err := h.engine.Current()
	if report == nil {
		report, err = h.engine.Refresh(c.Request.Context(), "")
	}

	if report == nil {
		renderReport(c, nil, err)
		return nil, "", false
	}

	banner := ""
	if err != nil {
		banner = err.Error()
	}
	return report, banner, true
}

func rangeParam(c *gin.Context) (analytics.Range, bool) {
	value := c.Query("range")
	if value == "" {
		return "", true
	}

	r, err := analytics.ParseRange(value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid range",
			"details": err.Error(),
		})
		return "", false
	}
	return r, true
}

func renderReport(c *gin.Context, report *dashboard.Report, err error) {
	if errors.Is(err, dashboard.ErrSuperseded) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if report == nil {
		if err == nil {
			err = errors.New("no report available")
		}
		slog.Error("No report to serve", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	response := reportResponse{Report: report}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(http.StatusOK, response)
}
