package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/ondrejvana/rollcall/internal/attendance"
)

const dashboardCacheTTL = 30 * time.Second

// dashboardCache holds cached dashboard responses with expiry
type dashboardCache struct {
	mu        sync.RWMutex
	metrics   *attendance.DashboardMetrics
	trend     []attendance.TrendPoint
	expiresAt time.Time
}

func (c *dashboardCache) get() (*attendance.DashboardMetrics, []attendance.TrendPoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.metrics == nil || time.Now().After(c.expiresAt) {
		return nil, nil, false
	}
	return c.metrics, c.trend, true
}

func (c *dashboardCache) set(metrics *attendance.DashboardMetrics, trend []attendance.TrendPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = metrics
	c.trend = trend
	c.expiresAt = time.Now().Add(dashboardCacheTTL)
}

func (c *dashboardCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = nil
	c.trend = nil
}

// DashboardHandler serves the dashboard aggregates
type DashboardHandler struct {
	service *attendance.Service
	now     func() time.Time
	cache   dashboardCache
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *attendance.Service) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		now:     time.Now,
	}
}

// InvalidateCache clears the cached dashboard so the next request reads fresh data
func (h *DashboardHandler) InvalidateCache() {
	h.cache.invalidate()
}

func (h *DashboardHandler) refresh() (*attendance.DashboardMetrics, []attendance.TrendPoint, error) {
	if metrics, trend, ok := h.cache.get(); ok {
		return metrics, trend, nil
	}

	day := h.now()
	metrics, err := h.service.Metrics(day)
	if err != nil {
		return nil, nil, err
	}
	trend, err := h.service.WeeklyTrend(day)
	if err != nil {
		return nil, nil, err
	}
	h.cache.set(metrics, trend)
	return metrics, trend, nil
}

// Metrics returns today's headline numbers
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, _, err := h.refresh()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute dashboard metrics")
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// TrendResponse represents the weekly trend response
type TrendResponse struct {
	Trend []attendance.TrendPoint `json:"trend"`
}

// Trend returns the seven day attendance trend
func (h *DashboardHandler) Trend(w http.ResponseWriter, r *http.Request) {
	_, trend, err := h.refresh()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute attendance trend")
		return
	}
	respondJSON(w, http.StatusOK, TrendResponse{Trend: trend})
}
