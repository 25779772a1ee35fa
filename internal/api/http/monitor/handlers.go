package monitor

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flowwatch/flowwatch-backend/internal/monitor/domain"
)

// Service is the monitor surface the API exposes.
type Service interface {
	RunCheck(ctx context.Context) error
	Settings(ctx context.Context) (*domain.SettingsBundle, error)
	HasProblems(ctx context.Context, cat domain.Category) (bool, error)
	SetInterval(ctx context.Context, minutes int) (int, error)
	SetRecurring(ctx context.Context, enabled bool) error
	SetNotification(ctx context.Context, cat domain.Category, enabled bool) error
	RecentEvents(ctx context.Context, limit int) ([]domain.ProblemEvent, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the monitor routes on an API group.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/monitor")
	g.GET("/settings", h.GetSettings)
	g.GET("/conditions/:category", h.GetCondition)
	g.GET("/events", h.GetEvents)
	g.POST("/check", h.ForceCheck)
	g.PUT("/schedule", h.UpdateSchedule)
	g.PUT("/notifications/:category", h.UpdateNotification)
}

// GetSettings returns the full settings bundle. The display widget renders
// the category → count pairs from it; it has no write path.
func (h *Handler) GetSettings(c *gin.Context) {
	bundle, err := h.svc.Settings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings": bundle,
		"counts":   bundle.Counts(),
	})
}

// GetCondition answers whether a category currently has problem items.
func (h *Handler) GetCondition(c *gin.Context) {
	cat, err := domain.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}

	has, err := h.svc.HasProblems(c.Request.Context(), cat)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check condition"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": cat, "has_problems": has})
}

// GetEvents returns recent audit-trail rows.
func (h *Handler) GetEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, err := h.svc.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, domain.ErrEventLogDisabled) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event log not configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// ForceCheck runs an immediate check pass.
func (h *Handler) ForceCheck(c *gin.Context) {
	if err := h.svc.RunCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "check pass failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UpdateSchedule changes the recurring timer. Intervals below the minimum
// are clamped; the response echoes the effective values.
func (h *Handler) UpdateSchedule(c *gin.Context) {
	var body struct {
		Enabled         *bool `json:"enabled"`
		IntervalMinutes *int  `json:"interval_minutes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.Enabled == nil && body.IntervalMinutes == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	resp := gin.H{}

	if body.IntervalMinutes != nil {
		if *body.IntervalMinutes < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "interval_minutes must be positive"})
			return
		}
		effective, err := h.svc.SetInterval(c.Request.Context(), *body.IntervalMinutes)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update interval"})
			return
		}
		resp["interval_minutes"] = effective
	}

	if body.Enabled != nil {
		if err := h.svc.SetRecurring(c.Request.Context(), *body.Enabled); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update schedule"})
			return
		}
		resp["enabled"] = *body.Enabled
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateNotification toggles notification-center entries for one category.
func (h *Handler) UpdateNotification(c *gin.Context) {
	cat, err := domain.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}

	var body struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.SetNotification(c.Request.Context(), cat, *body.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notification toggle"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": cat, "enabled": *body.Enabled})
}
