package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mpolunin/eventwatch/app/config"
	"github.com/mpolunin/eventwatch/app/database"
	"github.com/mpolunin/eventwatch/app/event"
	"github.com/mpolunin/eventwatch/app/notify"
	"github.com/mpolunin/eventwatch/app/pipeline"
	"github.com/mpolunin/eventwatch/app/tasks"
)

func NewHandler(eventRepo database.EventRepository, userRepo database.UserRepository,
	sources map[string]*config.Source, runner tasks.PipelineRunner,
	notifier *notify.Notifier, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		eventRepo: eventRepo,
		userRepo:  userRepo,
		sources:   sources,
		runner:    runner,
		notifier:  notifier,
		scheduler: scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if eventCount, err := h.eventRepo.GetEventCount(c.Request.Context()); err == nil {
		health["events"] = eventCount
	}
	if userCount, err := h.userRepo.GetUserCount(c.Request.Context()); err == nil {
		health["users"] = userCount
	}

	health["loaded_sources"] = len(h.sources)

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	sources := make([]map[string]interface{}, 0, len(h.sources))
	for _, source := range h.sources {
		sources = append(sources, map[string]interface{}{
			"name":             source.Name,
			"type":             source.Type,
			"urls":             len(source.URLs),
			"enabled":          source.Settings.Enabled,
			"refresh_interval": source.Settings.GetRefreshInterval().String(),
		})
	}

	stats := map[string]interface{}{
		"sources": sources,
	}

	if eventCount, err := h.eventRepo.GetEventCount(c.Request.Context()); err == nil {
		stats["events"] = eventCount
	}
	if userCount, err := h.userRepo.GetUserCount(c.Request.Context()); err == nil {
		stats["users"] = userCount
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetRecentEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	events, err := h.eventRepo.GetRecentEvents(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_recent_events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  len(events),
	})
}

func (h *Handler) APIRunSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	source, ok := h.sources[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	task := tasks.NewScrapeSourceTask(source, h.runner)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing scrape task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue scrape task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Scrape task enqueued successfully",
		"task": gin.H{
			"id":     task.ID,
			"type":   task.Type,
			"source": name,
		},
	})
}

// APIRunJob runs an ad-hoc job synchronously and returns its result.
// Serialization against scheduled runs happens inside the runner.
func (h *Handler) APIRunJob(c *gin.Context) {
	var req RunJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one URL is required"})
		return
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = pipeline.SourceTypeHTML
	}
	if sourceType == pipeline.SourceTypeHTML {
		if err := req.Selectors.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid selectors", "details": err.Error()})
			return
		}
	}

	res, err := h.runner.Run(c.Request.Context(), pipeline.Job{
		SourceName: "adhoc",
		SourceType: sourceType,
		URLs:       req.URLs,
		Selectors:  req.Selectors,
	})
	if err != nil {
		slog.Error("Ad-hoc job failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Job failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) APINotify(c *gin.Context) {
	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.UserID == "" || req.EventID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and event_id are required"})
		return
	}

	user, err := h.userRepo.GetUser(c.Request.Context(), req.UserID)
	if err != nil {
		slog.Error("Database error", "operation", "get_user", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	evt, err := h.eventRepo.GetEvent(c.Request.Context(), req.EventID)
	if err != nil {
		slog.Error("Database error", "operation", "get_event", "event_id", req.EventID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if evt == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	res := h.notifier.Notify(c.Request.Context(), *user, *evt)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) APIAppendFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.UserID == "" || req.EventID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and event_id are required"})
		return
	}

	evt, err := h.eventRepo.GetEvent(c.Request.Context(), req.EventID)
	if err != nil {
		slog.Error("Database error", "operation", "get_event", "event_id", req.EventID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if evt == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	fb := event.Feedback{
		EventID: req.EventID,
		UserID:  req.UserID,
		Status:  req.Status,
	}
	if err := h.eventRepo.AppendFeedback(c.Request.Context(), fb); err != nil {
		slog.Error("Failed to append feedback", "event_id", req.EventID, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to append feedback", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
