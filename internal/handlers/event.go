package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/handlers/dto"
	"github.com/thereayou/link/internal/middleware"
	"github.com/thereayou/link/internal/models"
	"go.uber.org/zap"
)

type EventHandler struct {
	svc *coordination.Service
	log *zap.Logger
}

func NewEventHandler(svc *coordination.Service, log *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// CreateEvent создает событие от имени текущего пользователя
func (h *EventHandler) CreateEvent(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	event, err := h.svc.CreateEvent(c.Request.Context(), userID, req.Event())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// UpdateEvent - только хост события
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	event, err := h.svc.UpdateEvent(c.Request.Context(), userID, id, req.Patch())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// UserEvents - события, которые пользователь проводит или на которые идет
func (h *EventHandler) UserEvents(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	events, err := h.svc.UserEvents(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	event, err := h.svc.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// ListEvents поддерживает ?type=social|networking
func (h *EventHandler) ListEvents(c *gin.Context) {
	events, err := h.svc.ListEvents(c.Request.Context(), models.EventType(c.Query("type")))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *EventHandler) Nearby(c *gin.Context) {
	lat, ok := floatQuery(c, "lat", true)
	if !ok {
		return
	}
	lon, ok := floatQuery(c, "lon", true)
	if !ok {
		return
	}
	radius, ok := floatQuery(c, "radius", false)
	if !ok {
		return
	}

	events, err := h.svc.EventsNearby(c.Request.Context(), lat, lon, radius)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Matches - пользователи, подходящие событию
func (h *EventHandler) Matches(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	users, err := h.svc.EventMatches(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Recommended - события для текущего пользователя
func (h *EventHandler) Recommended(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)

	events, err := h.svc.RecommendEvents(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
