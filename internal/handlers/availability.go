package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/handlers/dto"
	"github.com/thereayou/link/internal/middleware"
	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	svc *coordination.Service
	log *zap.Logger
}

func NewAvailabilityHandler(svc *coordination.Service, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, log: log}
}

// SetAvailability заменяет слоты текущего пользователя на дату
func (h *AvailabilityHandler) SetAvailability(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)

	var req dto.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	record, err := h.svc.SetAvailability(c.Request.Context(), userID, req.Date, req.Timeslots)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *AvailabilityHandler) GetUserAvailability(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	records, err := h.svc.GetAvailability(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": records})
}

func (h *AvailabilityHandler) UsersOnDate(c *gin.Context) {
	ids, err := h.svc.UsersAvailableOn(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": ids})
}

// MutualSlots - общие слоты набора пользователей на дату
func (h *AvailabilityHandler) MutualSlots(c *gin.Context) {
	var req dto.MutualSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	slots, err := h.svc.MutualSlots(c.Request.Context(), req.UserIDs, req.Date)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": req.Date, "timeslots": slots})
}
