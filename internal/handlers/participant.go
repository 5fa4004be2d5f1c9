package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/handlers/dto"
	"github.com/thereayou/link/internal/middleware"
	"go.uber.org/zap"
)

// ParticipantHandler - ответы пользователей на события
type ParticipantHandler struct {
	svc *coordination.Service
	log *zap.Logger
}

func NewParticipantHandler(svc *coordination.Service, log *zap.Logger) *ParticipantHandler {
	return &ParticipantHandler{svc: svc, log: log}
}

// Respond записывает ответ текущего пользователя, по умолчанию going
func (h *ParticipantHandler) Respond(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)

	var req dto.RespondToEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	participant, err := h.svc.RespondToEvent(c.Request.Context(), userID, req.EventID, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, participant)
}

// List - все ответы на событие; :id здесь id события
func (h *ParticipantHandler) List(c *gin.Context) {
	eventID, ok := idParam(c, "id")
	if !ok {
		return
	}
	participants, err := h.svc.EventParticipants(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// Update меняет статус своего ответа
func (h *ParticipantHandler) Update(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	participant, err := h.svc.UpdateParticipation(c.Request.Context(), userID, id, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, participant)
}
