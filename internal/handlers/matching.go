package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/handlers/dto"
	"github.com/thereayou/link/internal/matching"
	"go.uber.org/zap"
)

// AIHandler - маршруты /api/ai. Ответы всегда есть: при недоступном оракуле
// используется детерминированный результат.
type AIHandler struct {
	svc *coordination.Service
	log *zap.Logger
}

func NewAIHandler(svc *coordination.Service, log *zap.Logger) *AIHandler {
	return &AIHandler{svc: svc, log: log}
}

func (h *AIHandler) MutualTime(c *gin.Context) {
	var req dto.MutualTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.MutualTime(c.Request.Context(), req.Availabilities))
}

func (h *AIHandler) GenerateTags(c *gin.Context) {
	var req dto.GenerateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tags, err := h.svc.SuggestTags(c.Request.Context(), matching.TagRequest{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}
