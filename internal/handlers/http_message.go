package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/groups"
	"github.com/thereayou/link/internal/handlers/dto"
	"github.com/thereayou/link/internal/middleware"
	"go.uber.org/zap"
)

const maxMessagesPage = 100

// HTTPMessageHandler - REST-доступ к чату и голосованию для клиентов без websocket.
// Отправка через него рассылает те же realtime события.
type HTTPMessageHandler struct {
	svc *coordination.Service
	log *zap.Logger
}

func NewHTTPMessageHandler(svc *coordination.Service, log *zap.Logger) *HTTPMessageHandler {
	return &HTTPMessageHandler{svc: svc, log: log}
}

// GetGroupMessages получает историю сообщений группы, от новых к старым
func (h *HTTPMessageHandler) GetGroupMessages(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	limit := intQuery(c, "limit", groups.DefaultMessageLimit, maxMessagesPage)
	offset := intQuery(c, "offset", 0, 0)

	messages, err := h.svc.ListMessages(c.Request.Context(), groupID, userID, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"has_more": len(messages) == limit,
	})
}

func (h *HTTPMessageHandler) PostMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.svc.PostMessage(c.Request.Context(), groups.PostMessageInput{
		GroupID:       groupID,
		SenderID:      userID,
		Text:          req.Message,
		Type:          req.MessageType,
		AttachmentURL: req.AttachmentURL,
		ReferenceData: req.ReferenceData,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *HTTPMessageHandler) CastVote(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	vote, counts, err := h.svc.CastVote(c.Request.Context(), groupID, userID, req.EventID, req.Vote)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vote": vote, "vote_counts": counts})
}

// GetVotes возвращает итог и историю голосов по событию
func (h *HTTPMessageHandler) GetVotes(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}
	eventID, ok := idParam(c, "eventId")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	history, err := h.svc.Votes(ctx, groupID, userID, eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"vote_counts": groups.Tally(history),
		"votes":       history,
	})
}
