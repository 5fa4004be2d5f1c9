package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/groups"
	"github.com/thereayou/link/internal/handlers/dto"
	"github.com/thereayou/link/internal/middleware"
	"go.uber.org/zap"
)

type GroupHandler struct {
	svc *coordination.Service
	log *zap.Logger
}

func NewGroupHandler(svc *coordination.Service, log *zap.Logger) *GroupHandler {
	return &GroupHandler{svc: svc, log: log}
}

// CreateGroup создает группу, текущий пользователь становится администратором
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	group, err := h.svc.CreateGroup(c.Request.Context(), groups.CreateGroupInput{
		CreatorID:   userID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

// GetMyGroups - активные группы текущего пользователя
func (h *GroupHandler) GetMyGroups(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)

	list, err := h.svc.UserGroups(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": list})
}

func (h *GroupHandler) GetGroup(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	group, err := h.svc.GetGroup(c.Request.Context(), groupID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// AddMember - только для администратора группы
func (h *GroupHandler) AddMember(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	member, err := h.svc.AddMember(c.Request.Context(), groupID, userID, req.UserID, req.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// RemoveMember удаляет участника; свой id означает выход из группы
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := idParam(c, "userId")
	if !ok {
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), groupID, userID, targetID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GroupHandler) GetMembers(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	members, err := h.svc.Members(c.Request.Context(), groupID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// Presence - участники онлайн и те, кто открыл чат группы
func (h *GroupHandler) Presence(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	presence, err := h.svc.Presence(c.Request.Context(), groupID, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, presence)
}

// SuggestedTime предлагает общий слот по доступности участников.
// ?from=YYYY-MM-DD (по умолчанию сегодня), ?days=14
func (h *GroupHandler) SuggestedTime(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	from := time.Now()
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		from = parsed
	}
	days := intQuery(c, "days", coordination.DefaultSuggestDays, 90)

	slot, err := h.svc.SuggestGroupTime(c.Request.Context(), groupID, userID, from, days)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}
