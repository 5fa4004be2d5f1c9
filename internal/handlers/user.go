package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/handlers/dto"
	"github.com/thereayou/link/internal/middleware"
	"go.uber.org/zap"
)

type UserHandler struct {
	svc *coordination.Service
	log *zap.Logger
}

func NewUserHandler(svc *coordination.Service, log *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// GetMe возвращает профиль текущего пользователя
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)

	user, err := h.svc.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe обновляет только переданные поля профиля
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), userID, coordination.ProfileUpdate{
		FullName:   req.FullName,
		Bio:        req.Bio,
		Profession: req.Profession,
		AvatarURL:  req.AvatarURL,
		Interests:  req.Interests,
		Skills:     req.Skills,
		CareerPath: req.CareerPath,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Timezone:   req.Timezone,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Nearby ищет пользователей вокруг точки, radius в км
func (h *UserHandler) Nearby(c *gin.Context) {
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

	users, err := h.svc.UsersNearby(c.Request.Context(), lat, lon, radius)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Compatibility - оценка совместимости текущего пользователя с :id
func (h *UserHandler) Compatibility(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint)
	otherID, ok := idParam(c, "id")
	if !ok {
		return
	}

	score, err := h.svc.Compatibility(c.Request.Context(), userID, otherID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": otherID, "score": score})
}

func (h *UserHandler) Matches(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	users, err := h.svc.MatchUsers(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
