package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/thereayou/link/internal/cache"
	"github.com/thereayou/link/internal/handlers/dto"
	"github.com/thereayou/link/internal/middleware"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
	"github.com/thereayou/link/pkg/auth"
	"go.uber.org/zap"
)

type AuthHandler struct {
	users      services.UserRepository
	jwtManager *auth.JWTManager
	cache      *cache.Cache
	log        *zap.Logger
}

func NewAuthHandler(users services.UserRepository, jwtMgr *auth.JWTManager, c *cache.Cache, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtManager: jwtMgr, cache: c, log: log}
}

func (h *AuthHandler) issue(c *gin.Context, status int, user *models.User) {
	token, err := h.jwtManager.Generate(user.ID)
	if err != nil {
		h.log.Error("could not generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	exp, err := h.jwtManager.Expiry(token)
	if err != nil {
		h.log.Error("could not read token expiry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	c.JSON(status, dto.TokenResponse{Token: token, ExpiresAt: exp.UTC().Format(time.RFC3339), User: user})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot hash password"})
		return
	}

	now := time.Now()
	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Interests:    []string{},
		Skills:       []string{},
		Timezone:     "America/New_York",
		LastSeenAt:   now,
		CreatedAt:    now,
	}
	if err := h.users.CreateUser(c.Request.Context(), user); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.issue(c, http.StatusCreated, user)
}

// Login выдаёт JWT и обновляет last_seen
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.FindUserByEmail(ctx, req.Email)
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := h.users.UpdateLastSeen(ctx, user.ID); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.issue(c, http.StatusOK, user)
}

// Logout ставит токен в черный список до его истечения
func (h *AuthHandler) Logout(c *gin.Context) {
	rawToken := c.GetString(middleware.TokenKey)
	if rawToken == "" {
		var err error
		if rawToken, err = auth.ExtractTokenFromHeader(c.Request); err != nil {
			badRequest(c, err)
			return
		}
	}

	exp, err := h.jwtManager.Expiry(rawToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := h.cache.Blacklist(c.Request.Context(), rawToken, time.Until(exp)); err != nil {
		h.log.Error("failed to blacklist token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.Status(http.StatusOK)
}
