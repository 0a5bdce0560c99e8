package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Firesolami/needles-sub001/middleware"
	"github.com/Firesolami/needles-sub001/models"
	"github.com/Firesolami/needles-sub001/utils"
)

// AuthController handles registration, login and the caller's own profile.
// It only hands a user id to the rest of the application.
type AuthController struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB, logger *zap.Logger) *AuthController {
	return &AuthController{db: db, log: logger}
}

// Register creates an account and returns a token for it.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required,min=3,max=32"`
		DisplayName string `json:"display_name" binding:"max=64"`
		Password    string `json:"password" binding:"required,min=8,max=72"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username may only contain letters, digits, '-' and '_'")
		return
	}

	var existing int64
	if err := a.db.WithContext(ctx.Request.Context()).Model(&models.User{}).
		Where("username = ?", req.Username).Count(&existing).Error; err == nil && existing > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		a.internalError(ctx, 50001, "failed to hash password", err)
		return
	}

	user := models.User{
		Username:     req.Username,
		DisplayName:  utils.SanitizeText(req.DisplayName),
		PasswordHash: hash,
	}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
			return
		}
		a.internalError(ctx, 50002, "failed to create user", err)
		return
	}

	a.issueToken(ctx, user, http.StatusCreated)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	err := a.db.WithContext(ctx.Request.Context()).Where("username = ?", strings.TrimSpace(req.Username)).Take(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	a.issueToken(ctx, user, http.StatusOK)
}

// Logout revokes the bearer token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}
	expiresAt, ok := ctx.Get(middleware.ContextTokenExpiryKey)
	exp, _ := expiresAt.(time.Time)
	if !ok || exp.IsZero() {
		exp = time.Now().Add(72 * time.Hour)
	}

	utils.BlacklistToken(ctx.Request.Context(), token, exp)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, publicUser(*user))
}

// UpdateProfile changes the caller's display name and profile picture.
// Omitted fields are left unchanged.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}

	var req struct {
		DisplayName *string `json:"display_name" binding:"omitempty,max=64"`
		ProfilePic  *string `json:"profile_pic" binding:"omitempty,max=512"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		name := utils.SanitizeText(*req.DisplayName)
		if name == "" {
			name = user.Username
		}
		updates["display_name"] = name
		user.DisplayName = name
	}
	if req.ProfilePic != nil {
		user.ProfilePic = strings.TrimSpace(*req.ProfilePic)
		updates["profile_pic"] = user.ProfilePic
	}
	if len(updates) > 0 {
		if err := a.db.WithContext(ctx.Request.Context()).Model(user).Updates(updates).Error; err != nil {
			a.internalError(ctx, 50031, "failed to update profile", err)
			return
		}
	}

	utils.Success(ctx, publicUser(*user))
}

func (a *AuthController) currentUser(ctx *gin.Context) (*models.User, bool) {
	userID, ok := requireUser(ctx)
	if !ok {
		return nil, false
	}
	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return nil, false
	}
	return &user, true
}

func (a *AuthController) issueToken(ctx *gin.Context, user models.User, status int) {
	token, expiresAt, err := utils.GenerateToken(user.ID, user.Username, 0)
	if err != nil {
		a.internalError(ctx, 50004, "failed to generate token", err)
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       publicUser(user),
	})
}

func (a *AuthController) internalError(ctx *gin.Context, code int, msg string, err error) {
	a.log.Error(msg, zap.Error(err))
	utils.CaptureError(ctx, err)
	utils.Error(ctx, http.StatusInternalServerError, code, msg)
}

func validUsername(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == '-' || r == '_' {
			continue
		}
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		return false
	}
	return true
}
