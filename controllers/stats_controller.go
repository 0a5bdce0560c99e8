package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Firesolami/needles-sub001/models"
	"github.com/Firesolami/needles-sub001/utils"
)

// StatsController provides aggregate counts for the whole graph.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns user, post, reaction and follow counts.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	var users, posts, reactions, follows int64

	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		users = 0
	}
	if err := db.Model(&models.Post{}).Where("status = ?", models.PostStatusPublished).Count(&posts).Error; err != nil {
		posts = 0
	}
	if err := db.Model(&models.Reaction{}).Count(&reactions).Error; err != nil {
		reactions = 0
	}
	if err := db.Model(&models.Follow{}).Count(&follows).Error; err != nil {
		follows = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":     users,
		"post_count":     posts,
		"reaction_count": reactions,
		"follow_count":   follows,
	})
}
