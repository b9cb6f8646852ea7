package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aedi/aedi/models"
	"github.com/aedi/aedi/utils"
)

// StatsController provides site statistics such as entity counts.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate counts. A failing count reports 0 instead of failing the endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	count := func(model interface{}, where ...interface{}) int64 {
		var n int64
		q := db.Model(model)
		if len(where) > 0 {
			q = q.Where(where[0], where[1:]...)
		}
		if err := q.Count(&n).Error; err != nil {
			utils.Sugar.Warnw("stats count failed", "model", model, "error", err)
			return 0
		}
		return n
	}

	utils.Success(ctx, gin.H{
		"user_count":         count(&models.User{}),
		"post_count":         count(&models.Post{}),
		"edit_count":         count(&models.Adaptation{}, "kind = ?", models.KindEdit),
		"continuation_count": count(&models.Adaptation{}, "kind = ?", models.KindNext),
		"like_count":         count(&models.PostLike{}) + count(&models.AdaptationLike{}),
		"follow_count":       count(&models.Follow{}),
	})
}
