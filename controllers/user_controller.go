package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aedi/aedi/middleware"
	"github.com/aedi/aedi/services"
	"github.com/aedi/aedi/utils"
)

// UserController serves profiles, the follow graph and account management.
type UserController struct {
	users *services.UserService
}

// NewUserController creates a new UserController instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{users: services.NewUserService(db)}
}

// Profile returns the public profile of :username.
func (u *UserController) Profile(ctx *gin.Context) {
	username := ctx.Param("username")
	key := utils.CacheProfilePrefix + username
	if serveCached(ctx, key) {
		return
	}
	user, err := u.users.Profile(ctx.Request.Context(), username)
	if err != nil {
		respondError(ctx, err, "profile")
		return
	}
	successCached(ctx, key, user)
}

// Suggested returns up to four users the caller does not follow yet.
func (u *UserController) Suggested(ctx *gin.Context) {
	users, err := u.users.Suggested(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		respondError(ctx, err, "suggested")
		return
	}
	utils.Success(ctx, users)
}

// Follow toggles whether the caller follows :id.
func (u *UserController) Follow(ctx *gin.Context) {
	target, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	following, err := u.users.FollowToggle(ctx.Request.Context(), middleware.CurrentUserID(ctx), target)
	if err != nil {
		respondError(ctx, err, "follow")
		return
	}
	invalidateReadCaches()
	msg := "Unfollowed"
	if following {
		msg = "Followed"
	}
	utils.Message(ctx, msg, gin.H{"following": following})
}

// Update changes the caller's profile fields and optionally the password.
func (u *UserController) Update(ctx *gin.Context) {
	var req services.UpdateProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	user, err := u.users.UpdateProfile(ctx.Request.Context(), middleware.CurrentUserID(ctx), req)
	if err != nil {
		respondError(ctx, err, "update_profile")
		return
	}
	invalidateReadCaches()
	utils.Success(ctx, user)
}

// Search finds users by a case-insensitive username fragment (?username=).
func (u *UserController) Search(ctx *gin.Context) {
	users, err := u.users.Search(ctx.Request.Context(), ctx.Query("username"))
	if err != nil {
		respondError(ctx, err, "search")
		return
	}
	utils.Success(ctx, users)
}

// Delete removes the caller's own account and ends the session.
func (u *UserController) Delete(ctx *gin.Context) {
	target, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := u.users.DeleteAccount(ctx.Request.Context(), middleware.CurrentUserID(ctx), target); err != nil {
		respondError(ctx, err, "delete_account")
		return
	}
	invalidateReadCaches()

	token := middleware.CurrentToken(ctx)
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		utils.BlacklistToken(token, claims.ExpiresAt.Time)
	}
	utils.ClearSession(ctx)
	utils.Message(ctx, "Account deleted successfully", nil)
}
