package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aedi/aedi/middleware"
	"github.com/aedi/aedi/models"
	"github.com/aedi/aedi/services"
	"github.com/aedi/aedi/utils"
)

// PostController manages posts, their edits and continuations, and likes.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{posts: services.NewPostService(db)}
}

type textRequest struct {
	Text string `json:"text"`
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req textRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	post, err := p.posts.CreatePost(ctx.Request.Context(), middleware.CurrentUserID(ctx), req.Text)
	if err != nil {
		respondError(ctx, err, "create_post")
		return
	}
	invalidateReadCaches()
	utils.Created(ctx, post)
}

// AllPosts returns every post newest first.
func (p *PostController) AllPosts(ctx *gin.Context) {
	key := utils.CachePostsPrefix + "all"
	if serveCached(ctx, key) {
		return
	}
	posts, err := p.posts.AllPosts(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, "all_posts")
		return
	}
	successCached(ctx, key, posts)
}

// FollowingPosts returns posts by the users the caller follows.
func (p *PostController) FollowingPosts(ctx *gin.Context) {
	posts, err := p.posts.FollowingPosts(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		respondError(ctx, err, "following_posts")
		return
	}
	utils.Success(ctx, posts)
}

// UserPosts returns the posts of :username.
func (p *PostController) UserPosts(ctx *gin.Context) {
	username := ctx.Param("username")
	key := utils.CachePostsPrefix + "user:" + username
	if serveCached(ctx, key) {
		return
	}
	posts, err := p.posts.UserPosts(ctx.Request.Context(), username)
	if err != nil {
		respondError(ctx, err, "user_posts")
		return
	}
	successCached(ctx, key, posts)
}

// GetPost returns a single hydrated post.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	post, err := p.posts.GetPost(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, "get_post")
		return
	}
	utils.Success(ctx, post)
}

// DeletePost removes a post owned by the caller.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.DeletePost(ctx.Request.Context(), middleware.CurrentUserID(ctx), id); err != nil {
		respondError(ctx, err, "delete_post")
		return
	}
	invalidateReadCaches()
	utils.Message(ctx, "Post deleted successfully", nil)
}

// LikePost toggles the caller's like on a post and returns the like-set.
func (p *PostController) LikePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	likes, err := p.posts.TogglePostLike(ctx.Request.Context(), middleware.CurrentUserID(ctx), id)
	if err != nil {
		respondError(ctx, err, "like_post")
		return
	}
	invalidateReadCaches()
	utils.Success(ctx, likes)
}

// AppendAdaptation returns a handler adding an edit or continuation to post :id.
func (p *PostController) AppendAdaptation(kind models.AdaptationKind) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, ok := parseID(ctx, "id")
		if !ok {
			return
		}
		var req textRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
			return
		}
		post, err := p.posts.AppendAdaptation(ctx.Request.Context(), middleware.CurrentUserID(ctx), id, kind, req.Text)
		if err != nil {
			respondError(ctx, err, "append_"+string(kind))
			return
		}
		invalidateReadCaches()
		utils.Success(ctx, post)
	}
}

// GetAdaptation returns a handler loading one edit or continuation by :id.
func (p *PostController) GetAdaptation(kind models.AdaptationKind) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, ok := parseID(ctx, "id")
		if !ok {
			return
		}
		a, err := p.posts.GetAdaptation(ctx.Request.Context(), id, kind)
		if err != nil {
			respondError(ctx, err, "get_"+string(kind))
			return
		}
		utils.Success(ctx, a)
	}
}

// RemoveAdaptation returns a handler deleting one edit or continuation by :id.
func (p *PostController) RemoveAdaptation(kind models.AdaptationKind) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, ok := parseID(ctx, "id")
		if !ok {
			return
		}
		if err := p.posts.RemoveAdaptation(ctx.Request.Context(), middleware.CurrentUserID(ctx), id, kind); err != nil {
			respondError(ctx, err, "remove_"+string(kind))
			return
		}
		invalidateReadCaches()
		label := "AdaptEdit"
		if kind == models.KindNext {
			label = "AdaptNext"
		}
		utils.Message(ctx, label+" deleted successfully", nil)
	}
}

// LikeAdaptation returns a handler toggling the caller's like on an edit or continuation.
func (p *PostController) LikeAdaptation(kind models.AdaptationKind) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, ok := parseID(ctx, "id")
		if !ok {
			return
		}
		likes, err := p.posts.ToggleAdaptationLike(ctx.Request.Context(), middleware.CurrentUserID(ctx), id, kind)
		if err != nil {
			respondError(ctx, err, "like_"+string(kind))
			return
		}
		invalidateReadCaches()
		utils.Success(ctx, likes)
	}
}
