package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aedi/aedi/middleware"
	"github.com/aedi/aedi/services"
	"github.com/aedi/aedi/utils"
)

// NotificationController serves the caller's notification inbox.
type NotificationController struct {
	notifications *services.NotificationService
}

// NewNotificationController creates a new NotificationController instance.
func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{notifications: services.NewNotificationService(db)}
}

// List returns the inbox newest first and marks the returned entries read.
func (n *NotificationController) List(ctx *gin.Context) {
	list, err := n.notifications.List(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		respondError(ctx, err, "list_notifications")
		return
	}
	utils.Success(ctx, list)
}

// UnreadCount returns the number of unread notifications.
func (n *NotificationController) UnreadCount(ctx *gin.Context) {
	count, err := n.notifications.UnreadCount(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		respondError(ctx, err, "unread_count")
		return
	}
	utils.Success(ctx, gin.H{"count": count})
}

// MarkAllRead marks the whole inbox read.
func (n *NotificationController) MarkAllRead(ctx *gin.Context) {
	if err := n.notifications.MarkAllRead(ctx.Request.Context(), middleware.CurrentUserID(ctx)); err != nil {
		respondError(ctx, err, "mark_read")
		return
	}
	utils.Message(ctx, "All notifications marked as read", nil)
}

// DeleteAll empties the inbox.
func (n *NotificationController) DeleteAll(ctx *gin.Context) {
	if err := n.notifications.DeleteAll(ctx.Request.Context(), middleware.CurrentUserID(ctx)); err != nil {
		respondError(ctx, err, "delete_notifications")
		return
	}
	utils.Message(ctx, "Notifications deleted", nil)
}

// Delete removes one notification addressed to the caller.
func (n *NotificationController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := n.notifications.Delete(ctx.Request.Context(), middleware.CurrentUserID(ctx), id); err != nil {
		respondError(ctx, err, "delete_notification")
		return
	}
	utils.Message(ctx, "Notification deleted", nil)
}
