package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/aedi/aedi/models"
)

// NotificationService serves a recipient's notification inbox.
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService returns a NotificationService backed by db.
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// List returns the recipient's notifications newest first with the sender
// resolved. Fetching marks exactly the returned rows read; the returned
// values keep the read flag they had before the fetch.
func (s *NotificationService) List(ctx context.Context, recipientID uint) ([]models.Notification, error) {
	list := []models.Notification{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("to_id = ?", recipientID).
			Order("created_at DESC").Order("id DESC").
			Find(&list).Error; err != nil {
			return err
		}
		if len(list) == 0 {
			return nil
		}

		senders := make([]uint, 0, len(list))
		var unread []uint
		for _, n := range list {
			senders = append(senders, n.FromID)
			if !n.Read {
				unread = append(unread, n.ID)
			}
		}

		users, err := usersByID(tx, senders)
		if err != nil {
			return err
		}
		for i := range list {
			if u, ok := users[list[i].FromID]; ok {
				summary := u.Summary()
				list[i].From = &summary
			}
		}

		if len(unread) == 0 {
			return nil
		}
		return tx.Model(&models.Notification{}).Where("id IN ?", unread).Update("is_read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UnreadCount returns how many of the recipient's notifications are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("to_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkAllRead marks every notification of the recipient read.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("to_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true).Error
}

// DeleteAll removes every notification addressed to the recipient.
func (s *NotificationService) DeleteAll(ctx context.Context, recipientID uint) error {
	return s.db.WithContext(ctx).Where("to_id = ?", recipientID).Delete(&models.Notification{}).Error
}

// Delete removes one notification. Only its recipient may do so.
func (s *NotificationService) Delete(ctx context.Context, recipientID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n models.Notification
		if err := tx.First(&n, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError(msgNotificationNotFound)
			}
			return err
		}
		if n.ToID != recipientID {
			return forbiddenError("Unauthorized")
		}
		return tx.Delete(&n).Error
	})
}
