package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aedi/aedi/metrics"
	"github.com/aedi/aedi/models"
)

// PostService owns posts, their adaptations and every like-set.
// Each mutation runs in one transaction together with its notification and
// totalNice change.
type PostService struct {
	db *gorm.DB
}

// NewPostService returns a PostService backed by db.
func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// CreatePost stores a new post owned by actorID.
func (s *PostService) CreatePost(ctx context.Context, actorID uint, text string) (*models.Post, error) {
	db := s.db.WithContext(ctx)
	if _, err := findUser(db, actorID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError(msgPostNeedsText)
	}
	post := models.Post{UserID: actorID, Text: text}
	if err := db.Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	metrics.Record(metrics.ActionPost)
	return s.hydrated(db, post.ID)
}

// DeletePost removes a post with its likes, adaptations and adaptation likes.
// Notifications that mention the post are kept.
func (s *PostService) DeletePost(ctx context.Context, actorID, postID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := findPost(tx, postID)
		if err != nil {
			return err
		}
		if post.UserID != actorID {
			return forbiddenError("You are not authorized to delete this post")
		}
		var adaptationIDs []uint
		if err := tx.Model(&models.Adaptation{}).Where("post_id = ?", postID).Pluck("id", &adaptationIDs).Error; err != nil {
			return err
		}
		if len(adaptationIDs) > 0 {
			if err := tx.Where("adaptation_id IN ?", adaptationIDs).Delete(&models.AdaptationLike{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Adaptation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, postID).Error
	})
	if err != nil {
		return err
	}
	metrics.Record(metrics.ActionDeletePost)
	return nil
}

// GetPost returns one hydrated post.
func (s *PostService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	return s.hydrated(s.db.WithContext(ctx), postID)
}

// AllPosts returns every post, newest first.
func (s *PostService) AllPosts(ctx context.Context) ([]models.Post, error) {
	return s.feed(s.db.WithContext(ctx))
}

// FollowingPosts returns posts by the users actorID follows, newest first.
func (s *PostService) FollowingPosts(ctx context.Context, actorID uint) ([]models.Post, error) {
	db := s.db.WithContext(ctx)
	if _, err := findUser(db, actorID); err != nil {
		return nil, err
	}
	following, err := followingIDs(db, actorID)
	if err != nil {
		return nil, err
	}
	if len(following) == 0 {
		return []models.Post{}, nil
	}
	return s.feed(db.Where("user_id IN ?", following))
}

// UserPosts returns the posts of username, newest first.
func (s *PostService) UserPosts(ctx context.Context, username string) ([]models.Post, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(msgUserNotFound)
		}
		return nil, err
	}
	return s.feed(db.Where("user_id = ?", user.ID))
}

func (s *PostService) feed(q *gorm.DB) ([]models.Post, error) {
	posts := []models.Post{}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := hydratePosts(q.Session(&gorm.Session{NewDB: true}), posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) hydrated(db *gorm.DB, postID uint) (*models.Post, error) {
	post, err := findPost(db, postID)
	if err != nil {
		return nil, err
	}
	posts := []models.Post{*post}
	if err := hydratePosts(db, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// TogglePostLike likes or unlikes a post for actorID and returns the resulting like-set.
func (s *PostService) TogglePostLike(ctx context.Context, actorID, postID uint) ([]uint, error) {
	var (
		likes []uint
		liked bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := findPost(tx, postID)
		if err != nil {
			return err
		}
		res := tx.Where("post_id = ? AND user_id = ?", postID, actorID).Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := withdrawNice(tx, []uint{post.UserID}); err != nil {
				return err
			}
		} else {
			res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PostLike{PostID: postID, UserID: actorID})
			if res.Error != nil {
				return res.Error
			}
			liked = true
			if res.RowsAffected > 0 {
				if err := grantNice(tx, post.UserID); err != nil {
					return err
				}
				if err := notify(tx, actorID, post.UserID, models.NotifyLike, &post.ID); err != nil {
					return err
				}
			}
		}
		return tx.Model(&models.PostLike{}).Where("post_id = ?", postID).Order("id ASC").Pluck("user_id", &likes).Error
	})
	if err != nil {
		return nil, err
	}
	if liked {
		metrics.Record(metrics.ActionLike)
	} else {
		metrics.Record(metrics.ActionUnlike)
	}
	return nonNil(likes), nil
}

// AppendAdaptation adds an edit or continuation by actorID to a post and
// notifies the post owner. It returns the updated post.
func (s *PostService) AppendAdaptation(ctx context.Context, actorID, postID uint, kind models.AdaptationKind, text string) (*models.Post, error) {
	if !kind.Valid() {
		return nil, validationError(fmt.Sprintf("unknown adaptation kind %q", kind))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError(msgPostNeedsText)
	}
	db := s.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		post, err := findPost(tx, postID)
		if err != nil {
			return err
		}
		if _, err := findUser(tx, actorID); err != nil {
			return err
		}
		a := models.Adaptation{PostID: post.ID, Kind: kind, UserID: actorID, Text: text}
		if err := tx.Create(&a).Error; err != nil {
			return fmt.Errorf("create adaptation: %w", err)
		}
		return notify(tx, actorID, post.UserID, appendNotification(kind), &post.ID)
	})
	if err != nil {
		return nil, err
	}
	if kind == models.KindEdit {
		metrics.Record(metrics.ActionEdit)
	} else {
		metrics.Record(metrics.ActionNext)
	}
	return s.hydrated(db, postID)
}

// GetAdaptation returns one adaptation of the given kind with its author and likes.
func (s *PostService) GetAdaptation(ctx context.Context, id uint, kind models.AdaptationKind) (*models.Adaptation, error) {
	db := s.db.WithContext(ctx)
	a, err := findAdaptation(db, id, kind)
	if err != nil {
		return nil, err
	}
	list := []models.Adaptation{*a}
	if err := hydrateAdaptations(db, list); err != nil {
		return nil, err
	}
	users, err := usersByID(db, []uint{a.UserID})
	if err != nil {
		return nil, err
	}
	list[0].User = users[a.UserID]
	return &list[0], nil
}

// RemoveAdaptation deletes an adaptation and its likes. Only its author or
// the owner of its post may do so.
func (s *PostService) RemoveAdaptation(ctx context.Context, actorID, id uint, kind models.AdaptationKind) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := findAdaptation(tx, id, kind)
		if err != nil {
			return err
		}
		if a.UserID != actorID {
			post, err := findPost(tx, a.PostID)
			if err != nil {
				return err
			}
			if post.UserID != actorID {
				return forbiddenError("You are not authorized to delete this " + adaptationLabel(kind))
			}
		}
		if err := tx.Where("adaptation_id = ?", a.ID).Delete(&models.AdaptationLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Adaptation{}, a.ID).Error
	})
	if err != nil {
		return err
	}
	metrics.Record(metrics.ActionDeleteAdapt)
	return nil
}

// ToggleAdaptationLike likes or unlikes an adaptation and returns its resulting like-set.
func (s *PostService) ToggleAdaptationLike(ctx context.Context, actorID, id uint, kind models.AdaptationKind) ([]uint, error) {
	var (
		likes []uint
		liked bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := findAdaptation(tx, id, kind)
		if err != nil {
			return err
		}
		res := tx.Where("adaptation_id = ? AND user_id = ?", a.ID, actorID).Delete(&models.AdaptationLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := withdrawNice(tx, []uint{a.UserID}); err != nil {
				return err
			}
		} else {
			res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.AdaptationLike{AdaptationID: a.ID, UserID: actorID})
			if res.Error != nil {
				return res.Error
			}
			liked = true
			if res.RowsAffected > 0 {
				if err := grantNice(tx, a.UserID); err != nil {
					return err
				}
				if err := notify(tx, actorID, a.UserID, likeNotification(kind), &a.PostID); err != nil {
					return err
				}
			}
		}
		return tx.Model(&models.AdaptationLike{}).Where("adaptation_id = ?", a.ID).Order("id ASC").Pluck("user_id", &likes).Error
	})
	if err != nil {
		return nil, err
	}
	switch {
	case kind == models.KindEdit && liked:
		metrics.Record(metrics.ActionLikeEdit)
	case kind == models.KindEdit:
		metrics.Record(metrics.ActionUnlikeEdit)
	case liked:
		metrics.Record(metrics.ActionLikeNext)
	default:
		metrics.Record(metrics.ActionUnlikeNext)
	}
	return nonNil(likes), nil
}

func appendNotification(kind models.AdaptationKind) models.NotificationType {
	if kind == models.KindEdit {
		return models.NotifyEdit
	}
	return models.NotifyContinuation
}

func likeNotification(kind models.AdaptationKind) models.NotificationType {
	if kind == models.KindEdit {
		return models.NotifyLikeEdit
	}
	return models.NotifyLikeContinuation
}

func adaptationLabel(kind models.AdaptationKind) string {
	if kind == models.KindEdit {
		return "AdaptEdit"
	}
	return "AdaptNext"
}

func findPost(db *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	if err := db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(msgPostNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func findAdaptation(db *gorm.DB, id uint, kind models.AdaptationKind) (*models.Adaptation, error) {
	if !kind.Valid() {
		return nil, validationError(fmt.Sprintf("unknown adaptation kind %q", kind))
	}
	var a models.Adaptation
	if err := db.Where("id = ? AND kind = ?", id, kind).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(adaptationLabel(kind) + " not found")
		}
		return nil, err
	}
	return &a, nil
}

func notify(tx *gorm.DB, from, to uint, typ models.NotificationType, postID *uint) error {
	n := models.Notification{FromID: from, ToID: to, Type: typ, PostID: postID}
	if err := tx.Create(&n).Error; err != nil {
		return fmt.Errorf("create %s notification: %w", typ, err)
	}
	return nil
}

func grantNice(tx *gorm.DB, userID uint) error {
	return tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("total_nice", gorm.Expr("total_nice + 1")).Error
}

// withdrawNice takes one nice away from each listed user (repeats count), floored at zero.
func withdrawNice(tx *gorm.DB, userIDs []uint) error {
	counts := make(map[uint]int, len(userIDs))
	for _, id := range userIDs {
		counts[id]++
	}
	for id, n := range counts {
		err := tx.Model(&models.User{}).Where("id = ?", id).
			UpdateColumn("total_nice", gorm.Expr("CASE WHEN total_nice > ? THEN total_nice - ? ELSE 0 END", n, n)).Error
		if err != nil {
			return err
		}
	}
	return nil
}
