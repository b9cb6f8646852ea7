package services

import (
	"gorm.io/gorm"

	"github.com/aedi/aedi/models"
	"github.com/aedi/aedi/utils"
)

// hydratePosts fills owners, like-sets and both adaptation sequences in a
// fixed number of queries regardless of len(posts).
func hydratePosts(tx *gorm.DB, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	postIDs := make([]uint, 0, len(posts))
	userIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		userIDs = append(userIDs, p.UserID)
	}

	var likes []models.PostLike
	if err := tx.Where("post_id IN ?", postIDs).Order("id ASC").Find(&likes).Error; err != nil {
		return err
	}
	likesByPost := make(map[uint][]uint, len(posts))
	for _, l := range likes {
		likesByPost[l.PostID] = append(likesByPost[l.PostID], l.UserID)
	}

	var adaptations []models.Adaptation
	if err := tx.Where("post_id IN ?", postIDs).Order("id ASC").Find(&adaptations).Error; err != nil {
		return err
	}
	if err := hydrateAdaptations(tx, adaptations); err != nil {
		return err
	}
	for _, a := range adaptations {
		userIDs = append(userIDs, a.UserID)
	}

	users, err := usersByID(tx, userIDs)
	if err != nil {
		return err
	}

	edits := make(map[uint][]models.Adaptation)
	nexts := make(map[uint][]models.Adaptation)
	for _, a := range adaptations {
		a.User = users[a.UserID]
		if a.Kind == models.KindEdit {
			edits[a.PostID] = append(edits[a.PostID], a)
		} else {
			nexts[a.PostID] = append(nexts[a.PostID], a)
		}
	}

	for i := range posts {
		p := &posts[i]
		p.User = users[p.UserID]
		p.Likes = nonNil(likesByPost[p.ID])
		p.AdaptEdits = edits[p.ID]
		if p.AdaptEdits == nil {
			p.AdaptEdits = []models.Adaptation{}
		}
		p.AdaptNexts = nexts[p.ID]
		if p.AdaptNexts == nil {
			p.AdaptNexts = []models.Adaptation{}
		}
	}
	return nil
}

// hydrateAdaptations fills the like-set of each adaptation.
func hydrateAdaptations(tx *gorm.DB, adaptations []models.Adaptation) error {
	if len(adaptations) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(adaptations))
	for _, a := range adaptations {
		ids = append(ids, a.ID)
	}
	var likes []models.AdaptationLike
	if err := tx.Where("adaptation_id IN ?", ids).Order("id ASC").Find(&likes).Error; err != nil {
		return err
	}
	byAdaptation := make(map[uint][]uint, len(adaptations))
	for _, l := range likes {
		byAdaptation[l.AdaptationID] = append(byAdaptation[l.AdaptationID], l.UserID)
	}
	for i := range adaptations {
		adaptations[i].Likes = nonNil(byAdaptation[adaptations[i].ID])
	}
	return nil
}

// usersByID loads the given users with their derived lists filled.
func usersByID(tx *gorm.DB, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := tx.Where("id IN ?", utils.UniqueUint(ids)).Find(&users).Error; err != nil {
		return nil, err
	}
	if err := hydrateUsers(tx, users); err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// hydrateUser loads the derived graph and engagement lists of u.
func hydrateUser(tx *gorm.DB, u *models.User) error {
	users := []models.User{*u}
	if err := hydrateUsers(tx, users); err != nil {
		return err
	}
	*u = users[0]
	return nil
}

// hydrateUsers fills followers, following, likedPosts, adaptEdits and
// adaptNexts of every user in a fixed number of queries. The adaptation
// lists hold distinct post ids in order of first contribution.
func hydrateUsers(tx *gorm.DB, users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(users))
	index := make(map[uint]int, len(users))
	for i := range users {
		ids = append(ids, users[i].ID)
		index[users[i].ID] = i
		users[i].Followers = []uint{}
		users[i].Following = []uint{}
		users[i].LikedPosts = []uint{}
		users[i].AdaptEdits = []uint{}
		users[i].AdaptNexts = []uint{}
	}

	var follows []models.Follow
	if err := tx.Where("follower_id IN ? OR following_id IN ?", ids, ids).
		Order("id ASC").Find(&follows).Error; err != nil {
		return err
	}
	for _, f := range follows {
		if i, ok := index[f.FollowingID]; ok {
			users[i].Followers = append(users[i].Followers, f.FollowerID)
		}
		if i, ok := index[f.FollowerID]; ok {
			users[i].Following = append(users[i].Following, f.FollowingID)
		}
	}

	var likes []models.PostLike
	if err := tx.Where("user_id IN ?", ids).Order("id ASC").Find(&likes).Error; err != nil {
		return err
	}
	for _, l := range likes {
		i := index[l.UserID]
		users[i].LikedPosts = append(users[i].LikedPosts, l.PostID)
	}

	var contributions []struct {
		UserID uint
		Kind   models.AdaptationKind
		PostID uint
	}
	if err := tx.Model(&models.Adaptation{}).
		Select("user_id, kind, post_id").
		Where("user_id IN ?", ids).
		Group("user_id, kind, post_id").
		Order("MIN(id) ASC").
		Scan(&contributions).Error; err != nil {
		return err
	}
	for _, c := range contributions {
		i := index[c.UserID]
		if c.Kind == models.KindEdit {
			users[i].AdaptEdits = append(users[i].AdaptEdits, c.PostID)
		} else {
			users[i].AdaptNexts = append(users[i].AdaptNexts, c.PostID)
		}
	}
	return nil
}

func followingIDs(tx *gorm.DB, userID uint) ([]uint, error) {
	var ids []uint
	err := tx.Model(&models.Follow{}).Where("follower_id = ?", userID).Pluck("following_id", &ids).Error
	return ids, err
}

func nonNil(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}
