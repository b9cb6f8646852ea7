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
	"github.com/aedi/aedi/utils"
)

const (
	suggestedSampleSize = 10
	suggestedLimit      = 4
	searchLimit         = 20
)

// UserService owns accounts and the follow graph.
type UserService struct {
	db *gorm.DB
}

// NewUserService returns a UserService backed by db.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// SignupInput carries a local account registration.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup validates and creates a local account.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := checkUsername(in.Username); err != nil {
		return nil, err
	}
	if err := checkEmail(in.Email); err != nil {
		return nil, err
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := ensureIdentityFree(db, 0, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Username: in.Username, Email: in.Email, PasswordHash: hash, Provider: "local"}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent signup
			if cerr := ensureIdentityFree(db, 0, in.Username, in.Email); cerr != nil {
				return nil, cerr
			}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.Signups.WithLabelValues("local").Inc()
	if err := hydrateUser(db, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks a username/password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if err := hydrateUser(s.db.WithContext(ctx), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the hydrated account of id.
func (s *UserService) Me(ctx context.Context, id uint) (*models.User, error) {
	db := s.db.WithContext(ctx)
	user, err := findUser(db, id)
	if err != nil {
		return nil, err
	}
	if err := hydrateUser(db, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Profile returns the hydrated public profile of username.
func (s *UserService) Profile(ctx context.Context, username string) (*models.User, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(msgUserNotFound)
		}
		return nil, err
	}
	if err := hydrateUser(db, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FollowToggle flips whether actor follows target and reports the new state.
// Following emits a follow notification; unfollowing emits nothing.
func (s *UserService) FollowToggle(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == targetID {
		return false, validationError("You cannot follow yourself")
	}
	var following bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, targetID); err != nil {
			return err
		}
		if _, err := findUser(tx, actorID); err != nil {
			return err
		}

		res := tx.Where("follower_id = ? AND following_id = ?", actorID, targetID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			following = false
			return nil
		}

		edge := models.Follow{FollowerID: actorID, FollowingID: targetID}
		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
		if res.Error != nil {
			return res.Error
		}
		following = true
		if res.RowsAffected == 0 {
			return nil
		}
		return notify(tx, actorID, targetID, models.NotifyFollow, nil)
	})
	if err != nil {
		return false, err
	}
	if following {
		metrics.Record(metrics.ActionFollow)
	} else {
		metrics.Record(metrics.ActionUnfollow)
	}
	return following, nil
}

// Suggested samples up to ten other users at random, drops the ones actor
// already follows and keeps at most four.
func (s *UserService) Suggested(ctx context.Context, actorID uint) ([]models.User, error) {
	db := s.db.WithContext(ctx)
	if _, err := findUser(db, actorID); err != nil {
		return nil, err
	}
	followed, err := followingIDs(db, actorID)
	if err != nil {
		return nil, err
	}

	var sample []models.User
	if err := db.Where("id <> ?", actorID).
		Order(randomOrder(db)).
		Limit(suggestedSampleSize).
		Find(&sample).Error; err != nil {
		return nil, err
	}

	out := make([]models.User, 0, suggestedLimit)
	for _, u := range sample {
		if utils.ContainsUint(followed, u.ID) {
			continue
		}
		out = append(out, u)
		if len(out) == suggestedLimit {
			break
		}
	}
	if err := hydrateUsers(db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func randomOrder(db *gorm.DB) string {
	if db.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}

// UpdateProfileInput lists the optional profile changes. Empty fields are left untouched.
type UpdateProfileInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	ProfileImg      string `json:"profileImg"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UpdateProfile applies in to the account of actorID.
func (s *UserService) UpdateProfile(ctx context.Context, actorID uint, in UpdateProfileInput) (*models.User, error) {
	db := s.db.WithContext(ctx)
	user, err := findUser(db, actorID)
	if err != nil {
		return nil, err
	}

	if (in.CurrentPassword == "") != (in.NewPassword == "") {
		return nil, validationError("Please enter both current and new password")
	}
	if in.CurrentPassword != "" {
		if !utils.CheckPassword(user.PasswordHash, in.CurrentPassword) {
			return nil, validationError("Current password does not match")
		}
		if err := checkPassword(in.NewPassword); err != nil {
			return nil, err
		}
		hash, err := utils.HashPassword(in.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username != "" && username != user.Username {
		if err := checkUsername(username); err != nil {
			return nil, err
		}
	} else {
		username = ""
	}
	if email != "" && email != user.Email {
		if err := checkEmail(email); err != nil {
			return nil, err
		}
	} else {
		email = ""
	}
	if err := ensureIdentityFree(db, user.ID, username, email); err != nil {
		return nil, err
	}
	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if img := strings.TrimSpace(in.ProfileImg); img != "" {
		if validate.Var(img, "url") != nil {
			return nil, validationError("Invalid profile image URL")
		}
		user.ProfileImg = img
	}

	if err := db.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if cerr := ensureIdentityFree(db, user.ID, username, email); cerr != nil {
				return nil, cerr
			}
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := hydrateUser(db, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Search returns up to twenty users whose username contains q, ignoring case.
func (s *UserService) Search(ctx context.Context, q string) ([]models.UserSummary, error) {
	q = strings.TrimSpace(q)
	out := []models.UserSummary{}
	if q == "" {
		return out, nil
	}
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(q))+"%").
		Order("username ASC").
		Limit(searchLimit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// DeleteAccount removes targetID and everything that references it. Only the
// account owner may do so. Likes the user gave are withdrawn from the
// receivers' totalNice like an unlike would.
func (s *UserService) DeleteAccount(ctx context.Context, actorID, targetID uint) error {
	if actorID != targetID {
		return forbiddenError("You can only delete your own account")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, targetID); err != nil {
			return err
		}

		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("user_id = ?", targetID).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		var adaptationIDs []uint
		if err := tx.Model(&models.Adaptation{}).
			Where("user_id = ? OR post_id IN ?", targetID, nonNil(postIDs)).
			Pluck("id", &adaptationIDs).Error; err != nil {
			return err
		}

		// receivers of likes this user gave on content that survives
		var receivers []uint
		if err := tx.Table("post_likes").
			Joins("JOIN posts ON posts.id = post_likes.post_id").
			Where("post_likes.user_id = ? AND posts.user_id <> ?", targetID, targetID).
			Pluck("posts.user_id", &receivers).Error; err != nil {
			return err
		}
		var adaptationReceivers []uint
		q := tx.Table("adaptation_likes").
			Joins("JOIN adaptations ON adaptations.id = adaptation_likes.adaptation_id").
			Where("adaptation_likes.user_id = ?", targetID)
		if len(adaptationIDs) > 0 {
			q = q.Where("adaptations.id NOT IN ?", adaptationIDs)
		}
		if err := q.Pluck("adaptations.user_id", &adaptationReceivers).Error; err != nil {
			return err
		}
		if err := withdrawNice(tx, append(receivers, adaptationReceivers...)); err != nil {
			return err
		}

		steps := []struct {
			model interface{}
			query string
			args  []interface{}
		}{
			{&models.AdaptationLike{}, "user_id = ? OR adaptation_id IN ?", []interface{}{targetID, nonNil(adaptationIDs)}},
			{&models.Adaptation{}, "id IN ?", []interface{}{nonNil(adaptationIDs)}},
			{&models.PostLike{}, "user_id = ? OR post_id IN ?", []interface{}{targetID, nonNil(postIDs)}},
			{&models.Post{}, "user_id = ?", []interface{}{targetID}},
			{&models.Follow{}, "follower_id = ? OR following_id = ?", []interface{}{targetID, targetID}},
			{&models.Notification{}, "from_id = ? OR to_id = ?", []interface{}{targetID, targetID}},
			{&models.User{}, "id = ?", []interface{}{targetID}},
		}
		for _, st := range steps {
			if err := tx.Where(st.query, st.args...).Delete(st.model).Error; err != nil {
				return fmt.Errorf("delete %T: %w", st.model, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.Record(metrics.ActionDeleteAccount)
	return nil
}

// OAuthProfile is the identity returned by a third-party provider.
type OAuthProfile struct {
	ID        string
	Username  string
	Email     string
	AvatarURL string
}

// FindOrCreateOAuthUser resolves the local account linked to a provider identity,
// creating one with a unique username on first login.
func (s *UserService) FindOrCreateOAuthUser(ctx context.Context, provider string, p OAuthProfile) (*models.User, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", provider, p.ID).First(&user).Error
	switch {
	case err == nil:
		if p.AvatarURL != "" && user.ProfileImg == "" {
			user.ProfileImg = p.AvatarURL
			if err := db.Model(&user).Update("profile_img", p.AvatarURL).Error; err != nil {
				utils.Sugar.Warnw("oauth avatar update failed", "user_id", user.ID, "error", err)
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		email := strings.ToLower(strings.TrimSpace(p.Email))
		if email == "" || !ValidEmail(email) || emailTaken(db, email) {
			email = fmt.Sprintf("%s_%s@users.noreply.aedi", provider, p.ID)
		}
		user = models.User{
			Username:   ensureUniqueUsername(db, p.Username, provider, p.ID),
			Email:      email,
			Provider:   provider,
			ProviderID: p.ID,
			ProfileImg: p.AvatarURL,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create oauth user: %w", err)
		}
		metrics.Signups.WithLabelValues(provider).Inc()
	default:
		return nil, err
	}
	if err := hydrateUser(db, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func emailTaken(db *gorm.DB, email string) bool {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return true
	}
	return count > 0
}

// sanitizeUsername keeps lowercase letters and digits and folds separators to '_'.
func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var builder strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}

func ensureUniqueUsername(db *gorm.DB, base, provider, id string) string {
	base = sanitizeUsername(base)
	if len(base) < 3 {
		base = sanitizeUsername(fmt.Sprintf("%s_%s", provider, id))
	}
	if len(base) > 56 {
		base = base[:56]
	}

	candidate := base
	for suffix := 1; ; suffix++ {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil || count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
}

// ensureIdentityFree reports a Conflict when username or email (either may be
// empty to skip it) belongs to a user other than selfID.
func ensureIdentityFree(db *gorm.DB, selfID uint, username, email string) error {
	if username != "" {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ? AND id <> ?", username, selfID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflictError("Username already in use")
		}
	}
	if email != "" {
		var count int64
		if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, selfID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflictError("Email already in use")
		}
	}
	return nil
}

func findUser(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError(msgUserNotFound)
		}
		return nil, err
	}
	return &user, nil
}
