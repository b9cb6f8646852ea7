package services

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aedi/aedi/models"
)

func TestCreatePost(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	a := mustUser(t, db, "alice")

	post, err := svc.CreatePost(bg, a.ID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", post.Text)
	assert.Equal(t, "alice", post.User.Username)
	assert.NotNil(t, post.Likes)
	assert.Empty(t, post.AdaptEdits)
	assert.Empty(t, post.AdaptNexts)

	_, err = svc.CreatePost(bg, a.ID, " \n\t ")
	requireKind(t, err, KindValidation, "Post must have text")

	t.Run("angle brackets are stored verbatim", func(t *testing.T) {
		for _, text := range []string{"x<y and y>z", "<hello>", "<b>bold</b> & <script>x</script>", "&lt;img&gt;"} {
			created, err := svc.CreatePost(bg, a.ID, text)
			require.NoError(t, err, text)
			assert.Equal(t, text, created.Text)

			fetched, err := svc.GetPost(bg, created.ID)
			require.NoError(t, err)
			assert.Equal(t, text, fetched.Text)
		}

		withEdit, err := svc.AppendAdaptation(bg, a.ID, post.ID, models.KindEdit, "a<b")
		require.NoError(t, err)
		assert.Equal(t, "a<b", withEdit.AdaptEdits[0].Text)
	})

	_, err = svc.CreatePost(bg, 9999, "orphan")
	requireKind(t, err, KindNotFound, "User not found")
}

func TestTogglePostLike(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	a := mustUser(t, db, "alice")
	b := mustUser(t, db, "bob")
	c := mustUser(t, db, "carol")
	post := mustPost(t, db, a.ID, "hello")

	likes, err := svc.TogglePostLike(bg, b.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, likes)
	likes, err = svc.TogglePostLike(bg, c.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, c.ID}, likes)
	assert.Equal(t, 2, reload(t, db, a.ID).TotalNice)

	notes := notificationsOf(t, db, a.ID)
	require.Len(t, notes, 2)
	assert.Equal(t, models.NotifyLike, notes[0].Type)
	require.NotNil(t, notes[0].PostID)
	assert.Equal(t, post.ID, *notes[0].PostID)

	likes, err = svc.TogglePostLike(bg, b.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{c.ID}, likes)
	assert.Equal(t, 1, reload(t, db, a.ID).TotalNice)
	assert.Len(t, notificationsOf(t, db, a.ID), 2, "unlike does not notify")

	bob, err := NewUserService(db).Me(bg, b.ID)
	require.NoError(t, err)
	assert.Empty(t, bob.LikedPosts)
	carol, err := NewUserService(db).Me(bg, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{post.ID}, carol.LikedPosts)

	t.Run("self like counts", func(t *testing.T) {
		_, err := svc.TogglePostLike(bg, a.ID, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, reload(t, db, a.ID).TotalNice)
		notes := notificationsOf(t, db, a.ID)
		assert.Equal(t, a.ID, notes[len(notes)-1].FromID)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := svc.TogglePostLike(bg, b.ID, 9999)
		requireKind(t, err, KindNotFound, "Post not found")
	})

	t.Run("nice never goes negative", func(t *testing.T) {
		require.NoError(t, db.Model(&models.User{}).Where("id = ?", a.ID).Update("total_nice", 0).Error)
		_, err := svc.TogglePostLike(bg, c.ID, post.ID)
		require.NoError(t, err)
		assert.Zero(t, reload(t, db, a.ID).TotalNice)
	})
}

func TestTogglePostLikeConcurrent(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	a := mustUser(t, db, "alice")
	b := mustUser(t, db, "bob")
	post := mustPost(t, db, a.ID, "hello")

	const workers = 9
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.TogglePostLike(bg, b.ID, post.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rows := count(t, db, &models.PostLike{}, "post_id = ? AND user_id = ?", post.ID, b.ID)
	assert.LessOrEqual(t, rows, int64(1))
	assert.EqualValues(t, rows, reload(t, db, a.ID).TotalNice)

	fetched, err := svc.GetPost(bg, post.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Likes, int(rows))
}

func TestAppendAdaptation(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	a := mustUser(t, db, "alice")
	b := mustUser(t, db, "bob")
	post := mustPost(t, db, a.ID, "root")

	got, err := svc.AppendAdaptation(bg, b.ID, post.ID, models.KindEdit, "first edit")
	require.NoError(t, err)
	_, err = svc.AppendAdaptation(bg, b.ID, post.ID, models.KindEdit, "second edit")
	require.NoError(t, err)
	got, err = svc.AppendAdaptation(bg, a.ID, post.ID, models.KindNext, "continued")
	require.NoError(t, err)

	require.Len(t, got.AdaptEdits, 2)
	assert.Equal(t, "first edit", got.AdaptEdits[0].Text)
	assert.Equal(t, "second edit", got.AdaptEdits[1].Text)
	assert.Equal(t, "bob", got.AdaptEdits[0].User.Username)
	assert.Empty(t, got.AdaptEdits[0].Likes)
	require.Len(t, got.AdaptNexts, 1)
	assert.Equal(t, "continued", got.AdaptNexts[0].Text)

	types := []models.NotificationType{}
	for _, n := range notificationsOf(t, db, a.ID) {
		types = append(types, n.Type)
	}
	assert.Equal(t, []models.NotificationType{models.NotifyEdit, models.NotifyEdit, models.NotifyContinuation}, types)

	bob, err := NewUserService(db).Me(bg, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{post.ID}, bob.AdaptEdits, "a post is listed once per contributor")
	assert.Empty(t, bob.AdaptNexts)

	_, err = svc.AppendAdaptation(bg, b.ID, post.ID, models.KindEdit, "  ")
	requireKind(t, err, KindValidation, "Post must have text")
	_, err = svc.AppendAdaptation(bg, b.ID, 9999, models.KindNext, "x")
	requireKind(t, err, KindNotFound, "Post not found")
	_, err = svc.AppendAdaptation(bg, b.ID, post.ID, models.AdaptationKind("bogus"), "x")
	requireKind(t, err, KindValidation, "")
}

func TestAdaptationLikeAndLookup(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	a := mustUser(t, db, "alice")
	b := mustUser(t, db, "bob")
	post := mustPost(t, db, a.ID, "root")
	withEdit, err := svc.AppendAdaptation(bg, b.ID, post.ID, models.KindEdit, "an edit")
	require.NoError(t, err)
	edit := withEdit.AdaptEdits[0]

	_, err = svc.GetAdaptation(bg, edit.ID, models.KindNext)
	requireKind(t, err, KindNotFound, "AdaptNext not found")

	likes, err := svc.ToggleAdaptationLike(bg, a.ID, edit.ID, models.KindEdit)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, likes)
	assert.Equal(t, 1, reload(t, db, b.ID).TotalNice)

	notes := notificationsOf(t, db, b.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyLikeEdit, notes[0].Type)

	fetched, err := svc.GetAdaptation(bg, edit.ID, models.KindEdit)
	require.NoError(t, err)
	assert.Equal(t, "an edit", fetched.Text)
	assert.Equal(t, "bob", fetched.User.Username)
	assert.Equal(t, []uint{a.ID}, fetched.Likes)

	likes, err = svc.ToggleAdaptationLike(bg, a.ID, edit.ID, models.KindEdit)
	require.NoError(t, err)
	assert.Empty(t, likes)
	assert.NotNil(t, likes)
	assert.Zero(t, reload(t, db, b.ID).TotalNice)

	_, err = svc.ToggleAdaptationLike(bg, a.ID, 9999, models.KindNext)
	requireKind(t, err, KindNotFound, "AdaptNext not found")
}

func TestRemoveAdaptation(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	owner := mustUser(t, db, "owner")
	author := mustUser(t, db, "author")
	stranger := mustUser(t, db, "stranger")
	post := mustPost(t, db, owner.ID, "root")

	add := func() models.Adaptation {
		p, err := svc.AppendAdaptation(bg, author.ID, post.ID, models.KindNext, "more")
		require.NoError(t, err)
		return p.AdaptNexts[len(p.AdaptNexts)-1]
	}

	first := add()
	_, err := svc.ToggleAdaptationLike(bg, stranger.ID, first.ID, models.KindNext)
	require.NoError(t, err)

	err = svc.RemoveAdaptation(bg, stranger.ID, first.ID, models.KindNext)
	requireKind(t, err, KindForbidden, "You are not authorized to delete this AdaptNext")
	err = svc.RemoveAdaptation(bg, author.ID, first.ID, models.KindEdit)
	requireKind(t, err, KindNotFound, "AdaptEdit not found")

	require.NoError(t, svc.RemoveAdaptation(bg, author.ID, first.ID, models.KindNext))
	assert.Zero(t, count(t, db, &models.AdaptationLike{}, "adaptation_id = ?", first.ID))
	assert.Equal(t, 1, reload(t, db, author.ID).TotalNice, "removal keeps earned nice")

	second := add()
	require.NoError(t, svc.RemoveAdaptation(bg, owner.ID, second.ID, models.KindNext))

	remaining, err := svc.GetPost(bg, post.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining.AdaptNexts)
}

func TestDeletePost(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	a := mustUser(t, db, "alice")
	b := mustUser(t, db, "bob")
	post := mustPost(t, db, a.ID, "root")
	_, err := svc.TogglePostLike(bg, b.ID, post.ID)
	require.NoError(t, err)
	withEdit, err := svc.AppendAdaptation(bg, b.ID, post.ID, models.KindEdit, "edit")
	require.NoError(t, err)
	_, err = svc.ToggleAdaptationLike(bg, a.ID, withEdit.AdaptEdits[0].ID, models.KindEdit)
	require.NoError(t, err)

	requireKind(t, svc.DeletePost(bg, b.ID, post.ID), KindForbidden, "You are not authorized to delete this post")
	require.NoError(t, svc.DeletePost(bg, a.ID, post.ID))

	_, err = svc.GetPost(bg, post.ID)
	requireKind(t, err, KindNotFound, "Post not found")
	assert.Zero(t, count(t, db, &models.PostLike{}, "post_id = ?", post.ID))
	assert.Zero(t, count(t, db, &models.Adaptation{}, "post_id = ?", post.ID))
	assert.Zero(t, count(t, db, &models.AdaptationLike{}, "1 = 1"))

	assert.Len(t, notificationsOf(t, db, a.ID), 2, "notifications survive the post")
	assert.Equal(t, 1, reload(t, db, a.ID).TotalNice)
	assert.Equal(t, 1, reload(t, db, b.ID).TotalNice)

	bob, err := NewUserService(db).Me(bg, b.ID)
	require.NoError(t, err)
	assert.Empty(t, bob.LikedPosts)
	assert.Empty(t, bob.AdaptEdits)

	requireKind(t, svc.DeletePost(bg, a.ID, post.ID), KindNotFound, "Post not found")
}

func TestFeeds(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	users := NewUserService(db)
	a := mustUser(t, db, "alice")
	b := mustUser(t, db, "bob")
	c := mustUser(t, db, "carol")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	create := func(owner uint, text string, at time.Time) models.Post {
		p := models.Post{UserID: owner, Text: text, CreatedAt: at}
		require.NoError(t, db.Create(&p).Error)
		return p
	}
	oldest := create(b.ID, "oldest", base)
	middle := create(c.ID, "middle", base.Add(time.Hour))
	tieLow := create(b.ID, "tie low", base.Add(2*time.Hour))
	tieHigh := create(b.ID, "tie high", base.Add(2*time.Hour))

	ids := func(posts []models.Post) []uint {
		out := []uint{}
		for _, p := range posts {
			out = append(out, p.ID)
		}
		return out
	}

	all, err := svc.AllPosts(bg)
	require.NoError(t, err)
	assert.Equal(t, []uint{tieHigh.ID, tieLow.ID, middle.ID, oldest.ID}, ids(all))
	assert.Equal(t, "bob", all[0].User.Username)

	following, err := svc.FollowingPosts(bg, a.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
	assert.NotNil(t, following)

	_, err = users.FollowToggle(bg, a.ID, b.ID)
	require.NoError(t, err)
	following, err = svc.FollowingPosts(bg, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{tieHigh.ID, tieLow.ID, oldest.ID}, ids(following))

	mine, err := svc.UserPosts(bg, "carol")
	require.NoError(t, err)
	assert.Equal(t, []uint{middle.ID}, ids(mine))

	none, err := svc.UserPosts(bg, "alice")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.UserPosts(bg, "nobody")
	requireKind(t, err, KindNotFound, "User not found")
}

func TestNestedUsersCarryDerivedLists(t *testing.T) {
	db := newTestDB(t)
	svc := NewPostService(db)
	a := mustUser(t, db, "alice")
	b := mustUser(t, db, "bob")
	post := mustPost(t, db, a.ID, "root")

	_, err := NewUserService(db).FollowToggle(bg, b.ID, a.ID)
	require.NoError(t, err)
	_, err = svc.TogglePostLike(bg, b.ID, post.ID)
	require.NoError(t, err)
	_, err = svc.AppendAdaptation(bg, b.ID, post.ID, models.KindEdit, "edit")
	require.NoError(t, err)

	got, err := svc.GetPost(bg, post.ID)
	require.NoError(t, err)
	owner := got.User
	assert.Equal(t, []uint{b.ID}, owner.Followers)
	assert.Equal(t, []uint{}, owner.Following)
	assert.Equal(t, []uint{}, owner.LikedPosts)

	require.Len(t, got.AdaptEdits, 1)
	author := got.AdaptEdits[0].User
	assert.Equal(t, []uint{a.ID}, author.Following)
	assert.Equal(t, []uint{post.ID}, author.LikedPosts)
	assert.Equal(t, []uint{post.ID}, author.AdaptEdits)
	assert.Equal(t, []uint{}, author.AdaptNexts)

	feed, err := svc.AllPosts(bg)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, []uint{b.ID}, feed[0].User.Followers)

	raw, err := json.Marshal(feed)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "null")
}
