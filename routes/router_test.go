package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aedi/aedi/config"
	"github.com/aedi/aedi/utils"
)

func TestMain(m *testing.M) {
	utils.PasswordCost = bcrypt.MinCost
	config.Set(config.AppConfig{
		JWTSecret:                  "router-secret",
		GinMode:                    "test",
		RateLimitPerMinute:         10000,
		AllowedOrigins:             []string{"*"},
		RegisterMaxPerIPPerDay:     -1,
		RegisterAttemptCooldownSec: -1,
	})
	os.Exit(m.Run())
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel:    "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return SetupRouter(db)
}

func (c *client) do(method, path string, body interface{}) (int, envelope) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name == utils.SessionCookieName {
			if ck.Value == "" {
				c.cookie = nil
			} else {
				c.cookie = ck
			}
		}
	}
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (c *client) signup(username string) uint {
	c.t.Helper()
	status, env := c.do(http.MethodPost, "/api/auth/signup", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "Secret1!x",
	})
	require.Equal(c.t, http.StatusCreated, status, env.Message)
	require.NotNil(c.t, c.cookie)
	var user struct {
		ID uint `json:"_id"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &user))
	return user.ID
}

func TestHealthAndNoRoute(t *testing.T) {
	r := newRouter(t)
	c := &client{t: t, router: r}

	status, env := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	status, env = c.do(http.MethodGet, "/api/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40400, env.Code)

	status, env = c.do(http.MethodGet, "/api/posts/all", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized: No Token Provided", env.Message)
}

func TestSocialFlow(t *testing.T) {
	r := newRouter(t)
	alice := &client{t: t, router: r}
	bob := &client{t: t, router: r}
	aliceID := alice.signup("alice")
	bobID := bob.signup("bob")

	status, env := alice.do(http.MethodPost, "/api/posts/create", gin.H{"text": "first post"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var post struct {
		ID   uint   `json:"_id"`
		Text string `json:"text"`
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &post))
	assert.Equal(t, "first post", post.Text)
	assert.Equal(t, "alice", post.User.Username)

	status, env = bob.do(http.MethodPost, fmt.Sprintf("/api/users/follow/%d", aliceID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Followed", env.Message)

	status, env = bob.do(http.MethodPost, fmt.Sprintf("/api/posts/like/%d", post.ID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, fmt.Sprintf("[%d]", bobID), string(env.Data))

	status, env = bob.do(http.MethodPost, fmt.Sprintf("/api/posts/adaptEdit/%d", post.ID), gin.H{"text": "an edit"})
	require.Equal(t, http.StatusOK, status, env.Message)
	var withEdit struct {
		AdaptEdits []struct {
			ID uint `json:"_id"`
		} `json:"adaptEdits"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &withEdit))
	require.Len(t, withEdit.AdaptEdits, 1)
	editID := withEdit.AdaptEdits[0].ID

	status, _ = bob.do(http.MethodGet, fmt.Sprintf("/api/posts/adaptEdits/%d", editID), nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = bob.do(http.MethodGet, fmt.Sprintf("/api/posts/adaptNexts/%d", editID), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "AdaptNext not found", env.Message)

	status, env = bob.do(http.MethodGet, "/api/posts/following", nil)
	require.Equal(t, http.StatusOK, status)
	var feed []struct {
		ID uint `json:"_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, post.ID, feed[0].ID)

	status, env = alice.do(http.MethodGet, "/api/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":3}`, string(env.Data))

	status, env = alice.do(http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, status)
	var notes []struct {
		Type string `json:"type"`
		Read bool   `json:"read"`
		From struct {
			Username string `json:"username"`
		} `json:"from"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	require.Len(t, notes, 3)
	assert.Equal(t, "edit", notes[0].Type)
	assert.Equal(t, "bob", notes[0].From.Username)
	assert.False(t, notes[0].Read)

	status, env = alice.do(http.MethodGet, "/api/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":0}`, string(env.Data))

	status, env = bob.do(http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, 40300, env.Code)

	status, env = alice.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, status)
	var me struct {
		TotalNice int    `json:"totalNice"`
		Followers []uint `json:"followers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, 1, me.TotalNice)
	assert.Equal(t, []uint{bobID}, me.Followers)

	status, env = alice.do(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, status)
	var stats map[string]int
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 2, stats["user_count"])
	assert.Equal(t, 1, stats["edit_count"])
}

func TestAuthFlow(t *testing.T) {
	r := newRouter(t)
	c := &client{t: t, router: r}
	c.signup("carol")

	status, env := c.do(http.MethodPost, "/api/auth/signup", gin.H{
		"username": "carol", "email": "other@example.com", "password": "Secret1!x",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40900, env.Code)
	assert.Equal(t, "Username already in use", env.Message)

	saved := c.cookie
	status, env = c.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logout successfully", env.Message)
	assert.Nil(t, c.cookie)

	c.cookie = saved
	status, env = c.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status, "revoked token is refused")
	assert.Equal(t, "Unauthorized: Token revoked", env.Message)

	c.cookie = nil
	status, env = c.do(http.MethodPost, "/api/auth/login", gin.H{"username": "carol", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid username or password", env.Message)

	for name, body := range map[string]gin.H{
		"empty password":   {"username": "carol", "password": ""},
		"missing password": {"username": "carol"},
		"empty body":       {},
	} {
		status, env = c.do(http.MethodPost, "/api/auth/login", body)
		assert.Equal(t, http.StatusBadRequest, status, name)
		assert.Equal(t, "Invalid username or password", env.Message, name)
	}

	status, _ = c.do(http.MethodPost, "/api/auth/login", gin.H{"username": "carol", "password": "Secret1!x"})
	assert.Equal(t, http.StatusCreated, status)
	require.NotNil(t, c.cookie)

	status, env = c.do(http.MethodGet, "/api/posts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid id", env.Message)
}

func TestPostTextRoundTrip(t *testing.T) {
	r := newRouter(t)
	c := &client{t: t, router: r}
	c.signup("dave")

	for _, text := range []string{"x<y and y>z", "<hello>"} {
		status, env := c.do(http.MethodPost, "/api/posts/create", gin.H{"text": text})
		require.Equal(t, http.StatusCreated, status, env.Message)
		var post struct {
			ID   uint   `json:"_id"`
			Text string `json:"text"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &post))
		assert.Equal(t, text, post.Text)

		status, env = c.do(http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
		require.Equal(t, http.StatusOK, status)
		require.NoError(t, json.Unmarshal(env.Data, &post))
		assert.Equal(t, text, post.Text)
	}
}
