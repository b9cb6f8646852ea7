package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aedi/aedi/config"
	"github.com/aedi/aedi/services"
	"github.com/aedi/aedi/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "controllers-secret"})
	os.Exit(m.Run())
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    int
		message string
	}{
		{"validation", &services.Error{Kind: services.KindValidation, Message: "bad"}, http.StatusBadRequest, 40000, "bad"},
		{"conflict", &services.Error{Kind: services.KindConflict, Message: "taken"}, http.StatusBadRequest, 40900, "taken"},
		{"forbidden", &services.Error{Kind: services.KindForbidden, Message: "no"}, http.StatusForbidden, 40300, "no"},
		{"not found", &services.Error{Kind: services.KindNotFound, Message: "gone"}, http.StatusNotFound, 40400, "gone"},
		{"wrapped", fmt.Errorf("ctx: %w", &services.Error{Kind: services.KindNotFound, Message: "gone"}), http.StatusNotFound, 40400, "gone"},
		{"unexpected", errors.New("db exploded"), http.StatusInternalServerError, 50000, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			respondError(ctx, tt.err, "test")

			assert.Equal(t, tt.status, w.Code)
			var body utils.JSONResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestOAuthConfigRequiresCredentials(t *testing.T) {
	_, err := oauthConfig("github")
	assert.Error(t, err)
	_, err = oauthConfig("myspace")
	assert.Error(t, err)
}
