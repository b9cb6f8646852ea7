package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/aedi/aedi/config"
	"github.com/aedi/aedi/middleware"
	"github.com/aedi/aedi/services"
	"github.com/aedi/aedi/utils"
)

// AuthController handles authentication related endpoints including local and third-party providers.
type AuthController struct {
	users *services.UserService
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{users: services.NewUserService(db)}
}

// Signup registers a local account and starts a session.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req struct {
		Username      string `json:"username"`
		Email         string `json:"email"`
		Password      string `json:"password"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	if config.Get().RegisterCaptchaEnabled && !utils.VerifyCaptcha(req.CaptchaID, req.CaptchaAnswer) {
		utils.Error(ctx, http.StatusBadRequest, 40003, "Invalid captcha")
		return
	}

	ip := ctx.ClientIP()
	if !utils.RegistrationCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "Too many signup attempts, please retry later")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "Daily signup limit reached")
		return
	}

	user, err := a.users.Signup(ctx.Request.Context(), services.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(ctx, err, "signup")
		return
	}
	utils.RegistrationDailyIncrement(ip)

	if _, err := utils.IssueSession(ctx, user.ID, user.Username); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Created(ctx, user)
}

// Login checks credentials and starts a session.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err, "login")
		return
	}
	if _, err := utils.IssueSession(ctx, user.ID, user.Username); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Created(ctx, user)
}

// Logout clears the session cookie and revokes the token until it expires.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := middleware.CurrentToken(ctx)
	expiresAt := time.Now().Add(utils.SessionTTL)
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.ClearSession(ctx)
	utils.Message(ctx, "Logout successfully", nil)
}

// Me returns the signed-in account.
func (a *AuthController) Me(ctx *gin.Context) {
	user, err := a.users.Me(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		respondError(ctx, err, "me")
		return
	}
	utils.Success(ctx, user)
}

// Captcha returns a fresh captcha id and base64 image (data URI)
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"captcha_id": id, "image": b64})
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and starts a session.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	reqCtx := ctx.Request.Context()
	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	profile, err := fetchOAuthProfile(reqCtx, cfg, provider, token)
	if err != nil {
		utils.Sugar.Warnw("oauth profile fetch failed", "provider", provider, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to fetch provider profile")
		return
	}

	user, err := a.users.FindOrCreateOAuthUser(reqCtx, provider, *profile)
	if err != nil {
		respondError(ctx, err, "oauth_callback")
		return
	}
	if _, err := utils.IssueSession(ctx, user.ID, user.Username); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Created(ctx, user)
}
