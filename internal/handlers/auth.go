package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/ascendhq/ascend/internal/auth"
	"github.com/ascendhq/ascend/internal/auth/mfa"
	"github.com/ascendhq/ascend/internal/middleware"
	"github.com/ascendhq/ascend/internal/models"
	appErrors "github.com/ascendhq/ascend/pkg/errors"
	"github.com/ascendhq/ascend/pkg/response"
)

// AuthHandler manages the account lifecycle: signup, signin, verification,
// password recovery, session management, MFA, and deletion.
type AuthHandler struct {
	auth         *iauth.Service
	sessions     *iauth.SessionService
	totp         *mfa.TOTPService
	cookieSecure bool
}

// NewAuthHandler builds the auth handler. cookieSecure should be true in
// production so the session cookie is HTTPS-only.
func NewAuthHandler(auth *iauth.Service, sessions *iauth.SessionService, totp *mfa.TOTPService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, totp: totp, cookieSecure: cookieSecure}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAgeSeconds int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, token, maxAgeSeconds, "/", "", h.cookieSecure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
}

// mapAuthError translates auth package sentinels into API errors.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, iauth.ErrDuplicateEmail):
		return appErrors.ErrDuplicateAccount
	case errors.Is(err, iauth.ErrInvalidCredentials):
		return appErrors.ErrInvalidCredentials
	case errors.Is(err, iauth.ErrAccountLocked):
		return appErrors.ErrAccountLocked
	case errors.Is(err, iauth.ErrAccountDisabled):
		return appErrors.ErrAccountDeactivated
	case errors.Is(err, iauth.ErrInvalidResetToken), errors.Is(err, iauth.ErrInvalidVerificationToken):
		return appErrors.ErrInvalidToken
	case errors.Is(err, iauth.ErrSessionNotFound), errors.Is(err, iauth.ErrSessionExpired), errors.Is(err, iauth.ErrSessionInvalidToken):
		return appErrors.ErrAuthenticationRequired
	default:
		return appErrors.ErrInternalServer.WithInternal(err)
	}
}

type signUpRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,strongpassword"`
	FirstName       string `json:"firstName" validate:"max=100"`
	LastName        string `json:"lastName" validate:"max=100"`
	TermsAccepted   bool   `json:"termsAccepted"`
	PrivacyAccepted bool   `json:"privacyAccepted"`
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.SignUp(requestContext(c), iauth.SignUpInput{
		Email:           req.Email,
		Password:        req.Password,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		TermsAccepted:   req.TermsAccepted,
		PrivacyAccepted: req.PrivacyAccepted,
	})
	if err != nil {
		response.Error(c, mapAuthError(err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message": "Account created. Check your email to verify your address.",
		"user":    user,
	})
}

type signInRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// SignIn handles POST /api/auth/signin.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, token, _, err := h.auth.SignIn(requestContext(c), iauth.SignInInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IPAddress:  c.ClientIP(),
		DeviceInfo: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, mapAuthError(err))
		return
	}

	h.setSessionCookie(c, token, int(h.sessions.TTL(req.RememberMe).Seconds()))
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// SignOut handles POST /api/auth/signout.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if token, err := c.Cookie(middleware.SessionCookieName); err == nil && token != "" {
		// Revoking an already-dead token is not an error worth surfacing.
		_ = h.sessions.Revoke(token)
	}
	h.clearSessionCookie(c)
	response.Success(c, http.StatusOK, gin.H{"message": "Signed out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// VerifyEmail handles POST /api/auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.VerifyEmail(requestContext(c), req.Token)
	if err != nil {
		response.Error(c, mapAuthError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Email verified",
		"user":    user,
	})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResendVerification handles POST /api/auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResendVerification(requestContext(c), req.Email); err != nil {
		response.Error(c, mapAuthError(err))
		return
	}

	// identical response whether or not the address is registered
	response.Success(c, http.StatusOK, gin.H{
		"message": "If an account exists for that address, a verification email has been sent.",
	})
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.RequestPasswordReset(requestContext(c), req.Email); err != nil {
		response.Error(c, mapAuthError(err))
		return
	}

	// identical response whether or not the address is registered
	response.Success(c, http.StatusOK, gin.H{
		"message": "If an account exists for that address, a password reset email has been sent.",
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,strongpassword"`
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResetPassword(requestContext(c), req.Token, req.NewPassword); err != nil {
		response.Error(c, mapAuthError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Password updated. Please sign in again."})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpassword"`
}

// ChangePassword handles POST /api/auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ChangePassword(requestContext(c), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(c, mapAuthError(err))
		return
	}

	// every session was revoked, including this one
	h.clearSessionCookie(c)
	response.Success(c, http.StatusOK, gin.H{"message": "Password changed. Please sign in again."})
}

// ListSessions handles GET /api/auth/sessions.
func (h *AuthHandler) ListSessions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	sessions, err := h.sessions.List(user.ID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	current, _ := middleware.CurrentSession(c)
	type sessionView struct {
		models.UserSession
		Current bool `json:"current"`
	}
	views := make([]sessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, sessionView{
			UserSession: session,
			Current:     current != nil && current.ID == session.ID,
		})
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": views})
}

// RevokeSession handles DELETE /api/auth/sessions/:id.
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	err := h.sessions.RevokeByID(user.ID, c.Param("id"))
	if errors.Is(err, iauth.ErrSessionNotFound) {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Session revoked"})
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// DeleteAccount handles DELETE /api/auth/account.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	var req deleteAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	export, err := h.auth.DeleteAccount(requestContext(c), user.ID, req.Password)
	if err != nil {
		response.Error(c, mapAuthError(err))
		return
	}

	h.clearSessionCookie(c)
	response.Success(c, http.StatusOK, gin.H{
		"message": "Account deleted",
		"export":  export,
	})
}

// MFASetup handles POST /api/auth/mfa/setup.
func (h *AuthHandler) MFASetup(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	key, backupCodes, err := h.totp.GenerateSecret(user.ID, user.Email)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	png, err := h.totp.GenerateQRCode(key)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"secret":      key.Secret(),
		"otpauthUrl":  key.String(),
		"qrCode":      "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		"backupCodes": backupCodes,
	})
}

type mfaVerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

// MFAVerify handles POST /api/auth/mfa/verify.
func (h *AuthHandler) MFAVerify(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrAuthenticationRequired)
		return
	}

	var req mfaVerifyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.totp.Enable(user.ID, req.Code); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid verification code"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "MFA enabled"})
}
