package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/ai"
	"github.com/ascendhq/ascend/internal/app"
	iauth "github.com/ascendhq/ascend/internal/auth"
	"github.com/ascendhq/ascend/internal/auth/mfa"
	"github.com/ascendhq/ascend/internal/database/testutil"
	"github.com/ascendhq/ascend/internal/middleware"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/internal/services"
	"github.com/ascendhq/ascend/pkg/mail"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testPassword = "Str0ng!Pass"
	chatReply    = "Focus on one promotion criterion per quarter."
	summaryReply = "Discussed promotion readiness and visibility."
)

var analysisReply = `{
	"keyInsights": ["Needs more executive visibility"],
	"mainTopics": ["promotion"],
	"actionItems": ["Schedule a skip-level meeting"],
	"coachingThemes": ["career growth"],
	"overallSentiment": "positive",
	"progressIndicators": ["Clear next step identified"]
}`

type sentEmail struct {
	kind  string
	to    string
	token string
}

type fakeNotifier struct {
	mu     sync.Mutex
	emails []sentEmail
}

func (f *fakeNotifier) record(kind, to, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, sentEmail{kind: kind, to: to, token: token})
}

func (f *fakeNotifier) SendVerificationEmail(_ context.Context, to, _, token string) error {
	f.record("verification", to, token)
	return nil
}

func (f *fakeNotifier) SendWelcomeEmail(_ context.Context, to, _ string) error {
	f.record("welcome", to, "")
	return nil
}

func (f *fakeNotifier) SendPasswordResetEmail(_ context.Context, to, _, token string) error {
	f.record("reset", to, token)
	return nil
}

func (f *fakeNotifier) SendPasswordChangedEmail(_ context.Context, to, _ string) error {
	f.record("changed", to, "")
	return nil
}

func (f *fakeNotifier) lastToken(kind string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.emails) - 1; i >= 0; i-- {
		if f.emails[i].kind == kind {
			return f.emails[i].token
		}
	}
	return ""
}

type routerFixture struct {
	t        *testing.T
	db       *gorm.DB
	engine   *gin.Engine
	notifier *fakeNotifier
}

func newRouterFixture(t *testing.T, rateStore middleware.RateStore) *routerFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var text string
		switch {
		case strings.Contains(r.URL.Path, "gemini-1.5-pro"):
			text = analysisReply
		case strings.Contains(r.URL.Path, "gemini-1.5-flash"):
			text = summaryReply
		default:
			text = chatReply
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(gemini.Close)

	aiClient := ai.NewClient("test-key", ai.WithBaseURL(gemini.URL), ai.WithHTTPClient(gemini.Client()))

	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	authSvc, err := iauth.NewService(db, sessions, notifier, iauth.Config{})
	require.NoError(t, err)

	totpSvc, err := mfa.NewTOTPService(db, []byte("0123456789abcdef"))
	require.NoError(t, err)

	mailer, err := mail.NewSMTPMailer(mail.Settings{Enabled: false})
	require.NoError(t, err)
	emailSvc, err := services.NewEmailService(db, mailer, "http://localhost:8000")
	require.NoError(t, err)

	coaching, err := services.NewCoachingService(db, ai.NewCoachService(aiClient), ai.NewSummaryService(aiClient), nil)
	require.NoError(t, err)
	advice, err := services.NewAdviceService(db)
	require.NoError(t, err)
	contact, err := services.NewContactService(db, emailSvc)
	require.NoError(t, err)
	profiles, err := services.NewProfileService(db)
	require.NoError(t, err)

	cfg := &app.Config{}
	engine, err := NewRouter(cfg, Services{
		Auth:     authSvc,
		Sessions: sessions,
		TOTP:     totpSvc,
		Coaching: coaching,
		Advice:   advice,
		Contact:  contact,
		Profiles: profiles,
	}, rateStore)
	require.NoError(t, err)

	return &routerFixture{t: t, db: db, engine: engine, notifier: notifier}
}

func (f *routerFixture) do(method, path string, body any, cookie string) *httptest.ResponseRecorder {
	f.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: cookie})
	}

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// signUpAndVerify registers an account, verifies the address, and signs in,
// returning the session cookie value.
func (f *routerFixture) signUpAndVerify(email string) string {
	f.t.Helper()

	rec := f.do(http.MethodPost, "/api/auth/signup", gin.H{
		"email":           email,
		"password":        testPassword,
		"firstName":       "Asha",
		"termsAccepted":   true,
		"privacyAccepted": true,
	}, "")
	require.Equal(f.t, http.StatusCreated, rec.Code)

	token := f.notifier.lastToken("verification")
	require.NotEmpty(f.t, token)

	rec = f.do(http.MethodPost, "/api/auth/verify-email", gin.H{"token": token}, "")
	require.Equal(f.t, http.StatusOK, rec.Code)

	return f.signIn(email, testPassword)
}

func (f *routerFixture) signIn(email, password string) string {
	f.t.Helper()

	rec := f.do(http.MethodPost, "/api/auth/signin", gin.H{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(f.t, http.StatusOK, rec.Code)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			require.True(f.t, cookie.HttpOnly)
			return cookie.Value
		}
	}
	f.t.Fatal("session cookie not set")
	return ""
}

func TestHealthMetricsAndNotFound(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = f.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/no-such-route", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignUpVerifyAndSignInFlow(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/auth/signup", gin.H{
		"email":           "asha@example.com",
		"password":        testPassword,
		"termsAccepted":   true,
		"privacyAccepted": true,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	// sign-in works before verification; verified-only routes stay gated
	earlyCookie := f.signIn("asha@example.com", testPassword)
	rec = f.do(http.MethodGet, "/api/auth/sessions", nil, earlyCookie)
	require.Equal(t, http.StatusForbidden, rec.Code)

	token := f.notifier.lastToken("verification")
	require.NotEmpty(t, token)
	rec = f.do(http.MethodPost, "/api/auth/verify-email", gin.H{"token": token}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := f.signIn("asha@example.com", testPassword)

	rec = f.do(http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	require.Equal(t, "asha@example.com", user["email"])

	rec = f.do(http.MethodPost, "/api/auth/signout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignOutWithoutValidSession(t *testing.T) {
	f := newRouterFixture(t, nil)

	// no cookie at all
	rec := f.do(http.MethodPost, "/api/auth/signout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// expired or garbage cookie still signs out and clears it
	rec = f.do(http.MethodPost, "/api/auth/signout", nil, "not-a-real-token")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Set-Cookie"), "sessionToken=")
}

func TestDuplicateSignUp(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.signUpAndVerify("asha@example.com")

	rec := f.do(http.MethodPost, "/api/auth/signup", gin.H{
		"email":           "Asha@Example.com",
		"password":        testPassword,
		"termsAccepted":   true,
		"privacyAccepted": true,
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeakPasswordRejected(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/auth/signup", gin.H{
		"email":    "asha@example.com",
		"password": "weakpass",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotEmpty(t, decodeBody(t, rec)["details"])
}

func TestPasswordResetFlow(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.signUpAndVerify("asha@example.com")

	// the response is identical for unknown addresses
	rec := f.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "nobody@example.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	generic := decodeBody(t, rec)["message"]

	rec = f.do(http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "asha@example.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, generic, decodeBody(t, rec)["message"])

	token := f.notifier.lastToken("reset")
	require.NotEmpty(t, token)

	rec = f.do(http.MethodPost, "/api/auth/reset-password", gin.H{
		"token":       token,
		"newPassword": "N3w!Password",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// the token is single use
	rec = f.do(http.MethodPost, "/api/auth/reset-password", gin.H{
		"token":       token,
		"newPassword": "An0ther!Pass",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth/signin", gin.H{
		"email":    "asha@example.com",
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	f.signIn("asha@example.com", "N3w!Password")
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	f := newRouterFixture(t, nil)
	cookie := f.signUpAndVerify("asha@example.com")

	rec := f.do(http.MethodPost, "/api/auth/change-password", gin.H{
		"currentPassword": testPassword,
		"newPassword":     "N3w!Password",
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	f.signIn("asha@example.com", "N3w!Password")
}

func TestSessionManagement(t *testing.T) {
	f := newRouterFixture(t, nil)
	first := f.signUpAndVerify("asha@example.com")
	second := f.signIn("asha@example.com", testPassword)

	rec := f.do(http.MethodGet, "/api/auth/sessions", nil, second)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decodeBody(t, rec)["sessions"].([]any)
	require.Len(t, sessions, 2)

	var currentCount int
	var otherID string
	for _, raw := range sessions {
		session := raw.(map[string]any)
		if session["current"].(bool) {
			currentCount++
		} else {
			otherID = session["id"].(string)
		}
	}
	require.Equal(t, 1, currentCount)
	require.NotEmpty(t, otherID)

	rec = f.do(http.MethodDelete, "/api/auth/sessions/"+otherID, nil, second)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/auth/me", nil, first)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodDelete, "/api/auth/sessions/"+otherID, nil, second)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMFASetupAndVerify(t *testing.T) {
	f := newRouterFixture(t, nil)
	cookie := f.signUpAndVerify("asha@example.com")

	rec := f.do(http.MethodPost, "/api/auth/mfa/setup", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	secret := body["secret"].(string)
	require.NotEmpty(t, secret)
	require.True(t, strings.HasPrefix(body["qrCode"].(string), "data:image/png;base64,"))
	require.Len(t, body["backupCodes"].([]any), 10)

	rec = f.do(http.MethodPost, "/api/auth/mfa/verify", gin.H{"code": "000000"}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	rec = f.do(http.MethodPost, "/api/auth/mfa/verify", gin.H{"code": code}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, f.db.Where("email = ?", "asha@example.com").Take(&user).Error)
	require.True(t, user.MFAEnabled)
}

func TestProfileAndNotificationUpdates(t *testing.T) {
	f := newRouterFixture(t, nil)
	cookie := f.signUpAndVerify("asha@example.com")

	rec := f.do(http.MethodPatch, "/api/user/profile", gin.H{
		"currentRole":    "Engineering Manager",
		"primaryCoaches": []string{"career", "leadership"},
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	require.Equal(t, "Engineering Manager", user["currentRole"])

	rec = f.do(http.MethodPatch, "/api/user/profile", gin.H{
		"primaryCoaches": []string{"career", "leadership", "life"},
	}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPatch, "/api/user/notifications", gin.H{
		"marketingEmails": false,
		"weeklyDigest":    true,
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPatch, "/api/user/profile", gin.H{"currentRole": "x"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCoachingSessionLifecycle(t *testing.T) {
	f := newRouterFixture(t, nil)
	cookie := f.signUpAndVerify("asha@example.com")

	rec := f.do(http.MethodPost, "/api/coaching-sessions", gin.H{"coachType": "astrology"}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/coaching-sessions", gin.H{"coachType": "career"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decodeBody(t, rec)["session"].(map[string]any)
	sessionID := session["id"].(string)

	rec = f.do(http.MethodPost, "/api/coaching-sessions/"+sessionID+"/chat", gin.H{
		"message": "How do I get promoted?",
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, chatReply, body["coachMessage"].(map[string]any)["content"])

	rec = f.do(http.MethodPost, "/api/coaching-sessions/"+sessionID+"/generate-summary", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, summaryReply, decodeBody(t, rec)["summary"])

	rec = f.do(http.MethodPost, "/api/coaching-sessions/"+sessionID+"/detailed-analysis", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := decodeBody(t, rec)["analysis"].(map[string]any)
	require.Equal(t, "positive", analysis["overallSentiment"])

	rec = f.do(http.MethodPatch, "/api/coaching-sessions/"+sessionID, gin.H{"hearted": true}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/coaching-sessions", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody(t, rec)["sessions"].([]any), 1)

	// another user cannot see the session
	otherCookie := f.signUpAndVerify("ravi@example.com")
	rec = f.do(http.MethodGet, "/api/coaching-sessions/"+sessionID, nil, otherCookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSavedAdviceEndpoints(t *testing.T) {
	f := newRouterFixture(t, nil)
	cookie := f.signUpAndVerify("asha@example.com")

	rec := f.do(http.MethodPost, "/api/coaching-sessions", gin.H{"coachType": "career"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	sessionID := decodeBody(t, rec)["session"].(map[string]any)["id"].(string)

	rec = f.do(http.MethodPost, "/api/saved-advice", gin.H{
		"sessionId":      sessionID,
		"coachType":      "career",
		"messageContent": chatReply,
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	adviceID := decodeBody(t, rec)["advice"].(map[string]any)["id"].(string)

	// the session reference must belong to the caller
	otherCookie := f.signUpAndVerify("ravi@example.com")
	rec = f.do(http.MethodPost, "/api/saved-advice", gin.H{
		"sessionId":      sessionID,
		"coachType":      "career",
		"messageContent": chatReply,
	}, otherCookie)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/saved-advice", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody(t, rec)["advice"].([]any), 1)

	rec = f.do(http.MethodDelete, "/api/saved-advice/"+adviceID, nil, otherCookie)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/api/saved-advice/"+adviceID, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestContactEndpoint(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/contact", gin.H{
		"name":    "Asha",
		"email":   "asha@example.com",
		"subject": "Billing question",
		"message": "How do I update my plan?",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg models.ContactMessage
	require.NoError(t, f.db.Take(&msg).Error)
	require.Equal(t, "new", msg.Status)
	require.Nil(t, msg.UserID)
}

func TestContactRateLimit(t *testing.T) {
	f := newRouterFixture(t, middleware.NewMemoryRateStore())

	payload := gin.H{
		"name":    "Asha",
		"email":   "asha@example.com",
		"subject": "Billing question",
		"message": "How do I update my plan?",
	}
	for i := 0; i < 5; i++ {
		rec := f.do(http.MethodPost, "/api/contact", payload, "")
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(http.MethodPost, "/api/contact", payload, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	resetTime := decodeBody(t, rec)["resetTime"].(string)
	parsed, err := time.Parse(time.RFC3339, resetTime)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), parsed, time.Minute)
}

func TestSignInRateLimit(t *testing.T) {
	f := newRouterFixture(t, middleware.NewMemoryRateStore())

	for i := 0; i < 5; i++ {
		rec := f.do(http.MethodPost, "/api/auth/signin", gin.H{
			"email":    fmt.Sprintf("nobody%d@example.com", i),
			"password": "Wrong!Pass1",
		}, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := f.do(http.MethodPost, "/api/auth/signin", gin.H{
		"email":    "nobody@example.com",
		"password": "Wrong!Pass1",
	}, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	resetTime := decodeBody(t, rec)["resetTime"].(string)
	_, err := time.Parse(time.RFC3339, resetTime)
	require.NoError(t, err)
}

func TestDeleteAccountReturnsExport(t *testing.T) {
	f := newRouterFixture(t, nil)
	cookie := f.signUpAndVerify("asha@example.com")

	rec := f.do(http.MethodPost, "/api/coaching-sessions", gin.H{"coachType": "career"}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodDelete, "/api/auth/account", gin.H{"password": testPassword}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	export := decodeBody(t, rec)["export"].(map[string]any)
	require.Len(t, export["coachingSessions"].([]any), 1)

	rec = f.do(http.MethodPost, "/api/auth/signin", gin.H{
		"email":    "asha@example.com",
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
