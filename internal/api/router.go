package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ascendhq/ascend/internal/app"
	iauth "github.com/ascendhq/ascend/internal/auth"
	"github.com/ascendhq/ascend/internal/auth/mfa"
	"github.com/ascendhq/ascend/internal/handlers"
	"github.com/ascendhq/ascend/internal/middleware"
	"github.com/ascendhq/ascend/internal/services"
)

// Services bundles the long-lived services the HTTP layer depends on.
type Services struct {
	Auth     *iauth.Service
	Sessions *iauth.SessionService
	TOTP     *mfa.TOTPService
	Coaching *services.CoachingService
	Advice   *services.AdviceService
	Contact  *services.ContactService
	Profiles *services.ProfileService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(cfg *app.Config, svcs Services, rateStore middleware.RateStore) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svcs.Auth == nil {
		return nil, fmt.Errorf("auth service must be provided")
	}
	if svcs.Sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}
	if svcs.TOTP == nil {
		return nil, fmt.Errorf("totp service must be provided")
	}
	if svcs.Coaching == nil {
		return nil, fmt.Errorf("coaching service must be provided")
	}
	if svcs.Advice == nil {
		return nil, fmt.Errorf("advice service must be provided")
	}
	if svcs.Contact == nil {
		return nil, fmt.Errorf("contact service must be provided")
	}
	if svcs.Profiles == nil {
		return nil, fmt.Errorf("profile service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Sessions(svcs.Sessions))

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	authHandler := handlers.NewAuthHandler(svcs.Auth, svcs.Sessions, svcs.TOTP, cfg.Server.CookieSecure)
	userHandler := handlers.NewUserHandler(svcs.Profiles)
	coachingHandler := handlers.NewCoachingHandler(svcs.Coaching)
	adviceHandler := handlers.NewAdviceHandler(svcs.Advice)
	contactHandler := handlers.NewContactHandler(svcs.Contact)

	ipLimit := func(scope string, max int, window time.Duration) gin.HandlerFunc {
		return middleware.RateLimit(rateStore, scope, max, window, middleware.KeyByClientIP)
	}
	userLimit := func(scope string, max int, window time.Duration) gin.HandlerFunc {
		return middleware.RateLimit(rateStore, scope, max, window, middleware.KeyByUser)
	}

	requireAuth := middleware.RequireAuth()
	requireVerified := middleware.RequireVerifiedEmail()

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", ipLimit("signup", 10, 15*time.Minute), authHandler.SignUp)
		auth.POST("/signin", ipLimit("signin", 5, 15*time.Minute), authHandler.SignIn)
		auth.POST("/signout", authHandler.SignOut)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.POST("/resend-verification", ipLimit("resend-verification", 3, 15*time.Minute), authHandler.ResendVerification)
		auth.POST("/forgot-password", ipLimit("forgot-password", 3, 15*time.Minute), authHandler.ForgotPassword)
		auth.POST("/reset-password", ipLimit("reset-password", 5, 15*time.Minute), authHandler.ResetPassword)
		auth.POST("/change-password", requireAuth, requireVerified, ipLimit("change-password", 3, 15*time.Minute), authHandler.ChangePassword)
		auth.GET("/me", authHandler.Me)
		auth.GET("/sessions", requireAuth, requireVerified, authHandler.ListSessions)
		auth.DELETE("/sessions/:id", requireAuth, requireVerified, authHandler.RevokeSession)
		auth.DELETE("/account", requireAuth, requireVerified, ipLimit("delete-account", 1, time.Hour), authHandler.DeleteAccount)
		auth.POST("/mfa/setup", requireAuth, requireVerified, authHandler.MFASetup)
		auth.POST("/mfa/verify", requireAuth, authHandler.MFAVerify)
	}

	user := r.Group("/api/user", requireAuth)
	{
		user.PATCH("/profile", userHandler.UpdateProfile)
		user.PATCH("/notifications", userHandler.UpdateNotifications)
	}

	aiLimit := userLimit("ai-generation", 10, time.Hour)
	coaching := r.Group("/api/coaching-sessions", requireAuth)
	{
		coaching.POST("", coachingHandler.Create)
		coaching.GET("", coachingHandler.List)
		coaching.GET("/:id", coachingHandler.Get)
		coaching.PATCH("/:id", coachingHandler.Update)
		coaching.POST("/:id/chat", aiLimit, coachingHandler.Chat)
		coaching.POST("/:id/generate-summary", aiLimit, coachingHandler.GenerateSummary)
		coaching.POST("/:id/detailed-analysis", aiLimit, coachingHandler.DetailedAnalysis)
	}

	advice := r.Group("/api/saved-advice", requireAuth)
	{
		advice.POST("", adviceHandler.Save)
		advice.GET("", adviceHandler.List)
		advice.DELETE("/:id", adviceHandler.Delete)
	}

	r.POST("/api/contact", ipLimit("contact", 5, 15*time.Minute), contactHandler.Submit)

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
