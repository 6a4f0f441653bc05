package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/ai"
	"github.com/ascendhq/ascend/internal/api"
	"github.com/ascendhq/ascend/internal/app"
	"github.com/ascendhq/ascend/internal/app/maintenance"
	iauth "github.com/ascendhq/ascend/internal/auth"
	"github.com/ascendhq/ascend/internal/auth/mfa"
	"github.com/ascendhq/ascend/internal/database"
	"github.com/ascendhq/ascend/internal/middleware"
	"github.com/ascendhq/ascend/internal/services"
	"github.com/ascendhq/ascend/pkg/logger"
	"github.com/ascendhq/ascend/pkg/mail"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ascend-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	mailer, err := buildMailer(cfg, log)
	if err != nil {
		return err
	}

	emailSvc, err := services.NewEmailService(db, mailer, cfg.Server.AppURL)
	if err != nil {
		return fmt.Errorf("initialise email service: %w", err)
	}

	sessionSvc, err := iauth.NewSessionService(db, cfg.Auth.SessionServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise session service: %w", err)
	}

	authSvc, err := iauth.NewService(db, sessionSvc, emailSvc, cfg.Auth.AuthServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise auth service: %w", err)
	}

	totpSvc, err := mfa.NewTOTPService(db, []byte(cfg.Auth.MFA.EncryptionKey), mfa.WithIssuer(cfg.Auth.MFA.Issuer))
	if err != nil {
		return fmt.Errorf("initialise totp service: %w", err)
	}

	var aiOpts []ai.ClientOption
	if cfg.AI.BaseURL != "" {
		aiOpts = append(aiOpts, ai.WithBaseURL(cfg.AI.BaseURL))
	}
	aiClient := ai.NewClient(cfg.AI.APIKey, aiOpts...)
	if !aiClient.Configured() {
		log.Warn("ai api key not configured; coaching replies will use fallback responses")
	}
	coachSvc := ai.NewCoachService(aiClient)
	summarySvc := ai.NewSummaryService(aiClient)

	coachingSvc, err := services.NewCoachingService(db, coachSvc, summarySvc, nil)
	if err != nil {
		return fmt.Errorf("initialise coaching service: %w", err)
	}

	adviceSvc, err := services.NewAdviceService(db)
	if err != nil {
		return fmt.Errorf("initialise advice service: %w", err)
	}

	contactSvc, err := services.NewContactService(db, emailSvc)
	if err != nil {
		return fmt.Errorf("initialise contact service: %w", err)
	}

	profileSvc, err := services.NewProfileService(db)
	if err != nil {
		return fmt.Errorf("initialise profile service: %w", err)
	}

	cleaner := maintenance.NewCleaner(db, sessionSvc)
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := cleaner.Stop()
		if err := cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}()

	rateStore := middleware.NewMemoryRateStore()

	router, err := api.NewRouter(cfg, api.Services{
		Auth:     authSvc,
		Sessions: sessionSvc,
		TOTP:     totpSvc,
		Coaching: coachingSvc,
		Advice:   adviceSvc,
		Contact:  contactSvc,
		Profiles: profileSvc,
	}, rateStore)
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func buildMailer(cfg *app.Config, log *zap.Logger) (mail.Mailer, error) {
	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp delivery disabled; outbound email will be logged but not sent")
	}
	return mailer, nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
