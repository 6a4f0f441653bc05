package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Ascend backend.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Email    EmailConfig    `mapstructure:"email"`
	AI       AIConfig       `mapstructure:"ai"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	LogLevel     string `mapstructure:"log_level"`
	AppURL       string `mapstructure:"app_url"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	Session SessionSettings   `mapstructure:"session"`
	Local   LocalAuthSettings `mapstructure:"local"`
	MFA     MFASettings       `mapstructure:"mfa"`
}

// SessionSettings configures session cookie lifetimes.
type SessionSettings struct {
	TTL         time.Duration `mapstructure:"ttl"`
	RememberTTL time.Duration `mapstructure:"remember_ttl"`
}

// LocalAuthSettings defines controls for password sign-in.
type LocalAuthSettings struct {
	LockoutThreshold int           `mapstructure:"lockout_threshold"`
	LockoutDuration  time.Duration `mapstructure:"lockout_duration"`
}

// MFASettings configures TOTP enrolment.
type MFASettings struct {
	Issuer        string `mapstructure:"issuer"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AIConfig configures the Gemini text generation backend.
type AIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("ASCEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate checks the settings that have no workable default.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	c.Auth.MFA.EncryptionKey = strings.TrimSpace(c.Auth.MFA.EncryptionKey)
	if keyLen := len(c.Auth.MFA.EncryptionKey); keyLen != 16 && keyLen != 24 && keyLen != 32 {
		return fmt.Errorf("auth.mfa.encryption_key must be 16, 24, or 32 characters (current: %d)", keyLen)
	}

	if c.Email.SMTP.Enabled {
		if strings.TrimSpace(c.Email.SMTP.Host) == "" {
			return errors.New("email.smtp.host must be configured when SMTP is enabled")
		}
		if strings.TrimSpace(c.Email.SMTP.From) == "" {
			return errors.New("email.smtp.from must be configured when SMTP is enabled")
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.app_url", "http://localhost:8000")
	v.SetDefault("server.cookie_secure", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/ascend.sqlite")

	v.SetDefault("auth.session.ttl", "168h")          // 7 days
	v.SetDefault("auth.session.remember_ttl", "720h") // 30 days
	v.SetDefault("auth.local.lockout_threshold", 5)
	v.SetDefault("auth.local.lockout_duration", "30m")
	v.SetDefault("auth.mfa.issuer", "Ascend")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
