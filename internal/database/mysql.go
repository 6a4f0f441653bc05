package database

import (
	"errors"
	"fmt"
	"net/url"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	// Timestamps are stored and compared in UTC across all drivers.
	query := url.Values{}
	query.Set("charset", "utf8mb4")
	query.Set("collation", "utf8mb4_unicode_ci")
	query.Set("parseTime", "True")
	query.Set("loc", "UTC")
	for key, value := range cfg.Options {
		query.Set(key, value)
	}

	creds := cfg.User
	if cfg.Password != "" {
		creds = fmt.Sprintf("%s:%s", cfg.User, cfg.Password)
	}

	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", creds, host, port, cfg.Name, query.Encode()), nil
}
