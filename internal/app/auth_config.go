package app

import (
	iauth "github.com/ascendhq/ascend/internal/auth"
)

// SessionServiceConfig converts the session settings to the auth package
// representation. Zero values fall back to the service defaults.
func (c AuthConfig) SessionServiceConfig() iauth.SessionConfig {
	return iauth.SessionConfig{
		SessionTTL:    c.Session.TTL,
		RememberMeTTL: c.Session.RememberTTL,
	}
}

// AuthServiceConfig converts the local auth settings to the auth package
// representation. Zero values fall back to the service defaults.
func (c AuthConfig) AuthServiceConfig() iauth.Config {
	return iauth.Config{
		LockoutThreshold: c.Local.LockoutThreshold,
		LockoutDuration:  c.Local.LockoutDuration,
	}
}
