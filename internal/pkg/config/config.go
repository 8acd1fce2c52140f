// Package config builds the typed startup configuration for the
// third-party connection subsystem. A process that cannot construct
// this configuration must refuse to start; nothing here is validated
// lazily at request time.
package config

import (
	"fmt"
	"strings"

	"github.com/JulianWeber/AgentFlow/internal/pkg/env"
)

// Config carries the provider credentials and site identity required
// by the connection subsystem.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	// AppSecret signs the OAuth state payload.
	AppSecret string
	// SiteOrigin is the public origin registered with the provider;
	// the callback redirect URI is derived from it and must match
	// the registration exactly.
	SiteOrigin string
	// AdminEmails is the allow-list for the admin surface.
	AdminEmails []string
}

// Load reads the configuration from the environment. Every field is
// required; the first missing one is returned as an error.
func Load() (*Config, error) {
	cfg := &Config{
		GoogleClientID:     strings.TrimSpace(env.GetEnv("GOOGLE_CLIENT_ID", "")),
		GoogleClientSecret: strings.TrimSpace(env.GetEnv("GOOGLE_CLIENT_SECRET", "")),
		AppSecret:          strings.TrimSpace(env.GetEnv("APP_SECRET", "")),
		SiteOrigin:         strings.TrimRight(strings.TrimSpace(env.GetEnv("PUBLIC_DOMAIN", "")), "/"),
	}

	for _, req := range []struct {
		name  string
		value string
	}{
		{"GOOGLE_CLIENT_ID", cfg.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret},
		{"APP_SECRET", cfg.AppSecret},
		{"PUBLIC_DOMAIN", cfg.SiteOrigin},
	} {
		if req.value == "" {
			return nil, fmt.Errorf("config: required environment variable %s is not set", req.name)
		}
	}

	admins := env.GetEnv("ADMIN_EMAILS", "")
	for _, email := range strings.Split(admins, ",") {
		if e := strings.TrimSpace(email); e != "" {
			cfg.AdminEmails = append(cfg.AdminEmails, e)
		}
	}
	if len(cfg.AdminEmails) == 0 {
		return nil, fmt.Errorf("config: required environment variable ADMIN_EMAILS is not set")
	}

	return cfg, nil
}

// CallbackURL returns the provider callback endpoint derived from the
// configured site origin.
func (c *Config) CallbackURL() string {
	return c.SiteOrigin + "/connect/google/callback"
}

// IsAdmin reports whether email is on the admin allow-list.
func (c *Config) IsAdmin(email string) bool {
	for _, admin := range c.AdminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}
