package config

import "testing"

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("COMPASS_AUTH_SIGNING_SECRET", "")
	t.Setenv("COMPASS_AUTH_ADMIN_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when secrets are unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("COMPASS_AUTH_SIGNING_SECRET", "s3cret")
	t.Setenv("COMPASS_AUTH_ADMIN_API_KEY", "admin-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr default = %q", cfg.Server.Addr)
	}
	if cfg.Database.DSN != "" {
		t.Fatalf("dsn default = %q", cfg.Database.DSN)
	}
	if cfg.Invitations.DefaultExpiryDays != 7 {
		t.Fatalf("expiry default = %d", cfg.Invitations.DefaultExpiryDays)
	}
	if cfg.RateLimit.ValidatePerMinute != 10 || cfg.RateLimit.UpdateItemPerMinute != 30 {
		t.Fatalf("ratelimit defaults = %d/%d", cfg.RateLimit.ValidatePerMinute, cfg.RateLimit.UpdateItemPerMinute)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("log format default = %q", cfg.Logging.Format)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("COMPASS_AUTH_SIGNING_SECRET", "s3cret")
	t.Setenv("COMPASS_AUTH_ADMIN_API_KEY", "admin-key")
	t.Setenv("COMPASS_SERVER_ADDR", "127.0.0.1:9090")
	t.Setenv("COMPASS_RATELIMIT_VALIDATE_PER_MINUTE", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.RateLimit.ValidatePerMinute != 5 {
		t.Fatalf("validate budget = %d", cfg.RateLimit.ValidatePerMinute)
	}
}
