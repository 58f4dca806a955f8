package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("server = %s:%d, want 0.0.0.0:8080", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Auth.JWTExpiry != 24*time.Hour {
		t.Errorf("jwt expiry = %v, want 24h", cfg.Auth.JWTExpiry)
	}
	if cfg.RateLimit.PublicPerMinute != 100 || cfg.RateLimit.LoginPer15Minutes != 5 {
		t.Errorf("rate limits = %d/%d, want 100/5", cfg.RateLimit.PublicPerMinute, cfg.RateLimit.LoginPer15Minutes)
	}
	if cfg.Environment != "development" {
		t.Errorf("environment = %q, want development", cfg.Environment)
	}
	// Development with no whitelist allows all origins.
	if !cfg.CORS.AllowAllOrigins {
		t.Error("expected AllowAllOrigins in development")
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET")
	}
}

func TestLoadProductionRequiresDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL in production")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/blog")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Production never defaults to allow-all CORS.
	if cfg.CORS.AllowAllOrigins {
		t.Error("unexpected AllowAllOrigins in production")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_EXPIRY_HOURS", "1")
	t.Setenv("ADMIN_CODE", "let-me-in")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("TRUSTED_PROXY_CIDRS", "10.0.0.0/8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Auth.JWTExpiry != time.Hour {
		t.Errorf("jwt expiry = %v, want 1h", cfg.Auth.JWTExpiry)
	}
	if cfg.Auth.AdminCode != "let-me-in" {
		t.Errorf("admin code = %q", cfg.Auth.AdminCode)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("origins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.CORS.AllowAllOrigins {
		t.Error("whitelist should disable AllowAllOrigins")
	}
	if len(cfg.RateLimit.TrustedProxyCIDRs) != 1 {
		t.Errorf("cidrs = %v", cfg.RateLimit.TrustedProxyCIDRs)
	}
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Server.Port)
	}
}
