package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	loc, _ := time.LoadLocation("UTC")
	return &Config{
		MongoURI:            DefaultMongoURI,
		MongoDatabaseName:   DefaultMongoDatabaseName,
		MongoConnTimeout:    DefaultMongoConnTimeout,
		Port:                DefaultPort,
		RateLimitRequests:   DefaultRateLimitRequests,
		RateLimitWindow:     DefaultRateLimitWindow,
		RequestTimeout:      DefaultRequestTimeout,
		IdempotencyTTL:      DefaultIdempotencyTTL,
		MaxRequestSize:      DefaultMaxRequestSize,
		ReadTimeout:         DefaultReadTimeout,
		WriteTimeout:        DefaultWriteTimeout,
		IdleTimeout:         DefaultIdleTimeout,
		ShutdownTimeout:     DefaultShutdownTimeout,
		OpenHour:            DefaultOpenHour,
		CloseHour:           DefaultCloseHour,
		Timezone:            "UTC",
		Location:            loc,
		Horizon:             DefaultHorizon,
		ApproverRoles:       []string{"HEAD"},
		EventTopic:          DefaultEventTopic,
		EventPublishTimeout: DefaultEventPublishTimeout,
		JWTSecret:           "secret",
		DirectoryCacheTTL:   DefaultDirectoryCacheTTL,
		DirectoryTimeout:    DefaultDirectoryTimeout,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantError string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:      "close hour before open hour",
			mutate:    func(cfg *Config) { cfg.OpenHour, cfg.CloseHour = 17, 9 },
			wantError: "CloseHour (9) must be after OpenHour (17)",
		},
		{
			name:      "unknown timezone",
			mutate:    func(cfg *Config) { cfg.Timezone, cfg.Location = "Mars/Olympus", nil },
			wantError: "Timezone must be a valid IANA zone",
		},
		{
			name:      "missing jwt secret",
			mutate:    func(cfg *Config) { cfg.JWTSecret = "" },
			wantError: "JWTSecret cannot be empty",
		},
		{
			name:      "non positive horizon",
			mutate:    func(cfg *Config) { cfg.Horizon = 0 },
			wantError: "Horizon must be positive",
		},
		{
			name:      "non positive publish timeout",
			mutate:    func(cfg *Config) { cfg.EventPublishTimeout = 0 },
			wantError: "EventPublishTimeout must be positive",
		},
		{
			name:      "bad mongo scheme",
			mutate:    func(cfg *Config) { cfg.MongoURI = "postgres://user:pw@host" },
			wantError: "MongoURI must start with",
		},
		{
			name:      "no approver roles",
			mutate:    func(cfg *Config) { cfg.ApproverRoles = nil },
			wantError: "ApproverRoles cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantError == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantError)
			}
			if !strings.Contains(err.Error(), tt.wantError) {
				t.Errorf("expected error containing %q, got %q", tt.wantError, err.Error())
			}
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv(EnvApproverRoles, " HEAD , ,SUPERVISOR ")

	got := getEnvList(EnvApproverRoles, DefaultApprovers)
	if len(got) != 2 || got[0] != "HEAD" || got[1] != "SUPERVISOR" {
		t.Errorf("expected [HEAD SUPERVISOR], got %v", got)
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:hunter2@db:27017")
	if strings.Contains(got, "hunter2") {
		t.Errorf("expected credentials to be redacted, got %s", got)
	}
}
