package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"defensebook/pkg/client"
	"defensebook/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	OpenHour      int
	CloseHour     int
	Timezone      string
	Location      *time.Location
	Horizon       time.Duration
	ApproverRoles []string
	EventTopic    string
	KafkaEnabled  bool

	EventPublishTimeout time.Duration

	JWTSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DirectoryURL      string
	DirectoryCacheTTL time.Duration
	DirectoryTimeout  time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the process environment, optionally seeded from a local .env
// file, and exits the process if the result does not validate.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		OpenHour:      getEnvNum(EnvOpenHour, DefaultOpenHour),
		CloseHour:     getEnvNum(EnvCloseHour, DefaultCloseHour),
		Timezone:      getEnvStr(EnvTimezone, DefaultTimezone),
		Horizon:       getEnvDuration(EnvHorizon, DefaultHorizon),
		ApproverRoles: getEnvList(EnvApproverRoles, DefaultApprovers),
		EventTopic:    getEnvStr(EnvEventTopic, DefaultEventTopic),
		KafkaEnabled:  getEnvBool(EnvKafkaEnabled, false),

		EventPublishTimeout: getEnvDuration(EnvEventPublishTimeout, DefaultEventPublishTimeout),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, 0),

		DirectoryURL:      getEnvStr(EnvDirectoryURL, DefaultDirectoryURL),
		DirectoryCacheTTL: getEnvDuration(EnvDirectoryCacheTTL, DefaultDirectoryCacheTTL),
		DirectoryTimeout:  getEnvDuration(EnvDirectoryTimeout, DefaultDirectoryTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		cfg.Location = loc
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"Horizon", cfg.Horizon},
		{"DirectoryCacheTTL", cfg.DirectoryCacheTTL},
		{"DirectoryTimeout", cfg.DirectoryTimeout},
		{"EventPublishTimeout", cfg.EventPublishTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.OpenHour < 0 || cfg.OpenHour > 23 {
		errors = append(errors, fmt.Sprintf("OpenHour must be between 0 and 23, got: %d", cfg.OpenHour))
	}
	if cfg.CloseHour < 1 || cfg.CloseHour > 24 {
		errors = append(errors, fmt.Sprintf("CloseHour must be between 1 and 24, got: %d", cfg.CloseHour))
	}
	if cfg.CloseHour <= cfg.OpenHour {
		errors = append(errors, fmt.Sprintf("CloseHour (%d) must be after OpenHour (%d)", cfg.CloseHour, cfg.OpenHour))
	}
	if cfg.Location == nil {
		errors = append(errors, fmt.Sprintf("Timezone must be a valid IANA zone, got: %s", cfg.Timezone))
	}
	if len(cfg.ApproverRoles) == 0 {
		errors = append(errors, "ApproverRoles cannot be empty")
	}
	if cfg.JWTSecret == "" {
		errors = append(errors, "JWTSecret cannot be empty")
	}
	if cfg.KafkaEnabled && cfg.EventTopic == "" {
		errors = append(errors, "EventTopic cannot be empty when Kafka is enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"open_hour", cfg.OpenHour,
		"close_hour", cfg.CloseHour,
		"timezone", cfg.Timezone,
		"horizon", cfg.Horizon,
		"approver_roles", cfg.ApproverRoles,
		"event_topic", cfg.EventTopic,
		"kafka_enabled", cfg.KafkaEnabled,
		"event_publish_timeout", cfg.EventPublishTimeout,
		"jwt_secret_set", cfg.JWTSecret != "",
		"redis_addr", cfg.RedisAddr,
		"directory_url", cfg.DirectoryURL,
		"directory_cache_ttl", cfg.DirectoryCacheTTL,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnvStr(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
