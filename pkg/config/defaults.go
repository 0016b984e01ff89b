package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "defensebook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultOpenHour   = 9
	DefaultCloseHour  = 17
	DefaultTimezone   = "Europe/Kyiv"
	DefaultHorizon    = 30 * 24 * time.Hour
	DefaultApprovers  = "HEAD,SUPERVISOR"
	DefaultEventTopic = "defense-bookings"

	DefaultEventPublishTimeout = 2 * time.Second

	DefaultRedisAddr         = "localhost:6379"
	DefaultDirectoryURL      = "http://localhost:8081"
	DefaultDirectoryCacheTTL = 10 * time.Minute
	DefaultDirectoryTimeout  = 3 * time.Second
)
