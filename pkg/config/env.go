package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvOpenHour      = "BOOKING_OPEN_HOUR"
	EnvCloseHour     = "BOOKING_CLOSE_HOUR"
	EnvTimezone      = "BOOKING_TIMEZONE"
	EnvHorizon       = "BOOKING_HORIZON"
	EnvApproverRoles = "APPROVER_ROLES"
	EnvEventTopic    = "BOOKING_EVENTS_TOPIC"
	EnvKafkaEnabled  = "KAFKA_ENABLED"

	EnvEventPublishTimeout = "EVENT_PUBLISH_TIMEOUT"

	EnvJWTSecret = "JWT_SECRET"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvDirectoryURL      = "DIRECTORY_URL"
	EnvDirectoryCacheTTL = "DIRECTORY_CACHE_TTL"
	EnvDirectoryTimeout  = "DIRECTORY_TIMEOUT"
)
