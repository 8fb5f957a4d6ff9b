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

	EnvBidTopic      = "BID_TOPIC"
	EnvBidDLQTopic   = "BID_DLQ_TOPIC"
	EnvBidGroupID    = "BID_CONSUMER_GROUP"
	EnvMaxBidAmount  = "MAX_BID_AMOUNT_MINOR"
	EnvStoreCallTime = "STORE_CALL_TIMEOUT"

	EnvActivationInterval   = "ACTIVATION_INTERVAL"
	EnvCloseoutInterval     = "CLOSEOUT_INTERVAL"
	EnvOfferTimeoutInterval = "OFFER_TIMEOUT_INTERVAL"
	EnvNotifyInterval       = "NOTIFY_INTERVAL"

	EnvRetentionWidth = "LEADERBOARD_RETENTION_WIDTH"
	EnvFinalistCount  = "FINALIST_COUNT"
	EnvOfferTTL       = "OFFER_TTL"

	EnvNotifierBaseURL      = "NOTIFIER_BASE_URL"
	EnvUserDirectoryBaseURL = "USER_DIRECTORY_BASE_URL"
)
