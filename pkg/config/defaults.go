package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "bidhouse"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = time.Minute

	DefaultRequestTimeout = 10 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 << 20 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultBidTopic     = "auction.bids"
	DefaultBidDLQTopic  = "auction.bids.dlq"
	DefaultBidGroupID   = "bid-intake"
	DefaultMaxBidAmount = int64(2_000_000_000_00) // minor units
	DefaultStoreCall    = 50 * time.Millisecond

	DefaultActivationInterval   = 10 * time.Second
	DefaultCloseoutInterval     = time.Minute
	DefaultOfferTimeoutInterval = time.Hour
	DefaultNotifyInterval       = 30 * time.Second

	DefaultRetentionWidth = 10
	DefaultFinalistCount  = 5
	DefaultOfferTTL       = time.Hour

	DefaultNotifierBaseURL      = "http://localhost:8090"
	DefaultUserDirectoryBaseURL = "http://localhost:8091"
)
