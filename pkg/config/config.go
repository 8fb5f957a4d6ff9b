package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"bidhouse/pkg/client"
	"bidhouse/pkg/logger"
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

	BidTopic         string
	BidDLQTopic      string
	BidGroupID       string
	MaxBidAmount     int64
	StoreCallTimeout time.Duration

	ActivationInterval   time.Duration
	CloseoutInterval     time.Duration
	OfferTimeoutInterval time.Duration
	NotifyInterval       time.Duration

	RetentionWidth int
	FinalistCount  int
	OfferTTL       time.Duration

	NotifierBaseURL      string
	UserDirectoryBaseURL string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
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

		BidTopic:         getEnvStr(EnvBidTopic, DefaultBidTopic),
		BidDLQTopic:      getEnvStr(EnvBidDLQTopic, DefaultBidDLQTopic),
		BidGroupID:       getEnvStr(EnvBidGroupID, DefaultBidGroupID),
		MaxBidAmount:     getEnvInt64(EnvMaxBidAmount, DefaultMaxBidAmount),
		StoreCallTimeout: getEnvDuration(EnvStoreCallTime, DefaultStoreCall),

		ActivationInterval:   getEnvDuration(EnvActivationInterval, DefaultActivationInterval),
		CloseoutInterval:     getEnvDuration(EnvCloseoutInterval, DefaultCloseoutInterval),
		OfferTimeoutInterval: getEnvDuration(EnvOfferTimeoutInterval, DefaultOfferTimeoutInterval),
		NotifyInterval:       getEnvDuration(EnvNotifyInterval, DefaultNotifyInterval),

		RetentionWidth: getEnvNum(EnvRetentionWidth, DefaultRetentionWidth),
		FinalistCount:  getEnvNum(EnvFinalistCount, DefaultFinalistCount),
		OfferTTL:       getEnvDuration(EnvOfferTTL, DefaultOfferTTL),

		NotifierBaseURL:      getEnvStr(EnvNotifierBaseURL, DefaultNotifierBaseURL),
		UserDirectoryBaseURL: getEnvStr(EnvUserDirectoryBaseURL, DefaultUserDirectoryBaseURL),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
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

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.BidTopic == "" {
		errors = append(errors, "BidTopic cannot be empty")
	}
	if cfg.BidGroupID == "" {
		errors = append(errors, "BidGroupID cannot be empty")
	}
	if cfg.MaxBidAmount <= 0 {
		errors = append(errors, fmt.Sprintf("MaxBidAmount must be positive, got: %d", cfg.MaxBidAmount))
	}
	if cfg.StoreCallTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("StoreCallTimeout must be positive, got: %s", cfg.StoreCallTimeout))
	}

	if cfg.ActivationInterval <= 0 {
		errors = append(errors, fmt.Sprintf("ActivationInterval must be positive, got: %s", cfg.ActivationInterval))
	}
	if cfg.CloseoutInterval <= 0 {
		errors = append(errors, fmt.Sprintf("CloseoutInterval must be positive, got: %s", cfg.CloseoutInterval))
	}
	if cfg.OfferTimeoutInterval <= 0 {
		errors = append(errors, fmt.Sprintf("OfferTimeoutInterval must be positive, got: %s", cfg.OfferTimeoutInterval))
	}
	if cfg.NotifyInterval <= 0 {
		errors = append(errors, fmt.Sprintf("NotifyInterval must be positive, got: %s", cfg.NotifyInterval))
	}

	if cfg.RetentionWidth <= 0 {
		errors = append(errors, fmt.Sprintf("RetentionWidth must be positive, got: %d", cfg.RetentionWidth))
	}
	if cfg.FinalistCount <= 0 {
		errors = append(errors, fmt.Sprintf("FinalistCount must be positive, got: %d", cfg.FinalistCount))
	}
	if cfg.FinalistCount > cfg.RetentionWidth {
		errors = append(errors, fmt.Sprintf("FinalistCount (%d) must be <= RetentionWidth (%d)", cfg.FinalistCount, cfg.RetentionWidth))
	}
	if cfg.OfferTTL <= 0 {
		errors = append(errors, fmt.Sprintf("OfferTTL must be positive, got: %s", cfg.OfferTTL))
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
		"bid_topic", cfg.BidTopic,
		"bid_dlq_topic", cfg.BidDLQTopic,
		"bid_group_id", cfg.BidGroupID,
		"max_bid_amount_minor", cfg.MaxBidAmount,
		"store_call_timeout", cfg.StoreCallTimeout,
		"activation_interval", cfg.ActivationInterval,
		"closeout_interval", cfg.CloseoutInterval,
		"offer_timeout_interval", cfg.OfferTimeoutInterval,
		"notify_interval", cfg.NotifyInterval,
		"retention_width", cfg.RetentionWidth,
		"finalist_count", cfg.FinalistCount,
		"offer_ttl", cfg.OfferTTL,
		"notifier_base_url", cfg.NotifierBaseURL,
		"user_directory_base_url", cfg.UserDirectoryBaseURL,
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

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
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
