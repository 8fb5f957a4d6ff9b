package middleware

import (
	"net/http"
	"sync"
	"time"

	"bidhouse/pkg/logger"
)

// BidderExtractor resolves the bidder identity a request should be
// throttled under.
type BidderExtractor func(r *http.Request) string

// BidderRateLimiter applies a sliding-window request limit per bidder.
// A runaway client hammering the bid endpoint only starves itself, not
// the rest of the auction.
type BidderRateLimiter struct {
	mu              sync.RWMutex
	requests        map[string][]time.Time
	limit           int
	window          time.Duration
	bidderExtractor BidderExtractor
	log             *logger.Logger
	stopCh          chan struct{}
}

func NewBidderRateLimiter(limit int, window time.Duration, extractor BidderExtractor, log *logger.Logger) *BidderRateLimiter {
	limiter := &BidderRateLimiter{
		requests:        make(map[string][]time.Time),
		limit:           limit,
		window:          window,
		bidderExtractor: extractor,
		log:             log,
		stopCh:          make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *BidderRateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for bidder, timestamps := range rl.requests {
				if len(timestamps) == 0 || time.Since(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, bidder)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *BidderRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *BidderRateLimiter) Allow(bidder string) bool {
	if bidder == "" {
		return true
	}

	now := time.Now()

	rl.mu.RLock()
	timestamps := rl.requests[bidder]
	rl.mu.RUnlock()

	validTimestamps := make([]time.Time, 0)
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			validTimestamps = append(validTimestamps, ts)
		}
	}

	if len(validTimestamps) >= rl.limit {
		return false
	}

	validTimestamps = append(validTimestamps, now)

	rl.mu.Lock()
	rl.requests[bidder] = validTimestamps
	rl.mu.Unlock()

	return true
}

func BidderRateLimit(limiter *BidderRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bidder := extractBidder(r, limiter.bidderExtractor)

			if bidder == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(bidder) {
				rejectRateLimited(w, limiter.log, r, bidder)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractBidder(r *http.Request, extractor BidderExtractor) string {
	if extractor == nil {
		return r.Header.Get("X-User-ID")
	}
	return extractor(r)
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, bidder string) {
	requestID := ""
	if rid := r.Context().Value(RequestIDKey); rid != nil {
		requestID = rid.(string)
	}

	log.Warn("Rate limit exceeded",
		"request_id", requestID,
		"bidder_id", bidder,
		"path", r.URL.Path,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Rate limit exceeded"}`))
}

func DefaultBidderExtractor(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
