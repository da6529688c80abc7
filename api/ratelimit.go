package api

import (
	"context"
	"sync"
	"time"

	"nimbus/internal/logger"
	"nimbus/weather"
)

// RateLimiter is a sliding window limiter for one upstream service
type RateLimiter struct {
	mu          sync.Mutex
	requests    []time.Time
	maxRequests int
	window      time.Duration
}

// NewRateLimiter creates a limiter allowing maxRequests per window
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests:    make([]time.Time, 0, maxRequests),
		maxRequests: maxRequests,
		window:      window,
	}
}

// Wait blocks until a request can be made or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()

		cutoff := now.Add(-rl.window)
		i := 0
		for i < len(rl.requests) && rl.requests[i].Before(cutoff) {
			i++
		}
		rl.requests = rl.requests[i:]

		if len(rl.requests) < rl.maxRequests {
			rl.requests = append(rl.requests, now)
			rl.mu.Unlock()
			return nil
		}

		sleepTime := rl.requests[0].Add(rl.window).Sub(now)
		rl.mu.Unlock()

		logger.Debug("Rate limit reached, waiting %.2f seconds", sleepTime.Seconds())
		timer := time.NewTimer(sleepTime)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Requests per minute, kept under each service's free tier quota
var providerLimits = map[weather.ProviderID]int{
	weather.OpenWeatherMap:     50,
	weather.WeatherAPI:         50,
	weather.WeatherBit:         30,
	weather.TomorrowIO:         20,
	weather.WorldWeatherOnline: 30,
	weather.OpenUV:             30,
	weather.Yr:                 20,
	weather.OpenMeteo:          500,
}

var (
	limitersMu sync.Mutex
	limiters   = make(map[weather.ProviderID]*RateLimiter)
)

// limiterFor returns the process-wide limiter shared by every request to id
func limiterFor(id weather.ProviderID) *RateLimiter {
	limitersMu.Lock()
	defer limitersMu.Unlock()

	if rl, ok := limiters[id]; ok {
		return rl
	}
	max, ok := providerLimits[id]
	if !ok {
		max = 60
	}
	rl := NewRateLimiter(max, time.Minute)
	limiters[id] = rl
	return rl
}
