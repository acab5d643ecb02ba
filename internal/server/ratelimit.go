package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Limit names reported in RateLimitError and QuotaExceededError.
const (
	limitMinute   = "minute"
	limitHour     = "hour"
	quotaRequests = "requests"
	quotaData     = "data"
)

// RateLimiter tracks per-client request rates and daily quotas. Clients
// idle for more than a day are evicted.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64 // bytes

	clients *cache.Cache
	now     func() time.Time
}

// ClientUsage is a snapshot of one client's counters.
type ClientUsage struct {
	RequestsThisMinute int
	RequestsThisHour   int
	RequestsToday      int
	DataToday          int64

	minuteStart time.Time
	hourStart   time.Time
	dayStart    time.Time
}

// NewRateLimiter creates a rate limiter. A zero limit is not enforced.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           cache.New(25*time.Hour, time.Hour),
		now:               time.Now,
	}
}

// CheckRateLimit admits or rejects one request of dataSize bytes from
// clientID. Rejected requests do not count against the client.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	usage := rl.usageFor(clientID, now)
	usage.roll(now)

	if err := rl.checkRates(usage, now); err != nil {
		return err
	}
	if err := rl.checkQuotas(usage, dataSize, now); err != nil {
		return err
	}

	usage.RequestsThisMinute++
	usage.RequestsThisHour++
	usage.RequestsToday++
	usage.DataToday += dataSize
	rl.clients.SetDefault(clientID, usage)
	return nil
}

// roll starts new windows once the current ones have elapsed.
func (u *ClientUsage) roll(now time.Time) {
	if now.Sub(u.minuteStart) >= time.Minute {
		u.minuteStart = now
		u.RequestsThisMinute = 0
	}
	if now.Sub(u.hourStart) >= time.Hour {
		u.hourStart = now
		u.RequestsThisHour = 0
	}
	if !sameDay(now, u.dayStart) {
		u.dayStart = now
		u.RequestsToday = 0
		u.DataToday = 0
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func (rl *RateLimiter) checkRates(u *ClientUsage, now time.Time) error {
	if rl.requestsPerMinute > 0 && u.RequestsThisMinute >= rl.requestsPerMinute {
		return &RateLimitError{
			Type:       limitMinute,
			Limit:      rl.requestsPerMinute,
			RetryAfter: u.minuteStart.Add(time.Minute).Sub(now),
		}
	}
	if rl.requestsPerHour > 0 && u.RequestsThisHour >= rl.requestsPerHour {
		return &RateLimitError{
			Type:       limitHour,
			Limit:      rl.requestsPerHour,
			RetryAfter: u.hourStart.Add(time.Hour).Sub(now),
		}
	}
	return nil
}

func (rl *RateLimiter) checkQuotas(u *ClientUsage, dataSize int64, now time.Time) error {
	resets := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())

	if rl.maxRequestsPerDay > 0 && u.RequestsToday >= rl.maxRequestsPerDay {
		return &QuotaExceededError{
			Type:   quotaRequests,
			Limit:  int64(rl.maxRequestsPerDay),
			Used:   int64(u.RequestsToday),
			Resets: resets,
		}
	}
	if rl.maxDataPerDay > 0 && u.DataToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{
			Type:   quotaData,
			Limit:  rl.maxDataPerDay,
			Used:   u.DataToday,
			Resets: resets,
		}
	}
	return nil
}

// usageFor returns the live counters for clientID. Callers hold rl.mu.
func (rl *RateLimiter) usageFor(clientID string, now time.Time) *ClientUsage {
	if v, ok := rl.clients.Get(clientID); ok {
		return v.(*ClientUsage)
	}
	u := &ClientUsage{minuteStart: now, hourStart: now, dayStart: now}
	rl.clients.SetDefault(clientID, u)
	return u
}

// GetUsage returns a copy of the counters for clientID. Unknown clients
// report zero usage.
func (rl *RateLimiter) GetUsage(clientID string) ClientUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.clients.Get(clientID); ok {
		return *v.(*ClientUsage)
	}
	return ClientUsage{}
}

// RateLimitError reports a per-minute or per-hour limit violation.
type RateLimitError struct {
	Type       string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter.Round(time.Second))
}

// QuotaExceededError reports a daily quota violation.
type QuotaExceededError struct {
	Type   string
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
