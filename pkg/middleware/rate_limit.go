package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/richardissailing/fantastic-spoon/pkg/cache"
	"github.com/richardissailing/fantastic-spoon/pkg/httpapi"
)

type RateLimitConfig struct {
	RequestsPerPeriod int
	Period            time.Duration
	Store             limiter.Store
}

func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "changes_rate_limit",
		CleanUpInterval: time.Minute,
	})
}

func NewRedisStore(url string) (limiter.Store, error) {
	client, err := cache.NewRedisClient(url)
	if err != nil {
		return nil, err
	}
	return limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "changes_rate_limit",
	})
}

// RateLimit limits requests per client IP. A zero RequestsPerPeriod disables it.
func RateLimit(cfg RateLimitConfig) mux.MiddlewareFunc {
	if cfg.RequestsPerPeriod <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	instance := limiter.New(cfg.Store, limiter.Rate{
		Period: cfg.Period,
		Limit:  int64(cfg.RequestsPerPeriod),
	})
	mw := limiterhttp.NewMiddleware(instance,
		limiterhttp.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			_ = httpapi.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, retry later", nil)
		}),
	)
	return mw.Handler
}
