// Package ratelimit provides the built-in rate limiting plugin. It guards
// every request's scope enter with a shared token bucket; rejected requests
// fail with a TooManyRequests domain error before any handler runs.
package ratelimit

import (
	"golang.org/x/time/rate"

	"github.com/guyskk/weirb-hrpc/config"
	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/plugin"
	"github.com/guyskk/weirb-hrpc/request"
	"github.com/guyskk/weirb-hrpc/scope"
)

// LimiterKey is the capability key under which the shared limiter is
// provided to request contexts.
const LimiterKey = "ratelimit.limiter"

// New creates the plugin. The limiter is built at activation from the
// ratelimit_rps and ratelimit_burst configuration fields.
func New() *plugin.Plugin {
	var limiter *rate.Limiter
	return &plugin.Plugin{
		Name: "ratelimit",
		Fields: []config.Field{
			{Name: "ratelimit_rps", Kind: config.KindFloat, Default: 100.0,
				Description: "sustained requests per second"},
			{Name: "ratelimit_burst", Kind: config.KindInt, Default: 100,
				Description: "burst size above the sustained rate"},
		},
		Provides: []string{LimiterKey},
		Activate: func(snap *config.Snapshot) error {
			rps := snap.GetFloat64("ratelimit_rps", 100)
			burst := snap.GetInt("ratelimit_burst", 100)
			if rps <= 0 || burst <= 0 {
				return errors.NewConfig(
					"ratelimit_rps and ratelimit_burst must be positive, got %v and %d", rps, burst)
			}
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			return nil
		},
		Scope: func(ctx *request.Context) scope.Participant {
			return scope.Func("ratelimit", func(ready func() error) error {
				if !limiter.Allow() {
					return errors.NewTooManyRequests("request rate limit exceeded")
				}
				ctx.Provide(LimiterKey, limiter)
				return ready()
			})
		},
	}
}
