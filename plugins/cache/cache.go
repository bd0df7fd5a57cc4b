// Package cache provides the built-in caching plugin: a process-wide TTL
// cache shared across requests, exposed to handlers under the "cache"
// capability key.
package cache

import (
	"time"

	"github.com/guyskk/weirb-hrpc/config"
	"github.com/guyskk/weirb-hrpc/pkg/cache"
	"github.com/guyskk/weirb-hrpc/plugin"
	"github.com/guyskk/weirb-hrpc/request"
	"github.com/guyskk/weirb-hrpc/scope"
)

// Key is the capability key under which the cache is provided.
const Key = "cache"

// New creates the plugin. The cache is built at activation from the
// cache_ttl and cache_cleanup_interval configuration fields.
func New() *plugin.Plugin {
	var store cache.Cache[any]
	return &plugin.Plugin{
		Name: "cache",
		Fields: []config.Field{
			{Name: "cache_ttl", Kind: config.KindDuration, Default: 5 * time.Minute,
				Description: "entry time to live"},
			{Name: "cache_cleanup_interval", Kind: config.KindDuration, Default: time.Minute,
				Description: "expired entry sweep interval"},
		},
		Provides: []string{Key},
		Activate: func(snap *config.Snapshot) error {
			ttl := snap.GetDuration("cache_ttl", 5*time.Minute)
			interval := snap.GetDuration("cache_cleanup_interval", time.Minute)
			store = cache.NewTTL[any](ttl, interval)
			return nil
		},
		Scope: func(ctx *request.Context) scope.Participant {
			return scope.Func("cache", func(ready func() error) error {
				ctx.Provide(Key, store)
				return ready()
			})
		},
	}
}

// From resolves the shared cache from a request context.
func From(ctx *request.Context) (cache.Cache[any], error) {
	value, err := ctx.Require(Key)
	if err != nil {
		return nil, err
	}
	return value.(cache.Cache[any]), nil
}
