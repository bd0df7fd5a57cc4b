package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guyskk/weirb-hrpc/errors"
)

func TestRequireConfigNamespace(t *testing.T) {
	c := New(map[string]any{"port": 8080, "debug": true})

	value, err := c.Require("config.port")
	require.NoError(t, err)
	assert.Equal(t, 8080, value)

	_, err = c.Require("config.missing")
	require.Error(t, err)
	assert.True(t, errors.IsDependency(err))
}

func TestProvideThenRequire(t *testing.T) {
	c := New(nil)
	pool := &struct{ name string }{name: "db"}
	c.Provide("db.pool", pool)

	value, err := c.Require("db.pool")
	require.NoError(t, err)
	assert.Same(t, pool, value)
}

func TestRequireUnknownKey(t *testing.T) {
	c := New(nil)
	_, err := c.Require("db.pool")
	require.Error(t, err)
	assert.True(t, errors.IsDependency(err))
	assert.Contains(t, err.Error(), "db.pool")
}

func TestLazyProviderInvokedOnce(t *testing.T) {
	c := New(nil)
	calls := 0
	c.ProvideLazy("cache", func() (any, error) {
		calls++
		return map[string]string{}, nil
	})

	first, err := c.Require("cache")
	require.NoError(t, err)
	second, err := c.Require("cache")
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "constructor must be invoked at most once")
	assert.Equal(t, first, second)
}

func TestLazyProviderError(t *testing.T) {
	c := New(nil)
	c.ProvideLazy("cache", func() (any, error) {
		return nil, errors.NewConfig("cache unavailable")
	})

	_, err := c.Require("cache")
	require.Error(t, err)
	// The failure is not memoized; a later registration can recover.
	c.Provide("cache", "ready")
	value, err := c.Require("cache")
	require.NoError(t, err)
	assert.Equal(t, "ready", value)
}

func TestLastWriteWins(t *testing.T) {
	c := New(nil)
	c.Provide("token", "first")
	c.Provide("token", "second")

	value, err := c.Require("token")
	require.NoError(t, err)
	assert.Equal(t, "second", value)

	// A lazy registration replaces an eager one.
	c.ProvideLazy("token", func() (any, error) { return "lazy", nil })
	value, err = c.Require("token")
	require.NoError(t, err)
	assert.Equal(t, "lazy", value)

	// And an eager one replaces a lazy one.
	c.ProvideLazy("other", func() (any, error) { return "unused", nil })
	c.Provide("other", "eager")
	value, err = c.Require("other")
	require.NoError(t, err)
	assert.Equal(t, "eager", value)
}

func TestHas(t *testing.T) {
	c := New(map[string]any{"port": 8080})
	c.Provide("db.pool", 1)
	c.ProvideLazy("cache", func() (any, error) { return nil, nil })

	assert.True(t, c.Has("config.port"))
	assert.False(t, c.Has("config.missing"))
	assert.True(t, c.Has("db.pool"))
	assert.True(t, c.Has("cache"))
	assert.False(t, c.Has("unknown"))
}

func TestResolveTyped(t *testing.T) {
	c := New(map[string]any{"port": 8080})

	port, err := Resolve[int](c, "config.port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	_, err = Resolve[string](c, "config.port")
	require.Error(t, err)
	assert.True(t, errors.IsDependency(err))
}
