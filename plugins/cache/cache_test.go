package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guyskk/weirb-hrpc/app"
	"github.com/guyskk/weirb-hrpc/config"
	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/gateway"
	"github.com/guyskk/weirb-hrpc/plugin"
	"github.com/guyskk/weirb-hrpc/request"
	"github.com/guyskk/weirb-hrpc/service"
)

func TestCacheSharedAcrossRequests(t *testing.T) {
	a := app.New()
	require.NoError(t, a.RegisterPlugin(New()))

	counter := service.New("Counter")
	require.NoError(t, counter.Register("hit", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		store, err := From(ctx)
		if err != nil {
			return nil, err
		}
		n := 0
		if value, ok := store.Get("count"); ok {
			n = value.(int)
		}
		n++
		if _, err := store.Set("count", n); err != nil {
			return nil, err
		}
		return &gateway.Response{Status: 200, Body: []byte{byte('0' + n)}}, nil
	}))
	require.NoError(t, a.RegisterService(counter))
	require.NoError(t, a.Boot(config.NewLoader(config.WithEnviron(func() []string { return nil }))))

	req := &gateway.Request{Method: "POST", Path: "/api/Counter/hit"}
	resp := a.Handle(context.Background(), req)
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, "1", string(resp.Body))

	// State persists across separate requests.
	resp = a.Handle(context.Background(), req)
	assert.Equal(t, "2", string(resp.Body))
}

func TestCacheSatisfiesDependents(t *testing.T) {
	dependent := &plugin.Plugin{Name: "warmup", Requires: []string{Key}}

	a := app.New()
	require.NoError(t, a.RegisterPlugin(New()))
	require.NoError(t, a.RegisterPlugin(dependent))
	require.NoError(t, a.Boot(config.NewLoader(config.WithEnviron(func() []string { return nil }))))

	// Without the cache plugin the same dependent fails boot validation.
	bare := app.New()
	require.NoError(t, bare.RegisterPlugin(&plugin.Plugin{Name: "warmup", Requires: []string{Key}}))
	err := bare.Boot(config.NewLoader(config.WithEnviron(func() []string { return nil })))
	require.Error(t, err)
	assert.True(t, errors.IsDependency(err))
	assert.Contains(t, err.Error(), Key)
}
