package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guyskk/weirb-hrpc/gateway"
	"github.com/guyskk/weirb-hrpc/request"
)

func echoHandler(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
	return &gateway.Response{Status: 200, Body: req.Body}, nil
}

func TestRegisterAndLookup(t *testing.T) {
	svc := New("Echo")
	require.NoError(t, svc.Register("say", echoHandler))

	h, ok := svc.Handler("say")
	require.True(t, ok)
	assert.NotNil(t, h)

	_, ok = svc.Handler("missing")
	assert.False(t, ok)
}

func TestRegisterDuplicateMethod(t *testing.T) {
	svc := New("Echo")
	require.NoError(t, svc.Register("say", echoHandler))
	err := svc.Register("say", echoHandler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered twice")
}

func TestMethodsSorted(t *testing.T) {
	svc := New("Echo")
	require.NoError(t, svc.Register("zeta", echoHandler))
	require.NoError(t, svc.Register("alpha", echoHandler))
	assert.Equal(t, []string{"alpha", "zeta"}, svc.Methods())
}

func TestRegistryRejectsDuplicateService(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(New("Echo")))
	err := r.Register(New("Echo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered twice")
}

func TestDecorateOrder(t *testing.T) {
	var order []string
	mk := func(name string) request.Decorator {
		return func(next request.Handler) request.Handler {
			return func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}
	svc := New("Echo")
	require.NoError(t, svc.Register("say", echoHandler))
	r := NewRegistry()
	require.NoError(t, r.Register(svc))
	require.NoError(t, r.Decorate([]request.Decorator{mk("first"), mk("second")}))

	h, ok := svc.Handler("say")
	require.True(t, ok)
	ctx := request.New(context.Background(), nil, nil)
	resp, err := h(ctx, &gateway.Request{Body: []byte("hi")})
	require.NoError(t, err)

	// The first registered decorator is the outermost wrapper.
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, []byte("hi"), resp.Body)
}

func TestDecorateTwiceFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Decorate(nil))
	err := r.Decorate(nil)
	require.Error(t, err)
}
