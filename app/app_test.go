package app

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guyskk/weirb-hrpc/config"
	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/gateway"
	"github.com/guyskk/weirb-hrpc/plugin"
	"github.com/guyskk/weirb-hrpc/request"
	"github.com/guyskk/weirb-hrpc/scope"
	"github.com/guyskk/weirb-hrpc/service"
)

func emptyLoader() *config.Loader {
	return config.NewLoader(config.WithEnviron(func() []string { return nil }))
}

func newEchoApp(t *testing.T, plugins ...*plugin.Plugin) *App {
	t.Helper()
	a := New()
	for _, p := range plugins {
		require.NoError(t, a.RegisterPlugin(p))
	}
	echo := service.New("Echo")
	require.NoError(t, echo.Register("say", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{Status: 200, Body: req.Body}, nil
	}))
	require.NoError(t, a.RegisterService(echo))
	require.NoError(t, a.Boot(emptyLoader()))
	return a
}

func post(path string, body string) *gateway.Request {
	return &gateway.Request{Method: "POST", Path: path, Body: []byte(body), ID: "t-1"}
}

func TestBootValidationSucceeds(t *testing.T) {
	// P1 provides "cache"; P2 requires it plus an internal config field.
	p1 := &plugin.Plugin{Name: "p1", Provides: []string{"cache"}}
	p2 := &plugin.Plugin{Name: "p2", Requires: []string{"cache", "config.debug"}}
	a := newEchoApp(t, p1, p2)
	assert.NotNil(t, a.Router())
}

func TestBootValidationFailsWithoutProvider(t *testing.T) {
	a := New()
	require.NoError(t, a.RegisterPlugin(&plugin.Plugin{
		Name: "p2", Requires: []string{"cache", "config.debug"},
	}))
	err := a.Boot(emptyLoader())
	require.Error(t, err)
	assert.True(t, errors.IsDependency(err))
	assert.Contains(t, err.Error(), "cache")
}

func TestRoundTripWithoutPlugins(t *testing.T) {
	a := New(WithFields(config.Field{Name: "greeting", Kind: config.KindString, Default: "hello"}))
	echo := service.New("Echo")
	require.NoError(t, echo.Register("say", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{Status: 200, Body: req.Body}, nil
	}))
	require.NoError(t, a.RegisterService(echo))
	require.NoError(t, a.Boot(config.NewLoader(
		config.WithOverride("port", 8080),
		config.WithEnviron(func() []string { return nil }),
	)))

	ctx := a.Context(context.Background())
	require.NoError(t, ctx.Enter())
	port, err := ctx.Require("config.port")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)
	_, err = ctx.Require("config.missing")
	assert.True(t, errors.IsDependency(err))
	require.NoError(t, ctx.Exit(nil))
}

func TestHandleSuccess(t *testing.T) {
	a := newEchoApp(t)
	resp := a.Handle(context.Background(), post("/api/Echo/say", `{"text":"hi"}`))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, `{"text":"hi"}`, string(resp.Body))
}

func TestHandleNotFound(t *testing.T) {
	a := newEchoApp(t)
	resp := a.Handle(context.Background(), post("/api/Echo/nope", ""))
	require.Equal(t, 404, resp.Status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &payload))
	assert.Equal(t, "Hrpc.NotFound", payload["error"])
}

func TestHandleWrongVerb(t *testing.T) {
	a := newEchoApp(t)
	req := post("/api/Echo/say", "")
	req.Method = "GET"
	resp := a.Handle(context.Background(), req)
	assert.Equal(t, 405, resp.Status)
}

func TestHandleDomainError(t *testing.T) {
	a := New()
	svc := service.New("Account")
	require.NoError(t, svc.Register("login", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		return nil, errors.NewInvalidParams("password required").WithData(map[string]any{"field": "password"})
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	resp := a.Handle(context.Background(), post("/api/Account/login", "{}"))
	require.Equal(t, 400, resp.Status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &payload))
	assert.Equal(t, "Hrpc.InvalidParams", payload["error"])
	assert.Equal(t, "password required", payload["message"])
	assert.NotNil(t, payload["data"])
}

func TestHandleInternalErrorIsGeneric(t *testing.T) {
	a := New()
	svc := service.New("Broken")
	require.NoError(t, svc.Register("fail", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		return nil, stderrors.New("secret database password leaked")
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	resp := a.Handle(context.Background(), post("/api/Broken/fail", ""))
	require.Equal(t, 500, resp.Status)
	assert.NotContains(t, string(resp.Body), "secret")
	assert.Contains(t, string(resp.Body), "Hrpc.InternalError")
}

func TestHandlePanicIsContained(t *testing.T) {
	a := New()
	svc := service.New("Broken")
	require.NoError(t, svc.Register("boom", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		panic("kaboom")
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	resp := a.Handle(context.Background(), post("/api/Broken/boom", ""))
	assert.Equal(t, 500, resp.Status)
}

func TestHandleTransportErrorPassesThrough(t *testing.T) {
	a := New()
	svc := service.New("Files")
	require.NoError(t, svc.Register("get", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		return nil, &gateway.StatusError{Status: 304}
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	resp := a.Handle(context.Background(), post("/api/Files/get", ""))
	assert.Equal(t, 304, resp.Status)
}

func TestScopeLifecycleAroundHandler(t *testing.T) {
	var events []string
	dbPlugin := &plugin.Plugin{
		Name:     "db",
		Provides: []string{"db.tx"},
		Scope: func(ctx *request.Context) scope.Participant {
			return scope.Func("db.tx", func(ready func() error) error {
				events = append(events, "begin")
				ctx.Provide("db.tx", "tx-1")
				if cause := ready(); cause != nil {
					events = append(events, "rollback")
					return cause
				}
				events = append(events, "commit")
				return nil
			})
		},
	}
	a := New()
	require.NoError(t, a.RegisterPlugin(dbPlugin))
	svc := service.New("Orders")
	require.NoError(t, svc.Register("create", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		tx, err := ctx.Require("db.tx")
		if err != nil {
			return nil, err
		}
		events = append(events, "handle "+tx.(string))
		return &gateway.Response{Status: 200}, nil
	}))
	require.NoError(t, svc.Register("fail", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		events = append(events, "handle fail")
		return nil, stderrors.New("business failure")
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	resp := a.Handle(context.Background(), post("/api/Orders/create", "{}"))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, []string{"begin", "handle tx-1", "commit"}, events)

	events = nil
	resp = a.Handle(context.Background(), post("/api/Orders/fail", "{}"))
	require.Equal(t, 500, resp.Status)
	assert.Equal(t, []string{"begin", "handle fail", "rollback"}, events)
}

func TestScopeEnterFailureSkipsHandler(t *testing.T) {
	handled := false
	badPlugin := &plugin.Plugin{
		Name: "broken",
		Scope: func(ctx *request.Context) scope.Participant {
			return scope.Func("broken", func(ready func() error) error {
				return stderrors.New("resource unavailable")
			})
		},
	}
	a := New()
	require.NoError(t, a.RegisterPlugin(badPlugin))
	svc := service.New("Echo")
	require.NoError(t, svc.Register("say", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		handled = true
		return &gateway.Response{Status: 200}, nil
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	resp := a.Handle(context.Background(), post("/api/Echo/say", ""))
	assert.Equal(t, 500, resp.Status)
	assert.False(t, handled, "handler must not run when scope enter fails")
}

func TestScopeEnterDomainErrorMapsToStatus(t *testing.T) {
	// A scope raising a domain error at enter (rate limiting) maps to its
	// own status, not a generic 500.
	limited := &plugin.Plugin{
		Name: "limiter",
		Scope: func(ctx *request.Context) scope.Participant {
			return scope.Func("limiter", func(ready func() error) error {
				return errors.NewTooManyRequests("limit exceeded")
			})
		},
	}
	a := New()
	require.NoError(t, a.RegisterPlugin(limited))
	svc := service.New("Echo")
	require.NoError(t, svc.Register("say", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{Status: 200}, nil
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	resp := a.Handle(context.Background(), post("/api/Echo/say", ""))
	assert.Equal(t, 429, resp.Status)
}

func TestDecoratorsRunInPluginOrder(t *testing.T) {
	var order []string
	mkPlugin := func(name string) *plugin.Plugin {
		return &plugin.Plugin{
			Name: name,
			Decorator: func(next request.Handler) request.Handler {
				return func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
					order = append(order, name)
					return next(ctx, req)
				}
			},
		}
	}
	a := newEchoApp(t, mkPlugin("auth"), mkPlugin("trace"))
	resp := a.Handle(context.Background(), post("/api/Echo/say", "x"))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, []string{"auth", "trace"}, order)
}

func TestTeardownSuppressionStillReportsHandlerError(t *testing.T) {
	absorbing := &plugin.Plugin{
		Name: "absorber",
		Scope: func(ctx *request.Context) scope.Participant {
			return scope.Func("absorber", func(ready func() error) error {
				_ = ready()
				return nil // absorbs the handler error during teardown
			})
		},
	}
	a := New()
	require.NoError(t, a.RegisterPlugin(absorbing))
	svc := service.New("Echo")
	require.NoError(t, svc.Register("fail", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		return nil, errors.NewInvalidParams("bad input")
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	// Teardown propagation is suppressed, but a swallowed response would
	// turn a real failure into a silent success: the caller still sees the
	// handler's domain error.
	resp := a.Handle(context.Background(), post("/api/Echo/fail", ""))
	assert.Equal(t, 400, resp.Status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &payload))
	assert.Equal(t, "Hrpc.InvalidParams", payload["error"])
}

func TestTeardownSupersedingErrorDecidesResponse(t *testing.T) {
	superseding := &plugin.Plugin{
		Name: "storage",
		Scope: func(ctx *request.Context) scope.Participant {
			return scope.Func("storage", func(ready func() error) error {
				_ = ready()
				return stderrors.New("disk full during teardown")
			})
		},
	}
	a := New()
	require.NoError(t, a.RegisterPlugin(superseding))
	svc := service.New("Echo")
	require.NoError(t, svc.Register("fail", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		return nil, errors.NewInvalidParams("bad input")
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	// The teardown failure supersedes the handler's domain error, so the
	// caller gets the generic internal response, not the stale 400. The
	// superseded domain error stays reachable only as the cause.
	resp := a.Handle(context.Background(), post("/api/Echo/fail", ""))
	require.Equal(t, 500, resp.Status)
	assert.Contains(t, string(resp.Body), "Hrpc.InternalError")
	assert.NotContains(t, string(resp.Body), "Hrpc.InvalidParams")
	assert.NotContains(t, string(resp.Body), "disk full")
}

func TestTeardownSupersedingDomainErrorMapsToItsStatus(t *testing.T) {
	limited := &plugin.Plugin{
		Name: "quota",
		Scope: func(ctx *request.Context) scope.Participant {
			return scope.Func("quota", func(ready func() error) error {
				_ = ready()
				return errors.NewTooManyRequests("write quota exhausted")
			})
		},
	}
	a := New()
	require.NoError(t, a.RegisterPlugin(limited))
	svc := service.New("Echo")
	require.NoError(t, svc.Register("fail", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		return nil, errors.NewInvalidParams("bad input")
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	// Latest wins in both directions: a domain error raised during teardown
	// is the current error and maps to its own status.
	resp := a.Handle(context.Background(), post("/api/Echo/fail", ""))
	require.Equal(t, 429, resp.Status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &payload))
	assert.Equal(t, "Hrpc.TooManyRequests", payload["error"])
}

func TestBootRejectsLateRegistration(t *testing.T) {
	a := newEchoApp(t)
	err := a.RegisterPlugin(&plugin.Plugin{Name: "late"})
	require.Error(t, err)
	err = a.RegisterService(service.New("Late"))
	require.Error(t, err)
	err = a.Boot(emptyLoader())
	require.Error(t, err)
}

func TestPluginConfigFieldReachesRequests(t *testing.T) {
	p := &plugin.Plugin{
		Name:     "greeter",
		Fields:   []config.Field{{Name: "greeting", Kind: config.KindString, Default: "hello"}},
		Requires: []string{"config.greeting"},
	}
	a := New()
	require.NoError(t, a.RegisterPlugin(p))
	svc := service.New("Echo")
	require.NoError(t, svc.Register("greet", func(ctx *request.Context, req *gateway.Request) (*gateway.Response, error) {
		greeting, err := ctx.Require("config.greeting")
		if err != nil {
			return nil, err
		}
		return &gateway.Response{Status: 200, Body: []byte(greeting.(string))}, nil
	}))
	require.NoError(t, a.RegisterService(svc))
	require.NoError(t, a.Boot(emptyLoader()))

	resp := a.Handle(context.Background(), post("/api/Echo/greet", ""))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, "hello", string(resp.Body))
}
