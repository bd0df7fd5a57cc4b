package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/gateway"
	"github.com/guyskk/weirb-hrpc/request"
)

// Handler returns the entry point handed to transports.
func (a *App) Handler() gateway.HandlerFunc {
	return a.Handle
}

// Handle processes one request end to end: route lookup, scope enter,
// method invocation, unconditional scope exit, and outcome mapping. No
// error escapes; every failure becomes a response.
func (a *App) Handle(std context.Context, req *gateway.Request) *gateway.Response {
	start := time.Now()
	svcName, methodName := a.callLabels(req.Path)

	handler, err := a.routes.Lookup(req.Method, req.Path)
	if err != nil {
		resp, outcome := a.errorResponse(req, err)
		a.metrics.Core.ObserveRequest(svcName, methodName, outcome, time.Since(start))
		return resp
	}

	logger := a.logger.With(
		"request_id", req.ID,
		"service", svcName,
		"method", methodName,
	)
	ctx := request.New(std, a.configMap, a.factories, request.WithLogger(logger))

	a.metrics.Core.RequestsInFlight.Inc()
	defer a.metrics.Core.RequestsInFlight.Dec()

	if err := ctx.Enter(); err != nil {
		a.metrics.Core.ScopeFailures.WithLabelValues("enter").Inc()
		logger.Error("scope enter failed", "error", err)
		resp, outcome := a.errorResponse(req, err)
		a.metrics.Core.ObserveRequest(svcName, methodName, outcome, time.Since(start))
		return resp
	}

	resp, handlerErr := a.invoke(handler, ctx, req)

	// Exit runs unconditionally and receives the handler outcome, so
	// teardown observes success and failure alike.
	exitErr := ctx.Exit(handlerErr)
	if exitErr != nil {
		a.metrics.Core.ScopeFailures.WithLabelValues("exit").Inc()
	}

	finalErr := exitErr
	if finalErr == nil && handlerErr != nil {
		// Teardown absorbed the handler error. The caller still gets the
		// handler's failure: suppression governs teardown propagation, not
		// what the request reports.
		finalErr = handlerErr
	}

	var outcome string
	switch {
	case finalErr != nil:
		resp, outcome = a.errorResponse(req, finalErr)
	case resp == nil:
		logger.Error("handler returned no response and no error")
		resp, outcome = a.errorResponse(req, errors.NewInternal())
	default:
		outcome = "ok"
	}
	a.metrics.Core.ObserveRequest(svcName, methodName, outcome, time.Since(start))
	return resp
}

// invoke runs the decorated method, containing panics so teardown still
// runs with the failure as cause.
func (a *App) invoke(handler request.Handler, ctx *request.Context, req *gateway.Request) (resp *gateway.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
			resp = nil
		}
	}()
	return handler(ctx, req)
}

// errorResponse maps a request outcome error to its wire response and
// metric outcome label, per the error taxonomy. Only the current (latest)
// error decides the mapping: a domain error superseded during teardown must
// not reach the caller as a structured response while the superseding
// failure goes unreported.
func (a *App) errorResponse(req *gateway.Request, err error) (*gateway.Response, string) {
	current := errors.Current(err)

	var statusErr *gateway.StatusError
	if stderrors.As(current, &statusErr) {
		// Transport-native errors pass through untouched.
		return statusErr.Response(), "transport_error"
	}

	if domain, ok := errors.AsDomain(current); ok {
		resp, encodeErr := gateway.JSON(domain.Status, domain)
		if encodeErr != nil {
			a.logger.Error("encode domain error", "request_id", req.ID, "error", encodeErr)
			return a.internalResponse(), "internal_error"
		}
		return resp, "domain_error"
	}

	switch errors.Classify(current) {
	case errors.ClassProtocol:
		a.metrics.Core.ProtocolViolations.Inc()
		a.logger.Error("scope protocol violation", "request_id", req.ID, "error", current, "cause", errors.Cause(err))
	case errors.ClassDependency:
		a.logger.Error("unsatisfied dependency at request time", "request_id", req.ID, "error", current, "cause", errors.Cause(err))
	default:
		a.logger.Error("request failed", "request_id", req.ID, "error", current, "cause", errors.Cause(err))
	}
	return a.internalResponse(), "internal_error"
}

func (a *App) internalResponse() *gateway.Response {
	resp, err := gateway.JSON(500, errors.NewInternal())
	if err != nil {
		// Static payload; encoding cannot fail at runtime.
		return &gateway.Response{Status: 500}
	}
	return resp
}

// callLabels extracts service and method names from the path for metric
// labels, tolerating unroutable paths.
func (a *App) callLabels(path string) (string, string) {
	rest := strings.TrimPrefix(path, a.routes.Prefix())
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "unknown", "unknown"
	}
	return parts[0], parts[1]
}
