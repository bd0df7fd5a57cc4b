// Package gateway defines the transport-agnostic request and response
// representation exchanged between transport adapters and the app's
// per-request entry point. Concrete transports live in the subpackages
// gateway/http and gateway/nats.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Request is the opaque inbound call handed to the entry point. Transports
// fill it from their native representation; the framework core never
// interprets the body.
type Request struct {
	// Method is the transport verb; RPC calls use POST.
	Method string
	// Path identifies the call as /<prefix>/<Service>/<method>.
	Path string
	// Header carries transport metadata (request id, content type).
	Header map[string]string
	// Body is the raw call payload.
	Body []byte
	// RemoteAddr identifies the caller when the transport knows it.
	RemoteAddr string
	// ID is the request id used for tracing; transports generate one when
	// the caller did not supply it.
	ID string
}

// HeaderValue returns a header value or "".
func (r *Request) HeaderValue(key string) string {
	if r.Header == nil {
		return ""
	}
	return r.Header[key]
}

// Response is the opaque outbound result returned by the entry point.
type Response struct {
	Status int
	Header map[string]string
	Body   []byte
}

// SetHeader sets a response header, allocating the map on first use.
func (r *Response) SetHeader(key, value string) {
	if r.Header == nil {
		r.Header = make(map[string]string)
	}
	r.Header[key] = value
}

// JSON builds a response with a JSON-encoded body.
func JSON(status int, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode response: %w", err)
	}
	resp := &Response{Status: status, Body: body}
	resp.SetHeader("Content-Type", "application/json")
	return resp, nil
}

// OK builds a 200 response with a JSON-encoded body.
func OK(payload any) (*Response, error) {
	return JSON(http.StatusOK, payload)
}

// HandlerFunc is the single per-request entry point an app exposes to its
// transports. It never returns an error: every failure is already mapped to
// a response by the handler adapter.
type HandlerFunc func(ctx context.Context, req *Request) *Response

// StatusError is a transport-native error. The handler adapter passes it
// through to the transport unmodified instead of reinterpreting it under
// the framework error taxonomy.
type StatusError struct {
	Status int
	Body   []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("transport status %d", e.Status)
}

// Response converts the transport-native error to its wire form.
func (e *StatusError) Response() *Response {
	return &Response{Status: e.Status, Body: e.Body}
}
