// Package nats serves the RPC API over NATS request-reply. Calls are
// addressed as <prefix>.<Service>.<method>; the reply carries the response
// body with the status in the Hrpc-Status header. Subscriptions use a
// shared queue group so multiple instances load-balance.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/guyskk/weirb-hrpc/app"
	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/gateway"
)

// StatusHeader carries the response status on the reply message.
const StatusHeader = "Hrpc-Status"

// RequestIDHeader carries the request id on both directions.
const RequestIDHeader = "Hrpc-Request-Id"

const defaultQueue = "hrpc"

// Server is the NATS transport over one app.
type Server struct {
	app    *app.App
	logger *slog.Logger

	url           string
	name          string
	queue         string
	username      string
	password      string
	token         string
	maxReconnects int
	reconnectWait time.Duration

	running atomic.Bool
	conn    *nats.Conn
	subs    []*nats.Subscription
}

// Option is a functional option for configuring the Server.
type Option func(*Server) error

// WithURL sets the NATS server URL; defaults to nats.DefaultURL.
func WithURL(url string) Option {
	return func(s *Server) error {
		s.url = url
		return nil
	}
}

// WithQueue sets the queue group shared by instances of this app.
func WithQueue(queue string) Option {
	return func(s *Server) error {
		if queue == "" {
			return errors.NewConfig("queue group cannot be empty")
		}
		s.queue = queue
		return nil
	}
}

// WithCredentials sets username and password authentication.
func WithCredentials(username, password string) Option {
	return func(s *Server) error {
		s.username = username
		s.password = password
		return nil
	}
}

// WithToken sets token authentication.
func WithToken(token string) Option {
	return func(s *Server) error {
		s.token = token
		return nil
	}
}

// WithMaxReconnects sets the reconnection attempt limit (-1 for infinite).
func WithMaxReconnects(max int) Option {
	return func(s *Server) error {
		s.maxReconnects = max
		return nil
	}
}

// WithReconnectWait sets the wait between reconnection attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(s *Server) error {
		s.reconnectWait = d
		return nil
	}
}

// WithName sets the NATS connection name.
func WithName(name string) Option {
	return func(s *Server) error {
		s.name = name
		return nil
	}
}

// NewServer creates the transport over a booted app.
func NewServer(a *app.App, opts ...Option) (*Server, error) {
	s := &Server{
		app:           a,
		logger:        a.Logger().With("transport", "nats"),
		url:           nats.DefaultURL,
		name:          "hrpc",
		queue:         defaultQueue,
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SubjectPrefix derives the subject namespace from the app's URL prefix:
// "/api" becomes "api".
func (s *Server) SubjectPrefix() string {
	return strings.ReplaceAll(strings.Trim(s.app.Router().Prefix(), "/"), "/", ".")
}

// Start connects and subscribes one queue subscription per route. It
// returns once subscriptions are live; messages are handled on the NATS
// client's delivery goroutines until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.NewConfig("nats server already running")
	}

	opts := []nats.Option{
		nats.Name(s.name),
		nats.MaxReconnects(s.maxReconnects),
		nats.ReconnectWait(s.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if s.username != "" {
		opts = append(opts, nats.UserInfo(s.username, s.password))
	}
	if s.token != "" {
		opts = append(opts, nats.Token(s.token))
	}

	conn, err := nats.Connect(s.url, opts...)
	if err != nil {
		s.running.Store(false)
		return errors.Wrap(err, "Server", "Start", "connect to "+s.url)
	}
	s.conn = conn

	prefix := s.SubjectPrefix()
	for _, route := range s.app.Router().Routes() {
		subject := fmt.Sprintf("%s.%s.%s", prefix, route.Service, route.Method)
		sub, err := conn.QueueSubscribe(subject, s.queue, func(msg *nats.Msg) {
			s.handle(ctx, msg)
		})
		if err != nil {
			_ = s.Shutdown(time.Second)
			return errors.Wrap(err, "Server", "Start", "subscribe "+subject)
		}
		s.subs = append(s.subs, sub)
	}

	s.logger.Info("nats server subscribed",
		"url", conn.ConnectedUrl(),
		"subjects", len(s.subs),
		"queue", s.queue,
	)
	return nil
}

// Shutdown drains the subscriptions and closes the connection.
func (s *Server) Shutdown(timeout time.Duration) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.conn == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- s.conn.Drain() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		s.conn.Close()
		return errors.NewConfig("nats drain timed out after %s", timeout)
	}
}

// handle translates one message through the app entry point and replies.
func (s *Server) handle(ctx context.Context, msg *nats.Msg) {
	if msg.Reply == "" {
		s.logger.Warn("dropping request without reply subject", "subject", msg.Subject)
		return
	}

	req := s.toRequest(msg)
	timeout := s.app.Snapshot().GetDuration("request_timeout", time.Minute)
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp := s.app.Handle(callCtx, req)

	reply := nats.NewMsg(msg.Reply)
	reply.Data = resp.Body
	reply.Header.Set(StatusHeader, strconv.Itoa(resp.Status))
	reply.Header.Set(RequestIDHeader, req.ID)
	for key, value := range resp.Header {
		reply.Header.Set(key, value)
	}
	if err := msg.RespondMsg(reply); err != nil {
		s.logger.Error("send reply", "subject", msg.Subject, "error", err)
	}
}

// toRequest maps subject <prefix>.<Service>.<method> onto the canonical
// call path so routing behaves identically on every transport.
func (s *Server) toRequest(msg *nats.Msg) *gateway.Request {
	parts := strings.Split(msg.Subject, ".")
	var path string
	if len(parts) >= 2 {
		svc, method := parts[len(parts)-2], parts[len(parts)-1]
		path = s.app.Router().Prefix() + "/" + svc + "/" + method
	} else {
		path = s.app.Router().Prefix() + "/" + msg.Subject
	}

	header := make(map[string]string, len(msg.Header))
	for key := range msg.Header {
		header[key] = msg.Header.Get(key)
	}
	id := msg.Header.Get(RequestIDHeader)
	if id == "" {
		id = nats.NewInbox()
	}
	return &gateway.Request{
		Method: "POST",
		Path:   path,
		Header: header,
		Body:   msg.Data,
		ID:     id,
	}
}
