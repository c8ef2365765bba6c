// Package authorizer provides an http.RoundTripper that attaches the access
// token to outgoing requests and recovers from expired tokens. A 401 answer
// triggers at most one refresh no matter how many requests fail at once, and
// every failed request is replayed once with the renewed token.
package authorizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/taskboard-client/pkg/session"
)

const HeaderRequestID = "X-Request-ID"

// Session is the part of the session manager the transport depends on.
type Session interface {
	AccessToken(ctx context.Context) (string, bool, error)
	Refresh(ctx context.Context) (session.Tokens, error)
	Logout(ctx context.Context) error
}

type state int

const (
	stateIdle state = iota
	stateRefreshing
)

// flight is one refresh. done is closed once token or err is set.
type flight struct {
	done  chan struct{}
	token string
	err   error
}

func (f *flight) wait(ctx context.Context) (string, error) {
	select {
	case <-f.done:
		return f.token, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type Transport struct {
	next    http.RoundTripper
	session Session
	meters  *meters

	mu      sync.Mutex
	state   state
	current *flight
}

var _ http.RoundTripper = (*Transport)(nil)

// New wraps next, http.DefaultTransport when nil.
func New(sess Session, next http.RoundTripper) (*Transport, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if next == nil {
		next = http.DefaultTransport
	}

	m, err := newMeters()
	if err != nil {
		return nil, err
	}

	return &Transport{
		next:    next,
		session: sess,
		meters:  m,
	}, nil
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()

	base, err := prepare(req)
	if err != nil {
		return nil, err
	}

	ctx = slogctx.With(ctx, "request_id", base.Header.Get(HeaderRequestID))
	defer func() {
		attrs := metric.WithAttributes(attribute.String("method", base.Method))
		t.meters.requests.Add(ctx, 1, attrs)
		t.meters.duration.Record(ctx, time.Since(start).Milliseconds(), attrs)
	}()

	sent, _, err := t.session.AccessToken(ctx)
	if err != nil {
		closeBody(base)
		return nil, fmt.Errorf("reading access token: %w", err)
	}

	resp, err := t.send(base, base.Body, sent)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	drain(resp)

	slogctx.Debug(ctx, "Request unauthorized, renewing the access token", "url", base.URL.Redacted())

	token, err := t.renewedToken(ctx, sent)
	if err != nil {
		return nil, err
	}

	body, err := replayBody(base)
	if err != nil {
		return nil, err
	}

	t.meters.replays.Add(ctx, 1)

	return t.send(base, body, token)
}

// renewedToken returns the token to replay with after the token sent was
// rejected. When another request already renewed it the current token is
// returned, when a refresh is running its outcome is awaited, otherwise a
// new refresh is started.
func (t *Transport) renewedToken(ctx context.Context, sent string) (string, error) {
	t.mu.Lock()

	if t.state == stateRefreshing {
		f := t.current
		t.mu.Unlock()

		return f.wait(ctx)
	}

	current, _, err := t.session.AccessToken(ctx)
	if err != nil {
		t.mu.Unlock()
		return "", fmt.Errorf("reading access token: %w", err)
	}
	if current != "" && current != sent {
		t.mu.Unlock()
		return current, nil
	}

	f := &flight{done: make(chan struct{})}
	t.current = f
	t.state = stateRefreshing
	t.mu.Unlock()

	t.meters.refreshes.Add(ctx, 1)

	// The flight outlives the request that started it, others may be
	// waiting on it.
	go t.refresh(context.WithoutCancel(ctx), f)

	return f.wait(ctx)
}

func (t *Transport) refresh(ctx context.Context, f *flight) {
	tokens, err := t.session.Refresh(ctx)

	t.mu.Lock()
	f.token, f.err = tokens.AccessToken, err
	t.state = stateIdle
	close(f.done)
	t.mu.Unlock()

	if err == nil {
		return
	}

	t.meters.refreshFailure.Add(ctx, 1)
	slogctx.Warn(ctx, "Token refresh failed, logging out", "error", err)

	if err := t.session.Logout(ctx); err != nil {
		slogctx.Error(ctx, "Failed to log out after a failed refresh", "error", err)
	}
}

func (t *Transport) send(base *http.Request, body io.ReadCloser, token string) (*http.Response, error) {
	req := base.Clone(base.Context())
	req.Body = body
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))

	return t.next.RoundTrip(req)
}

// prepare clones the request, assigns a request id and makes the body
// replayable.
func prepare(req *http.Request) (*http.Request, error) {
	base := req.Clone(req.Context())
	if base.Header.Get(HeaderRequestID) == "" {
		base.Header.Set(HeaderRequestID, uuid.NewString())
	}

	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return base, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffering request body: %w", err)
	}

	base.Body = io.NopCloser(bytes.NewReader(data))
	base.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	return base, nil
}

func replayBody(req *http.Request) (io.ReadCloser, error) {
	if req.GetBody == nil {
		return req.Body, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}

	return body, nil
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
