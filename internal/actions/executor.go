// Package actions runs the outbound calls and computed assignments attached
// to slot lifecycle phases.
package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/aretw0/slotflow/internal/expr"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/internal/render"
	"github.com/aretw0/slotflow/pkg/domain"
)

const (
	// DefaultTimeout bounds a call that sets no timeout of its own.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes int64 = 1 << 20
	// errorBodySnippet caps the response body copied into an ActionError.
	errorBodySnippet = 512
)

// HTTPDoer is the subset of *http.Client used by the executor.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor runs action sets against a conversation context.
type Executor struct {
	renderer *render.Renderer
	client   HTTPDoer
	timeout  time.Duration
	maxBytes int64
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient replaces the HTTP client used for outbound calls.
func WithHTTPClient(c HTTPDoer) Option {
	return func(x *Executor) {
		if c != nil {
			x.client = c
		}
	}
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(x *Executor) {
		if d > 0 {
			x.timeout = d
		}
	}
}

// WithMaxResponseBytes caps how much of each response is read.
func WithMaxResponseBytes(n int64) Option {
	return func(x *Executor) {
		if n > 0 {
			x.maxBytes = n
		}
	}
}

// WithLifecycleHooks registers callbacks for call events.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(x *Executor) {
		x.hooks = h
	}
}

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return func(x *Executor) {
		if l != nil {
			x.logger = l
		}
	}
}

// New creates an Executor that resolves call specs through r.
func New(r *render.Renderer, opts ...Option) *Executor {
	x := &Executor{
		renderer: r,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxResponseBytes,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Run executes the slot's action sets tagged with phase, mutating c.
//
// Within a set, calls run strictly one after another in definition order, so
// a call's spec may reference the stored response of any earlier call. The
// set's assignments run once all its calls are done. A failed call never
// aborts the run: its error is stored in the context instead.
func (x *Executor) Run(ctx context.Context, slot domain.SlotDefinition, phase domain.Phase, c *domain.Context) {
	for _, set := range slot.ActionsFor(phase) {
		for _, call := range set.Calls {
			x.call(ctx, slot.ID, phase, call, c)
		}
		x.assign(ctx, set.Assign, c)
	}
}

func (x *Executor) call(ctx context.Context, slotID string, phase domain.Phase, spec domain.APICall, c *domain.Context) {
	if !x.conditionHolds(ctx, spec.Condition, c) {
		x.logger.Debug("call skipped by condition", "slot", slotID, "url", spec.URL)
		return
	}

	req, err := x.buildRequest(ctx, spec, c)
	if err != nil {
		x.storeError(c, spec.ResponseKey, &domain.ActionError{Message: err.Error(), URL: spec.URL})
		return
	}

	event := &domain.ActionEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventActionCall},
		SlotID:    slotID,
		Phase:     phase,
		Method:    req.method,
		URL:       req.url,
	}
	if x.hooks.OnActionCall != nil {
		x.hooks.OnActionCall(ctx, event)
	}

	start := time.Now()
	value, status, callErr := x.do(ctx, req, spec)

	if x.hooks.OnActionReturn != nil {
		x.hooks.OnActionReturn(ctx, &domain.ActionEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventActionReturn},
			SlotID:    slotID,
			Phase:     phase,
			Method:    req.method,
			URL:       req.url,
			Status:    status,
			Duration:  time.Since(start),
			IsError:   callErr != nil,
		})
	}

	if callErr != nil {
		var actionErr *domain.ActionError
		if !errors.As(callErr, &actionErr) {
			actionErr = &domain.ActionError{Message: callErr.Error(), URL: req.url, Method: req.method}
		}
		x.logger.Warn("outbound call failed", "slot", slotID, "url", req.url, "error", callErr)
		x.storeError(c, spec.ResponseKey, actionErr)
		return
	}

	if spec.ResponseKey == "" {
		x.logger.Debug("call response discarded, no response key", "slot", slotID, "url", req.url)
		return
	}
	c.Set(spec.ResponseKey, value)
}

func (x *Executor) conditionHolds(ctx context.Context, condition any, c *domain.Context) bool {
	switch v := x.renderer.Resolve(ctx, condition, c).(type) {
	case nil:
		return true
	case string:
		if strings.TrimSpace(v) == "" {
			return true
		}
		return x.renderer.Evaluator().Guard(ctx, v, c)
	default:
		return expr.Truthy(v)
	}
}

func (x *Executor) storeError(c *domain.Context, key string, err *domain.ActionError) {
	if key == "" {
		key = domain.APIErrorKey
	}
	c.Set(key, err.JSON())
}

// assign evaluates every entry against the context as it was before the
// assignment, then merges all results at once.
func (x *Executor) assign(ctx context.Context, spec domain.FunctionSpec, c *domain.Context) {
	if len(spec) == 0 {
		return
	}

	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make(map[string]any, len(spec))
	for _, key := range keys {
		value := spec[key]
		s, ok := value.(string)
		if !ok {
			results[key] = value
			continue
		}
		body, dynamic := x.renderer.Dynamic(s)
		if !dynamic {
			results[key] = value
			continue
		}
		v, err := x.renderer.Evaluator().Eval(ctx, body, c)
		if err != nil {
			x.logger.Warn("assignment skipped", "key", key, "expr", body, "error", err)
			continue
		}
		results[key] = v
	}
	c.Merge(results)
}

type request struct {
	method  string
	url     string
	headers http.Header
	body    []byte
}

func (x *Executor) buildRequest(ctx context.Context, spec domain.APICall, c *domain.Context) (*request, error) {
	rawURL := strings.TrimSpace(x.renderer.ResolveText(ctx, spec.URL, c))
	if rawURL == "" {
		return nil, errors.New("call has no url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	if len(spec.Params) > 0 {
		q := u.Query()
		params := x.renderer.Resolve(ctx, spec.Params, c).(map[string]any)
		for k, v := range params {
			q.Set(k, expr.Text(v))
		}
		u.RawQuery = q.Encode()
	}

	method := strings.ToUpper(strings.TrimSpace(x.renderer.ResolveText(ctx, spec.Method, c)))
	if method == "" {
		method = http.MethodGet
	}

	req := &request{method: method, url: u.String(), headers: make(http.Header)}
	if len(spec.Headers) > 0 {
		headers := x.renderer.Resolve(ctx, spec.Headers, c).(map[string]any)
		for k, v := range headers {
			req.headers.Set(k, expr.Text(v))
		}
	}

	switch body := x.renderer.Resolve(ctx, spec.Body, c).(type) {
	case nil:
	case string:
		req.body = []byte(body)
	default:
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal call body: %w", err)
		}
		req.body = b
		if req.headers.Get("Content-Type") == "" {
			req.headers.Set("Content-Type", "application/json")
		}
	}
	return req, nil
}

func (x *Executor) do(ctx context.Context, r *request, spec domain.APICall) (any, int, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = x.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("create call request: %w", err)
	}
	httpReq.Header = r.headers

	resp, err := x.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, x.maxBytes))
	// Drain remainder for connection reuse.
	_, _ = io.Copy(io.Discard, resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read call response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(respBody)
		if len(snippet) > errorBodySnippet {
			snippet = snippet[:errorBodySnippet]
		}
		return nil, resp.StatusCode, &domain.ActionError{
			Message: fmt.Sprintf("call returned HTTP %d", resp.StatusCode),
			URL:     r.url,
			Method:  r.method,
			Status:  resp.StatusCode,
			Body:    snippet,
		}
	}

	return decodeResponse(respBody, spec.ResponsePath), resp.StatusCode, nil
}

// decodeResponse turns a body into a context value: JSON is decoded (and
// optionally narrowed by path), anything else is kept as text.
func decodeResponse(body []byte, path string) any {
	if !gjson.ValidBytes(body) {
		return string(body)
	}
	if path == "" {
		return gjson.ParseBytes(body).Value()
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return nil
	}
	return res.Value()
}
