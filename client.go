package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "portal.client"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// Client talks JSON to the backend. Request interceptors run before each
// request is sent; success or failure interceptors run once the outcome is
// known. The default chains attach the bearer token of the bound Session,
// propagate the trace context, log traffic and clear the Session when the
// backend answers 401.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	session *Session
	logger  Logger
	tracer  trace.Tracer

	requestInterceptors []RequestInterceptor
	successInterceptors []SuccessInterceptor
	failureInterceptors []FailureInterceptor
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u = strings.TrimSpace(u); u != "" {
			c.baseURL = u
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying transport client. Its Timeout is
// overridden by the client timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l Logger) ClientOption {
	return func(c *Client) {
		c.logger = normalizeLogger(l)
	}
}

func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClientSession binds the session used by the interceptors.
func WithClientSession(s *Session) ClientOption {
	return func(c *Client) {
		if s != nil {
			c.session = s
		}
	}
}

// WithRequestInterceptors appends to the request chain.
func WithRequestInterceptors(in ...RequestInterceptor) ClientOption {
	return func(c *Client) {
		c.requestInterceptors = append(c.requestInterceptors, in...)
	}
}

// WithSuccessInterceptors appends to the success chain.
func WithSuccessInterceptors(in ...SuccessInterceptor) ClientOption {
	return func(c *Client) {
		c.successInterceptors = append(c.successInterceptors, in...)
	}
}

// WithFailureInterceptors appends to the failure chain.
func WithFailureInterceptors(in ...FailureInterceptor) ClientOption {
	return func(c *Client) {
		c.failureInterceptors = append(c.failureInterceptors, in...)
	}
}

// NewClient builds a Client with the default interceptor chains followed by
// any interceptors given in opts.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		http:    &http.Client{},
		logger:  DefaultLogger(),
		tracer:  otel.Tracer(tracerName),

		requestInterceptors: []RequestInterceptor{BearerToken(), PropagateTrace(), LogRequest()},
		successInterceptors: []SuccessInterceptor{LogResponse()},
		failureInterceptors: []FailureInterceptor{LogFailure(), ClearSessionOnUnauthorized()},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.session == nil {
		c.session = NewSession(nil)
	}

	hc := *c.http
	hc.Timeout = c.timeout
	c.http = &hc

	return c
}

// WithSession returns a copy bound to s. The copy shares the transport and
// the interceptor chains.
func (c *Client) WithSession(s *Session) *Client {
	cp := *c
	if s != nil {
		cp.session = s
	}
	return &cp
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Logger() Logger {
	return c.logger
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Get issues a GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

// Do sends a request to path, relative to the base URL. A nil body sends no
// payload; a nil out discards the response. Failures are *APIError values
// unless the response body cannot be decoded into out.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	url := c.resolve(path)

	ctx, span := c.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", url),
		),
	)
	defer span.End()

	res, data, apiErr := c.send(ctx, method, url, body)
	if apiErr != nil {
		if apiErr.Status > 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", apiErr.Status))
		}
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, ErrorMessage(apiErr))

		for _, in := range c.failureInterceptors {
			in(ctx, c, apiErr)
		}
		return apiErr
	}

	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))
	for _, in := range c.successInterceptors {
		in(ctx, c, res)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode response")
		return errors.Wrap(err, errors.CategoryOperation, "unable to decode response").
			WithTextCode("RESPONSE_DECODE_FAILED").
			WithMetadata(map[string]any{
				"method": method,
				"url":    url,
				"status": res.StatusCode,
			})
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, url string, body any) (*http.Response, []byte, *APIError) {
	fail := func(kind ErrorKind, status int, err error) *APIError {
		return &APIError{Kind: kind, Method: method, URL: url, Status: status, Err: err}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fail(KindSetup, 0, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, fail(KindSetup, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, in := range c.requestInterceptors {
		if err := in(ctx, c, req); err != nil {
			return nil, nil, fail(KindSetup, 0, err)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fail(KindTransport, 0, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, fail(KindTransport, res.StatusCode, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := fail(KindServer, res.StatusCode, nil)
		apiErr.Payload = decodePayload(data)
		return res, data, apiErr
	}

	return res, data, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(c.baseURL, "/") + path
}

func decodePayload(data []byte) *ErrorPayload {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var p ErrorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	return &p
}
