package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/uniconnect/retry"
	"github.com/BaSui01/uniconnect/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	instrumentationName = "github.com/BaSui01/uniconnect/connector"

	// maxBodyBytes caps how much of a provider response is read.
	maxBodyBytes = 32 << 20
	// maxDetailLen caps raw text copied into error messages.
	maxDetailLen = 512
)

// Observer receives one notification per finished Send.
type Observer interface {
	ObserveCall(provider string, kind types.ErrorKind, latency time.Duration, retries int)
}

// SleepFunc waits between attempts. It must return early with ctx's error on cancellation.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Connector.
type Option func(*Connector)

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Connector) { c.policy = p.Normalize() }
}

// WithHTTPClient injects a caller-owned client. Close leaves it alone.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Connector) {
		if client != nil {
			c.client = client
			c.ownsClient = false
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Connector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a call observer, usually a metrics collector.
func WithObserver(o Observer) Option {
	return func(c *Connector) { c.observer = o }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Connector) {
		if tp != nil {
			c.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithSleeper overrides how the connector waits between attempts.
func WithSleeper(fn SleepFunc) Option {
	return func(c *Connector) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// Connector sends prompts to one configured endpoint.
// It is safe for concurrent use.
type Connector struct {
	cfg        *Config
	credential string
	policy     retry.Policy
	client     *http.Client
	ownsClient bool
	logger     *zap.Logger
	observer   Observer
	tracer     trace.Tracer
	sleep      SleepFunc
}

// New validates cfg and creates a Connector that owns an HTTP client.
// A config with an auth section requires a non-empty credential.
// The Connector works on its own copy of cfg; the caller's value is never modified.
func New(cfg *Config, credential string, opts ...Option) (*Connector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", types.ErrInvalidConfig)
	}
	cfg = cfg.Clone()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Auth != nil && credential == "" {
		return nil, fmt.Errorf("%w for provider %q", types.ErrMissingCredential, cfg.Provider)
	}

	c := &Connector{
		cfg:        cfg,
		credential: credential,
		policy:     retry.DefaultPolicy(),
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(instrumentationName),
		sleep:      retry.Sleep,
		ownsClient: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = newHTTPClient(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}
	c.logger = c.logger.With(
		zap.String("component", "connector"),
		zap.String("provider", cfg.Provider),
	)
	return c, nil
}

// Config returns the connector's configuration. Callers must not modify it.
func (c *Connector) Config() *Config {
	return c.cfg
}

// Close releases idle connections of an owned client.
func (c *Connector) Close() error {
	if c.ownsClient && c.client != nil {
		c.client.CloseIdleConnections()
	}
	return nil
}

// Send delivers prompt and returns the uniform response. It never panics and
// never returns nil. ctx cancels both in-flight attempts and retry sleeps.
func (c *Connector) Send(ctx context.Context, prompt string) (resp *Response) {
	ctx, span := c.tracer.Start(ctx, "connector.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("uniconnect.provider", c.cfg.Provider),
			attribute.String("uniconnect.config", c.cfg.Name),
		),
	)
	attempt := 0
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("send panicked", zap.Any("panic", r), zap.Stack("stack"))
			resp = &Response{
				ErrorKind: types.KindUnknown,
				Error:     fmt.Sprintf("unexpected error: %v", r),
				Retries:   attempt,
			}
		}
		c.finish(span, resp)
	}()

	built, err := BuildRequest(c.cfg, c.credential, prompt)
	if err != nil {
		return &Response{ErrorKind: types.KindUnknown, Error: fmt.Sprintf("unexpected error: %v", err)}
	}
	span.SetAttributes(attribute.String("uniconnect.injection", built.Strategy.String()))

	for ; ; attempt++ {
		out := c.attempt(ctx, built)
		out.Retries = attempt
		span.AddEvent("attempt", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("kind", string(out.ErrorKind)),
			attribute.Int("status", out.StatusCode),
		))

		if out.Success {
			return out
		}
		if !c.policy.ShouldRetry(out.ErrorKind, attempt) {
			if attempt > 0 {
				c.logger.Warn("giving up after retries",
					zap.Int("retries", attempt),
					zap.String("kind", string(out.ErrorKind)),
					zap.String("error", out.Error),
				)
			}
			return out
		}

		delay := c.policy.Delay(attempt)
		c.logger.Debug("retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.policy.MaxRetries),
			zap.Duration("delay", delay),
			zap.String("kind", string(out.ErrorKind)),
		)
		if err := c.sleep(ctx, delay); err != nil {
			out.Error = fmt.Sprintf("%s (retry aborted: %v)", out.Error, err)
			return out
		}
	}
}

// attempt performs one round trip and classifies its outcome.
func (c *Connector) attempt(ctx context.Context, built *BuiltRequest) *Response {
	start := time.Now()

	req, err := built.NewHTTPRequest(ctx)
	if err != nil {
		return &Response{ErrorKind: types.KindUnknown, Error: fmt.Sprintf("unexpected error: %v", err)}
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		kind := ClassifyError(err)
		return &Response{
			ErrorKind: kind,
			Error:     c.transportMessage(kind, err),
			LatencyMS: time.Since(start).Milliseconds(),
		}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		kind := ClassifyError(err)
		return &Response{
			ErrorKind:  kind,
			Error:      c.transportMessage(kind, err),
			StatusCode: httpResp.StatusCode,
			LatencyMS:  latency,
		}
	}

	status := httpResp.StatusCode
	payload, decodeErr := decodePayload(body)
	out := &Response{StatusCode: status, LatencyMS: latency}
	if decodeErr == nil {
		out.RawResponse = payload
	}

	if kind := ClassifyStatus(status); kind != types.KindSuccess {
		out.ErrorKind = kind
		out.Error = fmt.Sprintf("API returned status %d: %s", status, c.errorDetail(payload, decodeErr, body))
		return out
	}

	if decodeErr != nil {
		out.ErrorKind = types.KindParse
		out.Error = fmt.Sprintf("response is not valid JSON: %v", decodeErr)
		return out
	}
	content, err := ExtractContent(payload, c.cfg.Response.ResponseField)
	if err != nil {
		out.ErrorKind = types.KindParse
		out.Error = err.(*types.Error).Message
		return out
	}

	out.Success = true
	out.Content = content
	out.ErrorKind = types.KindSuccess
	return out
}

func (c *Connector) transportMessage(kind types.ErrorKind, err error) string {
	switch kind {
	case types.KindTimeout:
		return fmt.Sprintf("request timed out after %ds", c.cfg.TimeoutSeconds)
	case types.KindNetwork:
		return fmt.Sprintf("request failed: %v", err)
	default:
		return fmt.Sprintf("unexpected error: %v", err)
	}
}

// errorDetail prefers the configured error field, then the compact payload, then raw text.
func (c *Connector) errorDetail(payload any, decodeErr error, body []byte) string {
	if decodeErr == nil {
		if field := c.cfg.Response.ErrorField; field != "" {
			if v, err := ExtractContent(payload, field); err == nil {
				return v
			}
		}
		return Coerce(payload)
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxDetailLen {
		text = text[:maxDetailLen] + "..."
	}
	return text
}

func (c *Connector) finish(span trace.Span, resp *Response) {
	span.SetAttributes(
		attribute.String("uniconnect.kind", string(resp.ErrorKind)),
		attribute.Int("uniconnect.retries", resp.Retries),
		attribute.Int("http.response.status_code", resp.StatusCode),
	)
	if resp.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, resp.Error)
	}
	span.End()

	if c.observer != nil {
		c.observer.ObserveCall(c.cfg.Provider, resp.ErrorKind, time.Duration(resp.LatencyMS)*time.Millisecond, resp.Retries)
	}
}
