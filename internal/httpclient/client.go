package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/reserve-relayer/internal/apperror"
)

const (
	defaultDialKeepAlive         = 10 * time.Second
	defaultRequestTimeout        = 10 * time.Second
	defaultMaxConnsPerHost       = 5
	defaultIdleConnTimeout       = 2 * time.Minute
	defaultExpectContinueTimeout = 100 * time.Millisecond

	maxErrorBody = 512

	metricRequestCounter = "http_client_requests_total"
)

// Client is an HTTP client with OTEL transport instrumentation, a request
// counter and JSON helpers.
type Client struct {
	client         *http.Client
	requestCounter metric.Int64Counter
	tracer         trace.Tracer
	providerName   string
	baseURL        string
	headers        map[string]string
	errorHandler   ResponseErrorHandler
}

// New creates a Client.
func New(opts ...Option) (*Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	transport := o.roundTripper
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxConnsPerHost:       defaultMaxConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		}
	}

	timeout := o.requestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	providerName := o.providerName
	if providerName == "" {
		providerName = "default"
	}

	mp := o.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	counter, err := mp.Meter(
		"instrumented_http_client",
		metric.WithInstrumentationAttributes(attribute.String("provider", providerName)),
	).Int64Counter(metricRequestCounter, metric.WithDescription("Total number of HTTP requests"))
	if err != nil {
		return nil, err
	}

	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer("instrumented_http_client")
	}

	errorHandler := o.errorHandler
	if errorHandler == nil {
		errorHandler = DefaultErrorHandler
	}

	return &Client{
		client: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
					return otelhttptrace.NewClientTrace(ctx)
				}),
			),
		},
		requestCounter: counter,
		tracer:         tracer,
		providerName:   providerName,
		baseURL:        strings.TrimSuffix(o.baseURL, "/"),
		headers:        o.headers,
		errorHandler:   errorHandler,
	}, nil
}

// DefaultErrorHandler treats any status >= 400 as an upstream failure.
func DefaultErrorHandler(statusCode int, body []byte) error {
	if statusCode < http.StatusBadRequest {
		return nil
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return apperror.New(apperror.CodeExternalServiceError,
		apperror.WithContext(fmt.Sprintf("status %d: %s", statusCode, body)),
		apperror.WithStatusCode(http.StatusBadGateway),
	)
}

// GetJSON issues a GET for path with query and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithContext(c.providerName+": decode response"),
			apperror.WithCause(err))
	}
	return nil
}

// Get issues a GET and returns the body after running the error handler.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.resolve(path)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(fullURL, "?") {
			sep = "&"
		}
		fullURL += sep + query.Encode()
	}

	ctx, span := c.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", http.MethodGet),
			attribute.String("http.url", fullURL),
			attribute.String("provider", c.providerName),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordError(ctx, span, err)
		return nil, apperror.External(apperror.CodeFeedConnectionError, c.providerName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordError(ctx, span, err)
		return nil, apperror.External(apperror.CodeFeedConnectionError, c.providerName+": read body", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if err := c.errorHandler(resp.StatusCode, body); err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.recordMetrics(ctx, false)
		return body, err
	}

	c.recordMetrics(ctx, true)
	return body, nil
}

// Do executes a prepared request through the instrumented transport.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(ctx))
}

func (c *Client) resolve(path string) string {
	if c.baseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) recordError(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	span.SetStatus(codes.Error, err.Error())
	c.recordMetrics(ctx, false)
}

func (c *Client) recordMetrics(ctx context.Context, success bool) {
	c.requestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", c.providerName),
		attribute.Bool("success", success),
	))
}
