// Package httpclient provides an instrumented HTTP client with OTEL tracing and metrics.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type clientOptions struct {
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	providerName   string
	roundTripper   http.RoundTripper
	requestTimeout time.Duration
	headers        map[string]string
	baseURL        string
	errorHandler   ResponseErrorHandler
}

// Option configures a Client.
type Option func(*clientOptions)

// ResponseErrorHandler decides whether a response is an error.
type ResponseErrorHandler func(statusCode int, body []byte) error

// WithMeterProvider sets the OTEL meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *clientOptions) {
		o.meterProvider = mp
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *clientOptions) {
		o.tracer = t
	}
}

// WithProviderName sets the provider name for metrics and traces.
func WithProviderName(name string) Option {
	return func(o *clientOptions) {
		o.providerName = name
	}
}

// WithRoundTripper sets a custom HTTP transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.roundTripper = rt
	}
}

// WithRequestTimeout sets the request timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.requestTimeout = timeout
	}
}

// WithHeaders sets default headers for all requests.
func WithHeaders(headers map[string]string) Option {
	return func(o *clientOptions) {
		o.headers = headers
	}
}

// WithBaseURL sets the base URL for relative paths.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithErrorHandler replaces the default status-code check.
func WithErrorHandler(h ResponseErrorHandler) Option {
	return func(o *clientOptions) {
		o.errorHandler = h
	}
}
