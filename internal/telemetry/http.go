package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// HTTPInstrumentationName names the tracer and meter used for API requests
	HTTPInstrumentationName = "github.com/stacklok/fitness-sync-server/http"

	unknownRoute = "unknown_route"
)

type httpInstruments struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// HTTPInstrumentation wraps API handlers with a server span and request
// metrics, both labelled by the chi route pattern so user IDs in paths never
// become span names or metric series.
type HTTPInstrumentation struct {
	tracer      trace.Tracer
	propagator  propagation.TextMapPropagator
	instruments *httpInstruments
}

// NewHTTPInstrumentation builds the middleware state. Either provider may be
// nil, which disables that signal.
func NewHTTPInstrumentation(tp trace.TracerProvider, mp metric.MeterProvider) (*HTTPInstrumentation, error) {
	h := &HTTPInstrumentation{propagator: otel.GetTextMapPropagator()}
	if tp != nil {
		h.tracer = tp.Tracer(HTTPInstrumentationName)
	}
	if mp != nil {
		instruments, err := newHTTPInstruments(mp.Meter(HTTPInstrumentationName))
		if err != nil {
			return nil, err
		}
		h.instruments = instruments
	}
	return h, nil
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	duration, err := meter.Float64Histogram(
		"fitsync_http_request_duration_seconds",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, err
	}
	requests, err := meter.Int64Counter(
		"fitsync_http_requests_total",
		metric.WithDescription("API requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter(
		"fitsync_http_active_requests",
		metric.WithDescription("API requests in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &httpInstruments{duration: duration, requests: requests, inFlight: inFlight}, nil
}

// Middleware instruments next. With neither signal enabled it returns next.
func (h *HTTPInstrumentation) Middleware(next http.Handler) http.Handler {
	if h == nil || (h.tracer == nil && h.instruments == nil) {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		var span trace.Span
		if h.tracer != nil {
			ctx = h.propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
			ctx, span = h.tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(r.UserAgent()),
				),
			)
			defer span.End()
		}
		if h.instruments != nil {
			h.instruments.inFlight.Add(ctx, 1)
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		// chi fills in the route pattern while routing, so read it afterwards
		route := routePattern(r)
		status := ww.Status()
		if span != nil {
			span.SetName(r.Method + " " + route)
			span.SetAttributes(semconv.HTTPRoute(route), semconv.HTTPResponseStatusCode(status))
			if status >= http.StatusBadRequest {
				span.SetStatus(codes.Error, http.StatusText(status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		}
		if h.instruments != nil {
			h.instruments.inFlight.Add(ctx, -1)
			attrs := metric.WithAttributeSet(attribute.NewSet(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRoute(route),
				semconv.HTTPResponseStatusCode(status),
			))
			h.instruments.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			h.instruments.requests.Add(ctx, 1, attrs)
		}
	})
}

// routePattern returns the matched chi pattern, e.g. "/v1/users/{userID}/sync".
// Unmatched requests share one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unknownRoute
}
