package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Instrument wraps the handler with OpenTelemetry HTTP instrumentation wired
// to the application's telemetry providers. Spans start out named after the
// method and path; RouteSpans renames them once a route has matched.
func Instrument(service string, m *app.Telemetry) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithPropagators(m.TextMapPropagator()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}

// RouteSpans renames the active span after the wrapped ServeMux has matched,
// so traces and metrics carry the low-cardinality route pattern instead of
// the raw URL. It must wrap the mux directly: the pattern is only visible on
// the request the mux itself served.
func RouteSpans() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			pattern := r.Pattern
			if pattern == "" {
				return
			}
			route := attribute.String("http.route", pattern)

			span := trace.SpanFromContext(r.Context())
			span.SetName(pattern)
			span.SetAttributes(route)

			if labeler, ok := otelhttp.LabelerFromContext(r.Context()); ok {
				labeler.Add(route)
			}
		})
	}
}
