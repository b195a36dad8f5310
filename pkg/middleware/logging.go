package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/sennetconsortium/senotype-editor/pkg/constants"
	"github.com/sennetconsortium/senotype-editor/pkg/httpapi"
)

type LoggerOptions struct {
	LogRequestBody  bool
	LogResponseBody bool
	// MaxBodyLength caps logged bodies; zero logs them whole.
	MaxBodyLength int

	RequestIDHeader string
	RealIPHeader    string
	// Paths under these prefixes get a JSON envelope on panic.
	APIPrefixes []string
	Repanic     bool
}

func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		LogRequestBody:  true,
		LogResponseBody: true,
		MaxBodyLength:   512,
		RequestIDHeader: "X-Request-Id",
		RealIPHeader:    "X-Real-Ip",
		APIPrefixes:     []string{"/edit/sessions/", "/lookup/", "/update", "/valueset"},
	}
}

type responseCaptureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *responseCaptureWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *responseCaptureWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *responseCaptureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseCaptureWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack lets websocket upgrades pass through the logger.
func (w *responseCaptureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

func headerOr(r *http.Request, name, fallback string) string {
	if name != "" {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return fallback
}

func wantsJSON(r *http.Request, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

var tracer = otel.Tracer("senotype-editor-middleware")

func TracedMiddleware(name string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "middleware."+name,
				trace.WithAttributes(attribute.String("middleware.name", name)))
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) == 0 {
			continue
		}
		switch http.CanonicalHeaderKey(key) {
		case "Authorization", "Cookie", "Set-Cookie", "X-Auth-Token":
			out[key] = "[redacted]"
		default:
			out[key] = values[0]
		}
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func loggableBody(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "application/json") ||
		strings.Contains(contentType, "application/x-www-form-urlencoded")
}

// bodyField renders a JSON or form body for the log.
func bodyField(contentType string, body []byte, limit int) any {
	if strings.Contains(strings.ToLower(contentType), "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return truncate(string(body), limit)
		}
		flat := make(map[string]string, len(values))
		for k, v := range values {
			flat[k] = truncate(strings.Join(v, ","), limit)
		}
		return flat
	}
	if limit > 0 && len(body) > limit {
		return truncate(string(body), limit)
	}
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body)
	}
	return parsed
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// WithLogger logs every request with a request id, stores the request
// logger in the context, opens a trace span and recovers handler panics.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := headerOr(r, opts.RequestIDHeader, uuid.NewString())
			ip := headerOr(r, opts.RealIPHeader, r.RemoteAddr)

			log := logger.WithFields(logrus.Fields{
				"request-id": requestID,
				"path":       r.RequestURI,
				"method":     r.Method,
			})
			log.WithFields(logrus.Fields{
				"host":            r.Host,
				"ip":              ip,
				"user-agent":      r.UserAgent(),
				"request-headers": redactHeaders(r.Header),
			}).Info("request started")

			if contentType := r.Header.Get("Content-Type"); opts.LogRequestBody && isMutating(r.Method) && r.Body != nil && loggableBody(contentType) {
				raw, err := io.ReadAll(r.Body)
				if err != nil {
					log.WithError(err).Error("failed to read request-body")
					http.Error(w, "failed to read request-body", http.StatusBadRequest)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(raw))
				log.WithField("request-body", bodyField(contentType, raw, opts.MaxBodyLength)).Info("request-body")
			}

			ctx := propagation.TraceContext{}.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, "http.request", trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
				attribute.String("http.request_id", requestID),
				attribute.String("net.peer.ip", ip),
			))
			defer span.End()
			if sc := span.SpanContext(); sc.HasTraceID() {
				w.Header().Set("X-Trace-Id", sc.TraceID().String())
				log = log.WithField("trace-id", sc.TraceID().String())
			}
			w.Header().Set("X-Request-Id", requestID)

			ctx = context.WithValue(ctx, constants.LoggerKey, log)
			ctx = context.WithValue(ctx, constants.RequestStart, start)
			rw := &responseCaptureWriter{ResponseWriter: w}

			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				log.WithFields(logrus.Fields{
					"panic":    recovered,
					"stack":    string(debug.Stack()),
					"ip":       ip,
					"duration": time.Since(start),
				}).Error("panic recovered in request handler")
				if rw.status == 0 {
					if wantsJSON(r, opts.APIPrefixes) {
						_ = httpapi.WriteError(rw, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", map[string]string{
							"request_id": requestID,
							"path":       r.URL.Path,
						})
					} else {
						http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
					}
				}
				if opts.Repanic {
					panic(recovered)
				}
			}()

			next.ServeHTTP(rw, r.WithContext(ctx))

			status := rw.Status()
			duration := time.Since(start)
			fields := logrus.Fields{
				"duration":     duration,
				"status-code":  status,
				"status-class": status / 100,
			}
			if ct := rw.Header().Get("Content-Type"); opts.LogResponseBody && loggableBody(ct) {
				fields["response-body"] = bodyField(ct, rw.body.Bytes(), opts.MaxBodyLength)
			}
			log.WithFields(fields).Info("request completed")
			span.SetAttributes(
				attribute.Int64("http.request_duration_ms", duration.Milliseconds()),
				attribute.Int("http.status_code", status),
			)
		})
	}
}
