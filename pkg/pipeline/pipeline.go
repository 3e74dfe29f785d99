// Package pipeline turns a raw inbound request into exactly one outbound
// response. Every endpoint is wrapped with the same fixed, ordered set of
// cross-cutting checks — validation, rate limiting, method and field
// checks, authentication and authorization — and endpoint logic runs only
// once all of them pass. Each check fails closed and terminates the request
// with the most specific applicable status code.
package pipeline

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	ternary "github.com/julien040/go-ternary"
	"go.uber.org/zap"

	"github.com/tester-platform/tester/pkg/authtoken"
	"github.com/tester-platform/tester/pkg/common"
	"github.com/tester-platform/tester/pkg/envelope"
	"github.com/tester-platform/tester/pkg/metrics"
	"github.com/tester-platform/tester/pkg/ratelimit"
	"github.com/tester-platform/tester/pkg/scontext"
)

// Config wires a Pipeline's collaborators.
type Config struct {
	// Limiter enforces the per-route, per-IP rate limits.
	Limiter *ratelimit.Limiter

	// Tokens verifies bearer tokens on routes that require authorization.
	Tokens *authtoken.Codec

	// Logger receives the access log and server-side error logs.
	Logger *zap.Logger

	// APIPrefix is stripped from request paths to form the route identity.
	APIPrefix string

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.Metrics
}

// Pipeline wraps endpoint configurations into http.HandlerFuncs.
type Pipeline struct {
	limiter   *ratelimit.Limiter
	tokens    *authtoken.Codec
	logger    *zap.Logger
	apiPrefix string
	metrics   *metrics.Metrics
}

// New creates a Pipeline. A nil logger falls back to a no-op logger.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		limiter:   cfg.Limiter,
		tokens:    cfg.Tokens,
		logger:    logger.Named("pipeline"),
		apiPrefix: cfg.APIPrefix,
		metrics:   cfg.Metrics,
	}
}

// Wrap builds the request handler for one endpoint configuration.
func (p *Pipeline) Wrap(opts RouteOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ip := ClientIP(r)
		routePath := strings.TrimPrefix(r.URL.Path, p.apiPrefix)
		r = r.WithContext(scontext.WithClientIP(r.Context(), ip))

		rw := &statusWriter{ResponseWriter: w}

		// One access-log line per completed request, emitted after the
		// response is decided. Registered before the recovery handler so a
		// recovered panic is logged with its 500 status.
		defer func() {
			status := rw.status()
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.String("ip", ip),
				zap.Duration("duration", time.Since(start)),
			}
			if traceID := scontext.GetTraceIDFromRequest(r); traceID != "" {
				fields = append(fields, zap.String("trace_id", traceID))
			}

			logFunc := ternary.If(status >= 400, p.logger.Warn, p.logger.Info)
			if status >= 500 {
				logFunc = p.logger.Error
			}
			logFunc("request completed", fields...)

			if p.metrics != nil {
				p.metrics.ObserveRequest(routePath, r.Method, status, time.Since(start))
			}
		}()

		defer func() {
			if rec := recover(); rec != nil {
				p.logger.Error("panic in request handler",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("ip", ip),
				)
				envelope.Send(rw, http.StatusInternalServerError, "Something went wrong.", nil)
			}
		}()

		p.run(rw, r, ip, routePath, opts)
	}
}

// run executes the ordered checks and, if all pass, the endpoint logic.
func (p *Pipeline) run(w http.ResponseWriter, r *http.Request, ip, routePath string, opts RouteOptions) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		envelope.Send(w, http.StatusBadRequest, "Could not read the request body.", nil)
		return
	}

	body := envelope.Parse(string(rawBody))
	query := envelope.ParseQuery(r.URL.Query())

	// Endpoint-supplied validators run first: they see whatever fields
	// parsed, before any protocol-level check.
	if opts.ValidateBody != nil {
		if ve := opts.ValidateBody(body.Data); ve != nil {
			envelope.Send(w, http.StatusBadRequest, ve.Message, map[string]any{
				"failedProperty": ve.Failed,
			})
			return
		}
	}
	if opts.ValidateQuery != nil {
		if ve := opts.ValidateQuery(query.Data); ve != nil {
			envelope.Send(w, http.StatusBadRequest, ve.Message, map[string]any{
				"failedProperty": ve.Failed,
			})
			return
		}
	}

	if opts.RateLimit.Limit > 0 {
		policy := opts.RateLimit
		policy.Path = routePath
		if decision := p.limiter.Check(ip, policy); !decision.Allowed {
			if p.metrics != nil {
				p.metrics.ObserveRateLimited(routePath)
			}
			w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
			envelope.Send(w, http.StatusTooManyRequests, "", map[string]any{
				"retryAfter": decision.RetryAfter,
			})
			return
		}
	}

	if !methodAllowed(opts.Methods, r.Method) {
		envelope.Send(w, http.StatusMethodNotAllowed, methodNotAllowedMessage(opts.Methods), nil)
		return
	}

	if len(opts.RequiredQueryFields) > 0 {
		if missingField(query, opts.RequiredQueryFields) != "" {
			word := ternary.If(len(opts.RequiredQueryFields) == 1, "parameter", "parameters")
			envelope.Send(w, http.StatusBadRequest,
				fmt.Sprintf("%s query %s should be specified.", quoteList(opts.RequiredQueryFields), word),
				map[string]any{"specifiedParams": fieldNames(query)},
			)
			return
		}
	}

	if r.Method == http.MethodGet && !body.Empty {
		envelope.Send(w, http.StatusNotAcceptable,
			"GET method requests cannot have a body. Use query parameters instead.", nil)
		return
	}

	if len(opts.RequiredBodyFields) > 0 && body.Empty {
		word := ternary.If(len(opts.RequiredBodyFields) == 1, "property", "properties")
		envelope.Send(w, http.StatusBadRequest,
			fmt.Sprintf("%s %s should be specified.", quoteList(opts.RequiredBodyFields), word),
			map[string]any{"specifiedProps": fieldNames(body)},
		)
		return
	}

	if !body.Empty {
		if body.Errored {
			envelope.Send(w, http.StatusBadRequest, "Invalid request JSON was provided.", nil)
			return
		}

		if missing := missingField(body, opts.RequiredBodyFields); missing != "" {
			word := ternary.If(len(opts.RequiredBodyFields) == 1, "property", "properties")
			envelope.Send(w, http.StatusBadRequest,
				fmt.Sprintf("%s %s should be specified.", quoteList(opts.RequiredBodyFields), word),
				map[string]any{"specifiedProps": fieldNames(body)},
			)
			return
		}
	}

	var payload *authtoken.Payload
	if opts.RequireAuth {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		decoded, err := p.tokens.Verify(token)
		if err != nil {
			// The verification failure itself never reaches the client.
			envelope.Send(w, http.StatusUnauthorized,
				"Access token is either invalid or not provided.", nil)
			return
		}

		if opts.RequireVerified && !decoded.Verified {
			envelope.Send(w, http.StatusForbidden,
				"You must be verified to do this request.", map[string]any{
					"accountVerified": decoded.Verified,
				})
			return
		}

		if decoded.Role < opts.MinRole {
			envelope.Send(w, http.StatusForbidden,
				fmt.Sprintf("You don't have permissions to do this request. "+
					"Only %s or above can do this request.", opts.MinRole),
				map[string]any{
					"accountRole":  decoded.Role.String(),
					"requiredRole": opts.MinRole.String(),
				})
			return
		}

		payload = &decoded
		r = r.WithContext(scontext.WithAuthPayload(r.Context(), payload))
	}

	opts.Handle(&Context{
		Writer:  w,
		Request: r,
		Body:    body,
		Query:   query,
		Auth:    payload,
		IP:      ip,
		Path:    routePath,
	})
}

func methodAllowed(methods []common.HttpMethod, method string) bool {
	for _, m := range methods {
		if string(m) == method {
			return true
		}
	}
	return false
}

func methodNotAllowedMessage(methods []common.HttpMethod) string {
	msg := "This method is not allowed. "
	if len(methods) == 1 {
		return msg + fmt.Sprintf("Only '%s' method can be used for this request.", methods[0])
	}

	quoted := make([]string, len(methods))
	for i, m := range methods {
		quoted[i] = fmt.Sprintf("'%s'", m)
	}
	return msg + fmt.Sprintf("Only %s methods can be used for this request.", strings.Join(quoted, ", "))
}

// missingField returns the first required field absent from the parse
// result, or "" when all are present.
func missingField(parsed envelope.Parsed, required []string) string {
	for _, name := range required {
		if _, ok := parsed.Field(name); !ok {
			return name
		}
	}
	return ""
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("'%s'", name)
	}
	return strings.Join(quoted, ", ")
}

func fieldNames(parsed envelope.Parsed) []string {
	names := make([]string, 0, len(parsed.Data))
	for name := range parsed.Data {
		names = append(names, name)
	}
	return names
}

// statusWriter captures the response status so the access log and metrics
// can report it after the handler completes.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(statusCode int) {
	if w.statusCode == 0 {
		w.statusCode = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}
