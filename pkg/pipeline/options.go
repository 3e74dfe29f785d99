package pipeline

import (
	"net/http"

	"github.com/tester-platform/tester/pkg/authtoken"
	"github.com/tester-platform/tester/pkg/common"
	"github.com/tester-platform/tester/pkg/envelope"
	"github.com/tester-platform/tester/pkg/ratelimit"
)

// ValidationError describes an endpoint validator's rejection: what failed
// and which field caused it.
type ValidationError struct {
	// Message explains what failed to validate.
	Message string

	// Failed names the exact property that failed, or "any".
	Failed string
}

// Validator is a pure check over parsed body or query fields. A nil return
// means the fields passed.
type Validator func(fields map[string]any) *ValidationError

// HandleFunc implements the endpoint-specific "what to do once authorized"
// step. It runs only after every pipeline check has passed and is expected
// to write exactly one response through the envelope package.
type HandleFunc func(c *Context)

// RouteOptions is the per-endpoint static configuration. Each endpoint is a
// plain configuration value; variants are data, not subclasses.
type RouteOptions struct {
	// Path is the route path relative to the API prefix. It is also the
	// rate limiter's route identity.
	Path string

	// Methods lists the HTTP methods this route accepts.
	Methods []common.HttpMethod

	// RequiredBodyFields must all be present in a parsed request body.
	RequiredBodyFields []string

	// RequiredQueryFields must all be present in the query string.
	RequiredQueryFields []string

	// RequireAuth gates the route behind a verified bearer token.
	RequireAuth bool

	// RequireVerified additionally demands a verified account.
	RequireVerified bool

	// MinRole is the lowest role ordinal admitted. Zero means any.
	MinRole authtoken.Role

	// RateLimit carries the route's window, limit and cooldown. The Path
	// field is filled in by the pipeline. A zero Limit disables the check.
	RateLimit ratelimit.Policy

	// ValidateBody and ValidateQuery are optional endpoint-supplied checks
	// run before anything else in the pipeline.
	ValidateBody  Validator
	ValidateQuery Validator

	// Handle is the endpoint logic.
	Handle HandleFunc
}

// Context is handed to endpoint logic once every check has passed.
type Context struct {
	Writer  http.ResponseWriter
	Request *http.Request

	// Body and Query are the lenient parse results.
	Body  envelope.Parsed
	Query envelope.Parsed

	// Auth is the decoded token payload. Nil unless the route required
	// authorization.
	Auth *authtoken.Payload

	// IP is the normalized client address.
	IP string

	// Path is the route path with the API prefix stripped.
	Path string
}

// Send writes the response envelope for this request.
func (c *Context) Send(statusCode int, message string, body any) {
	envelope.Send(c.Writer, statusCode, message, body)
}
