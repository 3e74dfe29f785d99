// Package scontext provides typed accessors for the values the request
// pipeline stores on a request's context: the client IP, the trace ID and
// the decoded auth token payload.
package scontext

import (
	"context"
	"net/http"

	"github.com/tester-platform/tester/pkg/authtoken"
)

// requestContextKey is a private type for the context key to avoid collisions.
type requestContextKey struct{}

// RequestContext holds all values the pipeline adds to request contexts.
type RequestContext struct {
	ClientIP string
	TraceID  string
	Auth     *authtoken.Payload

	ClientIPSet bool
	TraceIDSet  bool
	AuthSet     bool
}

// GetRequestContext retrieves the RequestContext from a context.
// Returns nil and false if no RequestContext is present.
func GetRequestContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok
}

// ensureRequestContext returns the existing RequestContext or attaches a new
// one. The returned context always carries the returned RequestContext.
func ensureRequestContext(ctx context.Context) (context.Context, *RequestContext) {
	if rc, ok := GetRequestContext(ctx); ok {
		return ctx, rc
	}
	rc := &RequestContext{}
	return context.WithValue(ctx, requestContextKey{}, rc), rc
}

// WithClientIP stores the client IP address in the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	ctx, rc := ensureRequestContext(ctx)
	rc.ClientIP = ip
	rc.ClientIPSet = true
	return ctx
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) (string, bool) {
	rc, ok := GetRequestContext(ctx)
	if !ok || !rc.ClientIPSet {
		return "", false
	}
	return rc.ClientIP, true
}

// GetClientIPFromRequest retrieves the client IP address from a request.
func GetClientIPFromRequest(r *http.Request) (string, bool) {
	return GetClientIP(r.Context())
}

// WithTraceID stores the trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	ctx, rc := ensureRequestContext(ctx)
	rc.TraceID = traceID
	rc.TraceIDSet = true
	return ctx
}

// GetTraceID retrieves the trace ID from the context.
// Returns an empty string if no trace ID is present.
func GetTraceID(ctx context.Context) string {
	rc, ok := GetRequestContext(ctx)
	if !ok || !rc.TraceIDSet {
		return ""
	}
	return rc.TraceID
}

// GetTraceIDFromRequest retrieves the trace ID from a request.
func GetTraceIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return GetTraceID(r.Context())
}

// WithAuthPayload stores the decoded auth token payload in the context.
// The pipeline attaches the payload only after the token has been verified,
// so endpoint logic can treat its presence as proof of authentication.
func WithAuthPayload(ctx context.Context, payload *authtoken.Payload) context.Context {
	ctx, rc := ensureRequestContext(ctx)
	rc.Auth = payload
	rc.AuthSet = payload != nil
	return ctx
}

// GetAuthPayload retrieves the decoded auth token payload from the context.
func GetAuthPayload(ctx context.Context) (*authtoken.Payload, bool) {
	rc, ok := GetRequestContext(ctx)
	if !ok || !rc.AuthSet {
		return nil, false
	}
	return rc.Auth, true
}

// GetAuthPayloadFromRequest retrieves the decoded auth token payload from a request.
func GetAuthPayloadFromRequest(r *http.Request) (*authtoken.Payload, bool) {
	return GetAuthPayload(r.Context())
}
