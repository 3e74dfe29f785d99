// Package common provides shared types and utilities used across the Tester backend.
package common

import "net/http"

// Middleware defines the type for HTTP middleware functions.
// It takes an http.Handler and returns an http.Handler.
type Middleware func(http.Handler) http.Handler

// MiddlewareChain is an ordered list of middlewares that can be applied to a
// handler as a single unit. The first middleware in the chain is the
// outermost wrapper, i.e. it sees the request first.
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewMiddlewareChain creates a MiddlewareChain from the given middlewares.
func NewMiddlewareChain(middlewares ...Middleware) MiddlewareChain {
	return MiddlewareChain{middlewares: middlewares}
}

// Append returns a new chain with the given middlewares added to the end.
// The receiver is not modified.
func (c MiddlewareChain) Append(middlewares ...Middleware) MiddlewareChain {
	combined := make([]Middleware, 0, len(c.middlewares)+len(middlewares))
	combined = append(combined, c.middlewares...)
	combined = append(combined, middlewares...)
	return MiddlewareChain{middlewares: combined}
}

// Then applies the chain to the final handler and returns the wrapped handler.
func (c MiddlewareChain) Then(h http.Handler) http.Handler {
	if h == nil {
		h = http.DefaultServeMux
	}
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}

// HttpMethod defines the type for HTTP methods.
type HttpMethod string

// Constants for standard HTTP methods.
const (
	MethodGet     HttpMethod = http.MethodGet
	MethodHead    HttpMethod = http.MethodHead
	MethodPost    HttpMethod = http.MethodPost
	MethodPut     HttpMethod = http.MethodPut
	MethodPatch   HttpMethod = http.MethodPatch
	MethodDelete  HttpMethod = http.MethodDelete
	MethodOptions HttpMethod = http.MethodOptions
)
