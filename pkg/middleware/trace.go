// Package middleware provides the HTTP middleware applied globally, before
// any endpoint pipeline runs.
package middleware

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/tester-platform/tester/pkg/common"
	"github.com/tester-platform/tester/pkg/scontext"
)

// IDGenerator hands out precomputed UUIDs so request handling never waits
// on UUID generation.
type IDGenerator struct {
	idChan   chan string
	size     int
	initOnce sync.Once
}

// NewIDGenerator creates an IDGenerator with the given buffer size and
// starts its background filler.
func NewIDGenerator(bufferSize int) *IDGenerator {
	g := &IDGenerator{
		idChan: make(chan string, bufferSize),
		size:   bufferSize,
	}
	g.init()
	return g
}

func (g *IDGenerator) init() {
	g.initOnce.Do(func() {
		for i := 0; i < g.size; i++ {
			g.idChan <- uuid.New().String()
		}

		go func() {
			for {
				g.idChan <- uuid.New().String()
			}
		}()
	})
}

// GetIDNonBlocking returns a precomputed UUID, falling back to on-the-spot
// generation if the pool is momentarily empty.
func (g *IDGenerator) GetIDNonBlocking() string {
	select {
	case id := <-g.idChan:
		return id
	default:
		return uuid.New().String()
	}
}

// Trace assigns a unique trace ID to every request and stores it in the
// request context for the access log.
func Trace(generator *IDGenerator) common.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := generator.GetIDNonBlocking()
			ctx := scontext.WithTraceID(r.Context(), traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
