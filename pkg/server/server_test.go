package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/tester-platform/tester/pkg/authtoken"
	"github.com/tester-platform/tester/pkg/common"
	"github.com/tester-platform/tester/pkg/envelope"
	"github.com/tester-platform/tester/pkg/pipeline"
	"github.com/tester-platform/tester/pkg/ratelimit"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	tokens, err := authtoken.NewCodec("server-test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	limiter := ratelimit.NewLimiter(ratelimit.NewStore())
	p := pipeline.New(pipeline.Config{
		Limiter:   limiter,
		Tokens:    tokens,
		Logger:    zap.NewNop(),
		APIPrefix: "/api/v1",
	})

	s := New(Config{
		ListenAddr: "127.0.0.1:0",
		APIPrefix:  "/api/v1",
		Routes: []pipeline.RouteOptions{{
			Path:    "/ping",
			Methods: []common.HttpMethod{common.MethodGet},
			Handle: func(c *pipeline.Context) {
				c.Send(http.StatusOK, "pong", nil)
			},
		}},
		Pipeline: p,
		Limiter:  limiter,
		Logger:   zap.NewNop(),
	})
	t.Cleanup(func() {
		if s.stopSweeper != nil {
			s.stopSweeper()
		}
	})
	return s
}

func serve(s *Server, method, path string) (*httptest.ResponseRecorder, envelope.Response) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "192.0.2.1:55000"
	s.httpServer.Handler.ServeHTTP(rec, req)

	var resp envelope.Response
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	return rec, resp
}

func TestServerServesRoutes(t *testing.T) {
	s := newTestServer(t)

	rec, resp := serve(s, http.MethodGet, "/api/v1/ping")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if want := "OK: pong"; resp.Message != want {
		t.Errorf("message = %q, want %q", resp.Message, want)
	}
}

func TestWrongMethodGetsEnvelopeResponse(t *testing.T) {
	s := newTestServer(t)

	rec, resp := serve(s, http.MethodPost, "/api/v1/ping")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("got %d, want 405", rec.Code)
	}
	if resp.Code != http.StatusMethodNotAllowed {
		t.Errorf("envelope code = %d, want the router to defer to the pipeline", resp.Code)
	}
}

func TestUnknownPathIsPlain404(t *testing.T) {
	s := newTestServer(t)

	rec, _ := serve(s, http.MethodGet, "/api/v1/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

func TestShutdownRejectsNewRequests(t *testing.T) {
	s := newTestServer(t)

	s.shuttingDown.Store(true)

	rec, resp := serve(s, http.MethodGet, "/api/v1/ping")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rec.Code)
	}
	if want := "Service Unavailable: Server is shutting down."; resp.Message != want {
		t.Errorf("message = %q, want %q", resp.Message, want)
	}
}

func TestRequestTrackingReachesZero(t *testing.T) {
	s := newTestServer(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(s, http.MethodGet, "/api/v1/ping")
		}()
	}
	wg.Wait()

	// All handlers returned, so the in-flight counter is back at zero and
	// Wait returns immediately. A hang here fails the test by timeout.
	s.wg.Wait()
}
