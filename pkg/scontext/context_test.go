package scontext

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/tester-platform/tester/pkg/authtoken"
)

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	if _, ok := GetRequestContext(ctx); ok {
		t.Error("plain context should carry no RequestContext")
	}
	if _, ok := GetClientIP(ctx); ok {
		t.Error("plain context should carry no client IP")
	}
	if id := GetTraceID(ctx); id != "" {
		t.Errorf("GetTraceID = %q, want empty", id)
	}
	if _, ok := GetAuthPayload(ctx); ok {
		t.Error("plain context should carry no auth payload")
	}
}

func TestClientIPRoundtrip(t *testing.T) {
	ctx := WithClientIP(context.Background(), "192.0.2.5")

	ip, ok := GetClientIP(ctx)
	if !ok || ip != "192.0.2.5" {
		t.Errorf("GetClientIP = %q, %v; want 192.0.2.5, true", ip, ok)
	}
}

func TestTraceIDRoundtrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-123")

	if id := GetTraceID(ctx); id != "trace-123" {
		t.Errorf("GetTraceID = %q, want trace-123", id)
	}
}

func TestAuthPayloadRoundtrip(t *testing.T) {
	payload := &authtoken.Payload{ID: "u1", Username: "bob"}
	ctx := WithAuthPayload(context.Background(), payload)

	got, ok := GetAuthPayload(ctx)
	if !ok || got != payload {
		t.Errorf("GetAuthPayload = %v, %v; want the stored payload", got, ok)
	}
}

func TestNilAuthPayloadReportsAbsent(t *testing.T) {
	ctx := WithAuthPayload(context.Background(), nil)

	if _, ok := GetAuthPayload(ctx); ok {
		t.Error("a nil payload must not count as authenticated")
	}
}

func TestValuesShareOneRequestContext(t *testing.T) {
	ctx := WithClientIP(context.Background(), "192.0.2.5")
	ctx = WithTraceID(ctx, "trace-123")

	rc, ok := GetRequestContext(ctx)
	if !ok {
		t.Fatal("no RequestContext attached")
	}
	if rc.ClientIP != "192.0.2.5" || rc.TraceID != "trace-123" {
		t.Errorf("RequestContext = %+v, want both values on one struct", rc)
	}
}

func TestRequestAccessors(t *testing.T) {
	r := httptest.NewRequest("GET", "/x", nil)
	r = r.WithContext(WithClientIP(WithTraceID(r.Context(), "t1"), "192.0.2.5"))

	if ip, ok := GetClientIPFromRequest(r); !ok || ip != "192.0.2.5" {
		t.Errorf("GetClientIPFromRequest = %q, %v", ip, ok)
	}
	if id := GetTraceIDFromRequest(r); id != "t1" {
		t.Errorf("GetTraceIDFromRequest = %q, want t1", id)
	}
	if id := GetTraceIDFromRequest(nil); id != "" {
		t.Errorf("GetTraceIDFromRequest(nil) = %q, want empty", id)
	}
}
