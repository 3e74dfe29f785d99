package envelope

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return resp
}

func TestSendSuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	Send(rr, 200, "Logged in.", map[string]any{"token": "abc"})

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}

	resp := decodeResponse(t, rr)
	if !resp.Status {
		t.Error("status should be true for 2xx")
	}
	if resp.Code != 200 {
		t.Errorf("expected code 200, got %d", resp.Code)
	}
	if resp.Message != "OK: Logged in." {
		t.Errorf("unexpected message %q", resp.Message)
	}

	data, ok := resp.Data.(map[string]any)
	if !ok || data["token"] != "abc" {
		t.Errorf("unexpected data %#v", resp.Data)
	}
}

func TestSendErrorWithoutMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	Send(rr, 429, "", nil)

	resp := decodeResponse(t, rr)
	if resp.Status {
		t.Error("status should be false for 4xx")
	}
	if resp.Message != "Too Many Requests." {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if _, ok := resp.Data.(map[string]any); !ok {
		t.Errorf("nil body should be sent as an empty object, got %#v", resp.Data)
	}
}

func TestSendDefaultsToOK(t *testing.T) {
	rr := httptest.NewRecorder()
	Send(rr, 0, "", nil)

	if rr.Code != 200 {
		t.Fatalf("expected defaulted status 200, got %d", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp.Message != "OK." {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestSendStatusBoundary(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{399, true},
		{400, false},
		{500, false},
	}

	for _, tc := range cases {
		rr := httptest.NewRecorder()
		Send(rr, tc.code, "", nil)
		if resp := decodeResponse(t, rr); resp.Status != tc.want {
			t.Errorf("code %d: expected status %v, got %v", tc.code, tc.want, resp.Status)
		}
	}
}
