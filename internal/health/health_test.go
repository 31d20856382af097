package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func get(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	rec := get(t, New(WithChecker("store", func(context.Context) error { return errors.New("down") })), "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body := decode(t, rec); body.Status != "ok" {
		t.Errorf("body status = %q", body.Status)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()
	ok := func(context.Context) error { return nil }
	bad := func(context.Context) error { return errors.New("circuit open") }

	tests := []struct {
		name       string
		opts       []Option
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{"no checkers", nil, http.StatusOK, "ok", nil},
		{"all pass", []Option{WithChecker("store", ok), WithChecker("recognizer", ok)}, http.StatusOK, "ok",
			map[string]string{"store": "ok", "recognizer": "ok"}},
		{"one fails", []Option{WithChecker("store", ok), WithChecker("recognizer", bad)}, http.StatusServiceUnavailable, "fail",
			map[string]string{"store": "ok", "recognizer": "fail: circuit open"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := get(t, New(tc.opts...), "/readyz")
			if rec.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			body := decode(t, rec)
			if body.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tc.wantStatus)
			}
			for k, v := range tc.wantChecks {
				if body.Checks[k] != v {
					t.Errorf("checks[%q] = %q, want %q", k, body.Checks[k], v)
				}
			}
		})
	}
}

func TestReadyz_CheckSeesDeadline(t *testing.T) {
	t.Parallel()
	h := New(WithChecker("slow", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	}))
	if rec := get(t, h, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	if rec := get(t, New(), "/status"); rec.Code != http.StatusNoContent {
		t.Errorf("no status func: code = %d, want 204", rec.Code)
	}
	if rec := get(t, New(WithStatus(func() any { return nil })), "/status"); rec.Code != http.StatusNoContent {
		t.Errorf("idle: code = %d, want 204", rec.Code)
	}

	h := New(WithStatus(func() any { return map[string]int{"index": 2} }))
	rec := get(t, h, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var got map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["index"] != 2 {
		t.Errorf("index = %d, want 2", got["index"])
	}
}
