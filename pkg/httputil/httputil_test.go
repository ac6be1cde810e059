package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("bad request")
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("permanent error retried %d times", calls)
	}
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("flaky")}
		}
		return nil
	})
	if err != nil {
		t.Errorf("Retry = %v after recovery", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 5, time.Minute, func() error {
		return &RetryableError{Err: errors.New("flaky")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDoJSONRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Garage"}`))
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	status, err := DoJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL, map[string]string{"name": "Garage"}, &out)
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if status != http.StatusOK || out.Name != "Garage" {
		t.Errorf("status = %d, out = %+v", status, out)
	}
}

func TestDoJSONErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"location abc","code":"LOCATION_NOT_FOUND"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	_, err := DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL+"/missing", nil, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Code != "LOCATION_NOT_FOUND" || statusErr.Status != http.StatusNotFound {
		t.Errorf("statusErr = %+v", statusErr)
	}

	_, err = DoJSON(context.Background(), srv.Client(), http.MethodGet, srv.URL+"/boom", nil, nil)
	if !errors.As(err, new(*RetryableError)) {
		t.Errorf("5xx not retryable: %v", err)
	}
}
