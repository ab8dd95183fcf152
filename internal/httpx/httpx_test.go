package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestSnippet(t *testing.T) {
	if got := snippet([]byte("  short  "), 10); got != "short" {
		t.Errorf("Expected 'short', got %q", got)
	}
	if got := snippet([]byte("abcdefghij"), 4); got != "abcd..." {
		t.Errorf("Expected 'abcd...', got %q", got)
	}
}

func TestPostJSONSuccess(t *testing.T) {
	var gotBody, gotType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody, gotType, gotAuth = string(b), r.Header.Get("Content-Type"), r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := PostJSON(context.Background(), srv.Client(), srv.URL, map[string]string{"Authorization": "Bearer t"}, []byte(`{"a":1}`), fastRetry())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("Unexpected body %q", body)
	}
	if gotBody != `{"a":1}` || gotType != "application/json" || gotAuth != "Bearer t" {
		t.Errorf("Unexpected request: body=%q type=%q auth=%q", gotBody, gotType, gotAuth)
	}
}

func TestPostJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if string(b) != "{}" {
			t.Errorf("Body must be resent on retry, got %q", b)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	if _, err := PostJSON(context.Background(), srv.Client(), srv.URL, nil, []byte("{}"), fastRetry()); err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestPostJSONGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := PostJSON(context.Background(), srv.Client(), srv.URL, nil, []byte("{}"), fastRetry())

	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("Expected *HTTPError, got %T %v", err, err)
	}
	if herr.StatusCode != http.StatusBadGateway || !strings.Contains(herr.Error(), "upstream down") {
		t.Errorf("Unexpected error %v", herr)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestPostJSONClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := PostJSON(context.Background(), srv.Client(), srv.URL, nil, []byte("{}"), fastRetry())

	var herr *HTTPError
	if !errors.As(err, &herr) || herr.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 HTTPError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single attempt, got %d", calls.Load())
	}
}

func TestDoWithRetryCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
	_, err := PostJSON(ctx, srv.Client(), srv.URL, nil, []byte("{}"), cfg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDoWithRetryBuildReqError(t *testing.T) {
	want := errors.New("bad request builder")
	_, _, err := DoWithRetry(context.Background(), http.DefaultClient, func(context.Context) (*http.Request, error) {
		return nil, want
	}, fastRetry())
	if !errors.Is(err, want) {
		t.Errorf("Expected builder error, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	if d := backoff(1, cfg, 0); d < 100*time.Millisecond || d >= 350*time.Millisecond {
		t.Errorf("First retry out of range: %s", d)
	}
	if d := backoff(10, cfg, 0); d < time.Second || d >= time.Second+250*time.Millisecond {
		t.Errorf("Capped retry out of range: %s", d)
	}
	if d := backoff(1, cfg, 400*time.Millisecond); d != 400*time.Millisecond {
		t.Errorf("Retry-After should win, got %s", d)
	}
	if d := backoff(1, cfg, time.Minute); d != time.Second {
		t.Errorf("Retry-After should be capped, got %s", d)
	}
}

func TestIsRetryableStatus(t *testing.T) {
	cfg := DefaultRetryConfig()
	testCases := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusInternalServerError, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
	}
	for _, tc := range testCases {
		if got := isRetryableStatus(tc.code, cfg); got != tc.want {
			t.Errorf("isRetryableStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsRetryableNetErr(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"reset", errors.New("read: connection reset by peer"), true},
		{"eof", io.ErrUnexpectedEOF, true},
		{"other", errors.New("tls: bad certificate"), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryableNetErr(tc.err); got != tc.want {
				t.Errorf("isRetryableNetErr(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"missing", "", 0},
		{"seconds", "3", 3 * time.Second},
		{"negative", "-1", 0},
		{"garbage", "soon", 0},
		{"past date", "Mon, 02 Jan 2006 15:04:05 GMT", 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tc.value != "" {
				resp.Header.Set("Retry-After", tc.value)
			}
			if got := ParseRetryAfter(resp); got != tc.want {
				t.Errorf("ParseRetryAfter(%q) = %s, want %s", tc.value, got, tc.want)
			}
		})
	}
}
