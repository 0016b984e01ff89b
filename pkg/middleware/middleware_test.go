package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"defensebook/pkg/auth"
	"defensebook/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
}

func withActor(r *http.Request, id string) *http.Request {
	return r.WithContext(auth.WithActor(r.Context(), auth.Actor{ID: id, Role: "STUDENT"}))
}

func TestActorRateLimiter_Allow(t *testing.T) {
	limiter := NewActorRateLimiter(2, time.Minute, nil, testLogger())
	defer limiter.Stop()

	now := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("actor:a") || !limiter.Allow("actor:a") {
		t.Fatal("first two requests must pass")
	}
	if limiter.Allow("actor:a") {
		t.Error("third request inside the window must be rejected")
	}
	if !limiter.Allow("actor:b") {
		t.Error("another actor has its own budget")
	}

	now = now.Add(time.Minute)
	if !limiter.Allow("actor:a") {
		t.Error("budget must refill once the window has passed")
	}
}

func TestActorRateLimiter_DisabledLimit(t *testing.T) {
	limiter := NewActorRateLimiter(0, time.Minute, nil, testLogger())
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		if !limiter.Allow("actor:a") {
			t.Fatal("a zero limit disables limiting")
		}
	}
}

func TestRateLimit_RejectsWithRetryAfter(t *testing.T) {
	limiter := NewActorRateLimiter(1, time.Minute, nil, testLogger())
	defer limiter.Stop()

	h := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, withActor(httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil), "u1"))
		return rr
	}

	if rr := send(); rr.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rr.Code)
	}
	rr := send()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
	if !strings.Contains(rr.Body.String(), "RATE_LIMITED") {
		t.Errorf("body = %s, want RATE_LIMITED code", rr.Body.String())
	}
}

func TestDefaultKeyExtractor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	if got := DefaultKeyExtractor(r); got != "addr:10.0.0.7" {
		t.Errorf("anonymous key = %q", got)
	}
	if got := DefaultKeyExtractor(withActor(r, "u1")); got != "actor:u1" {
		t.Errorf("actor key = %q", got)
	}
}

func idempotentHandler(calls *int32, status int) http.Handler {
	store := NewInMemoryIdempotencyStore(time.Hour)
	return Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"n":`+string(rune('0'+n))+`}`)
	}))
}

func post(h http.Handler, actorID, key string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
	r.Header.Set(DefaultIdempotencyHeader, key)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withActor(r, actorID))
	return rr
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	var calls int32
	h := idempotentHandler(&calls, http.StatusCreated)

	first := post(h, "u1", "k1")
	second := post(h, "u1", "k1")

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replay = %d %s, want %d %s", second.Code, second.Body.String(), first.Code, first.Body.String())
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Error("replay must restore headers")
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("replay must be marked")
	}
}

func TestIdempotency_InFlightDuplicate(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	entered := make(chan struct{})
	release := make(chan struct{})
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- post(h, "u1", "k1") }()
	<-entered

	dup := post(h, "u1", "k1")
	if dup.Code != http.StatusConflict {
		t.Errorf("duplicate while in flight = %d, want 409", dup.Code)
	}

	close(release)
	if first := <-done; first.Code != http.StatusCreated {
		t.Errorf("first request = %d, want 201", first.Code)
	}
}

func TestIdempotency_ScopedByActor(t *testing.T) {
	var calls int32
	h := idempotentHandler(&calls, http.StatusCreated)

	post(h, "u1", "same")
	post(h, "u2", "same")

	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	var calls int32
	h := idempotentHandler(&calls, http.StatusConflict)

	post(h, "u1", "k1")
	post(h, "u1", "k1")

	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}

func TestIdempotency_IgnoresGet(t *testing.T) {
	var calls int32
	h := idempotentHandler(&calls, http.StatusOK)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		r.Header.Set(DefaultIdempotencyHeader, "k1")
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}

func TestRequestLogging_RequestID(t *testing.T) {
	var seen string
	h := RequestLogging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	if seen != "req-42" || rr.Header().Get(RequestIDHeader) != "req-42" {
		t.Errorf("inbound id not reused: ctx=%q header=%q", seen, rr.Header().Get(RequestIDHeader))
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "req-42" || rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id = %q, header = %q", seen, rr.Header().Get(RequestIDHeader))
	}
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json with charset", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusNoContent},
		{"plain text body", http.MethodPost, `hi`, "text/plain", http.StatusUnsupportedMediaType},
		{"missing header", http.MethodPut, `{}`, "", http.StatusUnsupportedMediaType},
		{"bodiless delete", http.MethodDelete, "", "", http.StatusNoContent},
		{"get", http.MethodGet, "", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			r := httptest.NewRequest(tt.method, "/api/v1/bookings", body)
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, r)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	slow := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))

	rr := httptest.NewRecorder()
	slow.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "late") {
		t.Error("writes after the deadline must be dropped")
	}

	fast := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusAccepted)
	}))
	rr = httptest.NewRecorder()
	fast.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusAccepted || rr.Header().Get("X-Test") != "yes" {
		t.Errorf("fast handler = %d %q", rr.Code, rr.Header().Get("X-Test"))
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "boom") {
		t.Error("panic value must not leak to the client")
	}
}

func TestMaxRequestSize(t *testing.T) {
	var readErr error
	h := MaxRequestSize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	if readErr == nil {
		t.Error("oversized body must fail to read")
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123")))
	if readErr != nil {
		t.Errorf("small body: %v", readErr)
	}
}
