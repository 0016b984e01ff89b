package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"defensebook/pkg/auth"
	apperrors "defensebook/pkg/errors"
	httputil "defensebook/pkg/http"
)

const DefaultIdempotencyHeader = "Idempotency-Key"

// IdempotencyStore tracks keys through two phases. Begin reserves a key or
// reports what already holds it; Complete stores the final response and
// Release drops a reservation whose response should not be kept.
type IdempotencyStore interface {
	Begin(key string) (cached *CachedResponse, inFlight bool)
	Complete(key string, response *CachedResponse)
	Release(key string)
	Stop()
}

type CachedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

type idempotencyEntry struct {
	response *CachedResponse // nil while the first request is running
	storedAt time.Time
}

type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	store := &InMemoryIdempotencyStore{
		entries: make(map[string]*idempotencyEntry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go store.sweep()

	return store
}

// Begin returns a stored response for key, or inFlight when another request
// holds it. Otherwise it reserves key for the caller and returns (nil, false).
func (s *InMemoryIdempotencyStore) Begin(key string) (*CachedResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && !s.expired(entry) {
		if entry.response == nil {
			return nil, true
		}
		return entry.response, false
	}

	s.entries[key] = &idempotencyEntry{storedAt: s.now()}
	return nil, false
}

func (s *InMemoryIdempotencyStore) Complete(key string, response *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &idempotencyEntry{response: response, storedAt: s.now()}
}

func (s *InMemoryIdempotencyStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && entry.response == nil {
		delete(s.entries, key)
	}
}

func (s *InMemoryIdempotencyStore) expired(entry *idempotencyEntry) bool {
	return s.now().Sub(entry.storedAt) > s.ttl
}

func (s *InMemoryIdempotencyStore) sweep() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, entry := range s.entries {
				if s.expired(entry) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the first successful response for a repeated key and
// turns away a duplicate that arrives while the first is still running.
// Keys are scoped to actor, method and path.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = DefaultIdempotencyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := idempotencyKey(r, headerName)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			cached, inFlight := store.Begin(key)
			switch {
			case inFlight:
				_ = httputil.WriteError(w, apperrors.Conflict("A request with this idempotency key is still in progress"))
				return
			case cached != nil:
				replay(w, cached)
				return
			}

			rec := &recordingWriter{ResponseWriter: w}
			completed := false
			defer func() {
				if !completed {
					store.Release(key)
				}
			}()

			next.ServeHTTP(rec, r)

			if rec.status >= 200 && rec.status < 300 {
				store.Complete(key, &CachedResponse{
					StatusCode: rec.status,
					Headers:    w.Header().Clone(),
					Body:       bytes.Clone(rec.body.Bytes()),
				})
				completed = true
			}
		})
	}
}

func idempotencyKey(r *http.Request, headerName string) string {
	raw := r.Header.Get(headerName)
	if raw == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return ""
	}
	actorID := ""
	if actor, ok := auth.FromContext(r.Context()); ok {
		actorID = actor.ID
	}
	return actorID + "|" + r.Method + " " + r.URL.Path + "|" + raw
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		if key == RequestIDHeader {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
