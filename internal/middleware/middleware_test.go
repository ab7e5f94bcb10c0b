package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/vehicle-ingest/internal/logging"
)

func TestRequestID(t *testing.T) {
	logger, hook := test.NewNullLogger()

	t.Run("generated", func(t *testing.T) {
		hook.Reset()
		h := RequestID(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logging.FromContext(r.Context(), nil).Info("inside")
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("POST", "/add_fastag", nil))

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		require.Len(t, hook.Entries, 1)
		assert.Equal(t, id, hook.LastEntry().Data["request_id"])
	})

	t.Run("propagated", func(t *testing.T) {
		h := RequestID(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest("POST", "/add_fastag", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})
}

func TestAccessLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	}))

	req := httptest.NewRequest("POST", "/add_challan_record", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, hook.Entries, 1)
	e := hook.LastEntry()
	assert.Equal(t, log.WarnLevel, e.Level)
	assert.Equal(t, http.StatusUnprocessableEntity, e.Data["status"])
	assert.Equal(t, "/add_challan_record", e.Data["path"])
	assert.Equal(t, "10.0.0.7", e.Data["client"])
}

func TestAccessLog_ImplicitOK(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, log.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, http.StatusOK, hook.LastEntry().Data["status"])
}

func TestRecover(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "boom", hook.LastEntry().Data["panic"])
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mark("a"), mark("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"))

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	l := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		l.Allow(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Len(t, l.requests, 100)

	now = now.Add(30 * time.Second)
	l.Allow("5.6.7.8")
	assert.Len(t, l.requests, 101)

	now = now.Add(45 * time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.Len(t, l.requests, 2)
	assert.NotContains(t, l.requests, "10.0.0.0")
	assert.Contains(t, l.requests, "5.6.7.8")

	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.Len(t, l.requests, 1)
	assert.NotContains(t, l.requests, "5.6.7.8")
}

func TestRateLimiter_Middleware(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("POST", "/add_rc_chassis", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	assert.Equal(t, "192.168.1.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "8.8.8.8")
	assert.Equal(t, "8.8.8.8", getClientIP(req))
}
