package serv

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResCacheMiddleware(t *testing.T) {
	rc := newResCache(CachingConfig{TTL: 60, Size: 10})

	calls := 0
	h := rc.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`)) //nolint:errcheck
	}))

	body := `{"op":"select","table":"users"}`
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, `{"data":[]}`, w.Body.String())
	}

	assert.Equal(t, 1, calls, "repeat bodies must serve from cache")

	// a different body misses
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{"op":"count","table":"users"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, 2, calls)
}

func TestResCacheSkipsFailedResponses(t *testing.T) {
	rc := newResCache(CachingConfig{TTL: 60, Size: 10})

	calls := 0
	h := rc.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusBadRequest)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	assert.Equal(t, 2, calls, "error responses must not cache")
}
