package serv

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	cache "github.com/go-pkgz/expirable-cache"
)

// resCache caches query responses by request body for a short TTL. Only
// successful responses are stored.
type resCache struct {
	c   cache.Cache
	ttl time.Duration
}

func newResCache(conf CachingConfig) *resCache {
	ttl := time.Duration(conf.TTL) * time.Second
	c, _ := cache.NewCache(cache.MaxKeys(conf.Size), cache.TTL(ttl))
	return &resCache{c: c, ttl: ttl}
}

type cachedResponse struct {
	contentType string
	body        []byte
}

// recorder buffers a response so it can be cached after the handler runs.
type recorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (rc *resCache) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxReadBytes))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		sum := sha256.Sum256(body)
		key := hex.EncodeToString(sum[:])

		if v, ok := rc.c.Get(key); ok {
			res := v.(cachedResponse)
			w.Header().Set("Content-Type", res.contentType)
			w.Header().Set("X-Cache", "HIT")
			w.Write(res.body) //nolint:errcheck
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status == http.StatusOK {
			rc.c.Set(key, cachedResponse{
				contentType: rec.Header().Get("Content-Type"),
				body:        rec.buf.Bytes(),
			}, rc.ttl)
		}
	})
}
