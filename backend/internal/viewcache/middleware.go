package viewcache

import (
	"bytes"
	"net/http"
)

// responseRecorder tees the response body so that it can be stored after the
// handler returns.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware serves GET requests from the cache keyed by RequestURI and stores
// successful JSON responses. Cache errors never fail the request.
func (c *Cache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		key := r.URL.RequestURI()
		if body, ok, err := c.Get(key); err != nil {
			c.log.Warn("view cache read failed", "key", key, "error", err)
		} else if ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}

		w.Header().Set("X-Cache", "MISS")
		gen := c.generation.Load()
		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status != http.StatusOK || c.generation.Load() != gen {
			return
		}
		if err := c.Set(key, rec.body.Bytes()); err != nil {
			c.log.Warn("view cache write failed", "key", key, "error", err)
			return
		}
		// Invalidate may have scanned before Set landed.
		if c.generation.Load() != gen {
			if err := c.Delete(key); err != nil {
				c.log.Warn("view cache drop failed", "key", key, "error", err)
			}
		}
	})
}
