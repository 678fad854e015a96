package server

import (
	"net/http"

	"github.com/brattlof/shipboard/internal/app/config"
)

type headerRules struct {
	add      map[string]string
	remove   []string
	override map[string]string
}

func (h *headerRules) empty() bool {
	return len(h.add) == 0 && len(h.remove) == 0 && len(h.override) == 0
}

// apply removes, then overrides, then adds headers that are still missing.
func (h *headerRules) apply(header http.Header) {
	for _, key := range h.remove {
		header.Del(key)
	}
	for key, value := range h.override {
		header.Set(key, value)
	}
	for key, value := range h.add {
		if header.Get(key) == "" {
			header.Set(key, value)
		}
	}
}

// headerWriter applies the rules once, just before the status line is sent,
// so headers set by the handler are rewritten too.
type headerWriter struct {
	http.ResponseWriter
	rules   *headerRules
	applied bool
}

func (w *headerWriter) WriteHeader(status int) {
	if !w.applied {
		w.applied = true
		w.rules.apply(w.Header())
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *headerWriter) Write(b []byte) (int, error) {
	if !w.applied {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *headerWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *headerWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Headers rewrites response headers according to cfg.
func Headers(cfg config.HeadersConfig) func(http.Handler) http.Handler {
	rules := &headerRules{
		add:      cfg.Add,
		remove:   cfg.Remove,
		override: cfg.Override,
	}

	return func(next http.Handler) http.Handler {
		if rules.empty() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hw := &headerWriter{ResponseWriter: w, rules: rules}
			next.ServeHTTP(hw, r)
			// nothing was written, net/http sends the headers after we return
			if !hw.applied {
				hw.applied = true
				rules.apply(w.Header())
			}
		})
	}
}
