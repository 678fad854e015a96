package dev

import (
	"bytes"
	"net/http"
	"strconv"
)

// HMRPath is the websocket endpoint the injected client connects to.
const HMRPath = "/__hmr"

const hmrClientScript = `<script>
(function() {
  var attempts = 0;

  function connect() {
    var protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
    var ws = new WebSocket(protocol + '//' + window.location.host + '` + HMRPath + `');

    ws.onopen = function() {
      attempts = 0;
    };

    ws.onmessage = function(e) {
      var msg = JSON.parse(e.data);
      if (msg.type === 'reload') {
        console.log('[HMR] Reloading:', msg.file);
        window.location.reload();
      }
    };

    ws.onclose = function() {
      var delay = Math.min(1000 * Math.pow(2, attempts), 5000);
      attempts++;
      setTimeout(connect, delay);
    };
  }

  connect();
})();
</script>`

type hmrResponseWriter struct {
	http.ResponseWriter
	buf        bytes.Buffer
	statusCode int
}

func (w *hmrResponseWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

func (w *hmrResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
}

func isHTML(body []byte) bool {
	head := bytes.ToLower(body[:min(1024, len(body))])
	return bytes.Contains(head, []byte("<!doctype")) || bytes.Contains(head, []byte("<html"))
}

// InjectHMR buffers HTML responses and inserts the live-reload client before
// the closing body tag. Other responses pass through unchanged.
func InjectHMR(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == HMRPath || r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		hw := &hmrResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(hw, r)

		body := hw.buf.Bytes()

		idx := -1
		if len(body) > 0 && isHTML(body) {
			idx = bytes.LastIndex(body, []byte("</body>"))
			if idx == -1 {
				idx = bytes.LastIndex(body, []byte("</html>"))
			}
		}

		if idx == -1 {
			w.WriteHeader(hw.statusCode)
			w.Write(body)
			return
		}

		w.Header().Set("Content-Length", strconv.Itoa(len(body)+len(hmrClientScript)))
		w.WriteHeader(hw.statusCode)

		w.Write(body[:idx])
		w.Write([]byte(hmrClientScript))
		w.Write(body[idx:])
	})
}
