package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// originPolicy decides which browser origins may read the API and open
// the verdict stream. Requests without an Origin header and same-host
// origins are always allowed; "*" allows everything.
type originPolicy struct {
	any     bool
	allowed map[string]struct{}
}

func newOriginPolicy(origins []string) *originPolicy {
	p := &originPolicy{allowed: make(map[string]struct{})}
	for _, o := range origins {
		o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
		switch o {
		case "":
		case "*":
			p.any = true
		default:
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

// open reports whether no origin list was configured
func (p *originPolicy) open() bool {
	return p.any || len(p.allowed) == 0
}

// check is the websocket.Upgrader CheckOrigin hook
func (p *originPolicy) check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || p.any {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	_, ok := p.allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
	return ok
}

// cors adds CORS headers. Without a configured origin list the read API is
// public; with one, only matching origins are echoed back.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// websocket handshakes are checked by the upgrader
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		origin := r.Header.Get("Origin")
		switch {
		case s.origins.open():
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && s.origins.check(r):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				h.Set("Access-Control-Allow-Headers", requested)
			} else {
				h.Set("Access-Control-Allow-Headers", "*")
			}
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sendJSON encodes data with goccy/go-json and writes it with statusCode
func sendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	jsonData, err := json.Marshal(data)
	if err != nil {
		statusCode = http.StatusInternalServerError
		jsonData = []byte(`{"error":"failed to marshal JSON"}`)
	}

	w.WriteHeader(statusCode)
	w.Write(jsonData)
}
