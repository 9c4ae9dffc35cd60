package server_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServerHelperFunctions(t *testing.T) {
	// Helpers are unexported, so they are checked through the root page

	handler, _, _ := setupTestServer(t, true)

	t.Run("ForwardedScheme", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Host = "scan.example.com"
		req.Header.Set("X-Forwarded-Proto", "https")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		body := rec.Body.String()
		if !strings.Contains(body, "https://scan.example.com/status") {
			t.Error("base URL should follow X-Forwarded-Proto")
		}
		if !strings.Contains(body, "wss://scan.example.com/ws") {
			t.Error("websocket URL should use wss behind TLS proxy")
		}
	})

	t.Run("PlainScheme", func(t *testing.T) {
		ts := httptest.NewServer(handler)
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/")
		if err != nil {
			t.Fatalf("GET / failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if !strings.Contains(string(body), "curl "+ts.URL+"/status") {
			t.Error("root page should show plain http examples")
		}
		if !strings.Contains(string(body), "Companies:   3") {
			t.Errorf("root page misses company count:\n%s", body)
		}
	})
}
