package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tangled.org/atscan.net/reviewscan"
	"tangled.org/atscan.net/reviewscan/internal/format"
	"tangled.org/atscan.net/reviewscan/internal/queue"
	"tangled.org/atscan.net/reviewscan/review"
)

func (s *Server) handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		st, err := s.scanner.Status(r.Context())
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		baseURL := getBaseURL(r)
		wsURL := getWSURL(r)

		var sb strings.Builder

		sb.WriteString("\nreviewscan server\n\n")
		sb.WriteString("What is reviewscan?\n")
		sb.WriteString("━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString("reviewscan looks for coordinated fake reviews of a business: rating\n")
		sb.WriteString("anomalies, young reviewer accounts and rings of reviewers praising\n")
		sb.WriteString("the same set of businesses.\n\n")

		sb.WriteString("Data\n")
		sb.WriteString("━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString(fmt.Sprintf("  Companies:   %s\n", format.Number(st.Companies)))
		sb.WriteString(fmt.Sprintf("  Reports:     %s\n", format.Number(st.Reports)))
		sb.WriteString(fmt.Sprintf("  Untrusted:   %s\n", format.Number(st.Untrusted)))
		sb.WriteString(fmt.Sprintf("  Pending:     %s\n", format.Number(len(st.Pending))))
		if s.queue != nil {
			sb.WriteString(fmt.Sprintf("  Queued:      %s\n", format.Number(s.queue.Len())))
		}
		sb.WriteString(fmt.Sprintf("  Parameters:  %s\n", s.scanner.Thresholds().Fingerprint()))
		sb.WriteString("\n")

		sb.WriteString("Server\n")
		sb.WriteString("━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString(fmt.Sprintf("  Version:     %s\n", s.config.Version))
		sb.WriteString(fmt.Sprintf("  Uptime:      %s\n", time.Since(s.startTime).Round(time.Second)))
		sb.WriteString(fmt.Sprintf("  WebSocket:   %s\n", enabled(s.config.EnableWebSocket)))
		sb.WriteString(fmt.Sprintf("  Metrics:     %s\n", enabled(s.config.EnableMetrics)))
		sb.WriteString("\n")

		sb.WriteString("API Endpoints\n")
		sb.WriteString("━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString("  GET  /                          This info page\n")
		sb.WriteString("  GET  /status                    Server and data status (JSON)\n")
		sb.WriteString("  GET  /company/:id               Company and its report (JSON)\n")
		sb.WriteString("  GET  /company/:id/explain       Explanation of an untrusted verdict\n")
		sb.WriteString("  POST /company/:id/submit        Queue the company for evaluation\n")
		sb.WriteString("  GET  /queue                     Waiting companies (JSON)\n")
		if s.config.EnableWebSocket {
			sb.WriteString("  WS   /ws?cursor=N               Live verdict stream\n")
		}
		if s.config.EnableMetrics {
			sb.WriteString("  GET  /metrics                   Prometheus metrics\n")
		}
		sb.WriteString("\n")

		sb.WriteString("Examples\n")
		sb.WriteString("━━━━━━━━━━━━━━━━━━━━\n")
		sb.WriteString(fmt.Sprintf("  curl %s/status\n", baseURL))
		sb.WriteString(fmt.Sprintf("  curl -X POST %s/company/<id>/submit?force=true\n", baseURL))
		if s.config.EnableWebSocket {
			sb.WriteString(fmt.Sprintf("  websocat %s/ws\n", wsURL))
		}
		sb.WriteString("\n")

		w.Write([]byte(sb.String()))
	}
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.scanner.Status(r.Context())
		if err != nil {
			sendJSON(w, 500, map[string]string{"error": err.Error()})
			return
		}

		response := StatusResponse{
			Server: ServerStatus{
				Version:          s.config.Version,
				WebSocketEnabled: s.config.EnableWebSocket,
				MetricsEnabled:   s.config.EnableMetrics,
				UptimeSeconds:    int(time.Since(s.startTime).Seconds()),
				Subscribers:      s.hub.Subscribers(),
				ParamFingerprint: s.scanner.Thresholds().Fingerprint(),
			},
			Data: DataStatus{
				Companies: st.Companies,
				Reports:   st.Reports,
				Untrusted: st.Untrusted,
				Pending:   len(st.Pending),
			},
		}

		if s.queue != nil {
			response.Queue = &QueueStatus{Length: s.queue.Len()}
		}

		sendJSON(w, 200, response)
	}
}

func (s *Server) handleCompany() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		company, err := s.scanner.Store().Company(r.Context(), id)
		if err != nil {
			sendCompanyError(w, err)
			return
		}

		response := CompanyResponse{Company: company, State: StatePending}

		report, err := s.scanner.Report(r.Context(), id)
		switch {
		case err == nil:
			response.Report = report
			response.State = StateReported
		case !errors.Is(err, reviewscan.ErrNoReport):
			sendJSON(w, 500, map[string]string{"error": err.Error()})
			return
		}

		if s.queue != nil {
			if pos := s.queue.Position(id); pos >= 0 {
				response.Position = pos + 1
				if response.Report == nil {
					response.State = StateQueued
				}
			}
		}

		sendJSON(w, 200, response)
	}
}

func (s *Server) handleExplain() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		rc, err := s.scanner.Explanation(r.Context(), id)
		if err != nil {
			if errors.Is(err, reviewscan.ErrNoReport) || errors.Is(err, review.ErrNotFound) {
				sendJSON(w, 404, map[string]string{"error": "Explanation not found"})
			} else {
				sendJSON(w, 500, map[string]string{"error": err.Error()})
			}
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.Copy(w, rc)
	}
}

func (s *Server) handleSubmit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.queue == nil {
			sendJSON(w, 503, map[string]string{"error": "Submissions are disabled"})
			return
		}

		id := r.PathValue("id")
		if _, err := s.scanner.Store().Company(r.Context(), id); err != nil {
			sendCompanyError(w, err)
			return
		}

		force := false
		switch r.URL.Query().Get("force") {
		case "", "0", "false":
		case "1", "true":
			force = true
		default:
			sendJSON(w, 400, map[string]string{"error": "Invalid force: must be true or false"})
			return
		}

		job, added, err := s.queue.Push(id, force)
		if err != nil {
			if errors.Is(err, queue.ErrEmptyID) {
				sendJSON(w, 400, map[string]string{"error": err.Error()})
			} else {
				sendJSON(w, 500, map[string]string{"error": err.Error()})
			}
			return
		}
		if err := s.queue.SaveIfNeeded(); err != nil {
			s.logger.Printf("Failed to save queue: %v", err)
		}

		sendJSON(w, 202, SubmitResponse{
			Job:      job,
			Added:    added,
			Position: s.queue.Position(id) + 1,
		})
	}
}

func (s *Server) handleQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.queue == nil {
			sendJSON(w, 200, QueueStatus{})
			return
		}
		jobs := s.queue.Jobs()
		sendJSON(w, 200, QueueStatus{Length: len(jobs), Jobs: jobs})
	}
}

func sendCompanyError(w http.ResponseWriter, err error) {
	if errors.Is(err, review.ErrNotFound) {
		sendJSON(w, 404, map[string]string{"error": "Company not found"})
		return
	}
	sendJSON(w, 500, map[string]string{"error": err.Error()})
}
