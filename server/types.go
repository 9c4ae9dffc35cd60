package server

import (
	"time"

	"tangled.org/atscan.net/reviewscan"
	"tangled.org/atscan.net/reviewscan/internal/queue"
	"tangled.org/atscan.net/reviewscan/review"
)

// StatusResponse is the /status endpoint response
type StatusResponse struct {
	Server ServerStatus `json:"server"`
	Data   DataStatus   `json:"data"`
	Queue  *QueueStatus `json:"queue,omitempty"`
}

// ServerStatus contains server information
type ServerStatus struct {
	Version          string `json:"version"`
	WebSocketEnabled bool   `json:"websocket_enabled"`
	MetricsEnabled   bool   `json:"metrics_enabled"`
	UptimeSeconds    int    `json:"uptime_seconds"`
	Subscribers      int    `json:"subscribers"`
	ParamFingerprint string `json:"param_fp"`
}

// DataStatus summarizes stored companies and reports
type DataStatus struct {
	Companies int `json:"companies"`
	Reports   int `json:"reports"`
	Untrusted int `json:"untrusted"`
	Pending   int `json:"pending"`
}

// QueueStatus describes the evaluation queue
type QueueStatus struct {
	Length int         `json:"length"`
	Jobs   []queue.Job `json:"jobs,omitempty"`
}

// CompanyResponse is the /company/{id} endpoint response
type CompanyResponse struct {
	Company  *review.Company    `json:"company"`
	Report   *reviewscan.Report `json:"report,omitempty"`
	State    string             `json:"state"`
	Position int                `json:"queue_position,omitempty"`
}

// SubmitResponse is returned for accepted submissions
type SubmitResponse struct {
	Job      queue.Job `json:"job"`
	Added    bool      `json:"added"`
	Position int       `json:"position"`
}

// Event is one message of the verdict stream
type Event struct {
	Seq        uint64    `json:"seq"`
	Type       string    `json:"type"`
	CompanyID  string    `json:"oid"`
	Title      string    `json:"title,omitempty"`
	Result     string    `json:"result"`
	Trusted    *bool     `json:"trusted,omitempty"`
	Detections []string  `json:"detections,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Time       time.Time `json:"time"`
}

// Company states reported by /company/{id}
const (
	StateReported = "reported"
	StateQueued   = "queued"
	StatePending  = "pending"
)
