package logging_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"tangled.org/atscan.net/reviewscan/internal/logging"
	"tangled.org/atscan.net/reviewscan/internal/types"
)

var _ types.Logger = (*logging.Printf)(nil)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func TestFanout(t *testing.T) {
	var text, js bytes.Buffer
	logger := logging.SetupWithWriters(&text, &js, slog.LevelDebug, slog.LevelInfo)

	logger.Debug("debug only in json")
	logger.Info("verdict", "oid", "141265769338187", "trusted", false)

	if strings.Contains(text.String(), "debug only") {
		t.Error("text output should respect its own level")
	}
	if !strings.Contains(text.String(), "oid=141265769338187") {
		t.Errorf("text output = %q", text.String())
	}

	lines := strings.Split(strings.TrimSpace(js.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("json lines = %d, want 2", len(lines))
	}
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("json output not parseable: %v", err)
	}
	if rec["msg"] != "verdict" || rec["trusted"] != false {
		t.Errorf("json record = %v", rec)
	}
}

func TestSetupFile(t *testing.T) {
	var text bytes.Buffer
	path := filepath.Join(t.TempDir(), "reviewscan.log")

	logger, cleanup := logging.Setup(logging.Options{Level: slog.LevelInfo, File: path, Stderr: &text, Quiet: true})
	logger.Info("quiet info")
	logger.Warn("loud warning")
	if err := cleanup(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(text.String(), "quiet info") || !strings.Contains(text.String(), "loud warning") {
		t.Errorf("quiet text output = %q", text.String())
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "quiet info") {
		t.Errorf("file should receive info records: %q", data)
	}
}

func TestPrintfAdapter(t *testing.T) {
	var text, js bytes.Buffer
	p := logging.NewPrintf(logging.SetupWithWriters(&text, &js, slog.LevelInfo, slog.LevelInfo))

	p.Printf("queued %d companies\n", 3)
	p.Println("worker", "stopped")

	out := text.String()
	if !strings.Contains(out, `msg="queued 3 companies"`) || !strings.Contains(out, `msg="worker stopped"`) {
		t.Errorf("output = %q", out)
	}
}
