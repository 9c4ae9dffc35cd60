package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressBar renders the fed review count of one detection run
type ProgressBar struct {
	label     string
	total     int
	current   int
	startTime time.Time
	lastPrint time.Time
	width     int
	out       io.Writer
	mu        sync.Mutex
}

// NewProgressBar creates a progress bar writing to out
func NewProgressBar(out io.Writer, label string, total int) *ProgressBar {
	return &ProgressBar{
		label:     label,
		total:     total,
		startTime: time.Now(),
		width:     40,
		out:       out,
	}
}

// Set sets the current progress
func (pb *ProgressBar) Set(current int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = current
	pb.print()
}

// Finish completes the progress bar
func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = pb.total
	pb.lastPrint = time.Time{}
	pb.print()
	fmt.Fprintf(pb.out, "\n")
}

// print renders the progress bar, at most every 100ms until complete
func (pb *ProgressBar) print() {
	if time.Since(pb.lastPrint) < 100*time.Millisecond && pb.current < pb.total {
		return
	}
	pb.lastPrint = time.Now()

	percent := 0.0
	filled := 0
	if pb.total > 0 {
		percent = float64(pb.current) / float64(pb.total) * 100
		filled = min(pb.width, pb.width*pb.current/pb.total)
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", pb.width-filled)

	elapsed := time.Since(pb.startTime)
	speed := 0.0
	if elapsed.Seconds() > 0 {
		speed = float64(pb.current) / elapsed.Seconds()
	}

	if pb.current >= pb.total {
		fmt.Fprintf(pb.out, "\r  %s [%s] %6.2f%% | %d/%d | %.1f reviews/s | Done    ",
			pb.label, bar, percent, pb.current, pb.total, speed)
		return
	}

	var eta time.Duration
	if speed > 0 {
		eta = time.Duration(float64(pb.total-pb.current)/speed) * time.Second
	}
	fmt.Fprintf(pb.out, "\r  %s [%s] %6.2f%% | %d/%d | %.1f reviews/s | ETA: %s ",
		pb.label, bar, percent, pb.current, pb.total, speed, formatETA(eta))
}

func formatETA(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
