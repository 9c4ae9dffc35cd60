package queue

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"tangled.org/atscan.net/reviewscan/internal/types"
)

// ErrEmptyID is returned when a job names no company
var ErrEmptyID = errors.New("empty company id")

// Job is one company waiting for evaluation
type Job struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"oid"`
	Force       bool      `json:"force,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Queue stores companies waiting to be evaluated, oldest first.
// A company is queued at most once.
type Queue struct {
	jobs   []Job
	file   string
	mu     sync.RWMutex
	logger types.Logger
	now    func() time.Time
	dirty  bool

	lastSaveTime  time.Time
	saveThreshold int           // save after N changes
	saveInterval  time.Duration // save after duration
	changes       int
}

// New opens the queue persisted in dir
func New(dir string, logger types.Logger) (*Queue, error) {
	if logger == nil {
		logger = types.NopLogger{}
	}
	q := &Queue{
		file:          filepath.Join(dir, types.QUEUE_FILE),
		jobs:          make([]Job, 0),
		logger:        logger,
		now:           time.Now,
		lastSaveTime:  time.Now(),
		saveThreshold: 10,
		saveInterval:  5 * time.Second,
	}

	if err := q.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load queue: %w", err)
		}
	}
	return q, nil
}

// SetClock replaces the clock used for submission times
func (q *Queue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

// Push queues a company. If it is already queued the existing job is
// returned (upgraded to forced when force is set) and added is false.
func (q *Queue) Push(companyID string, force bool) (job Job, added bool, err error) {
	if companyID == "" {
		return Job{}, false, ErrEmptyID
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.jobs {
		if q.jobs[i].CompanyID != companyID {
			continue
		}
		if force && !q.jobs[i].Force {
			q.jobs[i].Force = true
			q.touch()
		}
		return q.jobs[i], false, nil
	}

	job = Job{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		Force:       force,
		SubmittedAt: q.now().UTC(),
	}
	q.jobs = append(q.jobs, job)
	q.touch()
	return job, true, nil
}

// Pop removes and returns the oldest job
func (q *Queue) Pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return Job{}, false
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.touch()
	return job, true
}

// Requeue puts a popped job back at the head of the queue, keeping its id
// and submission time. A job queued for the same company in the meantime
// is merged into it.
func (q *Queue) Requeue(job Job) error {
	if job.CompanyID == "" {
		return ErrEmptyID
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.jobs {
		if q.jobs[i].CompanyID == job.CompanyID {
			job.Force = job.Force || q.jobs[i].Force
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			break
		}
	}
	q.jobs = append([]Job{job}, q.jobs...)
	q.touch()
	return nil
}

// Remove drops a queued company, reporting whether it was queued
func (q *Queue) Remove(companyID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.jobs {
		if q.jobs[i].CompanyID == companyID {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			q.touch()
			return true
		}
	}
	return false
}

// Position returns the zero-based queue position of a company, -1 if absent
func (q *Queue) Position(companyID string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for i := range q.jobs {
		if q.jobs[i].CompanyID == companyID {
			return i
		}
	}
	return -1
}

// Len returns the number of queued jobs
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.jobs)
}

// Jobs returns a copy of the queued jobs in order
func (q *Queue) Jobs() []Job {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]Job, len(q.jobs))
	copy(result, q.jobs)
	return result
}

// Clear removes all jobs
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = make([]Job, 0)
	q.touch()
}

func (q *Queue) touch() {
	q.dirty = true
	q.changes++
}

// ShouldSave checks if threshold/interval is met
func (q *Queue) ShouldSave() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.dirty {
		return false
	}
	return q.changes >= q.saveThreshold || time.Since(q.lastSaveTime) >= q.saveInterval
}

// SaveIfNeeded saves only if threshold is met
func (q *Queue) SaveIfNeeded() error {
	if !q.ShouldSave() {
		return nil
	}
	return q.Save()
}

// Save rewrites the queue file atomically
func (q *Queue) Save() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.dirty {
		return nil
	}

	if len(q.jobs) == 0 {
		if err := os.Remove(q.file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove queue: %w", err)
		}
		q.saved()
		return nil
	}

	var buf bytes.Buffer
	for _, job := range q.jobs {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	tempPath := q.file + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open queue: %w", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write queue: %w", err)
	}
	// Sync to disk for durability
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync queue: %w", err)
	}
	file.Close()

	if err := os.Rename(tempPath, q.file); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace queue: %w", err)
	}

	q.saved()
	return nil
}

func (q *Queue) saved() {
	q.lastSaveTime = time.Now()
	q.changes = 0
	q.dirty = false
}

// Load reads the queue from disk. Duplicate companies keep their first job.
func (q *Queue) Load() error {
	data, err := os.ReadFile(q.file)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	scanner := bufio.NewScanner(bytes.NewReader(data))
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	jobs := make([]Job, 0)
	seen := make(map[string]bool)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var job Job
		if err := json.Unmarshal(line, &job); err != nil {
			return fmt.Errorf("failed to parse queue entry: %w", err)
		}
		if job.CompanyID == "" || seen[job.CompanyID] {
			continue
		}
		seen[job.CompanyID] = true
		jobs = append(jobs, job)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	q.jobs = jobs
	q.saved()

	if len(q.jobs) > 0 {
		q.logger.Printf("Loaded %d queued companies", len(q.jobs))
	}
	return nil
}

// File returns the path of the queue file
func (q *Queue) File() string {
	return q.file
}
