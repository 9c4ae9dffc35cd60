package types

// Logger is a simple logging interface used throughout reviewscan
type Logger interface {
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Printf(format string, v ...interface{}) {}
func (NopLogger) Println(v ...interface{})               {}

const (
	// DATAFORMAT_VERSION is stored with every report; reports with another
	// version are treated as missing
	DATAFORMAT_VERSION = 2

	// QUEUE_FILE is the default task queue filename
	QUEUE_FILE = "queue.jsonl"

	// COMPANY_DIR and REVIEWER_DIR are storage subdirectories
	COMPANY_DIR  = "companies"
	REVIEWER_DIR = "reviewers"
)
