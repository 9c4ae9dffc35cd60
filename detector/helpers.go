package detector

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"tangled.org/atscan.net/reviewscan/internal/stats"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// gap returns a-b rounded so that threshold comparisons are exact at boundaries
func gap(a, b float64) float64 {
	return stats.Round3(a - b)
}

func formatInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// explainWriter collects the first write error so explanations read linearly
type explainWriter struct {
	w   io.Writer
	err error
}

func (e *explainWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format+"\n", args...)
}

func itoa(v int) string {
	return fmt.Sprint(v)
}
