package detector

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// Kind tags the type held by a Value
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindFloat
	KindText
)

// Value is a single tagged metric value
type Value struct {
	Kind  Kind
	Int   int
	Float float64
	Text  string
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.Itoa(v.Int)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindText:
		return strconv.Quote(v.Text)
	}
	return "<nil>"
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindText:
		return json.Marshal(v.Text)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Value{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{Kind: KindText, Text: s}
	case bytes.ContainsAny(data, ".eE"):
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		*v = Value{Kind: KindFloat, Float: f}
	default:
		i, err := strconv.Atoi(string(data))
		if err != nil {
			return err
		}
		*v = Value{Kind: KindInt, Int: i}
	}
	return nil
}

// Metrics is a set of named metric values
type Metrics map[string]Value

func (m Metrics) SetInt(name string, v int) {
	m[name] = Value{Kind: KindInt, Int: v}
}

func (m Metrics) SetFloat(name string, v float64) {
	m[name] = Value{Kind: KindFloat, Float: v}
}

func (m Metrics) SetText(name, v string) {
	m[name] = Value{Kind: KindText, Text: v}
}

// Int returns an integer metric
func (m Metrics) Int(name string) (int, bool) {
	v, ok := m[name]
	if !ok || v.Kind != KindInt {
		return 0, false
	}
	return v.Int, true
}

// Float returns a float metric. Integers are accepted since whole floats
// decode from JSON as integers.
func (m Metrics) Float(name string) (float64, bool) {
	v, ok := m[name]
	if !ok {
		return 0, false
	}
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	}
	return 0, false
}

// Text returns a text metric
func (m Metrics) Text(name string) (string, bool) {
	v, ok := m[name]
	if !ok || v.Kind != KindText {
		return "", false
	}
	return v.Text, true
}

// Names returns metric names in sorted order
func (m Metrics) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge adds other into m. A name present in both with a different value
// is an ErrMetricCollision and leaves m unchanged.
func (m Metrics) Merge(other Metrics) error {
	for _, name := range other.Names() {
		if existing, ok := m[name]; ok && existing != other[name] {
			return fmt.Errorf("%w: %q is %s and %s", ErrMetricCollision, name, existing, other[name])
		}
	}
	for name, v := range other {
		m[name] = v
	}
	return nil
}
