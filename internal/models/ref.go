package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is a backend primary key. The backend serializes keys as numbers but
// some endpoints echo them back as strings, so both forms decode.
type ID int64

// UnmarshalJSON accepts a number, a numeric string or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*id = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*id = 0
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", s)
		}
		*id = ID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("invalid id %s", raw)
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return fmt.Errorf("invalid id %s", raw)
		}
		v = int64(f)
	}
	*id = ID(v)
	return nil
}

// String renders the id in base 10.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a path parameter into an ID. Zero and negative values are rejected.
func ParseID(raw string) (ID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return ID(v), nil
}

type identifiable interface {
	Identity() ID
}

// Ref is a foreign key that the backend sends either as a bare id or as the
// embedded object. ID is always populated; Value only when embedded.
type Ref[T any] struct {
	ID    ID
	Value *T
}

// RefTo builds a reference carrying only an id.
func RefTo[T any](id ID) Ref[T] {
	return Ref[T]{ID: id}
}

// IsZero reports whether the reference is absent.
func (r Ref[T]) IsZero() bool {
	return r.ID == 0 && r.Value == nil
}

// UnmarshalJSON decodes a bare id, an embedded object, or null.
func (r *Ref[T]) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	*r = Ref[T]{}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '{' {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		r.Value = &v
		if ident, ok := any(&v).(identifiable); ok {
			r.ID = ident.Identity()
		}
		return nil
	}
	return r.ID.UnmarshalJSON(raw)
}

// MarshalJSON always writes the bare id; the backend expects keys on writes.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.ID == 0 {
		return []byte("null"), nil
	}
	return []byte(r.ID.String()), nil
}

// Number decodes a JSON number or numeric string, as used for prices and ratings.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*n = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp tolerates the datetime shapes the backend emits, and empty values.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses any of the accepted layouts.
func ParseTimestamp(raw string) (Timestamp, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", raw)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
