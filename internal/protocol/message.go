package protocol

import (
	"encoding/json"
	"fmt"
)

// Response status values. Every response carries "status"; "error"
// responses also carry a human-readable "text".
const (
	StatusSuccess        = "success"
	StatusError          = "error"
	StatusUpdated        = "updated"
	StatusNoEngineer     = "no_engineer"
	StatusPreviousLaptop = "previous_laptop"
)

// Message is one protocol message: an unordered string-keyed JSON object
// with no fixed schema. Fields are interpreted by convention ("action",
// "data_type", "port", "status", ...).
type Message map[string]any

func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// Decode parses one fully-buffered message. A failure means "keep waiting
// for a valid message", never a fatal condition.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}

// MissingFieldError reports a required field that was absent (or not of a
// usable type) in a message.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("message has no entry for %q", e.Field)
}

func (m Message) Has(field string) bool {
	_, ok := m[field]
	return ok
}

func (m Message) String(field string) (string, error) {
	v, ok := m[field]
	if !ok {
		return "", &MissingFieldError{Field: field}
	}
	s, ok := v.(string)
	if !ok {
		return "", &MissingFieldError{Field: field}
	}
	return s, nil
}

// Int extracts an integer field. JSON numbers decode as float64, so both
// forms are accepted.
func (m Message) Int(field string) (int, error) {
	v, ok := m[field]
	if !ok {
		return 0, &MissingFieldError{Field: field}
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, &MissingFieldError{Field: field}
		}
		return int(i), nil
	default:
		return 0, &MissingFieldError{Field: field}
	}
}

func (m Message) Float(field string) (float64, error) {
	v, ok := m[field]
	if !ok {
		return 0, &MissingFieldError{Field: field}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, &MissingFieldError{Field: field}
	}
}

func (m Message) StringList(field string) ([]string, error) {
	v, ok := m[field]
	if !ok {
		return nil, &MissingFieldError{Field: field}
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, &MissingFieldError{Field: field}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &MissingFieldError{Field: field}
	}
}

// Merge copies every field of other into a copy of m. Used to splice
// entity payloads into response messages.
func (m Message) Merge(other map[string]any) Message {
	out := make(Message, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
