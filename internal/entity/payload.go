package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

// ErrPayload reports a response body that is not a list of entities.
var ErrPayload = errors.New("invalid payload")

// text accepts a JSON string or number and keeps its text. The backend is not
// consistent about quoting IDs.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}

		*t = text(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", b)
		}

		*t = text(n.String())
	}

	return nil
}

// number accepts a JSON number or a numeric string. Set is false for null,
// missing or unparsable values so optional fields stay optional.
type number struct {
	Value float64
	Set   bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	var raw text
	// Values that are neither numbers nor numeric strings count as absent.
	if err := raw.UnmarshalJSON(b); err != nil || raw == "" {
		*n = number{}

		return nil
	}

	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		*n = number{}

		return nil
	}

	*n = number{Value: f, Set: true}

	return nil
}

// first returns the first non-empty candidate. It reconciles field aliases
// such as name/resourceName once, here, instead of in every consumer.
func first[T ~string](candidates ...T) string {
	for _, c := range candidates {
		if s := strings.TrimSpace(string(c)); s != "" {
			return s
		}
	}

	return ""
}

func firstNumber(candidates ...number) (float64, bool) {
	for _, c := range candidates {
		if c.Set {
			return c.Value, true
		}
	}

	return 0, false
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, record.DateLayout, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// decodeList unmarshals a list payload. Bare arrays and envelopes of the form
// {"data": [...]} or {"items": [...]} are accepted.
func decodeList[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrPayload)
	}

	if body[0] == '{' {
		var envelope struct {
			Data  json.RawMessage `json:"data"`
			Items json.RawMessage `json:"items"`
		}

		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPayload, err)
		}

		switch {
		case len(envelope.Data) > 0:
			body = envelope.Data
		case len(envelope.Items) > 0:
			body = envelope.Items
		default:
			return nil, fmt.Errorf("%w: object without data or items", ErrPayload)
		}
	}

	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayload, err)
	}

	return items, nil
}

func setText(r *record.Record, field, s string) {
	if s != "" {
		r.Set(field, record.String(s))
	}
}

func setEnum(r *record.Record, field, s string) {
	if s = record.NormalizeEnum(s); s != "" {
		r.Set(field, record.Enum(s))
	}
}
