// Package scan turns the text produced by a QR decoder into a student
// payload and drives a scanning session over a stream of such texts.
package scan

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var ErrInvalidPayload = errors.New("invalid scan payload")

// Kind records how a payload was decoded.
type Kind int

const (
	Structured Kind = iota + 1
	Bare
)

func (k Kind) String() string {
	switch k {
	case Structured:
		return "structured"
	case Bare:
		return "bare"
	default:
		return "unknown"
	}
}

// Payload is one decoded student badge.
type Payload struct {
	ID   string
	Name string
	Kind Kind
}

// DisplayName returns Name, or "Student {id}" when the badge carried none.
func (p Payload) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return DefaultName(p.ID)
}

// DefaultName is the name used for badges that do not carry one.
func DefaultName(id string) string {
	return "Student " + id
}

type structured struct {
	ID   json.RawMessage `json:"id"`
	Name string          `json:"name"`
}

// Decode parses raw scanner output. A JSON object with a non-empty "id"
// (string or number) is Structured; anything else, including JSON without a
// usable id, is treated as a bare id. Only blank input is rejected.
func Decode(raw string) (Payload, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Payload{}, ErrInvalidPayload
	}

	if strings.HasPrefix(text, "{") {
		var s structured
		if err := json.Unmarshal([]byte(text), &s); err == nil {
			if id, ok := decodeID(s.ID); ok {
				return Payload{ID: id, Name: strings.TrimSpace(s.Name), Kind: Structured}, nil
			}
		}
	}

	return Payload{ID: text, Name: DefaultName(text), Kind: Bare}, nil
}

func decodeID(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}

	return "", false
}
