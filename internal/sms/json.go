package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/karanved/smsledger/internal/model"
)

// JSONSource reads raw messages from a JSON array of
// {sender, body, timestamp} objects with ISO-8601 timestamps.
type JSONSource struct {
	path string
}

// NewJSONSource creates a source backed by the given JSON file.
func NewJSONSource(path string) *JSONSource {
	return &JSONSource{path: path}
}

type jsonMessage struct {
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

// Load parses the file and returns messages received inside [from, to], in
// file order.
func (s *JSONSource) Load(ctx context.Context, from, to time.Time) ([]model.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file: %w", err)
	}

	var raw []jsonMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse messages file: %w", err)
	}

	var msgs []model.RawMessage
	for _, m := range raw {
		ts, err := time.Parse(time.RFC3339, m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", m.Timestamp, err)
		}

		if ts.Before(from) || ts.After(to) {
			continue
		}

		msgs = append(msgs, model.RawMessage{
			Timestamp: ts.UTC(),
			Sender:    m.Sender,
			Body:      m.Body,
		})
	}

	return msgs, nil
}
