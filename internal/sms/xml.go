package sms

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/karanved/smsledger/internal/model"
)

// smsTypeInbox is the message box value for received messages in
// SMS Backup & Restore exports.
const smsTypeInbox = "1"

// XMLSource reads raw messages from an SMS Backup & Restore XML export.
type XMLSource struct {
	path string
}

// NewXMLSource creates a source backed by the given XML file.
func NewXMLSource(path string) *XMLSource {
	return &XMLSource{path: path}
}

type xmlBackup struct {
	XMLName  xml.Name     `xml:"smses"`
	Messages []xmlMessage `xml:"sms"`
}

type xmlMessage struct {
	Address string `xml:"address,attr"`
	Body    string `xml:"body,attr"`
	Date    string `xml:"date,attr"`
	Type    string `xml:"type,attr"`
}

// Load parses the backup and returns inbox messages received inside
// [from, to], in file order.
func (s *XMLSource) Load(ctx context.Context, from, to time.Time) ([]model.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SMS backup: %w", err)
	}

	var backup xmlBackup
	if err := xml.Unmarshal(data, &backup); err != nil {
		return nil, fmt.Errorf("failed to parse SMS backup: %w", err)
	}

	var msgs []model.RawMessage
	for _, m := range backup.Messages {
		if m.Type != smsTypeInbox {
			continue
		}

		millis, err := strconv.ParseInt(m.Date, 10, 64)
		if err != nil {
			continue
		}
		ts := time.UnixMilli(millis).UTC()

		if ts.Before(from) || ts.After(to) {
			continue
		}

		msgs = append(msgs, model.RawMessage{
			Timestamp: ts,
			Sender:    m.Address,
			Body:      m.Body,
		})
	}

	return msgs, nil
}
