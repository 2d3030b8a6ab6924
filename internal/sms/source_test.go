package sms

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func wideWindow() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
}

func TestNewSourceFromFile(t *testing.T) {
	xmlSrc, err := NewSourceFromFile("backup.xml")
	require.NoError(t, err)
	assert.IsType(t, &XMLSource{}, xmlSrc)

	jsonSrc, err := NewSourceFromFile("messages.JSON")
	require.NoError(t, err)
	assert.IsType(t, &JSONSource{}, jsonSrc)

	_, err = NewSourceFromFile("messages.csv")
	assert.Error(t, err)
}

func TestXMLSourceLoad(t *testing.T) {
	// time.UnixMilli values: 1710495000000 = 2024-03-15T09:30:00Z.
	path := writeTempFile(t, "backup.xml", `<?xml version="1.0" encoding="UTF-8"?>
<smses count="3">
  <sms address="VM-HDFCBK" body="Rs.250.00 debited at COFFEE SHOP" date="1710495000000" type="1" />
  <sms address="+919876543210" body="sent reply" date="1710495060000" type="2" />
  <sms address="VM-ICICIB" body="Rs.99.00 debited at NETFLIX" date="1710581400000" type="1" />
</smses>`)

	from, to := wideWindow()
	msgs, err := NewXMLSource(path).Load(context.Background(), from, to)
	require.NoError(t, err)

	// Outgoing messages (type 2) are excluded.
	require.Len(t, msgs, 2)
	assert.Equal(t, "VM-HDFCBK", msgs[0].Sender)
	assert.Equal(t, "Rs.250.00 debited at COFFEE SHOP", msgs[0].Body)
	assert.Equal(t, time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC), msgs[0].Timestamp)
	assert.Equal(t, "VM-ICICIB", msgs[1].Sender)
}

func TestXMLSourceWindowFilter(t *testing.T) {
	path := writeTempFile(t, "backup.xml", `<smses count="2">
  <sms address="A" body="inside" date="1710495000000" type="1" />
  <sms address="B" body="outside" date="1718443800000" type="1" />
</smses>`)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	msgs, err := NewXMLSource(path).Load(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "inside", msgs[0].Body)
}

func TestXMLSourceSkipsUnparseableDates(t *testing.T) {
	path := writeTempFile(t, "backup.xml", `<smses count="2">
  <sms address="A" body="bad date" date="not-a-number" type="1" />
  <sms address="B" body="good" date="1710495000000" type="1" />
</smses>`)

	from, to := wideWindow()
	msgs, err := NewXMLSource(path).Load(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "good", msgs[0].Body)
}

func TestXMLSourceMalformedFile(t *testing.T) {
	path := writeTempFile(t, "backup.xml", "not xml at all")

	from, to := wideWindow()
	_, err := NewXMLSource(path).Load(context.Background(), from, to)
	assert.Error(t, err)
}

func TestJSONSourceLoad(t *testing.T) {
	path := writeTempFile(t, "messages.json", `[
  {"sender": "VM-HDFCBK", "body": "Rs.250.00 debited", "timestamp": "2024-03-15T09:30:00Z"},
  {"sender": "VM-ICICIB", "body": "Rs.99.00 debited", "timestamp": "2024-06-15T15:00:00+05:30"}
]`)

	from, to := wideWindow()
	msgs, err := NewJSONSource(path).Load(context.Background(), from, to)
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC), msgs[0].Timestamp)
	// Offsets normalize to UTC.
	assert.Equal(t, time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC), msgs[1].Timestamp)
}

func TestJSONSourceWindowFilter(t *testing.T) {
	path := writeTempFile(t, "messages.json", `[
  {"sender": "A", "body": "inside", "timestamp": "2024-03-15T09:30:00Z"},
  {"sender": "B", "body": "outside", "timestamp": "2024-06-15T09:30:00Z"}
]`)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	msgs, err := NewJSONSource(path).Load(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "inside", msgs[0].Body)
}

func TestJSONSourceInvalidTimestamp(t *testing.T) {
	path := writeTempFile(t, "messages.json", `[
  {"sender": "A", "body": "x", "timestamp": "15-03-2024"}
]`)

	from, to := wideWindow()
	_, err := NewJSONSource(path).Load(context.Background(), from, to)
	assert.Error(t, err)
}

func TestSourceMissingFile(t *testing.T) {
	from, to := wideWindow()

	_, err := NewXMLSource(filepath.Join(t.TempDir(), "absent.xml")).Load(context.Background(), from, to)
	assert.Error(t, err)

	_, err = NewJSONSource(filepath.Join(t.TempDir(), "absent.json")).Load(context.Background(), from, to)
	assert.Error(t, err)
}
