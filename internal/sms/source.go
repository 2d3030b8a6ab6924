// Package sms provides file-backed message sources that stand in for the
// device SMS bridge: exported SMS backups in XML or JSON form.
package sms

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/karanved/smsledger/internal/service"
)

// NewSourceFromFile picks a message source implementation by file extension.
// Supported: .xml (SMS Backup & Restore exports) and .json.
func NewSourceFromFile(path string) (service.MessageSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return NewXMLSource(path), nil
	case ".json":
		return NewJSONSource(path), nil
	default:
		return nil, fmt.Errorf("unsupported message file %q: expected .xml or .json", path)
	}
}
