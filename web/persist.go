// ABOUTME: Persistence formats for admin-edited site data: pretty JSON file or a JS variable assignment.
// ABOUTME: Documents are validated before any write and the target is replaced via temp file + rename.
package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DataFormat selects how save-data requests are interpreted and written.
type DataFormat string

const (
	// FormatJSON requires a {"data": ...} envelope and writes indented JSON.
	FormatJSON DataFormat = "json"
	// FormatJS accepts the envelope or a raw document and writes
	// `const siteData = ...;` for direct inclusion by a script tag.
	FormatJS DataFormat = "js"
)

const jsVariable = "siteData"

var (
	ErrUnknownFormat = errors.New("unknown data format")
	ErrEmptyBody     = errors.New("no content")
	ErrInvalidJSON   = errors.New("invalid JSON")
	ErrMissingData   = errors.New("missing data payload")
)

// Valid reports whether f is a known format.
func (f DataFormat) Valid() bool {
	return f == FormatJSON || f == FormatJS
}

// DefaultFile returns the data file path, relative to the served root, used
// when none is configured.
func (f DataFormat) DefaultFile() string {
	if f == FormatJS {
		return "assets/js/data.js"
	}
	return "data.json"
}

// Extract returns the document to persist from a request body.
func (f DataFormat) Extract(body []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	wrapped := json.Unmarshal(body, &envelope) == nil && !isEmptyJSON(envelope.Data)

	switch {
	case wrapped:
		return envelope.Data, nil
	case f == FormatJS && !isEmptyJSON(body):
		return json.RawMessage(body), nil
	default:
		return nil, ErrMissingData
	}
}

// Encode renders doc in the file format, indenting with four spaces and
// keeping the submitted key order.
func (f DataFormat) Encode(doc json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	if f == FormatJS {
		fmt.Fprintf(&buf, "const %s = ", jsVariable)
	}
	if err := json.Indent(&buf, doc, "", "    "); err != nil {
		return nil, fmt.Errorf("formatting document: %w", err)
	}
	if f == FormatJS {
		buf.WriteString(";")
	}
	return buf.Bytes(), nil
}

// isEmptyJSON reports whether raw is absent or a falsy JSON value: null,
// false, 0, "", [] or {}.
func isEmptyJSON(raw json.RawMessage) bool {
	if len(bytes.TrimSpace(raw)) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// writeFileAtomic replaces path with data using a temp file + rename in the
// same directory. The directory must already exist.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
