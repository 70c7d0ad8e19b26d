// SPDX-License-Identifier: MPL-2.0

package notebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrMalformed is returned when notebook content is not valid JSON.
	ErrMalformed = errors.New("malformed notebook JSON")
	// ErrUnsupportedVersion is returned for nbformat major versions other
	// than 3 and 4.
	ErrUnsupportedVersion = errors.New("unsupported nbformat version")
	// ErrUnreadable is returned when the notebook file cannot be read.
	ErrUnreadable = errors.New("unreadable notebook")
)

type (
	// FormatError reports a notebook that could not be loaded. It wraps one of
	// ErrMalformed, ErrUnsupportedVersion or ErrUnreadable.
	FormatError struct {
		Path string
		Err  error
	}

	// UnsupportedVersionError carries the nbformat major version found on disk.
	UnsupportedVersionError struct {
		Version int
	}
)

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid notebook: %v", e.Err)
	}
	return fmt.Sprintf("invalid notebook %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FormatError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("nbformat %d is not supported (want 3 or %d)", e.Version, FormatMajor)
}

// Unwrap returns ErrUnsupportedVersion for errors.Is() compatibility.
func (e *UnsupportedVersionError) Unwrap() error { return ErrUnsupportedVersion }

// Load reads the notebook at path. See Decode.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}
	}
	return Decode(data, path)
}

// Decode parses raw notebook JSON as nbformat 4. Version 3 documents are
// upgraded first. Schema violations do not fail the decode; they are kept on
// the document (see SchemaViolations) for the caller to report.
func Decode(data []byte, name string) (*Document, error) {
	var header struct {
		Format *int `json:"nbformat"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, &FormatError{Path: name, Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}

	switch {
	case header.Format == nil:
		return nil, &FormatError{Path: name, Err: fmt.Errorf("%w: missing nbformat version", ErrMalformed)}
	case *header.Format == 3:
		upgraded, err := upgradeV3(data)
		if err != nil {
			return nil, &FormatError{Path: name, Err: fmt.Errorf("%w: upgrade from nbformat 3: %w", ErrMalformed, err)}
		}
		data = upgraded
	case *header.Format != FormatMajor:
		return nil, &FormatError{Path: name, Err: &UnsupportedVersionError{Version: *header.Format}}
	}

	violations, err := validateSchema(data)
	if err != nil {
		return nil, &FormatError{Path: name, Err: err}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &FormatError{Path: name, Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}
	doc.violations = violations
	return &doc, nil
}

// Encode returns the document in nbformat layout.
func (d *Document) Encode() ([]byte, error) {
	compact, err := marshalNoEscape(d)
	if err != nil {
		return nil, fmt.Errorf("encode notebook: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", " "); err != nil {
		return nil, fmt.Errorf("encode notebook: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Save writes the document to path, replacing any existing file. The content
// goes to a temporary file in the same directory first and is renamed into
// place, so a reader never observes a half-written notebook.
func Save(d *Document, path string) (err error) {
	data, err := d.Encode()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary notebook file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name()) // Best-effort cleanup of the temp file
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write notebook: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close notebook: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod notebook: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace notebook %s: %w", path, err)
	}
	return nil
}
