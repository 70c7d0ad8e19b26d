// SPDX-License-Identifier: MPL-2.0

package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// FormatMajor is the nbformat major version nbrun works in. Version 3
	// documents are upgraded on load.
	FormatMajor = 4
	// CellIDMinor is the first nbformat 4 minor version whose cells carry an id.
	CellIDMinor = 5

	// CellTypeCode is an executable cell.
	CellTypeCode CellType = "code"
	// CellTypeMarkdown is a markdown cell.
	CellTypeMarkdown CellType = "markdown"
	// CellTypeRaw is a raw (unrendered) cell.
	CellTypeRaw CellType = "raw"
)

type (
	// CellType discriminates code, markdown and raw cells.
	CellType string

	// Cell is one unit of notebook content.
	//
	// Type, Source and ID are interpreted; every other key of the on-disk cell
	// (metadata, outputs, execution_count, attachments) is kept in Fields.
	Cell struct {
		Type   CellType
		Source string
		ID     string
		Fields map[string]json.RawMessage
	}

	// Document is an nbformat 4 notebook.
	Document struct {
		Format      int
		FormatMinor int
		Metadata    json.RawMessage
		Cells       []Cell
		// Extra holds unknown top-level keys.
		Extra map[string]json.RawMessage

		violations []string
	}
)

// String returns the string representation of the CellType.
func (t CellType) String() string { return string(t) }

// NewCodeCell returns an unexecuted code cell holding source.
func NewCodeCell(source string) Cell {
	return Cell{
		Type:   CellTypeCode,
		Source: source,
		Fields: map[string]json.RawMessage{
			"execution_count": json.RawMessage("null"),
			"metadata":        json.RawMessage("{}"),
			"outputs":         json.RawMessage("[]"),
		},
	}
}

// IsCode reports whether the cell is executable.
func (c Cell) IsCode() bool { return c.Type == CellTypeCode }

// Outputs returns the raw output entries of a code cell. Cells without
// outputs (or with an unreadable outputs field) yield nil.
func (c Cell) Outputs() []json.RawMessage {
	raw, ok := c.Fields["outputs"]
	if !ok {
		return nil
	}
	var outputs []json.RawMessage
	if err := json.Unmarshal(raw, &outputs); err != nil {
		return nil
	}
	return outputs
}

// Len returns the number of cells.
func (d *Document) Len() int { return len(d.Cells) }

// SchemaViolations lists where the decoded JSON departs from the nbformat v4
// schema. Such notebooks still load and execute, as they do with nbformat.
func (d *Document) SchemaViolations() []string { return d.violations }

// ReplaceCells adopts the cells and metadata of other, which is typically the
// document an execution engine handed back. d keeps its identity so callers
// holding it observe the engine's changes.
func (d *Document) ReplaceCells(other *Document) {
	if other == nil {
		return
	}
	d.Format = other.Format
	d.FormatMinor = other.FormatMinor
	d.Metadata = other.Metadata
	d.Cells = other.Cells
	d.Extra = other.Extra
	d.violations = other.violations
}

// MarshalJSON encodes the cell the way nbformat writes it.
func (c Cell) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+3)
	for k, v := range c.Fields {
		out[k] = v
	}
	out["cell_type"] = c.Type
	out["source"] = splitLines(c.Source)
	if c.ID != "" {
		out["id"] = c.ID
	}
	if _, ok := out["metadata"]; !ok {
		out["metadata"] = json.RawMessage("{}")
	}
	return marshalNoEscape(out)
}

// UnmarshalJSON decodes a cell, keeping unknown keys verbatim.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var cellType CellType
	if raw, ok := fields["cell_type"]; ok {
		if err := json.Unmarshal(raw, &cellType); err != nil {
			return fmt.Errorf("cell_type: %w", err)
		}
		delete(fields, "cell_type")
	}

	var source string
	if raw, ok := fields["source"]; ok {
		s, err := joinMultiline(raw)
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		source = s
		delete(fields, "source")
	}

	var id string
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		delete(fields, "id")
	}

	*c = Cell{Type: cellType, Source: source, ID: id, Fields: fields}
	return nil
}

// MarshalJSON encodes the document the way nbformat writes it.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+4)
	for k, v := range d.Extra {
		out[k] = v
	}
	metadata := d.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}
	cells := d.Cells
	if cells == nil {
		cells = []Cell{}
	}
	out["nbformat"] = d.Format
	out["nbformat_minor"] = d.FormatMinor
	out["metadata"] = metadata
	out["cells"] = cells
	return marshalNoEscape(out)
}

// UnmarshalJSON decodes a document, keeping unknown top-level keys verbatim.
func (d *Document) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var doc Document
	if err := unmarshalField(fields, "nbformat", &doc.Format); err != nil {
		return err
	}
	if err := unmarshalField(fields, "nbformat_minor", &doc.FormatMinor); err != nil {
		return err
	}
	if err := unmarshalField(fields, "cells", &doc.Cells); err != nil {
		return err
	}
	if raw, ok := fields["metadata"]; ok {
		doc.Metadata = raw
		delete(fields, "metadata")
	}
	if len(fields) > 0 {
		doc.Extra = fields
	}

	*d = doc
	return nil
}

func unmarshalField(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	delete(fields, key)
	return nil
}

// joinMultiline decodes an nbformat multiline string, which is either a
// plain string or a list of line fragments.
func joinMultiline(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", err
	}
	return strings.Join(parts, ""), nil
}

// splitLines splits s after every newline, dropping the empty tail.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// marshalNoEscape encodes v without escaping <, > and &, which nbformat
// leaves alone.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
