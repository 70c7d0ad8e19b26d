// SPDX-License-Identifier: MPL-2.0

package notebook

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// fastModeHeader is the first line of every injected parameter cell.
const fastModeHeader = "# Injected by nbrun for fast testing"

// ErrInvalidParam is the sentinel error wrapped by InvalidParamError.
var ErrInvalidParam = errors.New("invalid fast-mode parameter")

var (
	// DefaultFastParams shrink the population size and generation count of
	// the optimization notebooks nbrun is usually pointed at.
	DefaultFastParams = []Param{
		{Name: "POP_SIZE", Value: "20"},
		{Name: "NGEN", Value: "5"},
	}

	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	// newCellID is swapped in tests for deterministic ids.
	newCellID = func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
)

type (
	// Param is a name assigned in the injected fast-mode cell. Value is a
	// Python expression, written verbatim.
	Param struct {
		Name  string `json:"name" mapstructure:"name"`
		Value string `json:"value" mapstructure:"value"`
	}

	// InvalidParamError is returned when a Param cannot be rendered as a
	// Python assignment.
	InvalidParamError struct {
		Param  Param
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("invalid fast-mode parameter %q: %s", e.Param.Name, e.Reason)
}

// Unwrap returns ErrInvalidParam for errors.Is() compatibility.
func (e *InvalidParamError) Unwrap() error { return ErrInvalidParam }

// Validate returns nil if the parameter is a Python identifier with a
// single-line, non-empty value.
func (p Param) Validate() error {
	if !identifierPattern.MatchString(p.Name) {
		return &InvalidParamError{Param: p, Reason: "name must be a Python identifier"}
	}
	if strings.TrimSpace(p.Value) == "" {
		return &InvalidParamError{Param: p, Reason: "value must not be empty"}
	}
	if strings.ContainsAny(p.Value, "\r\n") {
		return &InvalidParamError{Param: p, Reason: "value must be a single line"}
	}
	return nil
}

// FastModeSource renders the source of the fast-mode cell: one assignment per
// parameter followed by a print that confirms the overrides.
func FastModeSource(params []Param) string {
	var sb strings.Builder
	sb.WriteString(fastModeHeader)
	sb.WriteByte('\n')
	for _, p := range params {
		fmt.Fprintf(&sb, "%s = %s\n", p.Name, p.Value)
	}

	sb.WriteString("print('Running in FAST mode:")
	for i, p := range params {
		if i == 0 {
			fmt.Fprintf(&sb, " %s=', %s", p.Name, p.Name)
			continue
		}
		fmt.Fprintf(&sb, ", '%s=', %s", p.Name, p.Name)
	}
	if len(params) == 0 {
		sb.WriteString("'")
	}
	sb.WriteString(")\n")
	return sb.String()
}

// InsertFastModeCell prepends the fast-mode parameter cell to doc and returns
// it. The cell slice is rebuilt, so slices previously taken from doc.Cells
// still see the original sequence. Documents at nbformat 4.5 or later get a
// fresh cell id.
func InsertFastModeCell(doc *Document, params []Param) *Document {
	cell := NewCodeCell(FastModeSource(params))
	if doc.FormatMinor >= CellIDMinor {
		cell.ID = newCellID()
	}

	cells := make([]Cell, 0, len(doc.Cells)+1)
	cells = append(cells, cell)
	cells = append(cells, doc.Cells...)
	doc.Cells = cells
	return doc
}

// IsFastModeCell reports whether c was produced by InsertFastModeCell.
func IsFastModeCell(c Cell) bool {
	return c.IsCode() && strings.HasPrefix(c.Source, fastModeHeader+"\n")
}
