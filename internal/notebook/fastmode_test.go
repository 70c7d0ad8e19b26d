// SPDX-License-Identifier: MPL-2.0

package notebook

import (
	"errors"
	"strings"
	"testing"
)

func TestFastModeSource_Default(t *testing.T) {
	want := "# Injected by nbrun for fast testing\n" +
		"POP_SIZE = 20\n" +
		"NGEN = 5\n" +
		"print('Running in FAST mode: POP_SIZE=', POP_SIZE, 'NGEN=', NGEN)\n"

	if got := FastModeSource(DefaultFastParams); got != want {
		t.Errorf("FastModeSource() =\n%s\nwant\n%s", got, want)
	}
}

func TestFastModeSource_Custom(t *testing.T) {
	got := FastModeSource([]Param{{Name: "EPOCHS", Value: "1"}})
	if !strings.Contains(got, "EPOCHS = 1\n") {
		t.Errorf("FastModeSource() missing assignment:\n%s", got)
	}
	if !strings.Contains(got, "print('Running in FAST mode: EPOCHS=', EPOCHS)") {
		t.Errorf("FastModeSource() missing confirmation print:\n%s", got)
	}

	empty := FastModeSource(nil)
	if !strings.HasSuffix(empty, "print('Running in FAST mode:')\n") {
		t.Errorf("FastModeSource(nil) = %q", empty)
	}
}

func TestInsertFastModeCell(t *testing.T) {
	doc, err := Decode([]byte(sampleNotebook), "sample.ipynb")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	original := doc.Cells
	before := doc.Len()

	restore := newCellID
	newCellID = func() string { return "feedbeef" }
	t.Cleanup(func() { newCellID = restore })

	got := InsertFastModeCell(doc, DefaultFastParams)
	if got != doc {
		t.Error("InsertFastModeCell() should return the same document")
	}
	if doc.Len() != before+1 {
		t.Fatalf("Len() = %d, want %d", doc.Len(), before+1)
	}

	first := doc.Cells[0]
	if !IsFastModeCell(first) {
		t.Errorf("cell 0 is not the fast-mode cell: %+v", first)
	}
	if first.ID != "feedbeef" {
		t.Errorf("cell 0 id = %q, want feedbeef", first.ID)
	}
	for _, name := range []string{"POP_SIZE = 20", "NGEN = 5"} {
		if !strings.Contains(first.Source, name) {
			t.Errorf("fast-mode cell source missing %q", name)
		}
	}
	if doc.Cells[1].Source != original[0].Source {
		t.Error("original cells should follow the injected cell in order")
	}
	if len(original) != before {
		t.Error("slices taken before insertion should keep the original sequence")
	}
}

func TestInsertFastModeCell_NoIDBeforeMinor5(t *testing.T) {
	doc := &Document{Format: FormatMajor, FormatMinor: 4}
	InsertFastModeCell(doc, DefaultFastParams)

	if doc.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", doc.Len())
	}
	if doc.Cells[0].ID != "" {
		t.Errorf("nbformat 4.4 cell got id %q, want none", doc.Cells[0].ID)
	}
}

func TestInsertFastModeCell_EncodesValidNotebook(t *testing.T) {
	doc, err := Decode([]byte(sampleNotebook), "sample.ipynb")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	InsertFastModeCell(doc, DefaultFastParams)

	data, err := doc.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	reloaded, err := Decode(data, "fast.ipynb")
	if err != nil {
		t.Fatalf("injected notebook does not validate: %v", err)
	}
	if !IsFastModeCell(reloaded.Cells[0]) {
		t.Error("fast-mode cell lost across encode/decode")
	}
}

func TestParam_Validate(t *testing.T) {
	tests := []struct {
		name  string
		param Param
		ok    bool
	}{
		{"identifier", Param{Name: "POP_SIZE", Value: "20"}, true},
		{"expression", Param{Name: "_seed", Value: "int('7')"}, true},
		{"leading digit", Param{Name: "1GEN", Value: "5"}, false},
		{"dotted", Param{Name: "cfg.size", Value: "5"}, false},
		{"empty value", Param{Name: "NGEN", Value: "  "}, false},
		{"multiline value", Param{Name: "NGEN", Value: "5\nimport os"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.param.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidParam) {
				t.Errorf("Validate() = %v, want ErrInvalidParam", err)
			}
		})
	}
}
