// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"encoding/json"
	"strconv"
	"testing"
)

// Notebook returns an nbformat 4.5 notebook whose code cells hold the given
// sources, with ids c0, c1, ...
func Notebook(sources ...string) string {
	cells := make([]map[string]any, 0, len(sources))
	for i, src := range sources {
		cells = append(cells, map[string]any{
			"cell_type":       "code",
			"id":              "c" + strconv.Itoa(i),
			"execution_count": nil,
			"metadata":        map[string]any{},
			"outputs":         []any{},
			"source":          src,
		})
	}
	doc := map[string]any{
		"cells": cells,
		"metadata": map[string]any{
			"kernelspec": map[string]any{"name": "python3", "display_name": "Python 3", "language": "python"},
		},
		"nbformat":       4,
		"nbformat_minor": 5,
	}
	data, err := json.MarshalIndent(doc, "", " ")
	if err != nil {
		panic(err)
	}
	return string(data) + "\n"
}

// MustWriteNotebook writes a notebook built by Notebook to dir/name.
func MustWriteNotebook(t testing.TB, dir, name string, sources ...string) string {
	t.Helper()
	return MustWriteFile(t, dir, name, Notebook(sources...))
}
