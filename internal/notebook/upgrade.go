// SPDX-License-Identifier: MPL-2.0

package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// upgradedMinor is the nbformat 4 minor version an upgraded v3 document gets.
const upgradedMinor = CellIDMinor

// v3MimeKeys maps the short output keys of nbformat 3 to v4 mime types.
var v3MimeKeys = map[string]string{
	"text":       "text/plain",
	"html":       "text/html",
	"svg":        "image/svg+xml",
	"png":        "image/png",
	"jpeg":       "image/jpeg",
	"latex":      "text/latex",
	"json":       "application/json",
	"javascript": "application/javascript",
}

// upgradeV3 rewrites an nbformat 3 document as nbformat 4: the cells of all
// worksheets are flattened into one list, code cell input/prompt_number
// become source/execution_count, heading cells become markdown and outputs
// move their payload under mime-typed data keys.
func upgradeV3(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var nb map[string]any
	if err := dec.Decode(&nb); err != nil {
		return nil, err
	}

	metadata, _ := nb["metadata"].(map[string]any)
	if metadata == nil {
		metadata = map[string]any{}
	}
	delete(metadata, "name")
	delete(metadata, "signature")
	metadata["orig_nbformat"] = 3

	cells := []any{}
	worksheets, _ := nb["worksheets"].([]any)
	for i, ws := range worksheets {
		sheet, ok := ws.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("worksheets[%d] is not an object", i)
		}
		sheetCells, _ := sheet["cells"].([]any)
		for j, c := range sheetCells {
			cell, ok := c.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("worksheets[%d].cells[%d] is not an object", i, j)
			}
			cells = append(cells, upgradeCellV3(cell))
		}
	}

	return json.Marshal(map[string]any{
		"cells":          cells,
		"metadata":       metadata,
		"nbformat":       FormatMajor,
		"nbformat_minor": upgradedMinor,
	})
}

func upgradeCellV3(cell map[string]any) map[string]any {
	metadata, _ := cell["metadata"].(map[string]any)
	if metadata == nil {
		metadata = map[string]any{}
	}
	cell["metadata"] = metadata
	cell["id"] = newCellID()

	switch cell["cell_type"] {
	case "code":
		delete(cell, "language")
		if collapsed, ok := cell["collapsed"]; ok {
			metadata["collapsed"] = collapsed
			delete(cell, "collapsed")
		}
		cell["source"] = orEmptyString(cell["input"])
		delete(cell, "input")
		cell["execution_count"] = cell["prompt_number"]
		delete(cell, "prompt_number")

		outputs, _ := cell["outputs"].([]any)
		upgraded := make([]any, 0, len(outputs))
		for _, o := range outputs {
			if out, ok := o.(map[string]any); ok {
				upgraded = append(upgraded, upgradeOutputV3(out))
			}
		}
		cell["outputs"] = upgraded
	case "heading":
		level := 1
		if n, ok := cell["level"].(json.Number); ok {
			if v, err := n.Int64(); err == nil && v > 0 {
				level = int(v)
			}
		}
		text := strings.Join(strings.Split(strings.TrimRight(multilineText(cell["source"]), "\n"), "\n"), " ")
		cell["cell_type"] = "markdown"
		cell["source"] = strings.Repeat("#", level) + " " + text
		delete(cell, "level")
	case "html":
		cell["cell_type"] = "markdown"
	}
	return cell
}

func upgradeOutputV3(out map[string]any) map[string]any {
	switch out["output_type"] {
	case "pyout", "display_data":
		if out["output_type"] == "pyout" {
			out["output_type"] = "execute_result"
			out["execution_count"] = out["prompt_number"]
			delete(out, "prompt_number")
		}
		payload := map[string]any{}
		for key, mime := range v3MimeKeys {
			v, ok := out[key]
			if !ok {
				continue
			}
			delete(out, key)
			if mime == "application/json" {
				v = decodeJSONPayload(v)
			}
			payload[mime] = v
		}
		out["data"] = payload
		if _, ok := out["metadata"].(map[string]any); !ok {
			out["metadata"] = map[string]any{}
		}
	case "pyerr":
		out["output_type"] = "error"
	case "stream":
		name, _ := out["stream"].(string)
		if name == "" {
			name = "stdout"
		}
		out["name"] = name
		delete(out, "stream")
	}
	return out
}

// decodeJSONPayload turns the JSON string v3 stored for application/json
// output into the object v4 expects. Undecodable payloads are kept as is.
func decodeJSONPayload(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return v
	}
	return decoded
}

// multilineText joins a string or list-of-strings field.
func multilineText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		var sb strings.Builder
		for _, part := range t {
			if s, ok := part.(string); ok {
				sb.WriteString(s)
			}
		}
		return sb.String()
	default:
		return ""
	}
}

func orEmptyString(v any) any {
	if v == nil {
		return ""
	}
	return v
}

