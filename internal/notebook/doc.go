// SPDX-License-Identifier: MPL-2.0

// Package notebook reads and writes Jupyter notebook documents (nbformat 4).
//
// A Document keeps every field it does not interpret as raw JSON, so a
// notebook survives a load/save round trip with its outputs, metadata and
// attachments intact. Unparseable JSON and unsupported versions are reported
// as a *FormatError. nbformat 3 documents are upgraded to version 4 on load.
// The result is checked against an embedded subset of the nbformat v4 JSON
// schema, but violations are only recorded on the Document: like nbformat,
// nbrun warns about them and executes the notebook anyway.
//
// Saving follows the layout nbformat itself produces: one-space indentation,
// sorted keys, multiline source split into a list of lines and a trailing
// newline.
package notebook
