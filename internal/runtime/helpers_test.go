// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/nbrun/nbrun/internal/notebook"
	"github.com/nbrun/nbrun/internal/testutil"
)

// executedNotebook is what an engine hands back for testutil.Notebook("print(1)").
const executedNotebook = `{
 "cells": [
  {
   "cell_type": "code",
   "execution_count": 1,
   "id": "c0",
   "metadata": {},
   "outputs": [{"name": "stdout", "output_type": "stream", "text": "1\n"}],
   "source": "print(1)"
  }
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}
`

func newDoc(t *testing.T, sources ...string) *notebook.Document {
	t.Helper()
	doc, err := notebook.Decode([]byte(testutil.Notebook(sources...)), "test.ipynb")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return doc
}

func newExecutionContext(t *testing.T, doc *notebook.Document, timeout time.Duration) *ExecutionContext {
	t.Helper()
	return &ExecutionContext{
		Context:         context.Background(),
		Notebook:        doc,
		Kernel:          DefaultKernel,
		Timeout:         timeout,
		WorkDir:         t.TempDir(),
		ExecutionID:     "test",
		SelectedRuntime: RuntimeTypeNative,
	}
}
