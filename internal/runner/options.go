// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nbrun/nbrun/internal/notebook"
	"github.com/nbrun/nbrun/internal/runtime"
)

const (
	// DefaultTimeout is the execution time limit when Options.Timeout is zero.
	DefaultTimeout = 600 * time.Second
	// executedSuffix is appended to the input stem to form the default output name.
	executedSuffix = "_executed.ipynb"
)

var (
	// ErrNoInput is returned when Options.Input is empty.
	ErrNoInput = errors.New("no input notebook given")
	// ErrInvalidTimeout is returned for a negative timeout.
	ErrInvalidTimeout = errors.New("timeout must be a positive duration")
)

// DefaultArtifacts are the files reported when found beside the input notebook.
var DefaultArtifacts = []string{"pareto_plot.html", "pareto_plot.png", "pareto_vals.csv"}

// Options configures a single run. The zero value of every field except Input
// selects its default.
type Options struct {
	// Input is the notebook to execute.
	Input string
	// Output is where the executed notebook is written; see DefaultOutputPath.
	Output string
	// Timeout bounds the whole execution.
	Timeout time.Duration
	// Fast prepends the fast-mode parameter cell.
	Fast bool
	// FastParams are the assignments of the fast-mode cell; notebook.DefaultFastParams when empty.
	FastParams []notebook.Param
	// Kernel is the kernel spec name the engine starts.
	Kernel string
	// Runtime selects the execution runtime.
	Runtime runtime.RuntimeType
	// Artifacts are file names looked up next to Input after execution.
	Artifacts []string
}

// DefaultOutputPath returns `<stem>_executed.ipynb` in the input's directory:
// nb/analysis.ipynb gives nb/analysis_executed.ipynb.
func DefaultOutputPath(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), stem+executedSuffix)
}

// withDefaults returns a copy of o with empty fields filled in.
func (o Options) withDefaults() Options {
	if o.Output == "" && o.Input != "" {
		o.Output = DefaultOutputPath(o.Input)
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if len(o.FastParams) == 0 {
		o.FastParams = notebook.DefaultFastParams
	}
	if o.Kernel == "" {
		o.Kernel = runtime.DefaultKernel
	}
	if o.Runtime == "" {
		o.Runtime = runtime.RuntimeTypeNative
	}
	if o.Artifacts == nil {
		o.Artifacts = DefaultArtifacts
	}
	return o
}

// Validate reports option errors that must stop a run before anything is
// read or written.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Input) == "" {
		return ErrNoInput
	}
	if o.Timeout < 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidTimeout, o.Timeout)
	}
	if o.Runtime != "" {
		if err := o.Runtime.Validate(); err != nil {
			return err
		}
	}
	if o.Fast {
		for _, p := range o.FastParams {
			if err := p.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
