// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// RuntimeNative runs notebooks with the host Python interpreter.
	// Defined locally to avoid coupling config to internal/runtime.
	RuntimeNative RuntimeMode = "native"
	// RuntimeContainer runs notebooks inside a Jupyter container image.
	RuntimeContainer RuntimeMode = "container"

	// ContainerEngineDocker talks to the Docker daemon.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman talks to Podman's Docker-compatible API socket.
	ContainerEnginePodman ContainerEngine = "podman"

	PullAlways  PullPolicy = "always"
	PullMissing PullPolicy = "missing"
	PullNever   PullPolicy = "never"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultTimeoutSeconds is the execution time limit when none is configured.
	DefaultTimeoutSeconds = 600
	// DefaultKernel is the kernel spec name when none is configured.
	DefaultKernel = "python3"
	// DefaultImage is the Jupyter image used by the container runtime.
	DefaultImage = "quay.io/jupyter/scipy-notebook:latest"
)

var (
	// ErrInvalidConfigRuntimeMode is returned when a RuntimeMode value is not recognized.
	ErrInvalidConfigRuntimeMode = errors.New("invalid runtime mode")
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidPullPolicy is returned when a PullPolicy value is not recognized.
	ErrInvalidPullPolicy = errors.New("invalid pull policy")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidFastParam is the sentinel error wrapped by InvalidFastParamError.
	ErrInvalidFastParam = errors.New("invalid fast-mode parameter")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type (
	// RuntimeMode selects the execution runtime.
	RuntimeMode string

	// ContainerEngine specifies which container daemon to use.
	ContainerEngine string

	// PullPolicy decides when the container image is pulled.
	PullPolicy string

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidValueError reports an unrecognized enum value. Unwrap returns the
	// field's sentinel.
	InvalidValueError struct {
		Field    string
		Value    string
		Valid    []string
		sentinel error
	}

	// InvalidFastParamError is returned when a fast-mode parameter is malformed.
	InvalidFastParamError struct {
		Index  int
		Name   string
		Reason string
	}

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Runtime selects where notebooks execute
		Runtime RuntimeMode `json:"runtime" mapstructure:"runtime"`
		// Kernel is the kernel spec name the engine starts
		Kernel string `json:"kernel" mapstructure:"kernel"`
		// Timeout is the total execution time limit in seconds
		Timeout int `json:"timeout" mapstructure:"timeout"`
		// Python configures the native runtime
		Python PythonConfig `json:"python" mapstructure:"python"`
		// Container configures the container runtime
		Container ContainerConfig `json:"container" mapstructure:"container"`
		// Fast configures fast mode
		Fast FastConfig `json:"fast" mapstructure:"fast"`
		// Artifacts lists file names reported when found beside the input notebook
		Artifacts []string `json:"artifacts" mapstructure:"artifacts"`
		// UI configures terminal output
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// PythonConfig configures the host interpreter.
	PythonConfig struct {
		// Binary overrides the interpreter looked up on PATH
		Binary string `json:"binary" mapstructure:"binary"`
	}

	// ContainerConfig configures the container runtime.
	ContainerConfig struct {
		Engine ContainerEngine `json:"engine" mapstructure:"engine"`
		// Host overrides the daemon address
		Host  string     `json:"host" mapstructure:"host"`
		Image string     `json:"image" mapstructure:"image"`
		Pull  PullPolicy `json:"pull" mapstructure:"pull"`
	}

	// FastConfig configures the cell injected in fast mode.
	FastConfig struct {
		Params []FastParam `json:"params" mapstructure:"params"`
	}

	// FastParam is one `NAME = value` assignment of the fast-mode cell.
	FastParam struct {
		Name  string `json:"name" mapstructure:"name"`
		Value string `json:"value" mapstructure:"value"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging and error chains
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s %q (valid: %s)", e.Field, e.Value, strings.Join(e.Valid, ", "))
}

// Unwrap returns the field's sentinel for errors.Is() compatibility.
func (e *InvalidValueError) Unwrap() error { return e.sentinel }

// Error implements the error interface.
func (e *InvalidFastParamError) Error() string {
	return fmt.Sprintf("fast.params[%d] %q: %s", e.Index, e.Name, e.Reason)
}

// Unwrap returns ErrInvalidFastParam for errors.Is() compatibility.
func (e *InvalidFastParamError) Unwrap() error { return ErrInvalidFastParam }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap exposes ErrInvalidConfig and each field error.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// String returns the string representation of the RuntimeMode.
func (m RuntimeMode) String() string { return string(m) }

// IsValid returns whether the RuntimeMode is native or container.
func (m RuntimeMode) IsValid() (bool, []error) {
	switch m {
	case RuntimeNative, RuntimeContainer:
		return true, nil
	default:
		return false, []error{&InvalidValueError{
			Field: "runtime", Value: string(m), Valid: []string{"native", "container"},
			sentinel: ErrInvalidConfigRuntimeMode,
		}}
	}
}

// String returns the string representation of the ContainerEngine.
func (ce ContainerEngine) String() string { return string(ce) }

// IsValid returns whether the ContainerEngine is docker or podman.
func (ce ContainerEngine) IsValid() (bool, []error) {
	switch ce {
	case ContainerEngineDocker, ContainerEnginePodman:
		return true, nil
	default:
		return false, []error{&InvalidValueError{
			Field: "container.engine", Value: string(ce), Valid: []string{"docker", "podman"},
			sentinel: ErrInvalidContainerEngine,
		}}
	}
}

// String returns the string representation of the PullPolicy.
func (p PullPolicy) String() string { return string(p) }

// IsValid returns whether the PullPolicy is known.
func (p PullPolicy) IsValid() (bool, []error) {
	switch p {
	case PullAlways, PullMissing, PullNever:
		return true, nil
	default:
		return false, []error{&InvalidValueError{
			Field: "container.pull", Value: string(p), Valid: []string{"always", "missing", "never"},
			sentinel: ErrInvalidPullPolicy,
		}}
	}
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidValueError{
			Field: "ui.color_scheme", Value: string(cs), Valid: []string{"auto", "dark", "light"},
			sentinel: ErrInvalidColorScheme,
		}}
	}
}

// IsValid reports whether the parameters are usable as Python assignments.
// Names must be identifiers; values must be non-empty single lines.
func (c FastConfig) IsValid() (bool, []error) {
	var errs []error
	for i, p := range c.Params {
		switch {
		case !identifierPattern.MatchString(p.Name):
			errs = append(errs, &InvalidFastParamError{Index: i, Name: p.Name, Reason: "name must be a Python identifier"})
		case strings.TrimSpace(p.Value) == "":
			errs = append(errs, &InvalidFastParamError{Index: i, Name: p.Name, Reason: "value must not be empty"})
		case strings.ContainsAny(p.Value, "\r\n"):
			errs = append(errs, &InvalidFastParamError{Index: i, Name: p.Name, Reason: "value must be a single line"})
		}
	}
	return len(errs) == 0, errs
}

// IsValid returns whether the Config has valid fields, collecting every
// field error into a single InvalidConfigError.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	collect := func(_ bool, fieldErrs []error) {
		errs = append(errs, fieldErrs...)
	}

	collect(c.Runtime.IsValid())
	collect(c.Container.Engine.IsValid())
	collect(c.Container.Pull.IsValid())
	collect(c.UI.ColorScheme.IsValid())
	collect(c.Fast.IsValid())

	if strings.TrimSpace(c.Kernel) == "" {
		errs = append(errs, errors.New("kernel must not be empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be a positive number of seconds, got %d", c.Timeout))
	}
	if c.Runtime == RuntimeContainer && strings.TrimSpace(c.Container.Image) == "" {
		errs = append(errs, errors.New("container.image must be set for the container runtime"))
	}
	for i, a := range c.Artifacts {
		if strings.TrimSpace(a) == "" {
			errs = append(errs, fmt.Errorf("artifacts[%d] must not be empty", i))
		}
	}

	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultFastParams returns the fast-mode assignments used when none are configured.
func DefaultFastParams() []FastParam {
	return []FastParam{
		{Name: "POP_SIZE", Value: "20"},
		{Name: "NGEN", Value: "5"},
	}
}

// DefaultArtifacts returns the artifact names reported after a run.
func DefaultArtifacts() []string {
	return []string{"pareto_plot.html", "pareto_plot.png", "pareto_vals.csv"}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeNative,
		Kernel:  DefaultKernel,
		Timeout: DefaultTimeoutSeconds,
		Python: PythonConfig{
			Binary: "", // looked up on PATH
		},
		Container: ContainerConfig{
			Engine: ContainerEngineDocker,
			Image:  DefaultImage,
			Pull:   PullMissing,
		},
		Fast: FastConfig{
			Params: DefaultFastParams(),
		},
		Artifacts: DefaultArtifacts(),
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
