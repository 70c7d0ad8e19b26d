// SPDX-License-Identifier: MPL-2.0

// Package config handles nbrun configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/nbrun/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/nbrun/config.cue on macOS,
// %APPDATA%\nbrun\config.cue on Windows), falling back to ./config.cue. Files are
// validated against the embedded #Config schema (config_schema.cue) before they
// are merged. Environment variables prefixed with NBRUN_ override file values
// (NBRUN_TIMEOUT, NBRUN_CONTAINER_IMAGE, NBRUN_ARTIFACTS as a comma list, ...).
package config
