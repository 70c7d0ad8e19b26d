// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride redirects ConfigDir, since os.UserHomeDir does not honor
// HOME on every platform.
var configDirOverride string

// Reset clears test overrides.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
