// SPDX-License-Identifier: MPL-2.0

// Package testutil provides notebook fixtures, fake interpreters, and small
// Must* helpers shared by nbrun tests.
package testutil
