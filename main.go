// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/nbrun/nbrun/cmd/nbrun"

func main() {
	cmd.Execute()
}
