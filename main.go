// SPDX-License-Identifier: MPL-2.0

package main

import (
	cmd "pipstage-cli/cmd/pipstage"
)

func main() {
	cmd.Execute()
}
