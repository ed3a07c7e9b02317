// SPDX-License-Identifier: MPL-2.0

package platform

// OS name constants for runtime.GOOS comparisons, used when resolving the
// per-platform configuration and cache directories.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)
