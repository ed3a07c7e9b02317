// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities.
//
// It centralizes the runtime.GOOS string constants used when resolving
// platform-specific paths such as the configuration directory.
package platform
