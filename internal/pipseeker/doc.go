// SPDX-License-Identifier: MPL-2.0

// Package pipseeker models the PIPseeker pipeline invocation that the
// provisioned environment exists to run: run-mode configuration, mapping
// reference resolution, command-line construction, and the resource
// estimation used to size the machine a run is scheduled on.
//
// The binary itself is an opaque external dependency; this package only
// prepares its inputs and never interprets its outputs.
package pipseeker
