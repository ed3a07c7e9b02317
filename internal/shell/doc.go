// SPDX-License-Identifier: MPL-2.0

// Package shell executes provisioning command steps with an in-process POSIX
// shell (mvdan/sh).
//
// Every script runs under the recipe's strict mode: a `set` of the recipe's
// shell flags (errexit, nounset, xtrace, pipefail by default) is applied
// before the script body, so any command's nonzero exit, any unset variable
// expansion, and any pipeline stage failure aborts the script. The
// environment is always supplied explicitly; nothing is inherited from the
// host process.
package shell
