// SPDX-License-Identifier: MPL-2.0

// Package provision turns a decoded recipe into an ordered step plan and
// executes it against a target (a container engine or a local staging
// directory).
//
// Execution is strictly sequential and fail-fast: each step's success is a
// precondition for the next, and the first failure aborts the whole build
// with a classified Failure. No partial result is considered valid; targets
// discard their work container on abort. The executor records every step in
// a TOML manifest so the failing step and its classification are inspectable
// after the fact.
package provision
