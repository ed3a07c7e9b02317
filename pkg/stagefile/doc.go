// SPDX-License-Identifier: MPL-2.0

// Package stagefile defines the declarative build recipe consumed by the
// provisioning pipeline.
//
// A stagefile is a CUE document validated against an embedded schema
// (#Stagefile). It declares the sections of an execution-environment build in
// their fixed order: base image, strict shell flags, environment variables,
// fetched artifacts, system and Python packages, directories, workspace copy,
// build-tag injection, and the final working directory. Because the document
// declares sections rather than an arbitrary step list, the strictly ordered
// sequence the pipeline executes is guaranteed by construction.
//
// The package also embeds the default recipe, which encodes the PIPseeker
// execution environment: the pipseeker v3.3.0 binary, unzip, the latch SDK,
// and the workspace layout under /root.
package stagefile
