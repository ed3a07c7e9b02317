// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads, extracts, and installs prebuilt artifacts.
//
// A provisioning artifact flows through three stages: Download (HTTP GET to
// a temp file), ExtractTarGz/ExtractZip (archive member selection with a
// decompression-bomb cap), and Install (rename into the final path with the
// requested mode). Each stage fails independently so the pipeline can map
// failures to its fetch/extraction/install taxonomy. Downloads are single
// blocking calls; retry policy belongs to the caller.
package fetch
