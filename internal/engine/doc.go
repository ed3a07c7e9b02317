// SPDX-License-Identifier: MPL-2.0

// Package engine provides an abstraction layer for container runtimes
// (Docker/Podman) used to stage and commit provisioned images.
//
// Unlike a generic run-a-container wrapper, the surface here is shaped by the
// provisioning workflow: pull a base image, create and start a long-lived
// work container, exec provisioning scripts inside it, copy workspace trees
// into it, and finally commit the container as a tagged image with metadata
// changes (ENV/WORKDIR directives) baked in.
package engine
