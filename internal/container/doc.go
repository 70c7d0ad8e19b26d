// SPDX-License-Identifier: MPL-2.0

// Package container runs short-lived containers through the Docker Engine API.
//
// The Engine interface covers what notebook execution needs: image presence
// checks, pulls, and a one-shot Run that streams stdin in and demultiplexes
// stdout/stderr out. DockerEngine talks to Docker, or to Podman through its
// Docker-compatible API socket.
//
// Cancelling the Run context does not kill the container outright. It is sent
// SIGINT first and only SIGKILLed after RunOptions.StopGrace, so a process that
// handles the interrupt can still flush its output.
//
// Only Linux containers are supported.
package container
