// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/docker/docker/client"
)

// transientMarkers are fragments of daemon and registry errors that usually
// clear up on retry.
var transientMarkers = []string{
	"Temporary failure resolving",
	"Could not resolve host",
	"TLS handshake timeout",
	"connection timed out",
	"connection refused",
	"connection reset by peer",
	"i/o timeout",
	"toomanyrequests",
	"503 Service Unavailable",
	"502 Bad Gateway",
	"unexpected EOF",
}

// IsTransientError reports whether err is a daemon or registry failure that
// may succeed on retry, such as a network timeout during an image pull.
// Context cancellation and deadlines are never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if client.IsErrConnectionFailed(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
