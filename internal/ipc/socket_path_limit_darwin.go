//go:build darwin

package ipc

import (
	"fmt"

	"golang.org/x/sys/unix"

	apperrors "github.com/xlg/player/internal/errors"
)

const socketPathLimit = len(unix.RawSockaddrUnix{}.Path)

func validateSocketPath(path string) error {
	if path == "" {
		return nil
	}
	limit := socketPathLimit - 1
	if len(path) > limit {
		return apperrors.SocketPath(fmt.Sprintf("command socket path exceeds %d bytes: %s", limit, path))
	}
	return nil
}
