package hal

import (
	"time"

	"golang.org/x/sys/unix"
)

// captureSyncTimeout bounds the wait on a buffer's acquire fence.
const captureSyncTimeout = 5000 * time.Millisecond

// waitFence blocks until the fence fd signals or the timeout elapses.
// A negative fd means no fence is attached and the wait succeeds
// immediately. The fd is closed once waited upon; the caller clears its
// reference to -1.
func waitFence(fd int, timeout time.Duration) error {
	if fd < 0 {
		return nil
	}
	defer unix.Close(fd)

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(remaining.Milliseconds()))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return newError(ErrCodeIOError, "error waiting on buffer acquire fence", err)
		}
		if n == 0 {
			return newError(ErrCodeTimeout, "timeout waiting on buffer acquire fence", nil)
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			return newError(ErrCodeIOError, "buffer acquire fence poll error", nil)
		}
		return nil
	}
}
