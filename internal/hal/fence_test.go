package hal

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestWaitFenceNoFence(t *testing.T) {
	if err := waitFence(-1, time.Millisecond); err != nil {
		t.Errorf("waitFence(-1) = %v, want nil", err)
	}
}

func TestWaitFenceSignaled(t *testing.T) {
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(fds[1])

	if _, err := unix.Write(fds[1], []byte{1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := waitFence(fds[0], time.Second); err != nil {
		t.Errorf("waitFence(signaled) = %v, want nil", err)
	}
}

func TestWaitFenceTimeout(t *testing.T) {
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(fds[1])

	err := waitFence(fds[0], 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("waitFence(unsignaled) = %v, want ErrTimeout", err)
	}
}
