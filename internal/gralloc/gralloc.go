// Package gralloc provides the graphics-buffer locking layer used by the
// V4L2 wrapper. Buffer handles are opaque to the wrapper; locking a
// handle pins its backing storage and yields the userspace pointer and
// length handed to the driver for user-pointer I/O.
package gralloc

import (
	"fmt"
	"sync"
	"unsafe"
)

// Handle is one graphics buffer borrowed from the framework. The backing
// storage stays owned by the handle; the helper only tracks lock state.
type Handle struct {
	ID     int64
	Width  uint32
	Height uint32
	Format uint32
	data   []byte
}

// NewHandle allocates a buffer handle with size bytes of backing storage.
func NewHandle(id int64, width, height uint32, format uint32, size int) *Handle {
	return &Handle{
		ID:     id,
		Width:  width,
		Height: height,
		Format: format,
		data:   make([]byte, size),
	}
}

// Bytes exposes the backing storage, for consumers reading a filled frame.
func (h *Handle) Bytes() []byte {
	return h.data
}

// Helper implements v4l2.BufferLocker. It keeps the set of currently
// locked handles so the wrapper can release everything on stream
// transitions.
type Helper struct {
	mu     sync.Mutex
	locked map[uintptr]*Handle
}

// New creates a buffer locking helper.
func New() *Helper {
	return &Helper{locked: make(map[uintptr]*Handle)}
}

// Lock pins a handle's storage for writing and returns the userspace
// pointer and length for the driver. The handle must carry enough
// storage for one line-aligned frame.
func (g *Helper) Lock(handle any, bytesPerLine uint32) (uintptr, uint32, error) {
	h, ok := handle.(*Handle)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected buffer handle type %T", handle)
	}
	if len(h.data) == 0 {
		return 0, 0, fmt.Errorf("buffer handle %d has no backing storage", h.ID)
	}
	if needed := int(bytesPerLine * h.Height); needed > 0 && len(h.data) < needed {
		return 0, 0, fmt.Errorf("buffer handle %d too small: %d bytes, need %d", h.ID, len(h.data), needed)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ptr := uintptr(unsafe.Pointer(&h.data[0]))
	if _, exists := g.locked[ptr]; exists {
		return 0, 0, fmt.Errorf("buffer handle %d is already locked", h.ID)
	}
	g.locked[ptr] = h
	return ptr, uint32(len(h.data)), nil
}

// Unlock releases a single locked buffer by its userspace pointer.
func (g *Helper) Unlock(userptr uintptr) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.locked[userptr]; !exists {
		return fmt.Errorf("no locked buffer at %#x", userptr)
	}
	delete(g.locked, userptr)
	return nil
}

// UnlockAll releases every locked buffer. Called by the wrapper whenever
// driver semantics return queued buffers to the user.
func (g *Helper) UnlockAll() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.locked)
	return nil
}

// LockedCount returns the number of currently locked buffers.
func (g *Helper) LockedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locked)
}
