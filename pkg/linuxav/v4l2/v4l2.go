//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for device enumeration, format negotiation, control access, and
// user-pointer streaming I/O.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 video capture devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # The Wrapper
//
// Wrapper is a serialized handle to a single video device. All ioctl-bearing
// operations go through one internal lock, so a Wrapper may be shared between
// goroutines (for example a capture pipeline and the metadata components that
// query device controls):
//
//	w := v4l2.NewWrapper("/dev/video0", locker)
//	if err := w.Connect(); err != nil { ... }
//	defer w.Disconnect()
//
//	maxBuffers, err := w.SetFormat(v4l2.StreamFormat{
//	    PixelFormat: v4l2.PixFmtYUV420, Width: 640, Height: 480,
//	})
//
// Buffer I/O uses V4L2_MEMORY_USERPTR exclusively; the BufferLocker
// implementation supplies the userspace pointers backing each enqueued
// buffer and is told to release them whenever driver semantics return
// queued buffers to userspace (stream off, REQBUFS, disconnect).
package v4l2
