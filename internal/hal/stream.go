package hal

import (
	"fmt"
	"io"
	"sync"
)

// Stream represents a single configured output surface for a camera
// device.
type Stream struct {
	// Reuse marks the stream as carried over during a configuration pass.
	Reuse bool

	id        int
	framework *FrameworkStream
	streamType StreamType
	width     uint32
	height    uint32
	format    PixelFormat
	rotation  Rotation

	mu         sync.Mutex
	usage      uint32
	maxBuffers uint32
	dataSpace  int32
}

func newStream(id int, s *FrameworkStream) *Stream {
	return &Stream{
		id:         id,
		framework:  s,
		streamType: s.Type,
		width:      s.Width,
		height:     s.Height,
		format:     s.Format,
		rotation:   s.Rotation,
		dataSpace:  s.DataSpace,
	}
}

func (s *Stream) setUsage(usage uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if usage != s.usage {
		s.usage = usage
		s.framework.Usage = usage
	}
}

func (s *Stream) setMaxBuffers(maxBuffers uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxBuffers != s.maxBuffers {
		s.maxBuffers = maxBuffers
		s.framework.MaxBuffers = maxBuffers
	}
}

func (s *Stream) setDataSpace(dataSpace int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dataSpace != s.dataSpace {
		s.dataSpace = dataSpace
		s.framework.DataSpace = dataSpace
	}
}

func (s *Stream) isInputType() bool {
	return s.streamType == StreamInput || s.streamType == StreamBidirectional
}

func (s *Stream) isOutputType() bool {
	return s.streamType == StreamOutput || s.streamType == StreamBidirectional
}

// isValidReuseStream verifies that a framework stream requesting reuse
// still matches this stream's parameters.
func (s *Stream) isValidReuseStream(id int, f *FrameworkStream) bool {
	switch {
	case id != s.id:
		return false
	case f != s.framework:
		return false
	case f.Type != s.streamType:
		return false
	case f.Format != s.format:
		return false
	case f.Width != s.width || f.Height != s.height:
		return false
	}
	return true
}

func (s *Stream) dump(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(w, "Stream type: %d\n", s.streamType)
	fmt.Fprintf(w, "Width: %d Height: %d\n", s.width, s.height)
	fmt.Fprintf(w, "Format: %#x\n", int32(s.format))
	fmt.Fprintf(w, "Usage: %#x\n", s.usage)
	fmt.Fprintf(w, "Rotation: %d\n", s.rotation)
	fmt.Fprintf(w, "Dataspace: %#x\n", s.dataSpace)
	fmt.Fprintf(w, "Max buffer count: %d\n", s.maxBuffers)
}
