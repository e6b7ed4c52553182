//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"unsafe"
)

// ErrNotConnected is returned by any Wrapper operation issued while the
// device is not connected.
var ErrNotConnected = errors.New("device not connected")

// standardSizes are the sizes a stepwise enumeration is snapped to, plus
// the driver's maximum.
var standardSizes = []FrameSize{
	{1920, 1080},
	{1280, 720},
	{640, 480},
	{320, 240},
}

const fieldNone = 1

// BufferLocker is the graphics-buffer locking layer commanded by the
// Wrapper. Lock pins an opaque buffer handle into addressable memory and
// returns the userspace pointer and length to hand to the driver; Unlock
// releases a single pinned buffer by its pointer; UnlockAll releases
// every pinned buffer (driver semantics return all queued buffers to
// userspace on stream off, REQBUFS, and device close).
type BufferLocker interface {
	Lock(handle any, bytesPerLine uint32) (uintptr, uint32, error)
	Unlock(userptr uintptr) error
	UnlockAll() error
}

// Wrapper is a serialized interface to one video device. A single mutex
// guards the file descriptor and all device-state fields; every ioctl
// goes through it.
type Wrapper struct {
	devicePath string
	locker     BufferLocker
	logger     *slog.Logger

	connectionLock  sync.Mutex
	connectionCount int

	deviceLock             sync.Mutex
	fd                     int
	format                 *StreamFormat
	maxBuffers             uint32
	extendedQuerySupported bool

	// Syscall indirection for tests.
	doIoctl func(fd int, req uint, arg unsafe.Pointer) error
	doOpen  func(path string) (int, error)
}

// NewWrapper creates a wrapper for the device at devicePath. The locker
// must not be nil; it is commanded on every stream transition.
func NewWrapper(devicePath string, locker BufferLocker) *Wrapper {
	return &Wrapper{
		devicePath: devicePath,
		locker:     locker,
		logger:     slog.With("module", "v4l2", "device", devicePath),
		fd:         -1,
		doIoctl:    ioctl,
		doOpen:     openBlocking,
	}
}

func (w *Wrapper) connected() bool {
	return w.fd >= 0
}

// Connected reports whether the device is currently open.
func (w *Wrapper) Connected() bool {
	w.deviceLock.Lock()
	defer w.deviceLock.Unlock()
	return w.connected()
}

// Connect opens the device. Connections are counted: components holding
// the wrapper may connect while the camera itself is open, and the fd is
// only closed when the last connection disconnects.
func (w *Wrapper) Connect() error {
	w.connectionLock.Lock()
	defer w.connectionLock.Unlock()

	if w.Connected() {
		w.connectionCount++
		return nil
	}

	fd, err := w.doOpen(w.devicePath)
	if err != nil {
		w.logger.Error("Failed to open device", "error", err)
		return fmt.Errorf("open %s: %w", w.devicePath, syscall.ENODEV)
	}

	w.deviceLock.Lock()
	w.fd = fd
	w.deviceLock.Unlock()
	w.connectionCount++

	// Probe whether this device supports extended control queries.
	query := v4l2QueryExtCtrl{id: ctrlFlagNextCtrl | ctrlFlagNextCompound}
	err = w.ioctlLocked(vidiocQueryExtCtrl, unsafe.Pointer(&query))
	w.deviceLock.Lock()
	w.extendedQuerySupported = err == nil
	w.deviceLock.Unlock()

	return nil
}

// Disconnect drops one connection. When the last connection goes away the
// fd is closed, the format cache is cleared, and all locked buffers are
// released (closing the device returns queued buffers to the user).
func (w *Wrapper) Disconnect() {
	w.connectionLock.Lock()
	defer w.connectionLock.Unlock()

	if w.connectionCount == 0 {
		w.logger.Error("Device is not connected, cannot disconnect")
		return
	}

	w.connectionCount--
	if w.connectionCount > 0 {
		w.logger.Debug("Disconnected", "remaining_connections", w.connectionCount)
		return
	}

	w.deviceLock.Lock()
	if w.fd >= 0 {
		closeFd(w.fd)
		w.fd = -1
	}
	w.format = nil
	w.maxBuffers = 0
	w.deviceLock.Unlock()

	if err := w.locker.UnlockAll(); err != nil {
		w.logger.Error("Failed to unlock buffers on disconnect", "error", err)
	}
}

// ioctlLocked issues an ioctl with the device lock held. It should be
// used instead of raw ioctl throughout this type.
func (w *Wrapper) ioctlLocked(req uint, arg unsafe.Pointer) error {
	w.deviceLock.Lock()
	defer w.deviceLock.Unlock()

	if !w.connected() {
		return ErrNotConnected
	}
	return w.doIoctl(w.fd, req, arg)
}

// StreamOn starts streaming. The format must have been set first.
func (w *Wrapper) StreamOn() error {
	if w.currentFormat() == nil {
		return fmt.Errorf("stream format must be set before turning on stream: %w", syscall.EINVAL)
	}

	typ := int32(bufTypeVideoCapture)
	if err := w.ioctlLocked(vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		w.logger.Error("STREAMON failed", "error", err)
		return fmt.Errorf("STREAMON: %w", err)
	}
	return nil
}

// StreamOff stops streaming and unlocks all buffers; STREAMOFF returns
// every queued buffer back to the user.
func (w *Wrapper) StreamOff() error {
	if w.currentFormat() == nil {
		return fmt.Errorf("stream format must be set to turn off stream: %w", ErrNotConnected)
	}

	typ := int32(bufTypeVideoCapture)
	err := w.ioctlLocked(vidiocStreamoff, unsafe.Pointer(&typ))
	unlockErr := w.locker.UnlockAll()
	if err != nil {
		w.logger.Error("STREAMOFF failed", "error", err)
		return fmt.Errorf("STREAMOFF: %w", err)
	}
	if unlockErr != nil {
		w.logger.Error("Failed to unlock buffers after stream off", "error", unlockErr)
		return unlockErr
	}
	return nil
}

// QueryControl queries a control, preferring VIDIOC_QUERY_EXT_CTRL and
// falling back to VIDIOC_QUERYCTRL when the driver does not implement
// the extended query. Fallback results are normalized into the extended
// shape; bitmask-typed controls widen 32→64 bits with zero-extension for
// maximum and default_value, per the V4L2 documentation.
func (w *Wrapper) QueryControl(controlID uint32) (ControlInfo, error) {
	if w.supportsExtendedQuery() {
		ext := v4l2QueryExtCtrl{id: controlID}
		err := w.ioctlLocked(vidiocQueryExtCtrl, unsafe.Pointer(&ext))
		if !errors.Is(err, syscall.ENOTTY) {
			if err != nil {
				w.logger.Error("QUERY_EXT_CTRL failed", "control", controlID, "error", err)
				return ControlInfo{}, fmt.Errorf("QUERY_EXT_CTRL %#x: %w", controlID, err)
			}
			return ControlInfo{
				ID:           ext.id,
				Type:         ext.typ,
				Name:         cstr(ext.name[:]),
				Minimum:      ext.minimum,
				Maximum:      ext.maximum,
				Step:         ext.step,
				DefaultValue: ext.defaultValue,
				Flags:        ext.flags,
				ElemSize:     ext.elemSize,
				Elems:        ext.elems,
			}, nil
		}
	}

	// Extended control querying not supported, fall back to the basic query.
	query := v4l2Queryctrl{id: controlID}
	if err := w.ioctlLocked(vidiocQueryctrl, unsafe.Pointer(&query)); err != nil {
		w.logger.Error("QUERYCTRL failed", "control", controlID, "error", err)
		return ControlInfo{}, fmt.Errorf("QUERYCTRL %#x: %w", controlID, err)
	}

	info := ControlInfo{
		ID:      query.id,
		Type:    query.typ,
		Name:    cstr(query.name[:]),
		Minimum: int64(query.minimum),
		Step:    uint64(uint32(query.step)),
		Flags:   query.flags,
		Elems:   1,
	}
	if query.typ == CtrlTypeBitmask {
		// When type is BITMASK, max and default are __u32; widening to
		// 64 bits must pad with zeroes, not sign bits.
		info.Maximum = int64(uint32(query.maximum))
		info.DefaultValue = int64(uint32(query.defaultValue))
	} else {
		info.Maximum = int64(query.maximum)
		info.DefaultValue = int64(query.defaultValue)
	}
	switch query.typ {
	case CtrlTypeInteger64:
		info.ElemSize = 8
	case CtrlTypeString:
		info.ElemSize = uint32(info.Maximum) + 1
	default:
		info.ElemSize = 4
	}
	return info, nil
}

// QueryMenu looks up a menu control's item at the given index and
// returns its name. Drivers report EINVAL for indices inside the
// control's range that are not valid menu items.
func (w *Wrapper) QueryMenu(controlID, index uint32) (string, error) {
	query := v4l2Querymenu{id: controlID, index: index}
	if err := w.ioctlLocked(vidiocQuerymenu, unsafe.Pointer(&query)); err != nil {
		return "", fmt.Errorf("QUERYMENU %#x[%d]: %w", controlID, index, err)
	}
	return cstr(query.name[:]), nil
}

// GetControl reads the current value of a control.
func (w *Wrapper) GetControl(controlID uint32) (int32, error) {
	control := v4l2Control{id: controlID}
	if err := w.ioctlLocked(vidiocGCtrl, unsafe.Pointer(&control)); err != nil {
		w.logger.Error("G_CTRL failed", "control", controlID, "error", err)
		return 0, fmt.Errorf("G_CTRL %#x: %w", controlID, err)
	}
	return control.value, nil
}

// SetControl writes a control and returns the value the driver reports
// after the write, which may have been clamped.
func (w *Wrapper) SetControl(controlID uint32, desired int32) (int32, error) {
	control := v4l2Control{id: controlID, value: desired}
	if err := w.ioctlLocked(vidiocSCtrl, unsafe.Pointer(&control)); err != nil {
		w.logger.Error("S_CTRL failed", "control", controlID, "error", err)
		return 0, fmt.Errorf("S_CTRL %#x: %w", controlID, err)
	}
	return control.value, nil
}

// GetFormats enumerates the device's supported pixel formats.
func (w *Wrapper) GetFormats() ([]uint32, error) {
	var formats []uint32
	for index := uint32(0); ; index++ {
		query := v4l2Fmtdesc{index: index, typ: bufTypeVideoCapture}
		err := w.ioctlLocked(vidiocEnumFmt, unsafe.Pointer(&query))
		if err != nil {
			if errors.Is(err, syscall.EINVAL) {
				return formats, nil
			}
			w.logger.Error("ENUM_FMT failed", "index", index, "error", err)
			return nil, fmt.Errorf("ENUM_FMT index %d: %w", index, err)
		}
		formats = append(formats, query.pixelformat)
	}
}

// GetFormatFrameSizes enumerates the supported frame sizes for a format.
// Stepwise and continuous ranges are reduced to the maximum size plus the
// nearest stepwise matches to a set of standard sizes.
func (w *Wrapper) GetFormatFrameSizes(pixelFormat uint32) ([]FrameSize, error) {
	query := v4l2Frmsizeenum{pixelFormat: pixelFormat}
	if err := w.ioctlLocked(vidiocEnumFramesizes, unsafe.Pointer(&query)); err != nil {
		w.logger.Error("ENUM_FRAMESIZES failed", "error", err)
		return nil, fmt.Errorf("ENUM_FRAMESIZES: %w", err)
	}

	seen := make(map[FrameSize]struct{})
	var sizes []FrameSize
	add := func(size FrameSize) {
		if _, ok := seen[size]; !ok {
			seen[size] = struct{}{}
			sizes = append(sizes, size)
		}
	}

	if query.typ == FrmsizeTypeDiscrete {
		// Discrete: enumerate all sizes. Assuming a driver with discrete
		// frame sizes has a reasonable number of them.
		for {
			add(FrameSize{query.discrete.width, query.discrete.height})
			query.index++
			err := w.ioctlLocked(vidiocEnumFramesizes, unsafe.Pointer(&query))
			if err != nil {
				if errors.Is(err, syscall.EINVAL) {
					break
				}
				w.logger.Error("ENUM_FRAMESIZES failed", "index", query.index, "error", err)
				return nil, fmt.Errorf("ENUM_FRAMESIZES index %d: %w", query.index, err)
			}
		}
		return sizes, nil
	}

	// Continuous/stepwise: fully listing every possible size could produce
	// far too many entries. Report the maximum plus the closest supported
	// match to each standard size, rounding up.
	stepwise := query.stepwise()
	add(FrameSize{stepwise.maxWidth, stepwise.maxHeight})
	for _, desired := range standardSizes {
		if desired.Width < stepwise.minWidth || desired.Height < stepwise.minHeight {
			continue
		}
		if desired.Width > stepwise.maxWidth && desired.Height > stepwise.maxHeight {
			continue
		}
		widthSteps := (desired.Width - stepwise.minWidth + stepwise.stepWidth - 1) /
			stepwise.stepWidth
		heightSteps := (desired.Height - stepwise.minHeight + stepwise.stepHeight - 1) /
			stepwise.stepHeight
		add(FrameSize{
			stepwise.minWidth + widthSteps*stepwise.stepWidth,
			stepwise.minHeight + heightSteps*stepwise.stepHeight,
		})
	}
	return sizes, nil
}

// fractToNs converts a v4l2 fraction with units of seconds to nanoseconds.
func fractToNs(fract v4l2Fract) int64 {
	return (1000000000 * int64(fract.numerator)) / int64(fract.denominator)
}

// GetFormatFrameDurationRange returns the minimum and maximum frame
// duration, in nanoseconds, for a format at a given size.
func (w *Wrapper) GetFormatFrameDurationRange(pixelFormat uint32, size FrameSize) (int64, int64, error) {
	query := v4l2Frmivalenum{
		pixelFormat: pixelFormat,
		width:       size.Width,
		height:      size.Height,
	}
	if err := w.ioctlLocked(vidiocEnumFrameintervals, unsafe.Pointer(&query)); err != nil {
		w.logger.Error("ENUM_FRAMEINTERVALS failed", "error", err)
		return 0, 0, fmt.Errorf("ENUM_FRAMEINTERVALS: %w", err)
	}

	if query.typ != frmivalTypeDiscrete {
		// Continuous/stepwise: simply convert the given min and max.
		stepwise := query.stepwise()
		return fractToNs(stepwise.min), fractToNs(stepwise.max), nil
	}

	var minDur, maxDur int64
	first := true
	for {
		duration := fractToNs(query.discrete)
		if first || duration < minDur {
			minDur = duration
		}
		if first || duration > maxDur {
			maxDur = duration
		}
		first = false
		query.index++
		err := w.ioctlLocked(vidiocEnumFrameintervals, unsafe.Pointer(&query))
		if err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			w.logger.Error("ENUM_FRAMEINTERVALS failed", "index", query.index, "error", err)
			return 0, 0, fmt.Errorf("ENUM_FRAMEINTERVALS index %d: %w", query.index, err)
		}
	}
	return minDur, maxDur, nil
}

func (w *Wrapper) currentFormat() *StreamFormat {
	w.deviceLock.Lock()
	defer w.deviceLock.Unlock()
	return w.format
}

// MaxBuffers returns the buffer count reported by the driver for the
// current format, or 0 when no format has been set.
func (w *Wrapper) MaxBuffers() uint32 {
	w.deviceLock.Lock()
	defer w.deviceLock.Unlock()
	return w.maxBuffers
}

// SetFormat negotiates the capture format. If the device is already in
// the requested configuration no ioctl is issued. The driver must accept
// the format exactly as requested; any coercion is an error. On success
// buffers are (re)negotiated and the driver's max buffer count returned.
func (w *Wrapper) SetFormat(desired StreamFormat) (uint32, error) {
	if current := w.currentFormat(); current != nil && current.sameConfig(desired) {
		w.logger.Debug("Already in correct format, skipping format setting")
		return w.MaxBuffers(), nil
	}

	request := v4l2Format{typ: bufTypeVideoCapture}
	request.pix.width = desired.Width
	request.pix.height = desired.Height
	request.pix.pixelformat = desired.PixelFormat
	request.pix.field = fieldNone

	if err := w.ioctlLocked(vidiocSFmt, unsafe.Pointer(&request)); err != nil {
		w.logger.Error("S_FMT failed", "error", err)
		return 0, fmt.Errorf("S_FMT: %w", err)
	}

	// Check that the driver actually set the requested values.
	if request.pix.width != desired.Width ||
		request.pix.height != desired.Height ||
		request.pix.pixelformat != desired.PixelFormat {
		w.logger.Error("Device doesn't support desired stream configuration",
			"requested_width", desired.Width, "actual_width", request.pix.width,
			"requested_height", desired.Height, "actual_height", request.pix.height)
		return 0, fmt.Errorf("driver coerced requested format: %w", syscall.EINVAL)
	}

	w.deviceLock.Lock()
	w.format = &StreamFormat{
		PixelFormat:  request.pix.pixelformat,
		Width:        request.pix.width,
		Height:       request.pix.height,
		BytesPerLine: request.pix.bytesperline,
		SizeImage:    request.pix.sizeimage,
	}
	w.deviceLock.Unlock()

	// Format changed, set up new buffers.
	if err := w.setupBuffers(); err != nil {
		w.logger.Error("Failed to set up buffers for new format", "error", err)
		return 0, err
	}
	return w.MaxBuffers(), nil
}

// setupBuffers switches the device into user-pointer buffer mode. Only a
// single buffer is requested because V4L2 streams one request at a time
// through this HAL.
func (w *Wrapper) setupBuffers() error {
	if w.currentFormat() == nil {
		return fmt.Errorf("stream format must be set before setting up buffers: %w", ErrNotConnected)
	}

	request := v4l2Requestbuffers{
		count:  1,
		typ:    bufTypeVideoCapture,
		memory: memoryUserPtr,
	}
	err := w.ioctlLocked(vidiocReqbufs, unsafe.Pointer(&request))
	// REQBUFS releases all queued buffers back to the user.
	unlockErr := w.locker.UnlockAll()
	if err != nil {
		w.logger.Error("REQBUFS failed", "error", err)
		return fmt.Errorf("REQBUFS: %w", err)
	}
	if unlockErr != nil {
		w.logger.Error("Failed to unlock buffers during buffer setup", "error", unlockErr)
		return unlockErr
	}

	if request.count < 1 {
		w.logger.Error("REQBUFS claims it can't handle any buffers")
		return fmt.Errorf("REQBUFS returned zero buffers: %w", syscall.ENODEV)
	}
	w.deviceLock.Lock()
	w.maxBuffers = request.count
	w.deviceLock.Unlock()
	return nil
}

// EnqueueBuffer locks a graphics buffer for writing and queues it to the
// device. The lock is released if the queue ioctl fails.
func (w *Wrapper) EnqueueBuffer(handle any) error {
	format := w.currentFormat()
	if format == nil {
		return fmt.Errorf("stream format must be set before enqueuing buffers: %w", ErrNotConnected)
	}

	deviceBuffer := v4l2Buffer{typ: bufTypeVideoCapture, index: 0}

	// QUERYBUF validates that the buffer/device are in good shape and
	// fills out the remaining fields.
	if err := w.ioctlLocked(vidiocQuerybuf, unsafe.Pointer(&deviceBuffer)); err != nil {
		w.logger.Error("QUERYBUF failed", "error", err)
		return fmt.Errorf("QUERYBUF: %w", err)
	}
	deviceBuffer.memory = memoryUserPtr

	userptr, length, err := w.locker.Lock(handle, format.BytesPerLine)
	if err != nil {
		w.logger.Error("Failed to lock buffer", "error", err)
		return err
	}
	deviceBuffer.setUserptr(userptr)
	deviceBuffer.length = length

	if err := w.ioctlLocked(vidiocQbuf, unsafe.Pointer(&deviceBuffer)); err != nil {
		w.logger.Error("QBUF failed", "error", err)
		if unlockErr := w.locker.Unlock(userptr); unlockErr != nil {
			w.logger.Error("Failed to unlock buffer after QBUF failure", "error", unlockErr)
		}
		return fmt.Errorf("QBUF: %w", err)
	}
	return nil
}

// DequeueBuffer blocks until the driver hands back a filled buffer, then
// unlocks the corresponding graphics buffer.
func (w *Wrapper) DequeueBuffer() (*DequeuedFrame, error) {
	if w.currentFormat() == nil {
		return nil, fmt.Errorf("stream format must be set before dequeueing buffers: %w", ErrNotConnected)
	}

	buffer := v4l2Buffer{typ: bufTypeVideoCapture, memory: memoryUserPtr}
	if err := w.ioctlLocked(vidiocDqbuf, unsafe.Pointer(&buffer)); err != nil {
		w.logger.Error("DQBUF failed", "error", err)
		return nil, fmt.Errorf("DQBUF: %w", err)
	}

	if err := w.locker.Unlock(buffer.userptr()); err != nil {
		w.logger.Error("Failed to unlock buffer after dequeue", "error", err)
		return nil, err
	}

	return &DequeuedFrame{
		Index:     buffer.index,
		BytesUsed: buffer.bytesused,
		Sequence:  buffer.sequence,
		UserPtr:   buffer.userptr(),
	}, nil
}

func (w *Wrapper) supportsExtendedQuery() bool {
	w.deviceLock.Lock()
	defer w.deviceLock.Unlock()
	return w.extendedQuerySupported
}

// DevicePath returns the path this wrapper was created for.
func (w *Wrapper) DevicePath() string {
	return w.devicePath
}
