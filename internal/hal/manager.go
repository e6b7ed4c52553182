package hal

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/camhal/camhal/internal/devices"
	"github.com/camhal/camhal/internal/gralloc"
	"github.com/camhal/camhal/pkg/linuxav/v4l2"
)

// Entry pairs a camera with the device it was built from.
type Entry struct {
	Camera *Camera
	Device devices.DeviceInfo
}

// Manager owns the set of cameras exposed by this process, one per
// supported V4L2 capture device. Devices that fail the capability probe
// (no YUV, no JPEG, no YUV rate at or below 15 FPS) are skipped, not
// fatal.
type Manager struct {
	detector devices.Detector
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[int]*Entry
	byDevID map[string]int
	nextID  int
}

// NewManager enumerates the current devices and builds a camera for each
// supported one.
func NewManager(detector devices.Detector) (*Manager, error) {
	m := &Manager{
		detector: detector,
		logger:   slog.With("module", "hal"),
		entries:  make(map[int]*Entry),
		byDevID:  make(map[string]int),
	}

	found, err := detector.FindDevices()
	if err != nil {
		return nil, err
	}
	for _, device := range found {
		m.addDevice(device)
	}
	return m, nil
}

// StartMonitoring follows hotplug events, adding and removing cameras as
// devices come and go.
func (m *Manager) StartMonitoring(ctx context.Context, broadcaster devices.EventBroadcaster) error {
	return m.detector.StartMonitoring(ctx, &managerBroadcaster{manager: m, next: broadcaster})
}

// StopMonitoring stops following hotplug events.
func (m *Manager) StopMonitoring() {
	m.detector.StopMonitoring()
}

func (m *Manager) addDevice(device devices.DeviceInfo) {
	m.mu.Lock()
	if _, present := m.byDevID[device.DeviceID]; present {
		m.mu.Unlock()
		return
	}
	id := m.nextID
	m.nextID++
	m.mu.Unlock()

	wrapper := v4l2.NewWrapper(device.DevicePath, gralloc.New())
	camera, err := NewCamera(id, wrapper)
	if err != nil {
		m.logger.Warn("Skipping unsupported device",
			"path", device.DevicePath, "name", device.DeviceName, "error", err)
		return
	}

	m.mu.Lock()
	m.entries[id] = &Entry{Camera: camera, Device: device}
	m.byDevID[device.DeviceID] = id
	m.mu.Unlock()
	m.logger.Info("Camera registered", "camera", id, "path", device.DevicePath, "name", device.DeviceName)
}

func (m *Manager) removeDevice(device devices.DeviceInfo) {
	m.mu.Lock()
	id, present := m.byDevID[device.DeviceID]
	if !present {
		m.mu.Unlock()
		return
	}
	entry := m.entries[id]
	delete(m.entries, id)
	delete(m.byDevID, device.DeviceID)
	m.mu.Unlock()

	if entry.Camera.Busy() {
		if err := entry.Camera.Close(); err != nil {
			m.logger.Error("Failed to close removed camera", "camera", id, "error", err)
		}
	}
	m.logger.Info("Camera removed", "camera", id, "path", device.DevicePath)
}

// Entries returns the registered cameras ordered by id.
func (m *Manager) Entries() []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Camera.ID() < out[j].Camera.ID() })
	return out
}

// Get returns the camera entry with the given id.
func (m *Manager) Get(id int) (*Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	return entry, ok
}

// managerBroadcaster keeps the manager's camera set in sync before
// forwarding hotplug notifications.
type managerBroadcaster struct {
	manager *Manager
	next    devices.EventBroadcaster
}

func (b *managerBroadcaster) DeviceAdded(device devices.DeviceInfo) {
	b.manager.addDevice(device)
	if b.next != nil {
		b.next.DeviceAdded(device)
	}
}

func (b *managerBroadcaster) DeviceRemoved(device devices.DeviceInfo) {
	b.manager.removeDevice(device)
	if b.next != nil {
		b.next.DeviceRemoved(device)
	}
}
