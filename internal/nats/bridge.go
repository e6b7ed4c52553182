package nats

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/camhal/camhal/internal/events"
)

// Bridge forwards HAL events from the event bus to NATS subjects.
type Bridge struct {
	url      string
	eventBus *events.Bus
	logger   *slog.Logger

	mu     sync.Mutex
	conn   *nats.Conn
	unsubs []func()
}

// NewBridge creates an event-bus-to-NATS bridge.
func NewBridge(url string, eventBus *events.Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		url:      url,
		eventBus: eventBus,
		logger:   logger.With("module", "nats"),
	}
}

// Start connects to NATS and subscribes to the event bus. If the first
// connection attempt fails, Start returns the error. Once connected, a
// lost connection is retried forever in the background; events published
// while disconnected are dropped.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := nats.Connect(b.url,
		nats.Name("camhal-bridge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}
	b.conn = conn
	b.logger.Info("NATS bridge connected", "url", b.url)

	b.unsubs = append(b.unsubs,
		b.eventBus.Subscribe(func(e events.ShutterEvent) {
			b.publish(SubjectShutter(e.CameraID), e)
		}),
		b.eventBus.Subscribe(func(e events.CaptureResultEvent) {
			b.publish(SubjectResult(e.CameraID), e)
		}),
		b.eventBus.Subscribe(func(e events.RequestErrorEvent) {
			b.publish(SubjectError(e.CameraID), e)
		}),
		b.eventBus.Subscribe(func(e events.DeviceAddedEvent) {
			b.publish(SubjectDeviceAdded(), e)
		}),
		b.eventBus.Subscribe(func(e events.DeviceRemovedEvent) {
			b.publish(SubjectDeviceRemoved(), e)
		}),
	)
	return nil
}

func (b *Bridge) publish(subject string, payload any) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil || !conn.IsConnected() {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("Failed to marshal event", "subject", subject, "error", err)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		b.logger.Warn("Failed to publish event", "subject", subject, "error", err)
	}
}

// Stop unsubscribes from the bus and drains the connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}
