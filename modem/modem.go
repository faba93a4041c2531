package modem

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i4energy/espuplink/at"
)

// Modem drives an ESP8266 Wi-Fi module over its AT command interface and
// records the outcome of the last join, connect and upload.
//
// Every flow runs synchronously on the caller's goroutine. Flows are
// serialized internally; the accessors may be called from any goroutine at
// any time.
type Modem struct {
	// transport provides the physical connection to the module
	transport Transport
	clock     Clock
	logger    *slog.Logger

	waitTimeout  time.Duration
	pollInterval time.Duration
	settleDelay  time.Duration
	resetSettle  time.Duration
	flowPause    time.Duration

	// mu serializes flows; it guards buf, chunk and closed
	mu sync.Mutex
	// buf keeps the tail of everything the module sent, across waits
	buf    *at.RollingBuffer
	chunk  []byte
	closed bool

	wifiConnected        atomic.Bool
	serviceConnected     atomic.Bool
	lastUploadSuccessful atomic.Bool
}

// State is a snapshot of the connection flags.
type State struct {
	WifiConnected        bool `json:"wifi_connected"`
	CloudLogConnected    bool `json:"cloudlog_connected"`
	LastUploadSuccessful bool `json:"last_upload_successful"`
}

// New creates a Modem with the given configuration and opens its
// transport. The module itself is not touched until the first flow runs.
func New(ctx context.Context, config Config) (*Modem, error) {
	if config.dialer == nil {
		return nil, ErrNoDialer
	}
	config.setDefaults()

	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	return &Modem{
		transport:    transport,
		clock:        config.clock,
		logger:       config.logger,
		waitTimeout:  config.waitTimeout,
		pollInterval: config.pollInterval,
		settleDelay:  config.settleDelay,
		resetSettle:  config.resetSettle,
		flowPause:    config.flowPause,
		buf:          at.NewRollingBuffer(config.bufferSize),
		chunk:        make([]byte, 256),
	}, nil
}

// Close releases the transport. Flows called afterwards do nothing.
func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrAlreadyClosed
	}
	m.closed = true

	return m.transport.Close()
}

// Wait blocks for d. Non-positive durations return immediately.
func (m *Modem) Wait(d time.Duration) {
	if d > 0 {
		m.clock.Sleep(d)
	}
}

// IsWifiConnected reports whether the last ConnectWifi succeeded.
func (m *Modem) IsWifiConnected() bool {
	return m.wifiConnected.Load()
}

// IsCloudLogConnected reports whether the last upload or webhook call
// managed to open its TCP connection.
func (m *Modem) IsCloudLogConnected() bool {
	return m.serviceConnected.Load()
}

// IsLastUploadSuccessful reports whether the module acknowledged the last
// request it was asked to send.
func (m *Modem) IsLastUploadSuccessful() bool {
	return m.lastUploadSuccessful.Load()
}

// State returns the three connection flags as one snapshot.
func (m *Modem) State() State {
	return State{
		WifiConnected:        m.IsWifiConnected(),
		CloudLogConnected:    m.IsCloudLogConnected(),
		LastUploadSuccessful: m.IsLastUploadSuccessful(),
	}
}
