package modem

import (
	"context"

	"github.com/i4energy/espuplink/at"
)

// ConnectWifi factory-resets the module, puts it in station mode and joins
// the given access point. It reports, and records, whether the module
// answered OK within the wait timeout.
//
// Every command is sent regardless of how the previous one went. A failed
// join is not retried; call ConnectWifi again.
func (m *Modem) ConnectWifi(ctx context.Context, ssid, password string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.logger.Warn("Wifi join skipped", "reason", ErrAlreadyClosed)
		return false
	}

	m.wifiConnected.Store(false)
	m.serviceConnected.Store(false)

	m.send(at.CmdRestore, m.resetSettle)
	m.send(at.CmdReset, m.resetSettle)
	m.send(at.CmdStationMode, m.settleDelay)
	m.send(at.JoinAP(ssid, password), m.settleDelay)

	connected := m.waitFor(ctx, at.OK) == Matched
	m.wifiConnected.Store(connected)

	if connected {
		m.logger.Info("Joined wifi network", "ssid", ssid)
	} else {
		m.logger.Warn("Failed to join wifi network", "ssid", ssid)
	}
	return connected
}
