package modem

import (
	"context"

	"github.com/i4energy/espuplink/at"
)

// ConnectCloudLog opens a TCP connection to host on port 80 and sends a
// ThingSpeak-style update carrying up to eight field values. Missing fields
// are sent as 0; values past the eighth are dropped.
//
// Nothing is sent, and no state changes, unless wifi is connected and
// apiKey is non-empty. Host and key are passed through unescaped.
func (m *Modem) ConnectCloudLog(ctx context.Context, host, apiKey string, fields []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.wifiConnected.Load() || apiKey == "" {
		m.logger.Debug("Cloud log upload skipped",
			"closed", m.closed,
			"wifi_connected", m.wifiConnected.Load(),
			"has_api_key", apiKey != "")
		return
	}

	update, dropped := at.NewCloudLogUpdate(apiKey, fields)
	if dropped > 0 {
		m.logger.Warn("Extra cloud log fields dropped", "dropped", dropped)
	}

	m.upload(ctx, host, update.String())
}

// TriggerWebhook calls the IFTTT Maker webhook for event with a single
// value. The request always goes to maker.ifttt.com.
//
// Nothing is sent, and no state changes, unless wifi is connected and both
// event and key are non-empty.
func (m *Modem) TriggerWebhook(ctx context.Context, event, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.wifiConnected.Load() || event == "" || key == "" {
		m.logger.Debug("Webhook trigger skipped",
			"closed", m.closed,
			"wifi_connected", m.wifiConnected.Load(),
			"has_event", event != "",
			"has_key", key != "")
		return
	}

	trigger := at.WebhookTrigger{Event: event, Key: key, Value: value}
	m.upload(ctx, at.WebhookHost, trigger.String())
}

// upload connects to host and, once connected, pushes request through
// AT+CIPSEND. Both steps record their outcome in the connection flags.
func (m *Modem) upload(ctx context.Context, host, request string) {
	m.serviceConnected.Store(false)
	m.send(at.StartTCP(host, at.HTTPPort), 0)
	connected := m.waitFor(ctx, at.OK) == Matched
	m.serviceConnected.Store(connected)
	m.clock.Sleep(m.flowPause)

	if !connected {
		m.logger.Warn("Failed to connect", "host", host)
		return
	}

	m.lastUploadSuccessful.Store(false)
	m.send(at.SendLength(request), m.settleDelay)
	m.send(request, 0)
	sent := m.waitFor(ctx, at.OK) == Matched
	m.lastUploadSuccessful.Store(sent)
	m.clock.Sleep(m.flowPause)

	if sent {
		m.logger.Info("Request sent", "host", host)
	} else {
		m.logger.Warn("Request not acknowledged", "host", host)
	}
}
