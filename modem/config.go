package modem

import (
	"io"
	"log/slog"
	"time"

	"github.com/i4energy/espuplink/at"
)

const (
	// DefaultWaitTimeout is how long a response wait polls before giving up.
	DefaultWaitTimeout = 30 * time.Second
	// DefaultPollInterval is the pause between empty reads while waiting.
	DefaultPollInterval = 10 * time.Millisecond
	// DefaultSettleDelay follows every command unless the flow says otherwise.
	DefaultSettleDelay = 100 * time.Millisecond
	// DefaultResetSettle follows AT+RESTORE and AT+RST.
	DefaultResetSettle = time.Second
	// DefaultFlowPause follows each wait of an upload.
	DefaultFlowPause = 100 * time.Millisecond
)

// Config holds the settings of a Modem. Build one with NewConfigBuilder.
type Config struct {
	dialer       Dialer
	clock        Clock
	logger       *slog.Logger
	waitTimeout  time.Duration
	pollInterval time.Duration
	settleDelay  time.Duration
	resetSettle  time.Duration
	flowPause    time.Duration
	bufferSize   int
}

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.waitTimeout == 0 {
		c.waitTimeout = DefaultWaitTimeout
	}
	if c.pollInterval == 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.settleDelay == 0 {
		c.settleDelay = DefaultSettleDelay
	}
	if c.resetSettle == 0 {
		c.resetSettle = DefaultResetSettle
	}
	if c.flowPause == 0 {
		c.flowPause = DefaultFlowPause
	}
	if c.bufferSize == 0 {
		c.bufferSize = at.DefaultBufferSize
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the Dialer used to reach the module. Required.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithClock replaces the wall clock, mostly for tests.
func (b *ConfigBuilder) WithClock(c Clock) *ConfigBuilder {
	b.config.clock = c
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

func (b *ConfigBuilder) WithWaitTimeout(d time.Duration) *ConfigBuilder {
	b.config.waitTimeout = d
	return b
}

func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.pollInterval = d
	return b
}

func (b *ConfigBuilder) WithSettleDelay(d time.Duration) *ConfigBuilder {
	b.config.settleDelay = d
	return b
}

func (b *ConfigBuilder) WithResetSettle(d time.Duration) *ConfigBuilder {
	b.config.resetSettle = d
	return b
}

func (b *ConfigBuilder) WithFlowPause(d time.Duration) *ConfigBuilder {
	b.config.flowPause = d
	return b
}

// WithBufferSize sets how many trailing bytes of module output are kept
// for matching.
func (b *ConfigBuilder) WithBufferSize(n int) *ConfigBuilder {
	b.config.bufferSize = n
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
