package at

import (
	"time"
)

// Config holds the capability set connecting a Client to its transport and
// URC configuration.
type Config struct {
	// Dialer opens the transport during New. Required.
	Dialer Dialer
	// URCTable is the ordered list of recognizable unsolicited result
	// codes. Lookup is first match wins, in table order.
	URCTable []URC
	// URCBufSize is the capacity of the URC scratch buffer. An
	// accumulation that reaches this size without a terminator is
	// discarded.
	URCBufSize int
	// URCTimeout is the quiet period after which a partial URC
	// accumulation is considered stale and discarded.
	URCTimeout time.Duration
	// PollInterval is the receiver loop's pause between drain cycles.
	PollInterval time.Duration
	// Debug receives protocol traces (sent lines, matched responses,
	// discarded URCs). Nil selects a no-op sink.
	Debug func(format string, args ...any)
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.URCBufSize == 0 {
		c.URCBufSize = 128
	}
	if c.URCTimeout == 0 {
		c.URCTimeout = 3 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.Debug == nil {
		c.Debug = func(string, ...any) {}
	}
}

// ConfigBuilder assembles a Config incrementally.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the transport dialer.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

// WithURC appends entries to the URC table, preserving order.
func (b *ConfigBuilder) WithURC(urcs ...URC) *ConfigBuilder {
	b.config.URCTable = append(b.config.URCTable, urcs...)
	return b
}

// WithURCBufferSize sets the URC scratch buffer capacity.
func (b *ConfigBuilder) WithURCBufferSize(n int) *ConfigBuilder {
	b.config.URCBufSize = n
	return b
}

// WithURCTimeout sets the stale-accumulation quiet period.
func (b *ConfigBuilder) WithURCTimeout(d time.Duration) *ConfigBuilder {
	b.config.URCTimeout = d
	return b
}

// WithPollInterval sets the receiver loop's drain cycle pause.
func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.PollInterval = d
	return b
}

// WithDebug sets the protocol trace sink.
func (b *ConfigBuilder) WithDebug(debug func(format string, args ...any)) *ConfigBuilder {
	b.config.Debug = debug
	return b
}

// Build validates the assembled Config and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	b.config.setDefaults()
	return b.config, nil
}
