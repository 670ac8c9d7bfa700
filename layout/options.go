package layout

import "fmt"

// Config holds the construction time settings of a Registry.
type Config struct {
	// EntityStart is the id of the root entity type.
	EntityStart uint16

	// ComponentStart is the id of the first registered component.
	ComponentStart uint16

	// OffsetBits is the width of a stored offset, one of 8, 16 or 32.
	// Entities with components beyond the representable range
	// fail to bind.
	OffsetBits int
}

func DefaultConfig() Config {
	return Config{
		OffsetBits: 16,
	}
}

// Option customizes the Config of a Registry.
type Option func(*Config)

func WithEntityStart(start uint16) Option {
	return func(c *Config) {
		c.EntityStart = start
	}
}

func WithComponentStart(start uint16) Option {
	return func(c *Config) {
		c.ComponentStart = start
	}
}

// WithOffsetBits sets the width of stored offsets. It panics on widths
// other than 8, 16 or 32.
func WithOffsetBits(bits int) Option {
	if bits != 8 && bits != 16 && bits != 32 {
		panic(fmt.Sprintf("layout: WithOffsetBits(%d)", bits))
	}

	return func(c *Config) {
		c.OffsetBits = bits
	}
}
