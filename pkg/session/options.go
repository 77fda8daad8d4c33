package session

import (
	"time"

	"github.com/mcuadros/go-defaults"
)

// Options configures a Session.
type Options struct {
	// Debug enables tracing of every platform round-trip at debug level.
	Debug bool `yaml:"debug"`

	// ConnectTimeout bounds the platform connect request.
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`

	// ScanServices is used when QueryAdapterState auto-starts discovery.
	ScanServices []string `yaml:"scan_services"`
}

// DefaultOptions returns Options with every default applied.
func DefaultOptions() *Options {
	opts := &Options{}
	defaults.SetDefaults(opts)
	return opts
}

// withDefaults returns a copy of o with zero fields defaulted.
func (o *Options) withDefaults() Options {
	if o == nil {
		return *DefaultOptions()
	}
	c := *o
	c.ScanServices = append([]string(nil), o.ScanServices...)
	if c.ConnectTimeout < 0 {
		c.ConnectTimeout = 0
	}
	defaults.SetDefaults(&c)
	return c
}
