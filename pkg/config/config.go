// Package config resolves the SIP003 plugin configuration from the environment
// and caches it for the lifetime of the process.
package config

import (
	"maps"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/arkbriar/ssmgr-collector/pkg/env"
)

// Environment variables set by the SIP003 host.
const (
	EnvRemoteHost    = "SS_REMOTE_HOST"
	EnvRemotePort    = "SS_REMOTE_PORT"
	EnvLocalHost     = "SS_LOCAL_HOST"
	EnvLocalPort     = "SS_LOCAL_PORT"
	EnvPluginOptions = "SS_PLUGIN_OPTIONS"
)

// Config is the resolved plugin configuration. It is immutable once returned
// by Resolve or a Store.
type Config struct {
	remoteHost string
	remotePort uint16
	localHost  string
	localPort  uint16

	options map[string]string
}

// RemoteHost returns the address of the remote management host.
func (c *Config) RemoteHost() string { return c.remoteHost }

// RemotePort returns the port of the remote management host.
func (c *Config) RemotePort() uint16 { return c.remotePort }

// LocalHost returns the local bind address.
func (c *Config) LocalHost() string { return c.localHost }

// LocalPort returns the local bind port.
func (c *Config) LocalPort() uint16 { return c.localPort }

// RemoteAddr returns the remote host and port joined as an address.
func (c *Config) RemoteAddr() string {
	return net.JoinHostPort(c.remoteHost, strconv.Itoa(int(c.remotePort)))
}

// LocalAddr returns the local host and port joined as an address.
func (c *Config) LocalAddr() string {
	return net.JoinHostPort(c.localHost, strconv.Itoa(int(c.localPort)))
}

// Option returns the plugin option key and whether it was set.
func (c *Config) Option(key string) (string, bool) {
	v, ok := c.options[key]
	return v, ok
}

// OptionEnabled reports whether the boolean plugin option key is set to a true
// value as understood by strconv.ParseBool.
func (c *Config) OptionEnabled(key string) bool {
	v, ok := c.options[key]
	if !ok {
		return false
	}
	enabled, err := strconv.ParseBool(v)
	return err == nil && enabled
}

// Options returns a copy of all plugin options.
func (c *Config) Options() map[string]string {
	return maps.Clone(c.options)
}

// Resolve reads the configuration from environ without caching. The first
// missing or invalid required variable is returned as an *env.VariableError.
func Resolve(environ env.Environ, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := env.NewAccessor(environ)

	cfg := &Config{options: map[string]string{}}
	var err error

	if cfg.remoteHost, err = a.String(EnvRemoteHost); err != nil {
		return nil, err
	}
	if cfg.remotePort, err = a.Port(EnvRemotePort); err != nil {
		return nil, err
	}
	if cfg.localHost, err = a.String(EnvLocalHost); err != nil {
		return nil, err
	}
	if cfg.localPort, err = a.Port(EnvLocalPort); err != nil {
		return nil, err
	}

	if raw, ok := a.Lookup(EnvPluginOptions); ok {
		logger.Debug("plugin options", zap.String("raw", raw))
		cfg.options = ParsePluginOptions(raw, logger)
	}

	return cfg, nil
}
