package host

import (
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/http2"
	"gopkg.in/yaml.v3"

	"github.com/stealthrocket/offcraft/offchain"
)

const (
	// defaultRequestTimeout is the host-side time limit for a request
	// once it has been dispatched; requests exceeding it report the
	// Timeout status to waiters.
	defaultRequestTimeout = offchain.Duration(60_000)

	// defaultMaxConcurrentRequests bounds the number of requests in
	// flight at the same time across one API instance.
	defaultMaxConcurrentRequests = 8

	// defaultMaxResponseSize bounds how much of a response body the
	// host retains for the worker to read.
	defaultMaxResponseSize = 10 << 20
)

// Config carries the tunables of the host HTTP backend. Time spans are
// expressed in milliseconds, like every deadline crossing the
// capability boundary.
type Config struct {
	// RequestTimeout is the host-side time limit per request,
	// independent of any deadline supplied by the worker.
	RequestTimeout offchain.Duration `yaml:"request_timeout"`

	// MaxConcurrentRequests bounds in-flight requests; dispatches
	// beyond the bound wait for a slot.
	MaxConcurrentRequests int64 `yaml:"max_concurrent_requests"`

	// MaxResponseSize truncates response bodies beyond this many
	// bytes.
	MaxResponseSize int64 `yaml:"max_response_size"`

	// RequestsPerSecond rate-limits request dispatches; zero means
	// unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// DisableCompression turns off transparent gzip decompression of
	// response bodies.
	DisableCompression bool `yaml:"disable_compression"`
}

// DefaultConfig is the default host configuration.
func DefaultConfig() *Config {
	return &Config{
		RequestTimeout:        defaultRequestTimeout,
		MaxConcurrentRequests: defaultMaxConcurrentRequests,
		MaxResponseSize:       defaultMaxResponseSize,
	}
}

// ReadConfig reads and parses a yaml configuration, rejecting unknown
// fields. Fields left unset keep their default values.
func ReadConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil {
		return nil, err
	}
	return c, nil
}

// newTransport constructs the http.Transport used by the backend.
//
// Automatic decompression by the transport is always disabled: when
// compression is enabled the backend negotiates and decompresses gzip
// itself so that truncation by MaxResponseSize applies to the decoded
// bytes.
func (c *Config) newTransport() (*http.Transport, error) {
	t := &http.Transport{
		MaxConnsPerHost:    int(c.MaxConcurrentRequests),
		DisableCompression: true,
	}
	if err := http2.ConfigureTransport(t); err != nil {
		return nil, fmt.Errorf("configuring http/2 transport: %w", err)
	}
	return t, nil
}
