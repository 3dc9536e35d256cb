// Package channel maintains the outbound session to the lighting-control
// server and carries pattern enable/disable commands for reader slots.
//
// Delivery is best-effort and at-most-once: a command sent while the session
// is down fails immediately and is never queued, and a failed send is never
// retried. Only the connection itself is retried, one attempt per call to
// Reconnect, so the poll cycle owns the retry cadence.
package channel

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned by Send while the session is down.
var ErrNotConnected = errors.New("channel: not connected")

// Config holds lighting-control server connection settings.
type Config struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Prefix string `yaml:"prefix"` // leading topic segment, e.g. "chromatik"

	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`

	ConnectTimeoutMS int `yaml:"connect_timeout_ms"`
	SendTimeoutMS    int `yaml:"send_timeout_ms"`
}

// Client is the command session. All methods are safe for the single poll
// goroutine plus the transport's own callbacks.
type Client struct {
	client paho.Client
	prefix string

	connectTimeout time.Duration
	sendTimeout    time.Duration

	mu        sync.Mutex
	connected bool
}

// New builds the session. Automatic reconnection is disabled on purpose:
// the poll cycle controller decides when a reconnect attempt happens.
func New(cfg Config, clientID string) (*Client, error) {
	c := &Client{
		prefix:         cfg.Prefix,
		connectTimeout: 3 * time.Second,
		sendTimeout:    time.Second,
	}
	if cfg.ConnectTimeoutMS > 0 {
		c.connectTimeout = time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond
	}
	if cfg.SendTimeoutMS > 0 {
		c.sendTimeout = time.Duration(cfg.SendTimeoutMS) * time.Millisecond
	}
	if c.prefix == "" {
		c.prefix = "chromatik"
	}

	var broker string
	var tlsConfig *tls.Config

	if cfg.CACert != "" || cfg.ClientCert != "" {
		if cfg.Port == 0 {
			cfg.Port = 8883
		}
		broker = fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port)

		var err error
		tlsConfig, err = buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
	} else {
		if cfg.Port == 0 {
			cfg.Port = 1883
		}
		broker = fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetKeepAlive(30 * time.Second).
		SetConnectionLostHandler(c.handleConnectionLost)

	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	c.client = paho.NewClient(opts)
	return c, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		caPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = caPool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Connect makes the initial connection attempt. Same contract as Reconnect.
func (c *Client) Connect() bool {
	return c.Reconnect()
}

// Reconnect makes exactly one connection attempt, bounded by the connect
// timeout. It is an idempotent no-op while already connected, so it is safe
// to call every cycle indefinitely.
func (c *Client) Reconnect() bool {
	if c.Connected() {
		return true
	}

	// A previous attempt that outlived its wait may have landed since.
	if c.client.IsConnectionOpen() {
		c.setConnected(true)
		return true
	}

	token := c.client.Connect()
	if !token.WaitTimeout(c.connectTimeout) {
		return false
	}
	if err := token.Error(); err != nil {
		slog.Debug("channel connect attempt failed", "error", err)
		return false
	}
	c.setConnected(true)
	return true
}

// Send publishes one enable/disable command for a slot's pattern. It fails
// fast while disconnected; a send failure marks the session disconnected and
// the command is not retried.
func (c *Client) Send(slot int, pattern string, enable bool) error {
	if !c.Connected() {
		return ErrNotConnected
	}

	payload := "false"
	if enable {
		payload = "true"
	}

	token := c.client.Publish(c.topic(slot, pattern), 1, false, payload)
	if !token.WaitTimeout(c.sendTimeout) {
		c.setConnected(false)
		return fmt.Errorf("channel: send timed out after %v", c.sendTimeout)
	}
	if err := token.Error(); err != nil {
		c.setConnected(false)
		return fmt.Errorf("channel: send: %w", err)
	}
	return nil
}

// Connected reports the session state as of the last send or reconnect.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close disconnects from the server.
func (c *Client) Close() {
	c.setConnected(false)
	c.client.Disconnect(250)
}

// topic mirrors the lighting server's address space: the slot selects the
// channel, the pattern name selects what to toggle on it.
func (c *Client) topic(slot int, pattern string) string {
	return fmt.Sprintf("%s/channel/%d/pattern/%s/enable", c.prefix, slot, pattern)
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) handleConnectionLost(_ paho.Client, err error) {
	c.setConnected(false)
	slog.Warn("channel connection lost", "error", err)
}
