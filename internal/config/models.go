package config

import (
	"fmt"
	"strings"

	"github.com/muurk/snepd/internal/logging"
	"github.com/muurk/snepd/internal/snep"
)

// Transport names
const (
	TransportWebSocket = "websocket"
	TransportMemory    = "memory"
)

// Advertisement mechanisms
const (
	AdvertiseNone = "none"
	AdvertiseMDNS = "mdns"
	AdvertiseEtcd = "etcd"
)

// DefaultListen is the WebSocket listen address
const DefaultListen = ":9424"

// ServerConfig represents the server configuration file. The same keys are
// used for YAML and TOML files.
type ServerConfig struct {
	ServiceName    string   `yaml:"service_name" toml:"service_name"`
	SAP            int      `yaml:"sap" toml:"sap"`
	MIU            int      `yaml:"miu" toml:"miu"`                         // Local MIU announced to peers
	FragmentLength int      `yaml:"fragment_length" toml:"fragment_length"` // 0 = peer MIU
	Backlog        int      `yaml:"backlog" toml:"backlog"`
	MaxMessageSize int      `yaml:"max_message_size" toml:"max_message_size"`
	Handshake      bool     `yaml:"handshake" toml:"handshake"`
	MaxConnections int      `yaml:"max_connections" toml:"max_connections"` // 0 = unlimited
	Listen         string   `yaml:"listen" toml:"listen"`
	Transport      string   `yaml:"transport" toml:"transport"`
	LogLevel       string   `yaml:"log_level,omitempty" toml:"log_level,omitempty"`
	Advertise      string   `yaml:"advertise" toml:"advertise"`
	EtcdEndpoints  []string `yaml:"etcd_endpoints,omitempty" toml:"etcd_endpoints,omitempty"`
	InboxSize      int      `yaml:"inbox_size" toml:"inbox_size"`
	RateLimit      float64  `yaml:"rate_limit" toml:"rate_limit"` // Requests per second, 0 = unlimited
	RateBurst      int      `yaml:"rate_burst" toml:"rate_burst"`
}

// Default returns the configuration of a standard SNEP default server
// listening for WebSocket connections.
func Default() *ServerConfig {
	return &ServerConfig{
		ServiceName:    snep.DefaultServiceName,
		SAP:            snep.DefaultSAP,
		MIU:            snep.DefaultMIU,
		Backlog:        snep.DefaultBacklog,
		MaxMessageSize: snep.DefaultMaxMessageSize,
		Handshake:      true,
		Listen:         DefaultListen,
		Transport:      TransportWebSocket,
		Advertise:      AdvertiseNone,
		InboxSize:      64,
		RateBurst:      10,
	}
}

// Validate checks field ranges and combinations
func (c *ServerConfig) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.ServiceName) == "" {
		add("service_name must not be empty")
	}
	if c.SAP < 0 || c.SAP > 63 {
		add("sap %d out of range 0-63", c.SAP)
	}
	if c.MIU <= 0 {
		add("miu must be positive, got %d", c.MIU)
	}
	if c.FragmentLength < 0 {
		add("fragment_length must not be negative")
	}
	if c.Backlog < 0 {
		add("backlog must not be negative")
	}
	if c.MaxMessageSize < 0 {
		add("max_message_size must not be negative")
	}
	if c.MaxConnections < 0 {
		add("max_connections must not be negative")
	}
	if c.InboxSize < 0 {
		add("inbox_size must not be negative")
	}
	if c.RateLimit < 0 {
		add("rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		add("rate_burst must be at least 1 when rate_limit is set")
	}

	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			add("log_level: %v", err)
		}
	}

	switch c.Transport {
	case TransportWebSocket:
		if c.Listen == "" {
			add("listen is required for the websocket transport")
		}
	case TransportMemory:
	default:
		add("unknown transport %q (expected %s or %s)", c.Transport, TransportWebSocket, TransportMemory)
	}

	switch c.Advertise {
	case "", AdvertiseNone:
	case AdvertiseMDNS:
		if c.Transport != TransportWebSocket {
			add("mdns advertisement requires the websocket transport")
		}
	case AdvertiseEtcd:
		if len(c.EtcdEndpoints) == 0 {
			add("etcd advertisement requires etcd_endpoints")
		}
	default:
		add("unknown advertise %q (expected none, mdns or etcd)", c.Advertise)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SnepConfig returns the protocol settings for snep.New
func (c *ServerConfig) SnepConfig() snep.Config {
	addr := ""
	if c.Transport == TransportWebSocket {
		addr = c.Listen
	}
	return snep.Config{
		ServiceName:    c.ServiceName,
		SAP:            c.SAP,
		MIU:            c.MIU,
		Backlog:        c.Backlog,
		Address:        addr,
		FragmentLength: c.FragmentLength,
		MaxMessageSize: c.MaxMessageSize,
		Handshake:      c.Handshake,
		MaxConnections: c.MaxConnections,
	}
}
