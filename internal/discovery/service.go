package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service represents a SNEP server found on the network
type Service struct {
	// Name is the SNEP service name (e.g., "urn:nfc:sn:snep")
	Name string `json:"name"`

	// SAP is the service access point the server listens on
	SAP int `json:"sap"`

	// MIU is the largest frame the server accepts
	MIU int `json:"miu"`

	// Addr is the address clients dial (e.g., "ws://192.168.1.20:9424/urn:nfc:sn:snep")
	Addr string `json:"addr"`

	// Hostname is the mDNS hostname, empty for etcd entries
	Hostname string `json:"hostname,omitempty"`

	// Metadata contains the remaining mDNS TXT record data
	Metadata map[string]string `json:"metadata,omitempty"`

	// DiscoveredAt is when the service was found
	DiscoveredAt time.Time `json:"-"`
}

// String returns a human-readable string representation of the service
func (s *Service) String() string {
	return fmt.Sprintf("%s (sap %d, miu %d) at %s", s.Name, s.SAP, s.MIU, s.Addr)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Service) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}

// websocketURL builds the address of a WebSocket service
func websocketURL(host string, port int, path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(port)) + path
}
