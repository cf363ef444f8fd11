package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Server represents a modelfinder server found on the network
type Server struct {
	// Instance is the advertised instance name (e.g., "modelfinder-studio")
	Instance string

	// Hostname is the mDNS hostname (e.g., "studio.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the HTTP port the server listens on
	Port int

	// Metadata contains the mDNS TXT record data
	// Fields: "path=/api/v1/lookup", "version=1.2.0"
	Metadata map[string]string

	// DiscoveredAt is when the server was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the server
func (s *Server) String() string {
	return fmt.Sprintf("modelfinder server %s (%s) at %s", s.Instance, s.Hostname, s.Address())
}

// Address returns host:port, bracketing IPv6 addresses
func (s *Server) Address() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// BaseURL returns the HTTP base URL for the server
func (s *Server) BaseURL() string {
	return "http://" + s.Address()
}

// LookupURL returns the advertised lookup API URL
func (s *Server) LookupURL() string {
	path := s.GetMetadata(TxtPath)
	if path == "" {
		path = DefaultLookupPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.BaseURL() + path
}

// Version returns the advertised server version, or "unknown"
func (s *Server) Version() string {
	if v := s.GetMetadata(TxtVersion); v != "" {
		return v
	}
	return "unknown"
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Server) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
