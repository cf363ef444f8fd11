package server

import (
	"fmt"
	"os"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/modelfinder/internal/discovery"
	"github.com/muurk/modelfinder/internal/logging"
	"github.com/muurk/modelfinder/internal/version"
)

// InstanceName returns the mDNS instance name for this server
func (s *Server) InstanceName() string {
	if s.config.Instance != "" {
		return s.config.Instance
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "modelfinder"
	}
	return "modelfinder-" + host
}

// TXTRecords returns the TXT records published with the service
func TXTRecords() []string {
	return []string{
		discovery.TxtPath + "=" + LookupPath,
		discovery.TxtVersion + "=" + version.Version,
	}
}

// advertise registers the lookup service over mDNS
func (s *Server) advertise(port int) error {
	instance := s.InstanceName()
	srv, err := zeroconf.Register(instance, discovery.ServiceType, discovery.ServiceDomain, port, TXTRecords(), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	s.mu.Lock()
	s.mdns = srv
	s.mu.Unlock()

	logging.Info("Advertising over mDNS",
		zap.String("instance", instance),
		zap.String("service", discovery.ServiceType),
		zap.Int("port", port),
	)
	return nil
}
