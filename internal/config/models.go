package config

import (
	"time"

	"github.com/muurk/modelfinder/internal/urls"
)

// CurrentVersion is the config file format version
const CurrentVersion = 1

// Defaults for a fresh configuration
const (
	DefaultTimeoutSeconds     = 10
	DefaultErrorBannerSeconds = 3
	DefaultHistorySize        = 20
	DefaultServerPort         = 8080
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version  int             `yaml:"version"`
	Settings *Settings       `yaml:"settings,omitempty"`
	History  []*HistoryEntry `yaml:"history,omitempty"` // Newest first

	env Environment
}

// Settings represents application-wide preferences.
type Settings struct {
	Endpoint           string          `yaml:"endpoint"`             // Product endpoint URL
	TimeoutSeconds     int             `yaml:"timeout_seconds"`      // HTTP timeout per lookup
	ErrorBannerSeconds int             `yaml:"error_banner_seconds"` // How long the TUI shows an error
	UppercaseInput     bool            `yaml:"uppercase_input"`      // Uppercase serials as they are typed
	HistorySize        int             `yaml:"history_size"`         // Entries kept; 0 disables history
	Server             *ServerSettings `yaml:"server,omitempty"`
}

// ServerSettings configures the lookup server front end.
type ServerSettings struct {
	Host      string `yaml:"host"`      // Listen host (empty = all interfaces)
	Port      int    `yaml:"port"`      // Listen port
	Advertise bool   `yaml:"advertise"` // Announce the server over mDNS
}

// HistoryEntry records one successful lookup.
type HistoryEntry struct {
	Serial     string    `yaml:"serial"`
	Key        string    `yaml:"key"`
	Model      string    `yaml:"model"`
	LookedUpAt time.Time `yaml:"looked_up_at"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:  CurrentVersion,
		Settings: DefaultSettings(),
	}
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Endpoint:           urls.ProductEndpoint,
		TimeoutSeconds:     DefaultTimeoutSeconds,
		ErrorBannerSeconds: DefaultErrorBannerSeconds,
		UppercaseInput:     true,
		HistorySize:        DefaultHistorySize,
		Server: &ServerSettings{
			Port: DefaultServerPort,
		},
	}
}

// Timeout returns the lookup timeout as a duration.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ErrorBannerDuration returns how long an error stays visible.
func (s *Settings) ErrorBannerDuration() time.Duration {
	return time.Duration(s.ErrorBannerSeconds) * time.Second
}

// fillDefaults replaces zero values that would make the settings unusable.
func (s *Settings) fillDefaults() {
	def := DefaultSettings()
	if s.Endpoint == "" {
		s.Endpoint = def.Endpoint
	}
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = def.TimeoutSeconds
	}
	if s.ErrorBannerSeconds <= 0 {
		s.ErrorBannerSeconds = def.ErrorBannerSeconds
	}
	if s.HistorySize < 0 {
		s.HistorySize = 0
	}
	if s.Server == nil {
		s.Server = def.Server
	}
	if s.Server.Port == 0 {
		s.Server.Port = def.Server.Port
	}
}

// AddHistory records a successful lookup at the front of the history,
// dropping an older entry for the same key and trimming to HistorySize.
func (r *Registry) AddHistory(serial, key, model string) {
	if r.Settings == nil {
		r.Settings = DefaultSettings()
	}
	limit := r.Settings.HistorySize
	if limit <= 0 {
		return
	}

	entry := &HistoryEntry{
		Serial:     serial,
		Key:        key,
		Model:      model,
		LookedUpAt: time.Now(),
	}

	history := make([]*HistoryEntry, 0, len(r.History)+1)
	history = append(history, entry)
	for _, e := range r.History {
		if e.Key == key {
			continue
		}
		history = append(history, e)
	}
	if len(history) > limit {
		history = history[:limit]
	}
	r.History = history
}

// ClearHistory removes every history entry.
func (r *Registry) ClearHistory() {
	r.History = nil
}

// RecentModels returns up to n most recent history entries.
func (r *Registry) RecentModels(n int) []*HistoryEntry {
	if n <= 0 || len(r.History) == 0 {
		return nil
	}
	if n > len(r.History) {
		n = len(r.History)
	}
	return r.History[:n]
}
