package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/muurk/tramesniff/internal/session"
)

// Registry represents the entire user configuration file.
// This stores application preferences and named sniff profiles.
type Registry struct {
	Version     int                            `yaml:"version"`
	Preferences *Preferences                   `yaml:"preferences,omitempty"`
	Profiles    map[string]*session.PortConfig `yaml:"profiles,omitempty"` // Keyed by profile name
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultPort          string `yaml:"default_port,omitempty"`  // Serial device used when --port is omitted
	DefaultProfile       string `yaml:"default_profile,omitempty"`
	DatabasePath         string `yaml:"database_path,omitempty"` // Empty means tramesniff.db in the config directory
	AutoStop             bool   `yaml:"auto_stop"`               // Stop listening after InactivityTimeoutSec without data
	InactivityTimeoutSec int    `yaml:"inactivity_timeout"`      // Seconds
	HandshakeTimeoutSec  int    `yaml:"handshake_timeout"`       // Seconds
	StrictHandshake      bool   `yaml:"strict_handshake"`        // Abort instead of listening when the device never reports ready
	LinkBaud             int    `yaml:"link_baud"`               // Host link speed
	FeedPort             int    `yaml:"feed_port"`               // WebSocket feed port
	AdvertiseFeed        bool   `yaml:"advertise_feed"`          // Announce the feed over mDNS
}

// DefaultFeedPort matches the feed server default.
const DefaultFeedPort = 8765

// databaseFile is the store file name inside the config directory.
const databaseFile = "tramesniff.db"

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoStop:             false,
		InactivityTimeoutSec: int(session.DefaultInactivityTimeout / time.Second),
		HandshakeTimeoutSec:  int(session.DefaultHandshakeTimeout / time.Second),
		LinkBaud:             session.DefaultLinkBaud,
		FeedPort:             DefaultFeedPort,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Preferences: defaultPreferences(),
		Profiles:    make(map[string]*session.PortConfig),
	}
}

// InactivityTimeout returns the auto stop window.
func (p *Preferences) InactivityTimeout() time.Duration {
	return time.Duration(p.InactivityTimeoutSec) * time.Second
}

// HandshakeTimeout returns how long to wait for the device to report ready.
func (p *Preferences) HandshakeTimeout() time.Duration {
	return time.Duration(p.HandshakeTimeoutSec) * time.Second
}

// ResolveDatabasePath returns DatabasePath, or the default file in the
// config directory when it is empty.
func (p *Preferences) ResolveDatabasePath() (string, error) {
	if p.DatabasePath != "" {
		return p.DatabasePath, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, databaseFile), nil
}

// SessionConfig builds a session configuration for port from the
// preferences. Zero values fall back to the session defaults.
func (p *Preferences) SessionConfig(port string, sniff session.PortConfig) session.Config {
	return session.Config{
		Port:              port,
		LinkBaud:          p.LinkBaud,
		Sniff:             sniff,
		AutoStop:          p.AutoStop,
		InactivityTimeout: p.InactivityTimeout(),
		HandshakeTimeout:  p.HandshakeTimeout(),
		StrictHandshake:   p.StrictHandshake,
	}
}

// GetProfile retrieves a profile by name.
// Returns nil if the profile doesn't exist in the registry.
func (r *Registry) GetProfile(name string) *session.PortConfig {
	return r.Profiles[name]
}

// SetProfile validates cfg and stores it under name.
func (r *Registry) SetProfile(name string, cfg session.PortConfig) error {
	if name == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid profile %q: %w", name, err)
	}
	if r.Profiles == nil {
		r.Profiles = make(map[string]*session.PortConfig)
	}
	r.Profiles[name] = &cfg
	return nil
}

// DeleteProfile removes a profile. It reports whether it existed.
func (r *Registry) DeleteProfile(name string) bool {
	if _, ok := r.Profiles[name]; !ok {
		return false
	}
	delete(r.Profiles, name)
	if r.Preferences != nil && r.Preferences.DefaultProfile == name {
		r.Preferences.DefaultProfile = ""
	}
	return true
}

// ProfileNames returns the profile names in sorted order.
func (r *Registry) ProfileNames() []string {
	names := make([]string, 0, len(r.Profiles))
	for name := range r.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveProfile returns the named profile, the default profile when name is
// empty, or 9600 8N1 when neither is set.
func (r *Registry) ResolveProfile(name string) (session.PortConfig, error) {
	if name == "" && r.Preferences != nil {
		name = r.Preferences.DefaultProfile
	}
	if name == "" {
		return session.DefaultPortConfig(), nil
	}
	p := r.GetProfile(name)
	if p == nil {
		return session.PortConfig{}, fmt.Errorf("profile %q not found", name)
	}
	return *p, nil
}
