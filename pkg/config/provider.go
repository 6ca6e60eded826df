package config

import (
	"fmt"
	"time"

	"github.com/chrissnell/suntrack/pkg/pipeline"
	"github.com/chrissnell/suntrack/pkg/solar"
	"github.com/chrissnell/suntrack/pkg/timegrid"
	"github.com/chrissnell/suntrack/pkg/tracker"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetServer() (*ServerData, error)
	GetSites() ([]SiteData, error)

	IsReadOnly() bool
	Close() error
}

// Server defaults
const (
	DefaultListenAddr     = "0.0.0.0"
	DefaultPort           = 8000
	DefaultMaxPoints      = 105120 // one year at 5 minute steps
	DefaultRequestTimeout = "30s"
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Server ServerData `json:"server" yaml:"server"`
	Sites  []SiteData `json:"sites,omitempty" yaml:"sites,omitempty"`
}

// ServerData holds the HTTP server settings
type ServerData struct {
	ListenAddr     string   `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	Port           int      `json:"port,omitempty" yaml:"port,omitempty"`
	Cert           string   `json:"cert,omitempty" yaml:"cert,omitempty"`
	Key            string   `json:"key,omitempty" yaml:"key,omitempty"`
	CORSOrigins    []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
	MaxPoints      int      `json:"max_points,omitempty" yaml:"max_points,omitempty"`
	Workers        int      `json:"workers,omitempty" yaml:"workers,omitempty"`
	RequestTimeout string   `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
	EnableMetrics  bool     `json:"enable_metrics,omitempty" yaml:"enable_metrics,omitempty"`
}

// Timeout parses RequestTimeout
func (s ServerData) Timeout() (time.Duration, error) {
	if s.RequestTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid request_timeout %q: %w", s.RequestTimeout, err)
	}
	return d, nil
}

// SiteData is a named plant preset: location plus tracker geometry.
// Unset optional values take the service defaults.
type SiteData struct {
	Name      string      `json:"name" yaml:"name"`
	Latitude  float64     `json:"latitude" yaml:"latitude"`
	Longitude float64     `json:"longitude" yaml:"longitude"`
	Altitude  *float64    `json:"altitude,omitempty" yaml:"altitude,omitempty"`
	TimeZone  string      `json:"tz,omitempty" yaml:"tz,omitempty"`
	Tracker   TrackerData `json:"tracker,omitempty" yaml:"tracker,omitempty"`
}

// TrackerData holds the tracker geometry of a site
type TrackerData struct {
	AxisTilt      *float64 `json:"axis_tilt,omitempty" yaml:"axis_tilt,omitempty"`
	AxisAzimuth   *float64 `json:"axis_azimuth,omitempty" yaml:"axis_azimuth,omitempty"`
	MaxAngle      *float64 `json:"max_angle,omitempty" yaml:"max_angle,omitempty"`
	RestAngle     *float64 `json:"rest_angle,omitempty" yaml:"rest_angle,omitempty"`
	GCR           *float64 `json:"gcr,omitempty" yaml:"gcr,omitempty"`
	CrossAxisTilt *float64 `json:"cross_axis_tilt,omitempty" yaml:"cross_axis_tilt,omitempty"`
}

// Float returns a pointer to v, for building optional fields
func Float(v float64) *float64 {
	return &v
}

func valueOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

// Site returns the observer location of the preset
func (s SiteData) Site() solar.Site {
	tz := s.TimeZone
	if tz == "" {
		tz = pipeline.DefaultTimeZone
	}
	return solar.Site{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Altitude:  valueOr(s.Altitude, pipeline.DefaultAltitude),
		TimeZone:  tz,
	}
}

// Geometry returns the tracker geometry of the preset
func (s SiteData) Geometry() tracker.Geometry {
	return tracker.Geometry{
		AxisTilt:            valueOr(s.Tracker.AxisTilt, pipeline.DefaultAxisTilt),
		AxisAzimuth:         valueOr(s.Tracker.AxisAzimuth, pipeline.DefaultAxisAzimuth),
		MaxAngle:            valueOr(s.Tracker.MaxAngle, pipeline.DefaultMaxAngle),
		RestAngle:           valueOr(s.Tracker.RestAngle, pipeline.DefaultRestAngle),
		GroundCoverageRatio: valueOr(s.Tracker.GCR, pipeline.DefaultGCR),
		CrossAxisTilt:       valueOr(s.Tracker.CrossAxisTilt, 0),
	}
}

// ApplyDefaults fills unset server values
func (c *ConfigData) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.MaxPoints == 0 {
		c.Server.MaxPoints = DefaultMaxPoints
	}
	if c.Server.Workers == 0 {
		c.Server.Workers = 1
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = DefaultRequestTimeout
	}
}

// Validate reports the first problem found in the configuration
func (c *ConfigData) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	if (c.Server.Cert == "") != (c.Server.Key == "") {
		return fmt.Errorf("server: cert and key must be set together")
	}
	if c.Server.MaxPoints < 0 || c.Server.MaxPoints > timegrid.MaxInstants {
		return fmt.Errorf("server: max_points must be within [0, %d]", timegrid.MaxInstants)
	}
	if c.Server.Workers < 0 {
		return fmt.Errorf("server: workers must not be negative")
	}
	if _, err := c.Server.Timeout(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	seen := make(map[string]bool)
	for i, site := range c.Sites {
		if site.Name == "" {
			return fmt.Errorf("site %d: name is required", i)
		}
		if seen[site.Name] {
			return fmt.Errorf("site %s: duplicate name", site.Name)
		}
		seen[site.Name] = true

		if err := site.Site().Validate(); err != nil {
			return fmt.Errorf("site %s: %w", site.Name, err)
		}
		if _, err := timegrid.LoadLocation(site.Site().TimeZone); err != nil {
			return fmt.Errorf("site %s: %w", site.Name, err)
		}
		if err := site.Geometry().Validate(); err != nil {
			return fmt.Errorf("site %s: %w", site.Name, err)
		}
	}
	return nil
}

// FindSite returns the site preset with the given name
func (c *ConfigData) FindSite(name string) (SiteData, bool) {
	for _, s := range c.Sites {
		if s.Name == name {
			return s, true
		}
	}
	return SiteData{}, false
}

// Open returns the provider for backend ("yaml" or "sqlite") reading path
func Open(path, backend string) (ConfigProvider, error) {
	switch backend {
	case "yaml":
		return NewYAMLProvider(path), nil
	case "sqlite":
		p, err := NewSQLiteProvider(path)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		if err := p.InitSchema(); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", backend)
	}
}
