package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
server:
  port: 8080
  cors_origins:
    - https://example.com
  workers: 4
  request_timeout: 10s
  enable_metrics: true
sites:
  - name: fortaleza
    latitude: -3.7
    longitude: -38.5
    altitude: 254
    tz: America/Fortaleza
    tracker:
      max_angle: 60
      gcr: 0.35
  - name: petrolina
    latitude: -9.39
    longitude: -40.5
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestYAMLProvider(t *testing.T) {
	p := NewYAMLProvider(writeFile(t, "config.yaml", sampleYAML))
	defer p.Close()

	cfg, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Workers != 4 || !cfg.Server.EnableMetrics {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if len(cfg.Sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(cfg.Sites))
	}

	g := cfg.Sites[0].Geometry()
	if g.MaxAngle != 60 || g.GroundCoverageRatio != 0.35 || g.AxisAzimuth != 180 {
		t.Errorf("unexpected geometry: %+v", g)
	}
	site := cfg.Sites[1].Site()
	if site.Altitude != 254 || site.TimeZone != "America/Fortaleza" {
		t.Errorf("expected defaults for an unset altitude and zone, got %+v", site)
	}

	if !p.IsReadOnly() {
		t.Errorf("YAML provider should be read-only")
	}
	sites, err := p.GetSites()
	if err != nil || len(sites) != 2 {
		t.Errorf("GetSites = %d, %v", len(sites), err)
	}
}

func TestYAMLProviderRejectsUnknownFields(t *testing.T) {
	p := NewYAMLProvider(writeFile(t, "config.yaml", "server:\n  prot: 80\n"))
	if _, err := p.LoadConfig(); err == nil {
		t.Errorf("expected an error for a misspelled key")
	}

	missing := NewYAMLProvider(filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := missing.GetServer(); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &ConfigData{}
	cfg.ApplyDefaults()

	if cfg.Server.ListenAddr != DefaultListenAddr || cfg.Server.Port != DefaultPort {
		t.Errorf("unexpected listener: %s:%d", cfg.Server.ListenAddr, cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, []string{"*"}) {
		t.Errorf("CORSOrigins = %v, expected [*]", cfg.Server.CORSOrigins)
	}
	if cfg.Server.MaxPoints != 105120 {
		t.Errorf("MaxPoints = %d, expected 105120", cfg.Server.MaxPoints)
	}
	if d, err := cfg.Server.Timeout(); err != nil || d != 30*time.Second {
		t.Errorf("Timeout = %v, %v", d, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := SiteData{Name: "a", Latitude: -3.7, Longitude: -38.5}

	tests := []struct {
		name   string
		config ConfigData
		errMsg string
	}{
		{name: "bad port", config: ConfigData{Server: ServerData{Port: 70000}}, errMsg: "invalid port"},
		{name: "cert without key", config: ConfigData{Server: ServerData{Cert: "c.pem"}}, errMsg: "cert and key"},
		{name: "max_points above the grid ceiling", config: ConfigData{Server: ServerData{MaxPoints: 2000000}}, errMsg: "max_points"},
		{name: "bad timeout", config: ConfigData{Server: ServerData{RequestTimeout: "soon"}}, errMsg: "request_timeout"},
		{name: "unnamed site", config: ConfigData{Sites: []SiteData{{Latitude: 1}}}, errMsg: "name is required"},
		{name: "duplicate site", config: ConfigData{Sites: []SiteData{valid, valid}}, errMsg: "duplicate"},
		{name: "bad latitude", config: ConfigData{Sites: []SiteData{{Name: "x", Latitude: 95}}}, errMsg: "latitude"},
		{name: "bad zone", config: ConfigData{Sites: []SiteData{{Name: "x", TimeZone: "Atlantis/Lost"}}}, errMsg: "time zone"},
		{name: "bad geometry", config: ConfigData{Sites: []SiteData{{Name: "x", Tracker: TrackerData{GCR: Float(-1)}}}}, errMsg: "gcr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if err == nil {
				t.Fatalf("expected an error containing %q", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	yamlCfg, err := NewYAMLProvider(writeFile(t, "config.yaml", sampleYAML)).LoadConfig()
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}

	p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer p.Close()

	if err := p.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	// Applying the schema twice is harmless
	if err := p.InitSchema(); err != nil {
		t.Fatalf("second init schema: %v", err)
	}

	empty, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if empty.Server.Port != 0 || len(empty.Sites) != 0 {
		t.Errorf("expected an empty config, got %+v", empty)
	}

	if err := p.SaveConfig(yamlCfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, yamlCfg) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, yamlCfg)
	}

	if err := p.DeleteSite("petrolina"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := p.DeleteSite("petrolina"); err == nil {
		t.Errorf("expected an error deleting a missing site")
	}
	sites, _ := p.GetSites()
	if len(sites) != 1 || sites[0].Name != "fortaleza" {
		t.Errorf("unexpected sites after delete: %+v", sites)
	}
	if p.IsReadOnly() {
		t.Errorf("SQLite provider should be writable")
	}
}

func TestWriteYAML(t *testing.T) {
	cfg := &ConfigData{Sites: []SiteData{{Name: "a", Latitude: 1, Longitude: 2, Altitude: Float(0)}}}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := WriteYAML(path, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := NewYAMLProvider(path).LoadConfig()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("got %+v, expected %+v", got, cfg)
	}
}

func TestOpen(t *testing.T) {
	y, err := Open(writeFile(t, "config.yaml", sampleYAML), "yaml")
	if err != nil {
		t.Fatalf("open yaml: %v", err)
	}
	if !y.IsReadOnly() {
		t.Errorf("YAML provider should be read-only")
	}

	// A fresh database gets its schema on open
	s, err := Open(filepath.Join(t.TempDir(), "config.db"), "sqlite")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()
	if _, err := s.GetSites(); err != nil {
		t.Errorf("expected the schema to exist: %v", err)
	}

	if _, err := Open("config.toml", "toml"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected an unsupported backend error, got %v", err)
	}
}
