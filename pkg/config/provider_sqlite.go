package config

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/chrissnell/suntrack/internal/log"
	"github.com/chrissnell/suntrack/pkg/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// InitSchema brings the database schema up to date
func (s *SQLiteProvider) InitSchema() error {
	m := migrate.NewMigrator(s.db, migrate.NewFSProvider(migrations, "migrations", "config_schema_migrations"))
	pending, err := m.Pending()
	if err != nil {
		return fmt.Errorf("failed to read schema version of %s: %w", s.dbPath, err)
	}
	if len(pending) == 0 {
		return nil
	}

	log.Infow("migrating configuration schema", "path", s.dbPath, "pending", len(pending))
	if err := m.MigrateUp(); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", s.dbPath, err)
	}
	return nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	server, err := s.GetServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	sites, err := s.GetSites()
	if err != nil {
		return nil, fmt.Errorf("failed to load sites: %w", err)
	}
	return &ConfigData{Server: *server, Sites: sites}, nil
}

// GetServer returns the server section; an empty section when none is stored
func (s *SQLiteProvider) GetServer() (*ServerData, error) {
	query := `
		SELECT listen_addr, port, cert, key, cors_origins, max_points,
		       workers, request_timeout, enable_metrics
		FROM server_config
		WHERE id = 1
	`

	var server ServerData
	var listenAddr, cert, key, origins, timeout sql.NullString
	var port, maxPoints, workers sql.NullInt64

	err := s.db.QueryRow(query).Scan(
		&listenAddr, &port, &cert, &key, &origins, &maxPoints,
		&workers, &timeout, &server.EnableMetrics,
	)
	if err == sql.ErrNoRows {
		return &server, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query server config: %w", err)
	}

	server.ListenAddr = listenAddr.String
	server.Port = int(port.Int64)
	server.Cert = cert.String
	server.Key = key.String
	server.MaxPoints = int(maxPoints.Int64)
	server.Workers = int(workers.Int64)
	server.RequestTimeout = timeout.String
	if origins.String != "" {
		server.CORSOrigins = strings.Split(origins.String, ",")
	}
	return &server, nil
}

// GetSites returns the site presets ordered by name
func (s *SQLiteProvider) GetSites() ([]SiteData, error) {
	query := `
		SELECT name, latitude, longitude, altitude, tz,
		       axis_tilt, axis_azimuth, max_angle, rest_angle, gcr, cross_axis_tilt
		FROM sites
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []SiteData
	for rows.Next() {
		var site SiteData
		var tz sql.NullString
		var altitude, axisTilt, axisAzimuth, maxAngle, restAngle, gcr, crossAxisTilt sql.NullFloat64

		err := rows.Scan(
			&site.Name, &site.Latitude, &site.Longitude, &altitude, &tz,
			&axisTilt, &axisAzimuth, &maxAngle, &restAngle, &gcr, &crossAxisTilt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site row: %w", err)
		}

		site.TimeZone = tz.String
		site.Altitude = floatPtr(altitude)
		site.Tracker = TrackerData{
			AxisTilt:      floatPtr(axisTilt),
			AxisAzimuth:   floatPtr(axisAzimuth),
			MaxAngle:      floatPtr(maxAngle),
			RestAngle:     floatPtr(restAngle),
			GCR:           floatPtr(gcr),
			CrossAxisTilt: floatPtr(crossAxisTilt),
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// IsReadOnly returns false since SQLite supports writes
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.saveServer(tx, &configData.Server); err != nil {
		return fmt.Errorf("failed to save server config: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM sites"); err != nil {
		return fmt.Errorf("failed to clear sites: %w", err)
	}
	for i := range configData.Sites {
		if err := s.insertSite(tx, &configData.Sites[i]); err != nil {
			return fmt.Errorf("failed to insert site %s: %w", configData.Sites[i].Name, err)
		}
	}

	return tx.Commit()
}

// DeleteSite removes a site preset by name
func (s *SQLiteProvider) DeleteSite(name string) error {
	result, err := s.db.Exec("DELETE FROM sites WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("site %s not found", name)
	}
	return nil
}

func (s *SQLiteProvider) saveServer(tx *sql.Tx, server *ServerData) error {
	query := `
		INSERT OR REPLACE INTO server_config (
			id, listen_addr, port, cert, key, cors_origins, max_points,
			workers, request_timeout, enable_metrics, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	`
	_, err := tx.Exec(query,
		nullString(server.ListenAddr), server.Port, nullString(server.Cert), nullString(server.Key),
		nullString(strings.Join(server.CORSOrigins, ",")), server.MaxPoints,
		server.Workers, nullString(server.RequestTimeout), server.EnableMetrics,
	)
	return err
}

func (s *SQLiteProvider) insertSite(tx *sql.Tx, site *SiteData) error {
	query := `
		INSERT INTO sites (
			name, latitude, longitude, altitude, tz,
			axis_tilt, axis_azimuth, max_angle, rest_angle, gcr, cross_axis_tilt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.Exec(query,
		site.Name, site.Latitude, site.Longitude, nullFloat64(site.Altitude), nullString(site.TimeZone),
		nullFloat64(site.Tracker.AxisTilt), nullFloat64(site.Tracker.AxisAzimuth),
		nullFloat64(site.Tracker.MaxAngle), nullFloat64(site.Tracker.RestAngle),
		nullFloat64(site.Tracker.GCR), nullFloat64(site.Tracker.CrossAxisTilt),
	)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return Float(f.Float64)
}
