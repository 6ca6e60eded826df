package restserver

import (
	"time"

	"github.com/chrissnell/suntrack/pkg/calcerr"
	"github.com/chrissnell/suntrack/pkg/pipeline"
	"github.com/chrissnell/suntrack/pkg/tracker"
)

// TrackerAnglesRequest is the body of POST /api/tracker_angles. Optional
// fields left out take the service defaults.
type TrackerAnglesRequest struct {
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Start         string   `json:"start"`
	End           string   `json:"end"`
	Altitude      *float64 `json:"altitude,omitempty"`
	TimeZone      string   `json:"tz,omitempty"`
	AxisTilt      *float64 `json:"axis_tilt,omitempty"`
	AxisAzimuth   *float64 `json:"axis_azimuth,omitempty"`
	MaxAngle      *float64 `json:"max_angle,omitempty"`
	RestAngle     *float64 `json:"reposo_tracker,omitempty"`
	GCR           *float64 `json:"gcr,omitempty"`
	CrossAxisTilt *float64 `json:"cross_axis_tilt,omitempty"`
	StepMinutes   *int     `json:"step_minutes,omitempty"`
}

// toPipeline fills a pipeline request from the body over the defaults
func (t TrackerAnglesRequest) toPipeline() (pipeline.Request, error) {
	req := pipeline.DefaultRequest()

	if t.Latitude == nil {
		return req, calcerr.Config("latitude", "is required")
	}
	if t.Longitude == nil {
		return req, calcerr.Config("longitude", "is required")
	}
	req.Site.Latitude = *t.Latitude
	req.Site.Longitude = *t.Longitude
	req.Start = t.Start
	req.End = t.End

	if t.Altitude != nil {
		req.Site.Altitude = *t.Altitude
	}
	if t.TimeZone != "" {
		req.Site.TimeZone = t.TimeZone
	}
	req.Geometry = overrideGeometry(req.Geometry, t)

	if t.StepMinutes != nil {
		if *t.StepMinutes <= 0 {
			return req, calcerr.Config("step_minutes", "must be positive")
		}
		req.Step = time.Duration(*t.StepMinutes) * time.Minute
	}
	return req, nil
}

func overrideGeometry(g tracker.Geometry, t TrackerAnglesRequest) tracker.Geometry {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&g.AxisTilt, t.AxisTilt)
	set(&g.AxisAzimuth, t.AxisAzimuth)
	set(&g.MaxAngle, t.MaxAngle)
	set(&g.RestAngle, t.RestAngle)
	set(&g.GroundCoverageRatio, t.GCR)
	set(&g.CrossAxisTilt, t.CrossAxisTilt)
	return g
}

// LocalizedRow is a ResultRow rendered with locale-specific number formatting
type LocalizedRow struct {
	Timestamp    time.Time `json:"timestamp"`
	Zenith       string    `json:"zenith"`
	Azimuth      string    `json:"azimuth"`
	TrackerTheta string    `json:"tracker_theta"`
}

// SiteResponse describes a configured site preset with defaults resolved
type SiteResponse struct {
	Name      string           `json:"name"`
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Altitude  float64          `json:"altitude"`
	TimeZone  string           `json:"tz"`
	Tracker   GeometryResponse `json:"tracker"`
}

// GeometryResponse is the wire form of tracker.Geometry
type GeometryResponse struct {
	AxisTilt      float64 `json:"axis_tilt"`
	AxisAzimuth   float64 `json:"axis_azimuth"`
	MaxAngle      float64 `json:"max_angle"`
	RestAngle     float64 `json:"reposo_tracker"`
	GCR           float64 `json:"gcr"`
	CrossAxisTilt float64 `json:"cross_axis_tilt"`
}

// HealthResponse is returned by /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Sites   int    `json:"sites"`
}
