// Package tracker computes the rotation of a horizontal single-axis tracker
// from the Sun's apparent position.
//
// Rotation follows the right-hand rule about the axis: for a north-south axis
// pointing south (azimuth 180°) positive angles turn the modules toward the
// west. Backtracking uses the row-to-row shading geometry of Anderson &
// Mikofski (NREL/TP-5K00-76626), including the cross-axis slope term.
//
// Tilted axes use the same projection, but only the horizontal-axis case has
// been checked against reference output.
package tracker

import (
	"math"

	"github.com/chrissnell/suntrack/pkg/calcerr"
	"github.com/chrissnell/suntrack/pkg/solar"
)

// Geometry is the mechanical description of a tracker row
type Geometry struct {
	AxisTilt            float64 // degrees from horizontal
	AxisAzimuth         float64 // compass direction the axis points, degrees
	MaxAngle            float64 // mechanical limit, degrees either side of flat
	RestAngle           float64 // angle held while the sun is below the horizon
	GroundCoverageRatio float64 // module width / row pitch; 0 disables backtracking
	CrossAxisTilt       float64 // ground slope perpendicular to the axis, degrees
}

// Validate rejects geometry the solver cannot evaluate
func (g Geometry) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"axis_tilt", g.AxisTilt},
		{"axis_azimuth", g.AxisAzimuth},
		{"max_angle", g.MaxAngle},
		{"rest_angle", g.RestAngle},
		{"gcr", g.GroundCoverageRatio},
		{"cross_axis_tilt", g.CrossAxisTilt},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return calcerr.Config(f.name, "must be a finite number")
		}
	}

	switch {
	case g.MaxAngle < 0 || g.MaxAngle > 90:
		return calcerr.Config("max_angle", "must be within [0, 90]")
	case g.GroundCoverageRatio < 0 || g.GroundCoverageRatio > 1:
		return calcerr.Config("gcr", "must be within [0, 1]")
	case g.AxisTilt < 0 || g.AxisTilt > 90:
		return calcerr.Config("axis_tilt", "must be within [0, 90]")
	case g.AxisAzimuth < 0 || g.AxisAzimuth >= 360:
		return calcerr.Config("axis_azimuth", "must be within [0, 360)")
	case g.RestAngle < -90 || g.RestAngle > 90:
		return calcerr.Config("rest_angle", "must be within [-90, 90]")
	case g.CrossAxisTilt <= -90 || g.CrossAxisTilt >= 90:
		return calcerr.Config("cross_axis_tilt", "must be within (-90, 90)")
	}
	return nil
}

// Sample is the solved rotation for one instant
type Sample struct {
	Theta       float64 // commanded rotation, degrees
	Ideal       float64 // rotation that points the modules at the sun, unconstrained
	Clamped     bool    // the mechanical limit was reached
	Backtracked bool    // the shade-free limit reduced the rotation
	Night       bool    // sun below the horizon, Theta is the rest angle
}

// Angle solves the rotation for a single apparent zenith and azimuth. g is
// assumed valid.
func Angle(zenith, azimuth float64, g Geometry) Sample {
	s := Sample{Ideal: ideal(zenith, azimuth, g)}

	if zenith > 90 {
		s.Night = true
		s.Theta = g.RestAngle
		return s
	}

	magnitude := math.Abs(s.Ideal)
	if magnitude > g.MaxAngle {
		magnitude = g.MaxAngle
		s.Clamped = true
	}

	if limit, ok := shadeFreeLimit(s.Ideal, g); ok && limit < magnitude {
		magnitude = limit
		s.Backtracked = true
	}

	s.Theta = math.Copysign(magnitude, s.Ideal)
	return s
}

// Solve evaluates Angle over positions, preserving order
func Solve(positions []solar.Position, g Geometry) ([]Sample, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	out := make([]Sample, len(positions))
	for i, p := range positions {
		s := Angle(p.ApparentZenith, p.Azimuth, g)
		if math.IsNaN(s.Theta) || math.IsInf(s.Theta, 0) {
			return nil, calcerr.Computation("tracker angle",
				"non-finite rotation at index %d (zenith=%g azimuth=%g)", i, p.ApparentZenith, p.Azimuth)
		}
		out[i] = s
	}
	return out, nil
}

// ideal projects the sun vector into the tracker frame and returns the
// rotation that puts it in the plane normal to the modules
func ideal(zenith, azimuth float64, g Geometry) float64 {
	sinZ, cosZ := math.Sincos(degToRad(zenith))
	sinA, cosA := math.Sincos(degToRad(azimuth))
	x, y, z := sinZ*sinA, sinZ*cosA, cosZ

	sinT, cosT := math.Sincos(degToRad(g.AxisTilt))
	sinAx, cosAx := math.Sincos(degToRad(g.AxisAzimuth))

	xp := x*cosAx - y*sinAx
	zp := x*sinT*sinAx + y*sinT*cosAx + z*cosT

	return radToDeg(math.Atan2(xp, zp))
}

// shadeFreeLimit returns the largest rotation magnitude at which a row does
// not shade its neighbour. ok is false when no row can shade another.
func shadeFreeLimit(ideal float64, g Geometry) (float64, bool) {
	if g.GroundCoverageRatio == 0 {
		return 0, false
	}

	cat := degToRad(g.CrossAxisTilt)
	axesDistance := 1 / (g.GroundCoverageRatio * math.Cos(cat))
	ratio := math.Abs(axesDistance * math.Cos(degToRad(ideal)-cat))
	if ratio >= 1 {
		return 0, false
	}

	return math.Max(0, math.Abs(ideal)-radToDeg(math.Acos(ratio))), true
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
