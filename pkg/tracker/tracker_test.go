package tracker

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/suntrack/pkg/calcerr"
	"github.com/chrissnell/suntrack/pkg/solar"
)

const epsilon = 1e-9

var defaultGeometry = Geometry{
	AxisTilt:            0,
	AxisAzimuth:         180,
	MaxAngle:            55,
	RestAngle:           0,
	GroundCoverageRatio: 0.3014,
}

func TestAngle(t *testing.T) {
	sparse := defaultGeometry
	sparse.GroundCoverageRatio = 0

	parked := defaultGeometry
	parked.RestAngle = 10

	tests := []struct {
		name        string
		zenith      float64
		azimuth     float64
		geometry    Geometry
		expected    float64
		tolerance   float64
		clamped     bool
		backtracked bool
		night       bool
	}{
		{name: "sun overhead", zenith: 0, azimuth: 0, geometry: defaultGeometry, expected: 0, tolerance: epsilon},
		{name: "morning sun turns east", zenith: 30, azimuth: 90, geometry: defaultGeometry, expected: -30, tolerance: epsilon},
		{name: "afternoon sun turns west", zenith: 30, azimuth: 270, geometry: defaultGeometry, expected: 30, tolerance: epsilon},
		{name: "sun on the axis", zenith: 40, azimuth: 180, geometry: defaultGeometry, expected: 0, tolerance: epsilon},
		{name: "low sun backtracks", zenith: 80, azimuth: 90, geometry: defaultGeometry, expected: -25.18, tolerance: 0.05, clamped: true, backtracked: true},
		{name: "low sun without backtracking clamps", zenith: 80, azimuth: 90, geometry: sparse, expected: -55, tolerance: epsilon, clamped: true},
		{name: "horizon still tracks", zenith: 90, azimuth: 270, geometry: defaultGeometry, expected: 0, tolerance: epsilon, clamped: true, backtracked: true},
		{name: "just below horizon rests", zenith: 90.0001, azimuth: 270, geometry: parked, expected: 10, night: true},
		{name: "deep night rests", zenith: 120, azimuth: 0, geometry: parked, expected: 10, night: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.zenith, tt.azimuth, tt.geometry)

			if tt.night {
				if got.Theta != tt.expected {
					t.Errorf("Theta = %v, expected rest angle %v exactly", got.Theta, tt.expected)
				}
			} else if math.Abs(got.Theta-tt.expected) > tt.tolerance {
				t.Errorf("Theta = %.4f, expected %.4f ± %g", got.Theta, tt.expected, tt.tolerance)
			}
			if got.Night != tt.night {
				t.Errorf("Night = %v, expected %v", got.Night, tt.night)
			}
			if !tt.night {
				if got.Clamped != tt.clamped {
					t.Errorf("Clamped = %v, expected %v", got.Clamped, tt.clamped)
				}
				if got.Backtracked != tt.backtracked {
					t.Errorf("Backtracked = %v, expected %v", got.Backtracked, tt.backtracked)
				}
			}
		})
	}
}

func TestBacktrackingIsMonotoneInCoverage(t *testing.T) {
	g := defaultGeometry
	prev := math.Inf(1)
	for gcr := 0.0; gcr <= 1.0; gcr += 0.05 {
		g.GroundCoverageRatio = gcr
		s := Angle(75, 100, g)
		if math.Abs(s.Theta) > prev+epsilon {
			t.Errorf("gcr %.2f: |theta| %.4f grew from %.4f", gcr, math.Abs(s.Theta), prev)
		}
		if s.Theta > 0 {
			t.Errorf("gcr %.2f: theta %.4f changed sign for a morning sun", gcr, s.Theta)
		}
		prev = math.Abs(s.Theta)
	}
}

func TestTiltedAxisFollowsSunInAxisPlane(t *testing.T) {
	g := defaultGeometry
	g.AxisTilt = 20

	// A sun straight down the axis needs no rotation whatever the tilt
	if s := Angle(20, 180, g); math.Abs(s.Theta) > epsilon {
		t.Errorf("Theta = %.6f, expected 0", s.Theta)
	}
	if s := Angle(45, 90, g); s.Theta >= 0 {
		t.Errorf("Theta = %.4f, expected an eastward (negative) rotation", s.Theta)
	}
}

func TestSolveInvariantsOverADay(t *testing.T) {
	site := solar.Site{Latitude: -3.7, Longitude: -38.5, Altitude: 254, TimeZone: "America/Fortaleza"}
	loc, err := time.LoadLocation(site.TimeZone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	start := time.Date(2024, 6, 21, 0, 0, 0, 0, loc)
	times := make([]time.Time, 288)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * 5 * time.Minute)
	}
	positions, err := solar.Positions(times, site)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}

	sparse := defaultGeometry
	sparse.GroundCoverageRatio = 0
	parked := defaultGeometry
	parked.RestAngle = -7.5
	dense := defaultGeometry
	dense.GroundCoverageRatio = 0.6
	dense.MaxAngle = 60

	for _, g := range []Geometry{defaultGeometry, sparse, parked, dense} {
		samples, err := Solve(positions, g)
		if err != nil {
			t.Fatalf("solve %+v: %v", g, err)
		}
		if len(samples) != len(positions) {
			t.Fatalf("len = %d, expected %d", len(samples), len(positions))
		}

		var day, night int
		for i, s := range samples {
			p := positions[i]
			if p.ApparentZenith > 90 {
				night++
				if s.Theta != g.RestAngle {
					t.Errorf("%s: zenith %.2f, theta %v, expected rest angle %v", p.Time.Format("15:04"), p.ApparentZenith, s.Theta, g.RestAngle)
				}
				continue
			}

			day++
			clampedIdeal := math.Min(math.Abs(s.Ideal), g.MaxAngle)
			if math.Abs(s.Theta) > g.MaxAngle+epsilon {
				t.Errorf("%s: |theta| %.4f exceeds max %.1f", p.Time.Format("15:04"), s.Theta, g.MaxAngle)
			}
			if math.Abs(s.Theta) > clampedIdeal+epsilon {
				t.Errorf("%s: |theta| %.4f exceeds clamped ideal %.4f", p.Time.Format("15:04"), s.Theta, clampedIdeal)
			}
			if g.GroundCoverageRatio == 0 && math.Abs(math.Abs(s.Theta)-clampedIdeal) > epsilon {
				t.Errorf("%s: gcr 0 gave %.4f, expected clamped ideal %.4f", p.Time.Format("15:04"), s.Theta, clampedIdeal)
			}
			if s.Theta != 0 && math.Signbit(s.Theta) != math.Signbit(s.Ideal) {
				t.Errorf("%s: theta %.4f has the opposite sign of ideal %.4f", p.Time.Format("15:04"), s.Theta, s.Ideal)
			}
		}
		if day == 0 || night == 0 {
			t.Fatalf("expected both day and night samples, got %d day and %d night", day, night)
		}
	}
}

func TestSolveRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(g *Geometry)
		expected error
	}{
		{name: "negative max angle", mutate: func(g *Geometry) { g.MaxAngle = -1 }, expected: calcerr.ErrConfiguration},
		{name: "max angle beyond vertical", mutate: func(g *Geometry) { g.MaxAngle = 91 }, expected: calcerr.ErrConfiguration},
		{name: "negative gcr", mutate: func(g *Geometry) { g.GroundCoverageRatio = -0.1 }, expected: calcerr.ErrConfiguration},
		{name: "overlapping rows", mutate: func(g *Geometry) { g.GroundCoverageRatio = 1.5 }, expected: calcerr.ErrConfiguration},
		{name: "NaN azimuth", mutate: func(g *Geometry) { g.AxisAzimuth = math.NaN() }, expected: calcerr.ErrConfiguration},
		{name: "axis azimuth 360", mutate: func(g *Geometry) { g.AxisAzimuth = 360 }, expected: calcerr.ErrConfiguration},
	}

	positions := []solar.Position{{ApparentZenith: 40, Azimuth: 90}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := defaultGeometry
			tt.mutate(&g)
			samples, err := Solve(positions, g)
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
			if samples != nil {
				t.Errorf("expected no samples on error")
			}
		})
	}

	_, err := Solve([]solar.Position{{ApparentZenith: math.NaN(), Azimuth: 90}}, defaultGeometry)
	if !errors.Is(err, calcerr.ErrComputation) {
		t.Errorf("expected computation error for a non-finite position, got %v", err)
	}
}
