package pipeline

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/suntrack/pkg/solar"
)

// Summary condenses a run into the figures an operator looks at first
type Summary struct {
	Samples            int         `json:"samples"`
	DaylightSamples    int         `json:"daylight_samples"`
	BacktrackedSamples int         `json:"backtracked_samples"`
	ClampedSamples     int         `json:"clamped_samples"`
	FirstDaylight      *time.Time  `json:"first_daylight,omitempty"`
	LastDaylight       *time.Time  `json:"last_daylight,omitempty"`
	Sunrise            *time.Time  `json:"sunrise,omitempty"`
	Sunset             *time.Time  `json:"sunset,omitempty"`
	SolarNoon          *time.Time  `json:"solar_noon,omitempty"`
	DayLengthHours     *float64    `json:"day_length_hours,omitempty"`
	TrackerAngle       *AngleStats `json:"tracker_theta,omitempty"`
	Zenith             *AngleStats `json:"zenith,omitempty"`
}

// AngleStats describes the daylight distribution of an angle, degrees
type AngleStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Summarize computes daylight statistics over a trace. Sunrise, sunset, solar
// noon and day length refer to the local day of the first instant.
func Summarize(t *Trace) Summary {
	s := Summary{Samples: len(t.Times)}

	var thetas, zeniths []float64
	for i, sample := range t.Samples {
		if sample.Night {
			continue
		}
		s.DaylightSamples++
		if sample.Backtracked {
			s.BacktrackedSamples++
		}
		if sample.Clamped {
			s.ClampedSamples++
		}

		ts := t.Times[i]
		if s.FirstDaylight == nil {
			s.FirstDaylight = &ts
		}
		s.LastDaylight = &ts

		thetas = append(thetas, sample.Theta)
		zeniths = append(zeniths, t.Positions[i].ApparentZenith)
	}

	s.TrackerAngle = angleStats(thetas)
	s.Zenith = angleStats(zeniths)

	if len(t.Times) > 0 {
		day := t.Times[0]
		if rise, set, ok := solar.SunriseSunset(day, t.Request.Site); ok {
			s.Sunrise, s.Sunset = &rise, &set
		}
		noon := solar.SolarNoon(day, t.Request.Site)
		hours := solar.DayLength(day, t.Request.Site).Hours()
		s.SolarNoon, s.DayLengthHours = &noon, &hours
	}
	return s
}

func angleStats(values []float64) *AngleStats {
	if len(values) == 0 {
		return nil
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return &AngleStats{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
	}
}
