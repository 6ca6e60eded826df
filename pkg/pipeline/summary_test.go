package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/suntrack/pkg/solar"
)

func TestSummarizeDay(t *testing.T) {
	trace, err := Run(context.Background(), fortalezaRequest("2024-06-21 00:00", "2024-06-21 23:55"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := Summarize(trace)
	if s.Samples != 288 {
		t.Errorf("Samples = %d, expected 288", s.Samples)
	}
	// About 12 hours of daylight at 5 minute steps
	if s.DaylightSamples < 138 || s.DaylightSamples > 150 {
		t.Errorf("DaylightSamples = %d, expected ~144", s.DaylightSamples)
	}
	if s.BacktrackedSamples == 0 {
		t.Errorf("expected backtracking near sunrise and sunset")
	}
	if s.FirstDaylight == nil || s.LastDaylight == nil || !s.LastDaylight.After(*s.FirstDaylight) {
		t.Fatalf("unexpected daylight bounds: %v, %v", s.FirstDaylight, s.LastDaylight)
	}
	if s.Sunrise == nil || s.Sunset == nil {
		t.Fatalf("expected sunrise and sunset")
	}
	if s.SolarNoon == nil || !s.SolarNoon.After(*s.Sunrise) || !s.SolarNoon.Before(*s.Sunset) {
		t.Errorf("solar noon %v is not between sunrise and sunset", s.SolarNoon)
	}
	if s.DayLengthHours == nil || math.Abs(*s.DayLengthHours-(11+55.0/60)) > 10.0/60 {
		t.Errorf("day length %v hours, expected ~11h55m", s.DayLengthHours)
	}
	if d := s.FirstDaylight.Sub(*s.Sunrise); math.Abs(d.Minutes()) > 15 {
		t.Errorf("first daylight %s is far from sunrise %s", s.FirstDaylight.Format("15:04"), s.Sunrise.Format("15:04"))
	}

	if s.TrackerAngle == nil || s.Zenith == nil {
		t.Fatalf("expected angle statistics")
	}
	if s.TrackerAngle.Min < -55 || s.TrackerAngle.Max > 55 || s.TrackerAngle.Min >= s.TrackerAngle.Max {
		t.Errorf("unexpected tracker angle range: %+v", s.TrackerAngle)
	}
	if math.Abs(s.TrackerAngle.Mean) > 5 {
		t.Errorf("tracker angle mean %.2f, expected a roughly symmetric day", s.TrackerAngle.Mean)
	}
	if math.Abs(s.Zenith.Min-27.14) > 1 {
		t.Errorf("minimum zenith %.2f, expected ~27.1", s.Zenith.Min)
	}
}

func TestSummarizeNight(t *testing.T) {
	trace, err := Run(context.Background(), fortalezaRequest("2024-06-21 00:00", "2024-06-21 03:00"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := Summarize(trace)
	if s.DaylightSamples != 0 || s.TrackerAngle != nil || s.FirstDaylight != nil {
		t.Errorf("expected no daylight statistics, got %+v", s)
	}
	if s.Sunrise == nil {
		t.Errorf("expected sunrise to be reported for the day")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	trace, err := Run(context.Background(), fortalezaRequest("2024-06-21 12:00", "2024-06-21 11:00"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := Summarize(trace)
	if s.Samples != 0 || s.Sunrise != nil || s.SolarNoon != nil || s.DayLengthHours != nil {
		t.Errorf("expected an empty summary, got %+v", s)
	}
}

func TestSummarizeUsesTheLocalDay(t *testing.T) {
	req := DefaultRequest()
	req.Site = solar.Site{Latitude: 1.87, Longitude: -157.4, Altitude: 0, TimeZone: "Pacific/Kiritimati"}
	req.Start, req.End = "2024-06-21 00:00", "2024-06-21 23:55"

	trace, err := Run(context.Background(), req, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := Summarize(trace)
	if s.Sunrise == nil || s.Sunset == nil || s.FirstDaylight == nil {
		t.Fatalf("expected sunrise, sunset and daylight, got %+v", s)
	}
	for label, ts := range map[string]time.Time{"sunrise": *s.Sunrise, "sunset": *s.Sunset, "solar noon": *s.SolarNoon} {
		if ts.Format("2006-01-02") != "2024-06-21" {
			t.Errorf("%s reported for %s, expected 2024-06-21", label, ts.Format("2006-01-02 15:04"))
		}
	}
	if d := s.FirstDaylight.Sub(*s.Sunrise); math.Abs(d.Minutes()) > 15 {
		t.Errorf("first daylight %s is far from sunrise %s", s.FirstDaylight.Format("15:04"), s.Sunrise.Format("15:04"))
	}
}
