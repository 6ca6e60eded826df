package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	msolar "github.com/soniakeys/meeus/v3/solar"
)

// Zenith of the sun's centre at official sunrise/sunset: 90° plus the
// apparent radius plus standard horizon refraction
const officialZenith = 90.8333

// SunriseSunset returns approximate sunrise and sunset around the solar noon
// that falls on the local calendar day of day (in day's location). ok is
// false for polar day or polar night, when the sun does not cross the horizon.
func SunriseSunset(day time.Time, site Site) (sunrise, sunset time.Time, ok bool) {
	noon := SolarNoon(day, site)

	_, δ := msolar.ApparentEquatorial(julian.TimeToJD(noon.UTC()))
	latRad := degToRad(site.Latitude)

	cosH := (math.Cos(degToRad(officialZenith)) - math.Sin(latRad)*δ.Sin()) /
		(math.Cos(latRad) * δ.Cos())
	if cosH < -1 || cosH > 1 || math.IsNaN(cosH) {
		return time.Time{}, time.Time{}, false
	}

	// Minutes of hour angle either side of solar noon (4 minutes per degree)
	halfDay := minutes(radToDeg(math.Acos(cosH)) * 4)
	return noon.Add(-halfDay), noon.Add(halfDay), true
}

// SolarNoon returns the sun's upper transit on the local calendar day of day,
// reported in day's location
func SolarNoon(day time.Time, site Site) time.Time {
	loc := day.Location()
	y, m, d := day.Date()

	// Zones far from their solar time put the transit on a neighbouring UTC date
	var first time.Time
	for i, offset := range []int{0, -1, 1} {
		midnightUTC := time.Date(y, m, d+offset, 0, 0, 0, 0, time.UTC)
		// Each degree of east longitude moves solar noon 4 minutes earlier in UTC
		noonMinutes := 720 - 4*site.Longitude - equationOfTime(midnightUTC.Add(12*time.Hour))
		noon := midnightUTC.Add(minutes(noonMinutes)).In(loc)
		if ny, nm, nd := noon.Date(); ny == y && nm == m && nd == d {
			return noon
		}
		if i == 0 {
			first = noon
		}
	}
	return first
}

// DayLength returns the time between sunrise and sunset, or zero/24h for
// polar night/day
func DayLength(day time.Time, site Site) time.Duration {
	rise, set, ok := SunriseSunset(day, site)
	if ok {
		return set.Sub(rise)
	}
	// No crossing: decide between polar day and polar night by noon elevation
	pos, err := Calculate(SolarNoon(day, site), site)
	if err == nil && pos.Elevation > 0 {
		return 24 * time.Hour
	}
	return 0
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
