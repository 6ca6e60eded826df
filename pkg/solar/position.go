// Package solar computes the apparent position of the Sun for an observer.
//
// The ephemeris follows the SPA-style chain: UT is converted to Julian Day and
// Terrestrial Time, the Sun's apparent geocentric right ascension and
// declination come from Meeus (nutation and aberration included), the hour
// angle from apparent sidereal time, then the position is corrected for
// topocentric parallax and atmospheric refraction. Accuracy is roughly 0.01°
// for dates within a couple of centuries of J2000.
package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/refraction"
	"github.com/soniakeys/meeus/v3/sidereal"
	msolar "github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/chrissnell/suntrack/pkg/calcerr"
)

const (
	// MinAltitude and MaxAltitude bound the observer altitude in meters
	MinAltitude = -500.0
	MaxAltitude = 10000.0

	// AirTemperature is the annual mean temperature (°C) assumed by the refraction term
	AirTemperature = 12.0

	// Sun's apparent radius plus mean horizon refraction, degrees. Below
	// -(sunRadius+horizonRefraction) no part of the disc can be lifted into view.
	sunRadius          = 0.26667
	horizonRefraction  = 0.5667
	earthRadiusMeters  = 6378140.0
	earthFlattening    = 0.99664719
	equatorialHorizPar = 8.794 // arcseconds at 1 AU
)

// Site is the observer location. TimeZone is carried for the time grid; the
// position itself depends only on the absolute instant.
type Site struct {
	Latitude  float64 // degrees, north positive
	Longitude float64 // degrees, east positive
	Altitude  float64 // meters above sea level
	TimeZone  string
}

// Validate checks that the site is geometrically meaningful
func (s Site) Validate() error {
	switch {
	case !finite(s.Latitude) || s.Latitude < -90 || s.Latitude > 90:
		return calcerr.Config("latitude", "must be within [-90, 90]")
	case !finite(s.Longitude) || s.Longitude < -180 || s.Longitude > 180:
		return calcerr.Config("longitude", "must be within [-180, 180]")
	case !finite(s.Altitude) || s.Altitude < MinAltitude || s.Altitude > MaxAltitude:
		return calcerr.Config("altitude", "must be within [-500, 10000] meters")
	}
	return nil
}

// Position is the Sun's location in the observer's sky at one instant
type Position struct {
	Time              time.Time
	ApparentZenith    float64 // refraction corrected, degrees; >90 means below the horizon
	Zenith            float64 // topocentric geometric zenith, degrees
	ApparentElevation float64 // 90 - ApparentZenith
	Elevation         float64 // 90 - Zenith
	Azimuth           float64 // clockwise from north, [0, 360)
	Declination       float64 // topocentric declination, degrees
	EquationOfTime    float64 // minutes
}

// Calculate returns the Sun's apparent position at t for site
func Calculate(t time.Time, site Site) (Position, error) {
	if err := site.Validate(); err != nil {
		return Position{}, err
	}
	return position(t, site, Pressure(site.Altitude))
}

// Positions evaluates Calculate over times, preserving order
func Positions(times []time.Time, site Site) ([]Position, error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}

	p := Pressure(site.Altitude)
	out := make([]Position, len(times))
	for i, t := range times {
		pos, err := position(t, site, p)
		if err != nil {
			return nil, err
		}
		out[i] = pos
	}
	return out, nil
}

// Pressure returns the standard-atmosphere pressure in hPa at altitude meters
func Pressure(altitude float64) float64 {
	return math.Pow((44331.514-altitude)/11880.516, 1/0.1902632)
}

func position(t time.Time, site Site, pressure float64) (Position, error) {
	ut := t.UTC()
	jd := julian.TimeToJD(ut)
	jde := jd + DeltaT(ut)/86400

	α, δ := msolar.ApparentEquatorial(jde)
	r := msolar.Radius(base.J2000Century(jde))

	φ := degToRad(site.Latitude)
	H := sidereal.Apparent(jd).Rad() + degToRad(site.Longitude) - α.Rad()

	δt, Ht := topocentric(δ.Rad(), H, φ, site.Altitude, r)

	sinφ, cosφ := math.Sincos(φ)
	sinδ, cosδ := math.Sincos(δt)
	sinH, cosH := math.Sincos(Ht)

	e0 := unit.Angle(math.Asin(clamp(sinφ*sinδ+cosφ*cosδ*cosH, -1, 1)))
	e := e0 + refract(e0, pressure, AirTemperature)

	// Astronomers' azimuth is measured westward from south
	Γ := math.Atan2(sinH, cosH*sinφ-math.Tan(δt)*cosφ)

	pos := Position{
		Time:              t,
		Elevation:         e0.Deg(),
		ApparentElevation: e.Deg(),
		Zenith:            90 - e0.Deg(),
		ApparentZenith:    90 - e.Deg(),
		Azimuth:           fixAngle(radToDeg(Γ) + 180),
		Declination:       radToDeg(δt),
		EquationOfTime:    equationOfTime(ut),
	}

	if !finite(pos.ApparentZenith) || !finite(pos.Azimuth) {
		return Position{}, calcerr.Computation("solar position",
			"non-finite result at %s for lat=%g lon=%g alt=%g", ut.Format(time.RFC3339), site.Latitude, site.Longitude, site.Altitude)
	}
	return pos, nil
}

// topocentric applies the parallax of an observer at altitude meters to the
// geocentric declination δ and hour angle H (radians), with the Sun r AU away
func topocentric(δ, H, φ, altitude, r float64) (δt, Ht float64) {
	ξ := degToRad(equatorialHorizPar / 3600 / r)
	u := math.Atan(earthFlattening * math.Tan(φ))
	x := math.Cos(u) + altitude/earthRadiusMeters*math.Cos(φ)
	y := earthFlattening*math.Sin(u) + altitude/earthRadiusMeters*math.Sin(φ)

	sinξ := math.Sin(ξ)
	sinδ, cosδ := math.Sincos(δ)
	sinH, cosH := math.Sincos(H)

	den := cosδ - x*sinξ*cosH
	Δα := math.Atan2(-x*sinξ*sinH, den)
	δt = math.Atan2((sinδ-y*sinξ)*math.Cos(Δα), den)
	return δt, H - Δα
}

// refract returns the refraction to add to the true elevation e0, scaled
// from Saemundsson's standard conditions to the local pressure (hPa) and
// temperature (°C)
func refract(e0 unit.Angle, pressure, temperature float64) unit.Angle {
	if e0.Deg() < -(sunRadius + horizonRefraction) {
		return 0
	}
	return refraction.Saemundsson(e0).Mul(pressure / 1010 * 283 / (273 + temperature))
}

// DeltaT approximates TT - UT in seconds using the Espenak & Meeus polynomials
func DeltaT(t time.Time) float64 {
	y := float64(t.Year()) + (float64(t.Month())-0.5)/12

	switch {
	case y >= 2005 && y < 2050:
		u := y - 2000
		return 62.92 + 0.32217*u + 0.005589*u*u
	case y >= 1986 && y < 2005:
		u := y - 2000
		return 63.86 + u*(0.3345+u*(-0.060374+u*(0.0017275+u*(0.000651814+u*0.00002373599))))
	case y >= 2050 && y < 2150:
		u := (y - 1820) / 100
		return -20 + 32*u*u - 0.5628*(2150-y)
	case y >= 1961 && y < 1986:
		u := y - 1975
		return 45.45 + 1.067*u - u*u/260 - u*u*u/718
	case y >= 1941 && y < 1961:
		u := y - 1950
		return 29.07 + 0.407*u - u*u/233 + u*u*u/2547
	case y >= 1920 && y < 1941:
		u := y - 1920
		return 21.20 + u*(0.84493+u*(-0.0761+u*0.0020936))
	case y >= 1900 && y < 1920:
		u := y - 1900
		return -2.79 + u*(1.494119+u*(-0.0598939+u*(0.0061966-u*0.000197)))
	default:
		u := (y - 1820) / 100
		return -20 + 32*u*u
	}
}

// equationOfTime returns apparent minus mean solar time in minutes
func equationOfTime(t time.Time) float64 {
	T := base.J2000Century(julian.TimeToJD(t))

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60

	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	return radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// fixAngle normalizes an angle to [0, 360)
func fixAngle(a float64) float64 {
	a -= 360.0 * math.Floor(a/360.0)
	if a >= 360.0 {
		return 0
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
