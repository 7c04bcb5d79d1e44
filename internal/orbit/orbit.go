// Package orbit wraps SGP4 propagation and derives the topocentric
// observables (elevation, azimuth, slant range, Doppler) the rest of the
// pipeline needs. Propagation itself is delegated to github.com/akhenakh/sgp4;
// everything downstream of the raw ECI state vector — Julian date and GMST,
// ECI→ECEF rotation, WGS-84 geodetic conversion, and topocentric look
// angles — is computed independently here so elevation figures used for
// filtering are never taken solely on the propagation library's word.
package orbit

import (
	"math"
	"time"
)

// WGS-84 ellipsoid constants.
const (
	earthRadiusEquatorialKM = 6378.137
	earthFlattening         = 1.0 / 298.257223563
	earthRotationRadPerSec  = 7.292115855e-5
)

// ECI is an Earth-Centered Inertial state vector: position in km,
// velocity in km/s.
type ECI struct {
	Time time.Time
	X, Y, Z    float64
	VX, VY, VZ float64
}

// Geodetic is a WGS-84 latitude/longitude/altitude position.
type Geodetic struct {
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeKM   float64
}

// Observer is a fixed ground station position.
type Observer struct {
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeKM   float64
}

// LookAngles are the observer-relative quantities derived from an ECI
// state vector: elevation and azimuth in degrees, slant range in km,
// and range rate in km/s (positive means receding, used for Doppler).
type LookAngles struct {
	ElevationDeg float64
	AzimuthDeg   float64
	RangeKM      float64
	RangeRateKMS float64
}

// JulianDate converts a UTC time to the Julian Date, using the standard
// Meeus algorithm.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour()) + float64(t.Minute())/60 + (float64(t.Second())+float64(t.Nanosecond())/1e9)/3600

	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + h/24 + b - 1524.5
}

// GMST returns the Greenwich Mean Sidereal Time in radians for a UTC time,
// using the IAU 1982 GMST polynomial.
func GMST(t time.Time) float64 {
	jd := JulianDate(t)
	T := (jd - 2451545.0) / 36525.0

	gmstSec := 67310.54841 +
		(876600*3600+8640184.812866)*T +
		0.093104*T*T -
		6.2e-6*T*T*T

	gmst := math.Mod(gmstSec*2*math.Pi/86400, 2*math.Pi)
	if gmst < 0 {
		gmst += 2 * math.Pi
	}
	return gmst
}

// ECIToECEF rotates an ECI position by GMST into Earth-Centered,
// Earth-Fixed coordinates.
func ECIToECEF(e ECI) (x, y, z float64) {
	gmst := GMST(e.Time)
	cosG, sinG := math.Cos(gmst), math.Sin(gmst)
	x = e.X*cosG + e.Y*sinG
	y = -e.X*sinG + e.Y*cosG
	z = e.Z
	return
}

// ECEFToGeodetic converts Earth-Centered, Earth-Fixed coordinates (km) to
// WGS-84 geodetic latitude/longitude/altitude using Bowring's iterative
// method, which converges to sub-meter accuracy in a handful of steps.
func ECEFToGeodetic(x, y, z float64) Geodetic {
	a := earthRadiusEquatorialKM
	f := earthFlattening
	e2 := f * (2 - f)

	lon := math.Atan2(y, x)
	p := math.Hypot(x, y)

	lat := math.Atan2(z, p*(1-e2))
	for i := 0; i < 6; i++ {
		sinLat := math.Sin(lat)
		N := a / math.Sqrt(1-e2*sinLat*sinLat)
		lat = math.Atan2(z+e2*N*sinLat, p)
	}

	sinLat := math.Sin(lat)
	N := a / math.Sqrt(1-e2*sinLat*sinLat)
	alt := p/math.Cos(lat) - N

	return Geodetic{
		LatitudeDeg:  lat * 180 / math.Pi,
		LongitudeDeg: lon * 180 / math.Pi,
		AltitudeKM:   alt,
	}
}

// observerECEF returns the observer's fixed ECEF position in km.
func observerECEF(o Observer) (x, y, z float64) {
	a := earthRadiusEquatorialKM
	f := earthFlattening
	e2 := f * (2 - f)

	latRad := o.LatitudeDeg * math.Pi / 180
	lonRad := o.LongitudeDeg * math.Pi / 180
	altKM := o.AltitudeKM

	sinLat := math.Sin(latRad)
	N := a / math.Sqrt(1-e2*sinLat*sinLat)

	x = (N + altKM) * math.Cos(latRad) * math.Cos(lonRad)
	y = (N + altKM) * math.Cos(latRad) * math.Sin(lonRad)
	z = (N*(1-e2) + altKM) * sinLat
	return
}

// LookAnglesFor computes the topocentric elevation, azimuth, range, and
// range rate of an ECI state vector as seen from a fixed observer.
func LookAnglesFor(o Observer, e ECI) LookAngles {
	satX, satY, satZ := ECIToECEF(e)
	obsX, obsY, obsZ := observerECEF(o)

	dx, dy, dz := satX-obsX, satY-obsY, satZ-obsZ
	rangeKM := math.Sqrt(dx*dx + dy*dy + dz*dz)

	latRad := o.LatitudeDeg * math.Pi / 180
	lonRad := o.LongitudeDeg * math.Pi / 180

	// Rotate the range vector into the observer's local ENU (East-North-Up) frame.
	sinLat, cosLat := math.Sin(latRad), math.Cos(latRad)
	sinLon, cosLon := math.Sin(lonRad), math.Cos(lonRad)

	east := -sinLon*dx + cosLon*dy
	north := -sinLat*cosLon*dx - sinLat*sinLon*dy + cosLat*dz
	up := cosLat*cosLon*dx + cosLat*sinLon*dy + sinLat*dz

	elevation := math.Asin(up/rangeKM) * 180 / math.Pi
	azimuth := math.Atan2(east, north) * 180 / math.Pi
	if azimuth < 0 {
		azimuth += 360
	}

	// Range rate via the relative velocity vector projected onto the unit
	// line-of-sight vector; velocity is in ECI, so it's rotated the same way
	// as position (Earth rotation's contribution to satellite ECEF velocity
	// is folded in separately below).
	satVXEcef, satVYEcef, _ := rotateVelocityECI2ECEF(e)
	relVX := satVXEcef
	relVY := satVYEcef
	relVZ := e.VZ

	rangeRate := (dx*relVX + dy*relVY + dz*relVZ) / rangeKM

	return LookAngles{
		ElevationDeg: elevation,
		AzimuthDeg:   azimuth,
		RangeKM:      rangeKM,
		RangeRateKMS: rangeRate,
	}
}

// rotateVelocityECI2ECEF rotates an ECI velocity vector into ECEF,
// accounting for the Earth's rotation rate's contribution (the ECEF frame
// is non-inertial, so d/dt of the rotated position includes a
// omega-cross-r term).
func rotateVelocityECI2ECEF(e ECI) (vx, vy, vz float64) {
	gmst := GMST(e.Time)
	cosG, sinG := math.Cos(gmst), math.Sin(gmst)

	// Rotate the velocity vector itself.
	rvx := e.VX*cosG + e.VY*sinG
	rvy := -e.VX*sinG + e.VY*cosG

	// Subtract the rotational contribution omega x r_ecef.
	ecefX, ecefY, _ := ECIToECEF(e)
	vx = rvx + earthRotationRadPerSec*ecefY
	vy = rvy - earthRotationRadPerSec*ecefX
	vz = e.VZ
	return vx, vy, vz
}
