package orbit

import (
	"math"
	"testing"
	"time"
)

func TestJulianDateJ2000Epoch(t *testing.T) {
	// Noon UTC on 2000-01-01 is, by definition, JD 2451545.0.
	jd := JulianDate(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	if math.Abs(jd-2451545.0) > 1e-6 {
		t.Fatalf("expected JD 2451545.0, got %v", jd)
	}
}

func TestECEFToGeodeticRoundTrip(t *testing.T) {
	want := Geodetic{LatitudeDeg: 24.944, LongitudeDeg: 121.371, AltitudeKM: 0.55}
	x, y, z := observerECEF(Observer{LatitudeDeg: want.LatitudeDeg, LongitudeDeg: want.LongitudeDeg, AltitudeKM: want.AltitudeKM})
	got := ECEFToGeodetic(x, y, z)

	if math.Abs(got.LatitudeDeg-want.LatitudeDeg) > 1e-6 {
		t.Fatalf("latitude mismatch: got %v want %v", got.LatitudeDeg, want.LatitudeDeg)
	}
	if math.Abs(got.LongitudeDeg-want.LongitudeDeg) > 1e-6 {
		t.Fatalf("longitude mismatch: got %v want %v", got.LongitudeDeg, want.LongitudeDeg)
	}
	if math.Abs(got.AltitudeKM-want.AltitudeKM) > 1e-4 {
		t.Fatalf("altitude mismatch: got %v want %v", got.AltitudeKM, want.AltitudeKM)
	}
}

func TestLookAnglesOverheadSatelliteIsNearNinetyDegrees(t *testing.T) {
	obs := Observer{LatitudeDeg: 0, LongitudeDeg: 0, AltitudeKM: 0}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Place the satellite directly above the observer at the GMST-aligned
	// ECI longitude so its sub-satellite point coincides with the observer.
	gmst := GMST(now)
	altKM := 550.0
	radius := earthRadiusEquatorialKM + altKM

	e := ECI{
		Time: now,
		X:    radius * math.Cos(gmst),
		Y:    radius * math.Sin(gmst),
		Z:    0,
	}

	la := LookAnglesFor(obs, e)
	if la.ElevationDeg < 89.0 {
		t.Fatalf("expected near-zenith elevation, got %v", la.ElevationDeg)
	}
	if math.Abs(la.RangeKM-altKM) > 1.0 {
		t.Fatalf("expected range close to altitude %v, got %v", altKM, la.RangeKM)
	}
}

func TestLookAnglesBelowHorizon(t *testing.T) {
	obs := Observer{LatitudeDeg: 0, LongitudeDeg: 0, AltitudeKM: 0}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gmst := GMST(now)
	radius := earthRadiusEquatorialKM + 550.0

	// Satellite on the opposite side of the Earth.
	e := ECI{
		Time: now,
		X:    -radius * math.Cos(gmst),
		Y:    -radius * math.Sin(gmst),
		Z:    0,
	}

	la := LookAnglesFor(obs, e)
	if la.ElevationDeg > 0 {
		t.Fatalf("expected negative elevation for antipodal satellite, got %v", la.ElevationDeg)
	}
}
