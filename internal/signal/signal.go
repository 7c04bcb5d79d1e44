// Package signal implements the ITU-R link budget and 3GPP NR measurement
// quantities for a satellite-to-terminal link: free-space path loss,
// atmospheric attenuation, received power, RSRP/RSRQ/SINR, Doppler shift,
// and propagation delay. This is component C3 of the pool planner.
//
// Formulas are cited inline; constants carry a version tag so artifacts can
// record which edition of the constants table produced them.
package signal

import (
	"math"

	"github.com/aurora-leo/poolplanner/internal/config"
	"github.com/aurora-leo/poolplanner/internal/catalog"
)

const (
	speedOfLightKmS = 299792.458
	subcarriersNR20MHz = 1200 // 100 RB x 12 subcarriers, 3GPP TS 38.214
	rsrpFloorDBm    = -150
	rsrpCeilDBm     = -50
	sinrFloorDB     = -10
	sinrCeilDB      = 30
	dopplerLimitHz  = 50_000
)

// ConstantsVersion tags the edition of the link-budget parameters in use.
// Bump this whenever EIRP/antenna-gain/interference figures are revised
// against updated FCC/ITU filings.
const ConstantsVersion = "ntn-link-budget-2025.1"

// Sample is one Signal Sample: a Position Sample enriched with link-budget
// quantities. Quality is "nominal" unless a required parameter was missing,
// in which case it is "degraded" and RSRP/RSRQ/SINR are left at zero.
type Sample struct {
	RSRPDBm       float64
	RSRQDB        float64
	SINRDB        float64
	FSPLDB        float64
	AtmosphericDB float64
	DopplerHz     float64
	DelayMS       float64
	Quality       string
	ClampedRSRP   bool
	ClampedSINR   bool
	DopplerFlag   bool
}

const (
	QualityNominal  = "nominal"
	QualityDegraded = "degraded"
)

// Link bundles the inputs the link budget needs for one (satellite, time)
// observation.
type Link struct {
	RangeKM      float64
	ElevationDeg float64
	RangeRateKMS float64 // positive = receding
}

// Compute derives a full Signal Sample for a satellite belonging to
// constellation c, at the given elevation/range/range-rate, using the
// configured terminal and constellation parameters. If c has no registered
// parameters, the sample is returned degraded with no fabricated RSRP,
// per the no-silent-fallback policy in the error handling design.
func Compute(cc config.ConstellationsConfig, term config.TerminalConfig, c catalog.Constellation, link Link) Sample {
	params, ok := paramsFor(cc, c)
	if !ok {
		return Sample{Quality: QualityDegraded}
	}

	fspl := FreeSpacePathLoss(params.CarrierFreqGHz, link.RangeKM)
	atmo := AtmosphericAttenuation(link.ElevationDeg, params.CarrierFreqGHz)

	// Received power (dBm). ITU-R P.525 FSPL and P.618/P.676/P.840
	// atmospheric terms; terminal losses (implementation, polarization,
	// pointing) subtracted; +30 converts dBW EIRP contribution to dBm.
	pr := params.EIRPDBW + term.AntennaGainDBi - fspl - atmo -
		term.ImplementationLossDB - term.PolarizationLossDB - term.PointingLossDB + 30

	rsrp := pr - 10*math.Log10(subcarriersNR20MHz)

	nThermal := -174 + 10*math.Log10(20_000_000) // 20 MHz NR carrier, Hz
	interference := interferenceDB(link.ElevationDeg)
	sinr := rsrp - (nThermal + term.NoiseFigureDB) - interference

	// RSRQ approximated from SINR and RSRP per the 3GPP relation
	// RSRQ ≈ N_RB·RSRP/RSSI; simplified here as a bounded function of SINR
	// since full RSSI accounting needs inter-cell interference the pool
	// planner does not model at this stage.
	rsrq := clamp(sinr/3-3, -19.5, -3.0)

	doppler := params.CarrierFreqGHz * 1e9 * (link.RangeRateKMS / speedOfLightKmS)
	delayMS := (link.RangeKM / speedOfLightKmS) * 1000

	s := Sample{
		RSRPDBm:       rsrp,
		RSRQDB:        rsrq,
		SINRDB:        sinr,
		FSPLDB:        fspl,
		AtmosphericDB: atmo,
		DopplerHz:     doppler,
		DelayMS:       delayMS,
		Quality:       QualityNominal,
	}

	if rsrp < rsrpFloorDBm || rsrp > rsrpCeilDBm {
		s.RSRPDBm = clamp(rsrp, rsrpFloorDBm, rsrpCeilDBm)
		s.ClampedRSRP = true
	}
	if sinr < sinrFloorDB || sinr > sinrCeilDB {
		s.SINRDB = clamp(sinr, sinrFloorDB, sinrCeilDB)
		s.ClampedSINR = true
	}
	if math.Abs(doppler) > dopplerLimitHz {
		s.DopplerFlag = true
	}

	return s
}

// FreeSpacePathLoss implements ITU-R P.525: FSPL = 32.45 + 20log10(f_GHz) + 20log10(d_km).
func FreeSpacePathLoss(freqGHz, rangeKM float64) float64 {
	return 32.45 + 20*math.Log10(freqGHz) + 20*math.Log10(rangeKM)
}

// AtmosphericAttenuation approximates the combined gaseous (ITU-R P.676),
// tropospheric (P.618-13), and cloud/fog (P.840) attenuation at elevation
// angle ε (degrees) and carrier frequency f (GHz). A zenith specific
// attenuation figure (oxygen + water vapour, standard atmosphere) is scaled
// by the slant-path length factor 1/sin(ε) for ε ≥ 5°; below 5° the path
// length factor is capped at its 5° value and an additional low-angle
// multiplier is applied, since 1/sin(ε) diverges as ε→0 and the standard
// flat-atmosphere approximation is no longer valid there.
func AtmosphericAttenuation(elevationDeg, freqGHz float64) float64 {
	// Zenith specific attenuation (dB), a smooth frequency-dependent curve
	// anchored to the P.676 oxygen (~0.007 dB/km at 12 GHz rising toward the
	// 60 GHz absorption band) and P.840 cloud attenuation reference figures.
	zenithDB := 0.03 + 0.005*freqGHz + 0.0008*freqGHz*freqGHz

	const minElevForPathFactor = 5.0
	effectiveElev := elevationDeg
	if effectiveElev < minElevForPathFactor {
		effectiveElev = minElevForPathFactor
	}
	pathFactor := 1.0 / math.Sin(effectiveElev*math.Pi/180)

	atmo := zenithDB * pathFactor

	if elevationDeg < minElevForPathFactor && elevationDeg > 0 {
		// Extension below 5°: low-angle multipath and ducting increase loss
		// faster than the flat-Earth 1/sin(ε) term captures.
		lowAngleFactor := 1.0 + (minElevForPathFactor-elevationDeg)/minElevForPathFactor
		atmo *= lowAngleFactor
	}

	return atmo
}

// interferenceDB applies the configured co-channel interference margin:
// 3 dB at high elevation (ε ≥ 30°) where fewer neighboring beams overlap,
// 5 dB otherwise.
func interferenceDB(elevationDeg float64) float64 {
	if elevationDeg >= 30 {
		return 3
	}
	return 5
}

func paramsFor(cc config.ConstellationsConfig, c catalog.Constellation) (config.ConstellationParams, bool) {
	switch c {
	case catalog.Starlink:
		return cc.Starlink, true
	case catalog.OneWeb:
		return cc.OneWeb, true
	default:
		return config.ConstellationParams{}, false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
