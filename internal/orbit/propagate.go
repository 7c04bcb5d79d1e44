package orbit

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/aurora-leo/poolplanner/internal/perr"
)

// Propagator wraps a parsed TLE and yields ECI state vectors at arbitrary
// times via SGP4. The underlying library does the orbital integration;
// this type exists only to normalize its output into this package's ECI
// and to make batch sampling over a time window convenient.
type Propagator struct {
	tle *sgp4.TLE
}

// NewPropagator parses a three-line TLE group ("name\nline1\nline2") and
// returns a Propagator ready to compute ECI state vectors.
func NewPropagator(tleGroup string) (*Propagator, error) {
	tle, err := sgp4.ParseTLE(tleGroup)
	if err != nil {
		return nil, perr.Wrap(perr.KindParse, "orbit", "parse TLE", err)
	}
	return &Propagator{tle: tle}, nil
}

// At computes the ECI state vector at time t.
func (p *Propagator) At(t time.Time) (ECI, error) {
	eci, err := p.tle.FindPositionAtTime(t)
	if err != nil {
		return ECI{}, perr.Wrap(perr.KindPropagation, "orbit", fmt.Sprintf("propagate at %s", t.Format(time.RFC3339)), err)
	}
	return ECI{
		Time: t,
		X:    eci.Position.X, Y: eci.Position.Y, Z: eci.Position.Z,
		VX: eci.Velocity.X, VY: eci.Velocity.Y, VZ: eci.Velocity.Z,
	}, nil
}

// Sample computes ECI state vectors at every step from start to end
// (inclusive of start, exclusive of the sample past end). A step at which
// propagation fails is omitted; the remaining steps are still sampled.
func (p *Propagator) Sample(start, end time.Time, step time.Duration) ([]ECI, error) {
	if step <= 0 {
		return nil, perr.New(perr.KindInvariantFailure, "orbit", "sample step must be positive")
	}
	var out []ECI
	for t := start; t.Before(end); t = t.Add(step) {
		e, err := p.At(t)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// NoradID returns the satellite catalog number from the parsed TLE.
func (p *Propagator) NoradID() int {
	return p.tle.SatelliteNumber
}

// BatchResult pairs a satellite's catalog ID with its propagation outcome.
type BatchResult struct {
	NoradID int
	States  []ECI
	Err     error
}

// BatchSample propagates many satellites over the same window concurrently,
// using a bounded worker pool so a 9,000-satellite catalog doesn't spawn
// 9,000 goroutines at once. Results preserve the input order.
func BatchSample(propagators []*Propagator, start, end time.Time, step time.Duration, workers int) []BatchResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]BatchResult, len(propagators))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				p := propagators[idx]
				states, err := p.Sample(start, end, step)
				results[idx] = BatchResult{NoradID: p.NoradID(), States: states, Err: err}
			}
		}()
	}

	for i := range propagators {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
