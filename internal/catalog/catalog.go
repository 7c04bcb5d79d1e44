// Package catalog loads and parses the satellite TLE catalog (Celestrak
// 3-line format for Starlink and OneWeb) and tags each record with its
// source constellation. This is component C1 of the pool planner.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aurora-leo/poolplanner/internal/orbit"
	"github.com/aurora-leo/poolplanner/internal/perr"
)

// Constellation identifies which mega-constellation a satellite belongs to.
type Constellation string

const (
	Starlink        Constellation = "starlink"
	OneWeb          Constellation = "oneweb"
	Unclassified    Constellation = "unclassified"
	fullModeMinSize               = 8000
)

// Record is one parsed TLE entry augmented with its constellation tag and
// a ready-to-use propagator.
type Record struct {
	NoradID       int
	Name          string
	Constellation Constellation
	Line1         string
	Line2         string
	Propagator    *orbit.Propagator
}

// LoadStats summarizes a catalog load: how many records were read,
// how many failed to parse, and the per-constellation breakdown.
type LoadStats struct {
	TotalLines      int
	ParsedRecords   int
	FailedRecords   int
	StarlinkCount   int
	OneWebCount     int
	OtherCount      int
	FullModeEngaged bool
}

// Load reads a Celestrak-style 3-line TLE dump (name, line1, line2
// repeating) and returns the successfully parsed, constellation-tagged
// records along with load statistics. Malformed groups are skipped, not
// fatal — a catalog of several thousand satellites is expected to contain
// the occasional corrupt entry.
func Load(r io.Reader) ([]Record, LoadStats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256), 1024)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, LoadStats{}, perr.Wrap(perr.KindParse, "catalog", "read TLE stream", err)
	}

	stats := LoadStats{TotalLines: len(lines)}

	var records []Record
	for i := 0; i+2 < len(lines); i += 3 {
		name := strings.TrimSpace(lines[i])
		l1 := strings.TrimSpace(lines[i+1])
		l2 := strings.TrimSpace(lines[i+2])

		if !strings.HasPrefix(l1, "1 ") || !strings.HasPrefix(l2, "2 ") {
			stats.FailedRecords++
			continue
		}

		noradID, err := parseNoradID(l1)
		if err != nil {
			stats.FailedRecords++
			continue
		}

		group := name + "\n" + l1 + "\n" + l2
		prop, err := orbit.NewPropagator(group)
		if err != nil {
			stats.FailedRecords++
			continue
		}

		c := classify(name)
		switch c {
		case Starlink:
			stats.StarlinkCount++
		case OneWeb:
			stats.OneWebCount++
		default:
			stats.OtherCount++
		}

		records = append(records, Record{
			NoradID:       noradID,
			Name:          name,
			Constellation: c,
			Line1:         l1,
			Line2:         l2,
			Propagator:    prop,
		})
		stats.ParsedRecords++
	}

	stats.FullModeEngaged = stats.ParsedRecords >= fullModeMinSize

	if stats.ParsedRecords == 0 {
		return nil, stats, perr.New(perr.KindParse, "catalog", "no valid TLE records parsed from input")
	}

	return records, stats, nil
}

func parseNoradID(line1 string) (int, error) {
	if len(line1) < 7 {
		return 0, fmt.Errorf("line1 too short")
	}
	field := strings.TrimSpace(line1[2:7])
	return strconv.Atoi(field)
}

// classify tags a satellite by constellation based on its TLE name field,
// mirroring the naming conventions Celestrak uses for its STARLINK-nnnn
// and ONEWEB-nnnn groups.
func classify(name string) Constellation {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "STARLINK"):
		return Starlink
	case strings.Contains(upper, "ONEWEB"):
		return OneWeb
	default:
		return Unclassified
	}
}

// RAANDeg parses the Right Ascension of the Ascending Node directly from
// TLE line 2 (columns 18-25), independent of any derived orbital elements,
// so RAAN-bin diversity accounting always reflects the source TLE.
func (r Record) RAANDeg() float64 {
	if len(r.Line2) < 25 {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(r.Line2[17:25]), 64)
	if err != nil {
		return 0
	}
	return v
}

// FilterConstellation returns only the records belonging to c.
func FilterConstellation(records []Record, c Constellation) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Constellation == c {
			out = append(out, r)
		}
	}
	return out
}
