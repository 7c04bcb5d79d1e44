package catalog

import (
	"strings"
	"testing"
)

const sampleTLEs = `STARLINK-1007
1 44713U 19074A   24001.50000000  .00001234  00000-0  12345-3 0  9990
2 44713  53.0534 123.4567 0001234  45.6789 314.3456 15.06400000123455
ONEWEB-0012
1 44057U 19010A   24001.50000000  .00000123  00000-0  12345-4 0  9998
2 44057  87.4012  45.6789 0002345  90.1234 270.1234 13.26900000123451
GARBAGE
bad line 1
bad line 2
`

func TestLoadParsesAndClassifies(t *testing.T) {
	records, stats, err := Load(strings.NewReader(sampleTLEs))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.ParsedRecords != 2 {
		t.Fatalf("expected 2 parsed records, got %d", stats.ParsedRecords)
	}
	if stats.FailedRecords != 1 {
		t.Fatalf("expected 1 failed record, got %d", stats.FailedRecords)
	}
	if stats.StarlinkCount != 1 || stats.OneWebCount != 1 {
		t.Fatalf("expected 1 starlink and 1 oneweb, got %+v", stats)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records returned, got %d", len(records))
	}
}

func TestFilterConstellation(t *testing.T) {
	records, _, err := Load(strings.NewReader(sampleTLEs))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	starlinks := FilterConstellation(records, Starlink)
	if len(starlinks) != 1 {
		t.Fatalf("expected 1 starlink record, got %d", len(starlinks))
	}
	if starlinks[0].Name != "STARLINK-1007" {
		t.Fatalf("unexpected record: %+v", starlinks[0])
	}
}

func TestLoadRejectsEmptyInput(t *testing.T) {
	if _, _, err := Load(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}

func TestClassifyUnclassified(t *testing.T) {
	if got := classify("ISS (ZARYA)"); got != Unclassified {
		t.Fatalf("expected Unclassified, got %v", got)
	}
}
