package keys

import (
	"regexp"
	"strings"
	"testing"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
)

const nfhl = "https://hazards.fema.gov/arcgis/rest/services/public/NFHL/MapServer/28"

func TestFingerprint_Deterministic(t *testing.T) {
	radii := []float64{300, 1000, 3000}
	k1 := Fingerprint(nfhl, "*", radii, 25, 0.2)
	k2 := Fingerprint(nfhl+"/", " * ", radii, 25, 0.2)
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
	if !regexp.MustCompile(`^[0-9a-f]{16}$`).MatchString(k1) {
		t.Fatalf("fingerprint must be 16 hex chars: %s", k1)
	}
}

func TestFingerprint_FieldOrderIgnored(t *testing.T) {
	radii := []float64{300}
	if Fingerprint(nfhl, "FLD_ZONE, ZONE_SUBTY", radii, 25, 0.2) != Fingerprint(nfhl, "ZONE_SUBTY,FLD_ZONE", radii, 25, 0.2) {
		t.Fatalf("outFields order must not change the fingerprint")
	}
}

func TestFingerprint_SettingsChangeIt(t *testing.T) {
	base := Fingerprint(nfhl, "*", []float64{300, 1000, 3000}, 25, 0.2)
	for name, other := range map[string]string{
		"url":   Fingerprint(nfhl[:len(nfhl)-1]+"7", "*", []float64{300, 1000, 3000}, 25, 0.2),
		"radii": Fingerprint(nfhl, "*", []float64{300, 1000}, 25, 0.2),
		"cap":   Fingerprint(nfhl, "*", []float64{300, 1000, 3000}, 10, 0.2),
		"field": Fingerprint(nfhl, "FLD_ZONE", []float64{300, 1000, 3000}, 25, 0.2),
		"floor": Fingerprint(nfhl, "*", []float64{300, 1000, 3000}, 25, 0.5),
	} {
		if other == base {
			t.Fatalf("%s change must produce a different fingerprint", name)
		}
	}
}

func TestResolutionKey_RoundsCoordinates(t *testing.T) {
	a := ResolutionKey("abc", model.Point{Lat: 27.95060001, Lon: -82.45720004}, 6)
	b := ResolutionKey("abc", model.Point{Lat: 27.9506, Lon: -82.4572}, 6)
	if a != b {
		t.Fatalf("rounded keys differ: %s vs %s", a, b)
	}
	if want := "fz:abc:27.950600,-82.457200"; a != want {
		t.Fatalf("key=%s want %s", a, want)
	}
	if ResolutionKey("abc", model.Point{Lat: 27.9507, Lon: -82.4572}, 6) == a {
		t.Fatalf("distinct points collapsed into one key")
	}
}

func TestResolutionKey_NegativeZero(t *testing.T) {
	a := ResolutionKey("x", model.Point{Lat: -0.0000001, Lon: 0}, 6)
	b := ResolutionKey("x", model.Point{Lat: 0, Lon: 0}, 6)
	if a != b {
		t.Fatalf("negative zero must normalize: %s vs %s", a, b)
	}
}

func TestCellIndexKey(t *testing.T) {
	got := CellIndexKey("abc", 7, "872a100d2ffffff")
	if got != "fzidx:abc:7:872a100d2ffffff" {
		t.Fatalf("got %s", got)
	}
	if !strings.HasPrefix(got, indexPrefix+":") {
		t.Fatalf("missing prefix")
	}
}
