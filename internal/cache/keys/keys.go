// Package keys builds the Redis keys used by the resolution cache.
package keys

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
)

const (
	resolutionPrefix = "fz"
	indexPrefix      = "fzidx"
)

// Fingerprint hashes the upstream settings that change what a lookup returns.
// Keys written under one fingerprint are never read under another.
func Fingerprint(serviceURL, outFields string, radii []float64, maxCandidates int, lonScaleFloor float64) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(strings.TrimSpace(serviceURL), "/"))
	b.WriteByte(0)
	b.WriteString(normalizeFields(outFields))
	b.WriteByte(0)
	for i, r := range radii {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(r, 'g', -1, 64))
	}
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(maxCandidates))
	b.WriteByte(0)
	b.WriteString(strconv.FormatFloat(lonScaleFloor, 'g', -1, 64))
	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

// ResolutionKey rounds p to precision decimals so nearby lookups share an entry.
func ResolutionKey(fp string, p model.Point, precision int) string {
	return fmt.Sprintf("%s:%s:%s,%s", resolutionPrefix, fp, round(p.Lat, precision), round(p.Lon, precision))
}

// CellIndexKey names the set of resolution keys whose point lies in cell.
func CellIndexKey(fp string, res int, cell string) string {
	return fmt.Sprintf("%s:%s:%d:%s", indexPrefix, fp, res, cell)
}

func round(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	// -0.000000 and 0.000000 must map to the same key
	if strings.Trim(s, "-0.") == "" {
		return strconv.FormatFloat(0, 'f', precision, 64)
	}
	return s
}

// "*" and "A, B" and "B,A" must not produce different fingerprints
func normalizeFields(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return "*"
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return strings.Join(out, ",")
}
