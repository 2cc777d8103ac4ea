package analysis

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// parseNumeric reads v as a decimal number. The decimal separator defaults to
// '.' and a thousands separator is only removed when configured, so "1,234"
// is not a number unless the caller says how to read it. A trailing percent
// sign is ignored.
func parseNumeric(v string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		if thou == ' ' {
			raw = strings.ReplaceAll(raw, "\u00a0", "")
		}
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.ContainsRune(raw, '.') {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	// strconv also accepts hex, underscores, "inf" and "nan".
	for _, r := range raw {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTimeMaybe(v string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// histogram buckets vals into n equal-width bins over [lo, hi]; the last bin is closed.
func histogram(vals []float64, lo, hi float64, n int) []Bin {
	if n <= 0 {
		n = 10
	}
	if hi == lo {
		return []Bin{{Lo: lo, Hi: hi, Count: len(vals)}}
	}
	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	bins[n-1].Hi = hi
	for _, v := range vals {
		i := int((v - lo) / width)
		i = max(0, min(i, n-1))
		bins[i].Count++
	}
	return bins
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if frac == 0 {
		return sorted[lo]
	}
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// robustOutliers counts values of sorted whose modified z-score exceeds thr
// and returns the largest |z| seen. A zero MAD yields no outliers.
func robustOutliers(sorted []float64, thr float64) (count int, maxAbsZ float64) {
	median := quantile(sorted, 0.5)
	dev := make([]float64, len(sorted))
	for i, v := range sorted {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad := quantile(dev, 0.5)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range sorted {
		z := math.Abs(0.6745 * (v - median) / mad)
		if z > thr {
			count++
		}
		maxAbsZ = max(maxAbsZ, z)
	}
	return count, maxAbsZ
}
