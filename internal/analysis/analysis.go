// Package analysis profiles tabular datasets: column kinds, summary
// statistics, distributions, group-by interactions and correlations.
package analysis

import (
	"math"
	"sort"
)

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// Options controls which sections Analyze computes.
type Options struct {
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// SampleRows is how many leading rows the report keeps verbatim.
	SampleRows int
	// GroupBy names the columns whose values key the interaction groups.
	GroupBy []string
	// AutoGroupBy picks a low-cardinality categorical column when GroupBy is empty.
	AutoGroupBy  bool
	Correlations bool
	CorrPerGroup bool
	// DecimalSeparator defaults to '.'. ThousandsSeparator is stripped only when set.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Outliers counts values whose robust z-score (MAD based) exceeds OutlierThreshold.
	Outliers         bool
	OutlierThreshold float64
	Quantiles        bool
	Histograms       bool
	Bins             int
	// Duplicates counts fully repeated rows.
	Duplicates bool
}

// DefaultOptions returns the baseline used by the report generator.
func DefaultOptions() Options {
	return Options{
		MaxRows:          100000,
		SampleRows:       5,
		OutlierThreshold: 3.5,
		Bins:             10,
	}
}

// Report is the profile of a tabular dataset.
type Report struct {
	Name            string
	Rows            int
	Processed       int
	Cols            []ColumnSummary
	Samples         [][]string
	Warnings        []string
	Groups          []GroupResult
	GroupBy         []string
	Corr            *CorrMatrix
	MissingCells    int
	RowsWithMissing int
	// Duplicates is -1 when not computed.
	Duplicates int
}

// ColumnSummary captures the inferred kind and statistics of one column.
// Name is the dataset header unchanged.
type ColumnSummary struct {
	Name string
	Kind string
	// Unit is "%" when numeric values were written as percentages.
	Unit    string
	NonNull int
	Missing int
	Unique  int

	Min   float64
	Max   float64
	Mean  float64
	Std   float64
	Zeros int

	HasQuantiles bool
	Q1           float64
	Median       float64
	Q3           float64
	Histogram    []Bin

	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64

	TopValues    []CategoryCount
	ExampleTexts []string
}

// MissingPct returns the share of missing cells in percent.
func (c ColumnSummary) MissingPct() float64 {
	total := c.NonNull + c.Missing
	if total == 0 {
		return 0
	}
	return float64(c.Missing) * 100.0 / float64(total)
}

type CategoryCount struct {
	Value string
	Count int
}

// Bin is one equal-width histogram bucket covering [Lo, Hi).
type Bin struct {
	Lo, Hi float64
	Count  int
}

// GroupResult holds per-group numeric summaries keyed by column name.
type GroupResult struct {
	Key       string
	Size      int
	Metrics   map[string]NumSummary
	CorrPairs []PairCorr
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix is a symmetric Pearson matrix over the numeric columns.
// Undefined coefficients are 0.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64
}

// TopPairs lists the strongest off-diagonal pairs by |r|, at most limit.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	if m == nil {
		return nil
	}
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sortPairs(pairs)
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

type PairCorr struct {
	A, B string
	R    float64
}

func sortPairs(pairs []PairCorr) {
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai != aj {
			return ai > aj
		}
		return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
	})
}
