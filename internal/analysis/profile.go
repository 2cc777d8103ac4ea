package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/profiloom/internal/dataset"
)

const (
	maxTopValues    = 8
	maxGroups       = 20
	maxGroupPairs   = 10
	maxExampleTexts = 3
	// Category tracking stops growing past this many distinct short values.
	maxCategories = 10000
)

// column accumulates one column's statistics during the row pass.
type column struct {
	name    string
	unit    string
	present int
	missing int

	// Welford running moments over numeric cells.
	count    int
	mean, m2 float64
	min, max float64
	zeros    int
	values   []float64

	numeric, datetime, text int

	distinct map[string]struct{}
	cats     map[string]int
	examples []string
}

func newColumn(name string) *column {
	return &column{
		name:     name,
		min:      math.Inf(1),
		max:      math.Inf(-1),
		distinct: make(map[string]struct{}),
		cats:     make(map[string]int),
	}
}

func (c *column) addNumber(x float64, keep bool) {
	c.numeric++
	c.count++
	c.min = min(c.min, x)
	c.max = max(c.max, x)
	if x == 0 {
		c.zeros++
	}
	delta := x - c.mean
	c.mean += delta / float64(c.count)
	c.m2 += delta * (x - c.mean)
	if keep {
		c.values = append(c.values, x)
	}
}

func (c *column) addText(v string) {
	c.text++
	if len(v) <= 64 && len(c.cats) <= maxCategories {
		c.cats[v]++
	}
	if len(c.examples) < maxExampleTexts {
		c.examples = append(c.examples, v)
	}
}

// kind picks the predominant parsed type.
func (c *column) kind() string {
	switch {
	case c.numeric > 0 && c.numeric >= c.datetime && c.numeric >= c.text:
		return KindNumeric
	case c.datetime > 0 && c.datetime >= c.text:
		return KindDatetime
	case len(c.cats) > 0 && !highCardinality(len(c.cats), c.present):
		return KindCategorical
	case c.text > 0:
		return KindText
	}
	return KindUnknown
}

func (c *column) summary(opt Options) ColumnSummary {
	s := ColumnSummary{
		Name:    c.name,
		Kind:    c.kind(),
		NonNull: c.present,
		Missing: c.missing,
		Unique:  len(c.distinct),
	}
	switch s.Kind {
	case KindNumeric:
		s.Unit = c.unit
		c.numericStats(&s, opt)
	case KindCategorical:
		s.TopValues = topValues(c.cats, maxTopValues)
	case KindText:
		s.ExampleTexts = c.examples
	}
	return s
}

func (c *column) numericStats(s *ColumnSummary, opt Options) {
	s.Min, s.Max, s.Mean, s.Zeros = c.min, c.max, c.mean, c.zeros
	if c.count > 1 {
		s.Std = math.Sqrt(c.m2 / float64(c.count-1))
	}
	if len(c.values) == 0 {
		return
	}
	sorted := append([]float64(nil), c.values...)
	sort.Float64s(sorted)
	if opt.Quantiles {
		s.HasQuantiles = true
		s.Q1 = quantile(sorted, 0.25)
		s.Median = quantile(sorted, 0.5)
		s.Q3 = quantile(sorted, 0.75)
	}
	if opt.Histograms {
		s.Histogram = histogram(c.values, c.min, c.max, opt.Bins)
	}
	if opt.Outliers && len(sorted) >= 8 {
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		s.OutliersCount, s.OutliersMaxAbsZ = robustOutliers(sorted, thr)
		s.OutlierThreshold = thr
	}
}

func topValues(cats map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for v, n := range cats {
		tops = append(tops, CategoryCount{Value: v, Count: n})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count != tops[j].Count {
			return tops[i].Count > tops[j].Count
		}
		return tops[i].Value < tops[j].Value
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

// highCardinality flags mostly-unique string columns as free text rather than categories.
func highCardinality(distinct, nonNull int) bool {
	return distinct > 50 && float64(distinct) > 0.5*float64(nonNull)
}

// pairAcc holds the Pearson sums for one column pair over rows where both are numeric.
type pairAcc struct {
	n, sumX, sumY, sumXX, sumYY, sumXY float64
}

func (pa *pairAcc) add(x, y float64) {
	pa.n++
	pa.sumX += x
	pa.sumY += y
	pa.sumXX += x * x
	pa.sumYY += y * y
	pa.sumXY += x * y
}

// r returns the coefficient clamped to [-1, 1]; ok is false when undefined.
func (pa *pairAcc) r() (float64, bool) {
	if pa == nil || pa.n < 2 {
		return 0, false
	}
	denom := math.Sqrt((pa.n*pa.sumXX - pa.sumX*pa.sumX) * (pa.n*pa.sumYY - pa.sumY*pa.sumY))
	if denom == 0 || math.IsNaN(denom) {
		return 0, false
	}
	r := (pa.n*pa.sumXY - pa.sumX*pa.sumY) / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return max(-1, min(1, r)), true
}

// pairKey orders column indexes so that a < b.
type pairKey struct{ a, b int }

type pairSet map[pairKey]*pairAcc

// add feeds every pair of the row's numeric cells; idx is ascending.
func (ps pairSet) add(idx []int, vals []float64) {
	for i := range idx {
		for k := i + 1; k < len(idx); k++ {
			key := pairKey{idx[i], idx[k]}
			pa := ps[key]
			if pa == nil {
				pa = &pairAcc{}
				ps[key] = pa
			}
			pa.add(vals[i], vals[k])
		}
	}
}

func (ps pairSet) r(a, b int) (float64, bool) {
	if a > b {
		a, b = b, a
	}
	return ps[pairKey{a, b}].r()
}

// pairs lists the defined coefficients among cols, strongest first.
func (ps pairSet) pairs(cols []int, name func(int) string) []PairCorr {
	var out []PairCorr
	for i := range cols {
		for k := i + 1; k < len(cols); k++ {
			if r, ok := ps.r(cols[i], cols[k]); ok {
				out = append(out, PairCorr{A: name(cols[i]), B: name(cols[k]), R: r})
			}
		}
	}
	sortPairs(out)
	return out
}

func (ps pairSet) matrix(cols []int, name func(int) string) *CorrMatrix {
	m := &CorrMatrix{Columns: make([]string, len(cols)), Values: make([][]float64, len(cols))}
	for i, a := range cols {
		m.Columns[i] = name(a)
		m.Values[i] = make([]float64, len(cols))
		for k, b := range cols {
			if i == k {
				m.Values[i][k] = 1
				continue
			}
			m.Values[i][k], _ = ps.r(a, b)
		}
	}
	return m
}

type groupMetric struct {
	count         int
	sum, min, max float64
}

// group accumulates one group-by key.
type group struct {
	size    int
	metrics map[int]*groupMetric
	pairs   pairSet
}

func (g *group) add(j int, x float64) {
	m := g.metrics[j]
	if m == nil {
		m = &groupMetric{min: x, max: x}
		g.metrics[j] = m
	}
	m.count++
	m.sum += x
	m.min = min(m.min, x)
	m.max = max(m.max, x)
}

// profiler carries the state of one Analyze pass.
type profiler struct {
	opt     Options
	rep     *Report
	cols    []*column
	groupBy []int
	groups  map[string]*group
	corr    pairSet
	seen    map[string]struct{}
	keep    bool
}

// Analyze profiles ds in a single pass over its rows.
func Analyze(ds *dataset.Dataset, opt Options) *Report {
	rep := &Report{Name: ds.Name, Duplicates: -1}
	if ds.Width() == 0 {
		return rep
	}
	p := &profiler{
		opt:    opt,
		rep:    rep,
		groups: make(map[string]*group),
		keep:   opt.Outliers || opt.Quantiles || opt.Histograms,
	}
	for _, name := range ds.Columns {
		p.cols = append(p.cols, newColumn(name))
	}
	p.resolveGroupBy(ds)
	if opt.Correlations {
		p.corr = pairSet{}
	}
	if opt.Duplicates {
		p.seen = make(map[string]struct{}, ds.Len())
		rep.Duplicates = 0
	}

	limit := opt.MaxRows
	if limit <= 0 {
		limit = math.MaxInt
	}
	for _, row := range ds.Rows {
		rep.Rows++
		if rep.Processed >= limit {
			continue
		}
		rep.Processed++
		p.observe(row)
	}
	if rep.Processed < rep.Rows {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", rep.Processed, rep.Rows))
	}
	p.finish()
	return rep
}

// resolveGroupBy maps the requested group columns to indexes, preferring an
// exact header match over a case-insensitive one.
func (p *profiler) resolveGroupBy(ds *dataset.Dataset) {
	names := p.opt.GroupBy
	if len(names) == 0 && p.opt.AutoGroupBy {
		if name, ok := pickGroupColumn(ds, p.opt); ok {
			names = []string{name}
		}
	}
	for _, name := range names {
		idx, ok := ds.ColumnIndex(name)
		if !ok {
			want := strings.TrimSpace(name)
			for j, h := range ds.Columns {
				if strings.EqualFold(strings.TrimSpace(h), want) {
					idx = j
					break
				}
			}
		}
		if idx < 0 {
			p.rep.Warnings = append(p.rep.Warnings, fmt.Sprintf("group-by column %q not found", name))
			continue
		}
		p.groupBy = append(p.groupBy, idx)
		p.rep.GroupBy = append(p.rep.GroupBy, ds.Columns[idx])
	}
}

func (p *profiler) observe(row []string) {
	rep := p.rep
	if len(rep.Samples) < p.opt.SampleRows {
		rep.Samples = append(rep.Samples, append([]string(nil), row...))
	}
	if p.seen != nil {
		key := strings.Join(row, "\x1f")
		if _, dup := p.seen[key]; dup {
			rep.Duplicates++
		} else {
			p.seen[key] = struct{}{}
		}
	}
	g := p.groupFor(row)

	var idx []int
	var vals []float64
	rowMissing := false
	for j, c := range p.cols {
		v := strings.TrimSpace(row[j])
		if v == "" {
			c.missing++
			rep.MissingCells++
			rowMissing = true
			continue
		}
		c.present++
		c.distinct[v] = struct{}{}
		if x, ok := parseNumeric(v, p.opt); ok {
			if strings.HasSuffix(v, "%") {
				c.unit = "%"
			}
			c.addNumber(x, p.keep)
			if g != nil {
				g.add(j, x)
			}
			idx = append(idx, j)
			vals = append(vals, x)
			continue
		}
		if _, ok := parseTimeMaybe(v); ok {
			c.datetime++
			continue
		}
		c.addText(v)
	}
	if rowMissing {
		rep.RowsWithMissing++
	}
	if p.corr != nil {
		p.corr.add(idx, vals)
	}
	if g != nil && g.pairs != nil {
		g.pairs.add(idx, vals)
	}
}

// groupFor returns the group of row, creating it on first sight.
func (p *profiler) groupFor(row []string) *group {
	if len(p.groupBy) == 0 {
		return nil
	}
	parts := make([]string, len(p.groupBy))
	for i, j := range p.groupBy {
		parts[i] = p.cols[j].name + "=" + safeVal(strings.TrimSpace(row[j]))
	}
	key := strings.Join(parts, " | ")
	g := p.groups[key]
	if g == nil {
		g = &group{metrics: make(map[int]*groupMetric)}
		if p.opt.CorrPerGroup {
			g.pairs = pairSet{}
		}
		p.groups[key] = g
	}
	g.size++
	return g
}

func (p *profiler) finish() {
	rep := p.rep
	var numeric []int
	rep.Cols = make([]ColumnSummary, 0, len(p.cols))
	for j, c := range p.cols {
		s := c.summary(p.opt)
		if s.Kind == KindNumeric {
			numeric = append(numeric, j)
		}
		rep.Cols = append(rep.Cols, s)
	}
	name := func(j int) string { return p.cols[j].name }
	rep.Groups = p.groupResults(numeric, name)
	if p.corr != nil && len(numeric) >= 2 {
		rep.Corr = p.corr.matrix(numeric, name)
	}
}

// groupResults keeps the largest groups; ties sort by key.
func (p *profiler) groupResults(numeric []int, name func(int) string) []GroupResult {
	if len(p.groups) == 0 {
		return nil
	}
	out := make([]GroupResult, 0, len(p.groups))
	for key, g := range p.groups {
		gr := GroupResult{Key: key, Size: g.size, Metrics: make(map[string]NumSummary)}
		for _, j := range numeric {
			if m := g.metrics[j]; m != nil {
				gr.Metrics[name(j)] = NumSummary{Count: m.count, Min: m.min, Max: m.max, Mean: m.sum / float64(m.count)}
			}
		}
		if g.pairs != nil {
			gr.CorrPairs = g.pairs.pairs(numeric, name)
			if len(gr.CorrPairs) > maxGroupPairs {
				gr.CorrPairs = gr.CorrPairs[:maxGroupPairs]
			}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > maxGroups {
		out = out[:maxGroups]
	}
	return out
}

// pickGroupColumn returns the first non-numeric column with 2..10 distinct values.
func pickGroupColumn(ds *dataset.Dataset, opt Options) (string, bool) {
	for j, name := range ds.Columns {
		distinct := map[string]struct{}{}
		numeric := false
		for _, row := range ds.Rows {
			v := strings.TrimSpace(row[j])
			if v == "" {
				continue
			}
			if _, ok := parseNumeric(v, opt); ok {
				numeric = true
				break
			}
			distinct[v] = struct{}{}
			if len(distinct) > 10 {
				break
			}
		}
		if !numeric && len(distinct) >= 2 && len(distinct) <= 10 {
			return name, true
		}
	}
	return "", false
}
