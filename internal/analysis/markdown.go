package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// Markdown renders a compact plain-text profile for terminals and standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	r.writeOverview(&b)
	r.writeSchema(&b)
	r.writeGroups(&b)
	r.writeCorrelations(&b)
	r.writeSamples(&b)
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func (r *Report) writeOverview(b *strings.Builder) {
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(b, "File: %s\n", r.Name)
	}
	switch {
	case r.Processed > 0 && r.Processed < r.Rows:
		fmt.Fprintf(b, "Rows: ~%d (processed %d)\n", r.Rows, r.Processed)
	case r.Rows > 0:
		fmt.Fprintf(b, "Rows: %d\n", r.Rows)
	}
	fmt.Fprintf(b, "Columns: %d\n", len(r.Cols))
	if r.MissingCells > 0 {
		fmt.Fprintf(b, "Missing cells: %d (rows affected: %d)\n", r.MissingCells, r.RowsWithMissing)
	}
	if r.Duplicates > 0 {
		fmt.Fprintf(b, "Duplicate rows: %d\n", r.Duplicates)
	}
	b.WriteString("\n[SCHEMA]\n")
}

func (r *Report) writeSchema(b *strings.Builder) {
	for _, c := range r.Cols {
		name := safeName(c.Name)
		if c.Unit != "" {
			name += " [" + c.Unit + "]"
		}
		fmt.Fprintf(b, "- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, c.MissingPct())
		switch c.Kind {
		case KindNumeric:
			fmt.Fprintf(b, "; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
			if c.HasQuantiles {
				fmt.Fprintf(b, ", median %.4g (IQR %.4g to %.4g)", c.Median, c.Q1, c.Q3)
			}
			if c.OutlierThreshold > 0 {
				fmt.Fprintf(b, "; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold)
				if c.OutliersMaxAbsZ > 0 {
					fmt.Fprintf(b, " (max |z| %.2f)", c.OutliersMaxAbsZ)
				}
			}
		case KindCategorical:
			if len(c.TopValues) == 0 {
				break
			}
			tops := make([]string, len(c.TopValues))
			for i, kv := range c.TopValues {
				tops[i] = fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count)
			}
			b.WriteString("; top: " + strings.Join(tops, ", "))
			if c.Unique > len(c.TopValues) {
				fmt.Fprintf(b, "; unique=%d", c.Unique)
			}
		case KindText:
			if len(c.ExampleTexts) == 0 {
				break
			}
			ex := make([]string, len(c.ExampleTexts))
			for i, v := range c.ExampleTexts {
				ex[i] = safeVal(v)
			}
			b.WriteString("; e.g. " + strings.Join(ex, " | "))
		}
		b.WriteString("\n")
	}
}

func (r *Report) writeGroups(b *strings.Builder) {
	if len(r.Groups) == 0 {
		return
	}
	b.WriteString("\n[GROUP-BY SUMMARY]\n")
	withPairs := false
	for _, g := range r.Groups {
		fmt.Fprintf(b, "- %s (n=%d)\n", g.Key, g.Size)
		keys := make([]string, 0, len(g.Metrics))
		for k := range g.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys[:min(6, len(keys))] {
			m := g.Metrics[k]
			fmt.Fprintf(b, "  - %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max)
		}
		withPairs = withPairs || len(g.CorrPairs) > 0
	}
	if !withPairs {
		return
	}
	b.WriteString("\n[PER-GROUP CORRELATIONS]\n")
	for _, g := range r.Groups {
		if len(g.CorrPairs) == 0 {
			continue
		}
		fmt.Fprintf(b, "- %s:\n", g.Key)
		for _, p := range g.CorrPairs[:min(8, len(g.CorrPairs))] {
			fmt.Fprintf(b, "  - %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
		}
	}
}

func (r *Report) writeCorrelations(b *strings.Builder) {
	if r.Corr == nil || len(r.Corr.Columns) < 2 {
		return
	}
	b.WriteString("\n[CORRELATIONS]\n")
	for _, p := range r.Corr.TopPairs(10) {
		fmt.Fprintf(b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
	}
}

func (r *Report) writeSamples(b *strings.Builder) {
	if len(r.Samples) == 0 {
		return
	}
	head := make([]string, len(r.Cols))
	rule := make([]string, len(r.Cols))
	for i, c := range r.Cols {
		head[i] = safeName(c.Name)
		rule[i] = "---"
	}
	b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
	writeRow(b, head)
	writeRow(b, rule)
	for _, row := range r.Samples {
		cells := make([]string, len(r.Cols))
		for i := range cells {
			if i < len(row) {
				cells[i] = safeVal(truncate(row[i], 80))
			}
		}
		writeRow(b, cells)
	}
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
}

// truncate shortens s to at most n bytes, marking the cut with "...".
func truncate(s string, n int) string {
	if len(s) <= n || n < 4 {
		return s
	}
	return s[:n-3] + "..."
}

func safeName(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string {
	return strings.NewReplacer("\n", " ", "|", "/").Replace(s)
}
