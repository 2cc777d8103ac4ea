package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/profiloom/internal/catalog"
	cfgpkg "github.com/KaramelBytes/profiloom/internal/config"
	"github.com/KaramelBytes/profiloom/internal/dataset"
	"github.com/KaramelBytes/profiloom/internal/report"
	"github.com/KaramelBytes/profiloom/internal/sampler"
	"github.com/KaramelBytes/profiloom/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	prDataset     string
	prOutputPath  string
	prSampleOut   string
	prFormat      string
	prMinimal     bool
	prExplorative bool
	prDarkMode    bool
	prSampleSize  int
	prSeed        int64
	prDelimiter   string
	prSheetName   string
	prSheetIndex  int
	prParse       parseFlags
)

var profileCmd = &cobra.Command{
	Use:   "profile [file]",
	Short: "Sample a dataset and write its profiling report",
	Long: `Profile a CSV/TSV/XLSX file, or a built-in sample dataset via --dataset.
The dataset is sampled (deterministically) and an HTML report is written to
--output. Use --format md to print a Markdown summary instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if (len(args) == 0) == (prDataset == "") {
			return errors.New("provide either a file or --dataset NAME")
		}
		format := strings.ToLower(strings.TrimSpace(prFormat))
		if format != "html" && format != "md" {
			return fmt.Errorf("unsupported --format: %s (use html|md)", prFormat)
		}
		ropt, err := readOptions(prDelimiter, prSheetName, prSheetIndex)
		if err != nil {
			return err
		}
		profiler := newProfiler(c)
		if err := prParse.apply(profiler); err != nil {
			return err
		}

		var (
			ds    *dataset.Dataset
			label string
		)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if prDataset != "" {
			e, ok := catalog.Lookup(prDataset)
			if !ok {
				return fmt.Errorf("%w: %s (available: %s)", catalog.ErrUnknownDataset, prDataset, strings.Join(catalog.Names(), ", "))
			}
			ds, err = newCatalog(c).Load(ctx, e.Name)
			label = e.Name
		} else {
			ds, err = dataset.ReadFile(args[0], ropt)
			label = report.UploadLabel
		}
		if err != nil {
			return err
		}

		settings := reportSettings(cmd, c, label)
		size := prSampleSize
		if size <= 0 {
			size = sampler.DefaultSize(ds.Len())
		} else {
			size = sampler.Clamp(size, ds.Len())
		}
		seed := c.SampleSeed
		if cmd.Flags().Changed("seed") {
			seed = prSeed
		}
		sample := sampler.Sample(ds, size, seed)
		appLogger().Debug("sampled dataset", "dataset", label, "rows", ds.Len(), "sample", sample.Len(), "seed", seed)

		art, err := profiler.Generate(ctx, sample, settings)
		if err != nil {
			return err
		}

		if prSampleOut != "" {
			var buf bytes.Buffer
			if err := sample.WriteCSV(&buf); err != nil {
				return fmt.Errorf("encode sample: %w", err)
			}
			if err := utils.SafeWriteFile(prSampleOut, buf.Bytes()); err != nil {
				return fmt.Errorf("write sample: %w", err)
			}
			fmt.Printf("✓ Wrote %d sampled rows to %s\n", sample.Len(), prSampleOut)
		}

		if format == "md" {
			md := art.Markdown()
			if prOutputPath == "" {
				fmt.Println(md)
				return nil
			}
			if err := utils.SafeWriteFile(prOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote summary to %s\n", prOutputPath)
			return nil
		}
		out := prOutputPath
		if out == "" {
			out = report.Filename
		}
		if err := art.WriteFile(out); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("✓ Wrote %s (%d of %d rows) to %s\n", art.Title, sample.Len(), ds.Len(), out)
		return nil
	},
}

// reportSettings merges the report switches with configured defaults.
// Flags win only when set explicitly.
func reportSettings(cmd *cobra.Command, c *cfgpkg.Global, label string) report.Settings {
	s := report.Settings{
		Title:       report.Title(label),
		Minimal:     c.DefaultMinimal,
		Explorative: c.DefaultExplorative,
		DarkMode:    c.DefaultDarkMode,
	}
	f := cmd.Flags()
	if f.Changed("minimal") {
		s.Minimal, _ = f.GetBool("minimal")
	}
	if f.Changed("explorative") {
		s.Explorative, _ = f.GetBool("explorative")
	}
	if f.Changed("dark-mode") {
		s.DarkMode, _ = f.GetBool("dark-mode")
	}
	return s
}

// parseFlags are the value-parsing and interaction flags shared by profile
// and profile-batch.
type parseFlags struct {
	groupBy   []string
	maxRows   int
	decimal   string
	thousands string
}

func (pf *parseFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVar(&pf.groupBy, "group-by", nil, "comma-separated columns for interactions (default: picked automatically)")
	fs.IntVar(&pf.maxRows, "max-rows", 0, "maximum sampled rows to profile (0 = all)")
	fs.StringVar(&pf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (default '.')")
	fs.StringVar(&pf.thousands, "thousands", "", "thousands separator to strip from numbers: ','|'.'|'space' (default none)")
}

// apply validates the flags and copies them onto p.
func (pf *parseFlags) apply(p *report.Profiler) error {
	switch strings.ToLower(strings.TrimSpace(pf.decimal)) {
	case ",", "comma":
		p.DecimalSeparator = ','
	case ".", "dot", "":
		p.DecimalSeparator = '.'
	default:
		return fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", pf.decimal)
	}
	switch strings.ToLower(pf.thousands) {
	case ",", "comma":
		p.ThousandsSeparator = ','
	case ".", "dot":
		p.ThousandsSeparator = '.'
	case " ", "space":
		p.ThousandsSeparator = ' '
	case "":
	default:
		return fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", pf.thousands)
	}
	if p.ThousandsSeparator == p.DecimalSeparator {
		return fmt.Errorf("--thousands and --decimal must differ")
	}
	if pf.maxRows < 0 {
		return fmt.Errorf("--max-rows must be >= 0, got %d", pf.maxRows)
	}
	for _, g := range pf.groupBy {
		if g = strings.TrimSpace(g); g != "" {
			p.GroupBy = append(p.GroupBy, g)
		}
	}
	p.MaxRows = pf.maxRows
	return nil
}

// readOptions validates the input flags shared by profile and profile-batch.
func readOptions(delim, sheet string, sheetIndex int) (dataset.ReadOptions, error) {
	opt := dataset.ReadOptions{Sheet: sheet, SheetIndex: sheetIndex}
	switch delim {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", delim)
	}
	if sheetIndex < 1 {
		return opt, fmt.Errorf("--sheet-index must be >= 1, got %d", sheetIndex)
	}
	return opt, nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&prDataset, "dataset", "d", "", "built-in dataset to profile (see 'catalog list')")
	profileCmd.Flags().StringVarP(&prOutputPath, "output", "o", "", "report path (default profile_report.html; stdout for --format md)")
	profileCmd.Flags().StringVar(&prSampleOut, "sample-out", "", "optional path to write the sampled rows as CSV")
	profileCmd.Flags().StringVar(&prFormat, "format", "html", "output format: html|md")
	profileCmd.Flags().BoolVar(&prMinimal, "minimal", false, "minimal report: skip correlations, histograms and interactions")
	profileCmd.Flags().BoolVar(&prExplorative, "explorative", true, "explorative report: add group-by interactions")
	profileCmd.Flags().BoolVar(&prDarkMode, "dark-mode", false, "render the report with the dark theme")
	profileCmd.Flags().IntVar(&prSampleSize, "sample-size", 0, "rows to sample (default min(1000, rows); clamped to [min(100, rows), rows])")
	profileCmd.Flags().Int64Var(&prSeed, "seed", sampler.DefaultSeed, "sampling seed (overrides config)")
	profileCmd.Flags().StringVar(&prDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe'")
	profileCmd.Flags().StringVar(&prSheetName, "sheet-name", "", "XLSX: sheet name to profile")
	profileCmd.Flags().IntVar(&prSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	prParse.register(profileCmd.Flags())
}
