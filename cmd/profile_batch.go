package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/KaramelBytes/profiloom/internal/dataset"
	"github.com/KaramelBytes/profiloom/internal/report"
	"github.com/KaramelBytes/profiloom/internal/sampler"
	"github.com/KaramelBytes/profiloom/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	pbOutDir      string
	pbFormat      string
	pbMinimal     bool
	pbExplorative bool
	pbDarkMode    bool
	pbSampleSize  int
	pbDelimiter   string
	pbSheetName   string
	pbSheetIndex  int
	pbJobs        int
	pbQuiet       bool
	pbParse       parseFlags
)

var profileBatchCmd = &cobra.Command{
	Use:   "profile-batch <files...>",
	Short: "Profile multiple CSV/TSV/XLSX files into an output directory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		format := strings.ToLower(strings.TrimSpace(pbFormat))
		if format != "html" && format != "md" {
			return fmt.Errorf("unsupported --format: %s (use html|md)", pbFormat)
		}
		ropt, err := readOptions(pbDelimiter, pbSheetName, pbSheetIndex)
		if err != nil {
			return err
		}
		profiler := newProfiler(c)
		if err := pbParse.apply(profiler); err != nil {
			return err
		}
		if err := utils.EnsureDir(pbOutDir); err != nil {
			return fmt.Errorf("create out dir: %w", err)
		}

		// Output names are reserved up front so parallel jobs never collide.
		ext := ".profile.html"
		if format == "md" {
			ext = ".profile.md"
		}
		reserved := map[string]struct{}{}
		outputs := make([]string, len(files))
		for i, path := range files {
			base := filepath.Base(path)
			safe := strings.TrimSuffix(base, filepath.Ext(base))
			if pbSheetName != "" {
				safe = safe + "__sheet-" + sheetSlug(pbSheetName)
			}
			outFile := filepath.Join(pbOutDir, safe+ext)
			if taken(outFile, reserved) {
				idx := 2
				for {
					cand := filepath.Join(pbOutDir, fmt.Sprintf("%s__%d%s", safe, idx, ext))
					if !taken(cand, reserved) {
						if !pbQuiet {
							fmt.Printf("⚠ Detected existing report, writing to %s to avoid overwrite.\n", filepath.Base(cand))
						}
						outFile = cand
						break
					}
					idx++
				}
			}
			reserved[outFile] = struct{}{}
			outputs[i] = outFile
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		settings := reportSettings(cmd, c, report.UploadLabel)
		total := len(files)
		var mu sync.Mutex
		done := 0

		g, gctx := errgroup.WithContext(ctx)
		jobs := pbJobs
		if jobs < 1 {
			jobs = 1
		}
		g.SetLimit(jobs)
		for i := range files {
			path, outFile := files[i], outputs[i]
			g.Go(func() error {
				ds, err := dataset.ReadFile(path, ropt)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				size := pbSampleSize
				if size <= 0 {
					size = sampler.DefaultSize(ds.Len())
				} else {
					size = sampler.Clamp(size, ds.Len())
				}
				sample := sampler.Sample(ds, size, c.SampleSeed)
				s := settings
				s.Title = fmt.Sprintf("%s Profiling Report", filepath.Base(path))
				art, err := profiler.Generate(gctx, sample, s)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if format == "md" {
					err = utils.SafeWriteFile(outFile, []byte(art.Markdown()))
				} else {
					err = art.WriteFile(outFile)
				}
				if err != nil {
					return fmt.Errorf("write %s: %w", outFile, err)
				}
				mu.Lock()
				done++
				if !pbQuiet {
					fmt.Printf("[%d/%d] %s → %s\n", done, total, filepath.Base(path), filepath.Base(outFile))
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if !pbQuiet {
			fmt.Printf("✓ Profiled %d files into %s\n", total, pbOutDir)
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func taken(path string, reserved map[string]struct{}) bool {
	if _, ok := reserved[path]; ok {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

func sheetSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			b.WriteRune('-')
		}
	}
	ss := strings.Trim(b.String(), "-")
	if ss == "" {
		ss = "sheet"
	}
	return ss
}

func init() {
	rootCmd.AddCommand(profileBatchCmd)
	profileBatchCmd.Flags().StringVar(&pbOutDir, "out-dir", "profiles", "directory for the generated reports")
	profileBatchCmd.Flags().StringVar(&pbFormat, "format", "html", "output format: html|md")
	profileBatchCmd.Flags().BoolVar(&pbMinimal, "minimal", false, "minimal reports: skip correlations, histograms and interactions")
	profileBatchCmd.Flags().BoolVar(&pbExplorative, "explorative", true, "explorative reports: add group-by interactions")
	profileBatchCmd.Flags().BoolVar(&pbDarkMode, "dark-mode", false, "render reports with the dark theme")
	profileBatchCmd.Flags().IntVar(&pbSampleSize, "sample-size", 0, "rows to sample per file (default min(1000, rows))")
	profileBatchCmd.Flags().StringVar(&pbDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe'")
	profileBatchCmd.Flags().StringVar(&pbSheetName, "sheet-name", "", "XLSX: sheet name to profile")
	profileBatchCmd.Flags().IntVar(&pbSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	profileBatchCmd.Flags().IntVarP(&pbJobs, "jobs", "j", 2, "files profiled in parallel")
	profileBatchCmd.Flags().BoolVar(&pbQuiet, "quiet", false, "suppress progress and non-essential output")
	pbParse.register(profileBatchCmd.Flags())
}
