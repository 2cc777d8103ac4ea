// Package catalog serves the built-in sample datasets. Iris ships inside the
// binary; the others are downloaded from the seaborn-data mirror on first use
// and cached on disk.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/profiloom/internal/dataset"
	"github.com/KaramelBytes/profiloom/internal/utils"
	"golang.org/x/sync/singleflight"
)

//go:embed data/iris.csv
var irisCSV []byte

// ErrUnknownDataset is returned for names outside the catalog.
var ErrUnknownDataset = errors.New("unknown dataset")

// maxDownloadBytes caps a single catalog download.
const maxDownloadBytes = 64 << 20

// Entry describes one built-in dataset.
type Entry struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Rows        int    `json:"rows"`
	Description string `json:"description"`
	Embedded    bool   `json:"embedded"`
}

var entries = []Entry{
	{Name: "Titanic", Slug: "titanic", Rows: 891,
		Description: "Titanic passenger data showing survival status and passenger attributes. Contains 891 rows with passenger details like age, class, fare, etc."},
	{Name: "Iris", Slug: "iris", Rows: 150, Embedded: true,
		Description: "Measurements of iris flowers from three species. Contains 150 rows with sepal and petal dimensions."},
	{Name: "Tips", Slug: "tips", Rows: 244,
		Description: "Restaurant tipping data showing relationships between bills and tips. Contains 244 rows with meal information and tipping behavior."},
	{Name: "Diamonds", Slug: "diamonds", Rows: 53940,
		Description: "Prices and attributes of round-cut diamonds. Contains 53940 rows with carat, cut, color, clarity and dimensions."},
	{Name: "Penguins", Slug: "penguins", Rows: 344,
		Description: "Size measurements for three penguin species observed in the Palmer Archipelago. Contains 344 rows, some with missing measurements."},
	{Name: "MPG", Slug: "mpg", Rows: 398,
		Description: "Fuel efficiency of cars from the 1970s and early 1980s. Contains 398 rows with engine, weight and origin details."},
}

// Entries returns the catalog in display order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Names returns the display names in catalog order.
func Names() []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

// Lookup finds an entry by display name or slug, ignoring case.
func Lookup(name string) (Entry, bool) {
	name = strings.TrimSpace(name)
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) || strings.EqualFold(e.Slug, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Options configures a Catalog.
type Options struct {
	// DataDir holds cached downloads as <slug>.csv. Empty disables the disk cache.
	DataDir string
	// BaseURL serves <slug>.csv. Empty disables downloads.
	BaseURL string
	// Client defaults to a client with a 60s timeout.
	Client *http.Client
	Logger *slog.Logger
}

// Catalog resolves catalog names to datasets. Loaded datasets are memoized and
// shared by every caller, so they must be treated as read-only.
type Catalog struct {
	dataDir string
	baseURL string
	client  *http.Client
	log     *slog.Logger

	mu    sync.Mutex
	memo  map[string]*dataset.Dataset
	group singleflight.Group
}

// New creates a Catalog.
func New(opt Options) *Catalog {
	client := opt.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{
		dataDir: opt.DataDir,
		baseURL: strings.TrimRight(opt.BaseURL, "/"),
		client:  client,
		log:     log.With("component", "catalog"),
		memo:    map[string]*dataset.Dataset{},
	}
}

// Load returns the dataset for name. Concurrent loads of one name share a single fetch.
func (c *Catalog) Load(ctx context.Context, name string) (*dataset.Dataset, error) {
	e, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	c.mu.Lock()
	ds, hit := c.memo[e.Slug]
	c.mu.Unlock()
	if hit {
		return ds, nil
	}
	// The shared fetch is detached from any one caller's cancellation and is
	// bounded by the client timeout instead.
	ch := c.group.DoChan(e.Slug, func() (interface{}, error) {
		ds, err := c.resolve(context.WithoutCancel(ctx), e)
		if err != nil {
			return nil, err
		}
		if ds.Len() != e.Rows {
			c.log.Warn("row count differs from reference", "dataset", e.Name, "rows", ds.Len(), "expected", e.Rows)
		}
		c.mu.Lock()
		c.memo[e.Slug] = ds
		c.mu.Unlock()
		return ds, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load %s: %w", e.Name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load %s: %w", e.Name, res.Err)
		}
		return res.Val.(*dataset.Dataset), nil
	}
}

// Warm downloads the named datasets (all when empty) into the disk cache.
func (c *Catalog) Warm(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = Names()
	}
	var errs []error
	for _, n := range names {
		if _, err := c.Load(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CachePath returns where the entry is cached, or "" without a data dir.
func (c *Catalog) CachePath(e Entry) string {
	if c.dataDir == "" {
		return ""
	}
	return filepath.Join(c.dataDir, e.Slug+".csv")
}

// Available reports whether the entry can be loaded without a download.
func (c *Catalog) Available(e Entry) bool {
	if e.Embedded {
		return true
	}
	p := c.CachePath(e)
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

func (c *Catalog) resolve(ctx context.Context, e Entry) (*dataset.Dataset, error) {
	if e.Embedded {
		return parse(irisCSV, e)
	}
	if p := c.CachePath(e); p != "" {
		if b, err := os.ReadFile(p); err == nil {
			ds, perr := parse(b, e)
			if perr == nil {
				c.log.Debug("loaded from cache", "dataset", e.Name, "path", p)
				return ds, nil
			}
			c.log.Warn("discarding unreadable cache file", "path", p, "error", perr)
		}
	}
	b, err := c.fetch(ctx, e)
	if err != nil {
		return nil, err
	}
	ds, err := parse(b, e)
	if err != nil {
		return nil, err
	}
	if p := c.CachePath(e); p != "" {
		if err := utils.SafeWriteFile(p, b); err != nil {
			c.log.Warn("cache write failed", "path", p, "error", err)
		}
	}
	return ds, nil
}

func (c *Catalog) fetch(ctx context.Context, e Entry) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("fetch %s: no catalog base URL configured and no cached copy", e.Slug)
	}
	url := c.baseURL + "/" + e.Slug + ".csv"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("fetch: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if len(b) > maxDownloadBytes {
		return nil, fmt.Errorf("fetch: %s exceeds %d bytes", url, maxDownloadBytes)
	}
	c.log.Info("downloaded dataset", "dataset", e.Name, "bytes", len(b), "duration", time.Since(start).String())
	return b, nil
}

func parse(b []byte, e Entry) (*dataset.Dataset, error) {
	return dataset.ReadCSV(bytes.NewReader(b), e.Name, ',')
}
