package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ocv-diagnostics/internal/diagnose"
	"ocv-diagnostics/internal/export"
	"ocv-diagnostics/internal/matfile"
	"ocv-diagnostics/internal/store"
)

var fitFlags struct {
	profile       string
	dir           string
	workers       int
	gradientLimit float64
	numStarts     int
	maxIter       int
	seed          int64
	normalized    bool
	output        string
	save          bool
	label         string
}

var fitCmd = &cobra.Command{
	Use:   "fit [measurement.{mat,json}]",
	Short: "Fit degradation parameters to measured OCV curves",
	Long: `Estimate LLI and LAM parameters from a measured capacity/OCV curve,
either a MAT file (a "data" struct with capacity and ocv vectors) or a
JSON file with "capacity" and "ocv" arrays.

Usage:
  ocvdiag fit cycle-0200.mat --profile nmc-graphite
  ocvdiag fit --dir measurements/ --profile nmc-graphite --workers 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFit,
}

func init() {
	f := fitCmd.Flags()
	f.StringVar(&fitFlags.profile, "profile", "", "Pristine profile ID from the catalog")
	f.StringVar(&fitFlags.dir, "dir", "", "Fit every *.mat file in this directory instead of one file")
	f.IntVar(&fitFlags.workers, "workers", 4, "Concurrent fits in --dir mode")
	f.Float64Var(&fitFlags.gradientLimit, "gradient-limit", 0, "Flat-region slope threshold, V per SOC % (default 0.1)")
	f.IntVar(&fitFlags.numStarts, "num-starts", 0, "Random multistart count (default 100)")
	f.IntVar(&fitFlags.maxIter, "max-iter", 0, "Simplex iteration cap per start (default 200)")
	f.Int64Var(&fitFlags.seed, "seed", 0, "Start-point generator seed; equal seeds reproduce fits")
	f.BoolVar(&fitFlags.normalized, "normalized", false, "Measured capacity is pre-normalized to [0,1]")
	f.StringVarP(&fitFlags.output, "output", "o", "", "Write measured-vs-predicted CSV here (single-file mode)")
	f.BoolVar(&fitFlags.save, "save", false, "Save the fit to the degradation pool")
	f.StringVar(&fitFlags.label, "label", "", "Pool item label (with --save)")
}

func runFit(cmd *cobra.Command, args []string) error {
	if fitFlags.profile == "" {
		return fmt.Errorf("a profile ID is required\n\nUsage: ocvdiag fit <measurement.mat> --profile <id>")
	}
	if fitFlags.dir == "" && len(args) == 0 {
		return fmt.Errorf("a measurement file or --dir is required")
	}

	catalog, err := store.LoadCatalog(rootFlags.dataDir)
	if err != nil {
		return err
	}
	p := catalog.Get(fitFlags.profile)
	if p == nil {
		return fmt.Errorf("no pristine profile %q under %s (known: %s)",
			fitFlags.profile, rootFlags.dataDir, knownProfiles(catalog))
	}
	pr, err := catalog.BuildPristine(p, 0)
	if err != nil {
		return err
	}

	opts := diagnose.Options{
		GradientLimit:      fitFlags.gradientLimit,
		NumStarts:          fitFlags.numStarts,
		MaxIter:            fitFlags.maxIter,
		Seed:               fitFlags.seed,
		CapacityNormalized: fitFlags.normalized,
	}

	if fitFlags.dir != "" {
		return runFitDir(cmd, catalog, pr.ProfileID, opts)
	}

	path := args[0]
	m, res, err := fitFile(catalog, fitFlags.profile, path, opts)
	if err != nil {
		return err
	}
	printFit(cmd, path, res)

	if fitFlags.output != "" {
		if err := export.WriteFitCSV(fitFlags.output, m, res); err != nil {
			return fmt.Errorf("write fit: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Fit written to: %s\n", fitFlags.output)
	}
	if fitFlags.save {
		saved, err := saveFit(catalog, fitFlags.profile, res)
		if err != nil {
			return fmt.Errorf("save fit: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved to pool as: %s\n", saved.ID)
	}
	return nil
}

// runFitDir fits every MAT file in the directory concurrently. Per-file
// failures are reported, not fatal.
func runFitDir(cmd *cobra.Command, catalog *store.Catalog, profileID string, opts diagnose.Options) error {
	entries, err := os.ReadDir(fitFlags.dir)
	if err != nil {
		return err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".mat") && !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(fitFlags.dir, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return fmt.Errorf("no *.mat or *.json files under %s", fitFlags.dir)
	}

	type outcome struct {
		path string
		res  *diagnose.Result
		err  error
	}
	results := make([]outcome, len(paths))

	var g errgroup.Group
	g.SetLimit(fitFlags.workers)
	var mu sync.Mutex
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			_, res, err := fitFile(catalog, profileID, path, opts)
			mu.Lock()
			results[i] = outcome{path: path, res: res, err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%s: FAILED: %v\n", r.path, r.err)
			continue
		}
		printFit(cmd, r.path, r.res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d fits, %d failed\n", len(results), failed)
	return nil
}

func fitFile(catalog *store.Catalog, profileID, path string, opts diagnose.Options) (*diagnose.Measured, *diagnose.Result, error) {
	capacity, ocv, err := readMeasurement(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	m, err := diagnose.NewMeasured(capacity, ocv)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	// Each fit rebuilds the pristine model so concurrent runs share nothing.
	p := catalog.Get(profileID)
	pr, err := catalog.BuildPristine(p, 0)
	if err != nil {
		return nil, nil, err
	}
	res, err := diagnose.Estimate(pr, m, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, res, nil
}

// readMeasurement loads capacity/ocv vectors from a MAT file or, for .json
// paths, a {"capacity": [...], "ocv": [...]} document.
func readMeasurement(path string) ([]float64, []float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(path, ".json") {
		var doc struct {
			Capacity []float64 `json:"capacity"`
			OCV      []float64 `json:"ocv"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, nil, err
		}
		if len(doc.Capacity) != len(doc.OCV) {
			return nil, nil, fmt.Errorf("capacity (%d) and ocv (%d) lengths differ", len(doc.Capacity), len(doc.OCV))
		}
		return doc.Capacity, doc.OCV, nil
	}
	doc, err := matfile.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	return matfile.MeasuredVectors(doc)
}

func printFit(cmd *cobra.Command, path string, res *diagnose.Result) {
	fmt.Fprintf(cmd.OutOrStdout(),
		"%s: LLI=%.4f LAM_PE=%.4f LAM_NE=%.4f rmse=%.3e capacity=%.4f (%d/%d starts, %d flat points)\n",
		path, res.Theta.LLI, res.Theta.LAMPE, res.Theta.LAMNE,
		res.RMSE, res.Degraded.CellCapacity,
		res.StartsSucceeded, res.StartsTried, res.NumFlat)
}

func saveFit(catalog *store.Catalog, profileID string, res *diagnose.Result) (*store.PoolItem, error) {
	pool := store.NewPool(rootFlags.dataDir)
	var item store.PoolItem
	item.Label = fitFlags.label
	item.PristineID = profileID
	item.PristineSnapshot = catalog.Get(profileID)
	item.Degradation.LLI = res.Theta.LLI
	item.Degradation.LAMPE = res.Theta.LAMPE
	item.Degradation.LAMNE = res.Theta.LAMNE
	item.Solver = map[string]any{
		"rmse":             res.RMSE,
		"starts_tried":     res.StartsTried,
		"starts_succeeded": res.StartsSucceeded,
	}
	return pool.Save(item)
}
