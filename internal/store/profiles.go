// Package store is the on-disk JSON collaborator: pristine profile catalog
// plus the saved pool of degradation hypotheses. The numerical core never
// touches the filesystem; everything below here does.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ocv-diagnostics/internal/cell"
	"ocv-diagnostics/internal/halfcell"
)

// Profile is the on-disk pristine-cell descriptor.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Files     struct {
		PECsv string `json:"pe_csv"`
		NECsv string `json:"ne_csv"`
	} `json:"files"`
	Endpoints struct {
		SolPEEoC float64 `json:"sol_pe_eoc"`
		SolPEEoD float64 `json:"sol_pe_eod"`
		SolNEEoC float64 `json:"sol_ne_eoc"`
		SolNEEoD float64 `json:"sol_ne_eod"`
	} `json:"endpoints"`
	Grid *struct {
		NumPoints int `json:"num_points"`
	} `json:"grid,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// GridPoints returns the profile's grid resolution, or the package default.
func (p *Profile) GridPoints() int {
	if p.Grid != nil && p.Grid.NumPoints > 0 {
		return p.Grid.NumPoints
	}
	return cell.DefaultGridPoints
}

// CellEndpoints converts the descriptor endpoints to the core type.
func (p *Profile) CellEndpoints() cell.Endpoints {
	return cell.Endpoints{
		SolPEEoC: p.Endpoints.SolPEEoC,
		SolPEEoD: p.Endpoints.SolPEEoD,
		SolNEEoC: p.Endpoints.SolNEEoC,
		SolNEEoD: p.Endpoints.SolNEEoD,
	}
}

// Catalog is the loaded set of pristine profiles, keyed by ID.
type Catalog struct {
	root     string
	profiles map[string]*Profile
	order    []string
}

// LoadCatalog reads every *.json profile under <root>/pristine. Unreadable or
// malformed files are logged and skipped; a missing directory yields an empty
// catalog.
func LoadCatalog(root string) (*Catalog, error) {
	dir := filepath.Join(root, "pristine")
	c := &Catalog{root: root, profiles: map[string]*Profile{}}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("store: reading pristine dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("store: skipping profile %s: %v", path, err)
			continue
		}
		var p Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Printf("store: skipping profile %s: %v", path, err)
			continue
		}
		if p.ID == "" {
			log.Printf("store: skipping profile %s: missing id", path)
			continue
		}
		c.profiles[p.ID] = &p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Get returns the profile with the given ID, or nil.
func (c *Catalog) Get(id string) *Profile { return c.profiles[id] }

// List returns profiles in filename order.
func (c *Catalog) List() []*Profile {
	out := make([]*Profile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.profiles[id])
	}
	return out
}

// BuildPristine loads the profile's half-cell CSVs and builds the pristine
// cell at numPoints (profile default when <= 0).
func (c *Catalog) BuildPristine(p *Profile, numPoints int) (*cell.Pristine, error) {
	if numPoints <= 0 {
		numPoints = p.GridPoints()
	}
	pe, err := c.loadHalfCell(p.Files.PECsv)
	if err != nil {
		return nil, fmt.Errorf("store: profile %q PE curve: %w", p.ID, err)
	}
	ne, err := c.loadHalfCell(p.Files.NECsv)
	if err != nil {
		return nil, fmt.Errorf("store: profile %q NE curve: %w", p.ID, err)
	}
	return cell.BuildPristine(p.ID, pe, ne, p.CellEndpoints(), numPoints)
}

func (c *Catalog) loadHalfCell(path string) (*halfcell.Curve, error) {
	if path == "" {
		return nil, fmt.Errorf("no CSV path configured")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.root, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return halfcell.Parse(string(raw))
}
