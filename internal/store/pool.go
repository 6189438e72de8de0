package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ocv-diagnostics/internal/cell"
)

// ErrNotFound reports a pool lookup for an ID with no stored item.
var ErrNotFound = errors.New("store: pool item not found")

// PoolItem is one saved degradation hypothesis.
type PoolItem struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Label     string `json:"label,omitempty"`

	PristineID       string   `json:"pristine_id"`
	PristineSnapshot *Profile `json:"pristine_snapshot,omitempty"`

	Degradation struct {
		LLI   float64 `json:"lli"`
		LAMPE float64 `json:"lam_pe"`
		LAMNE float64 `json:"lam_ne"`
	} `json:"degradation"`

	Solver map[string]any `json:"solver,omitempty"`
}

// Params converts the stored degradation to the core type.
func (it *PoolItem) Params() cell.Params {
	return cell.Params{LLI: it.Degradation.LLI, LAMPE: it.Degradation.LAMPE, LAMNE: it.Degradation.LAMNE}
}

// Pool stores degradation hypotheses as one JSON file per item.
type Pool struct {
	dir string
}

// NewPool roots a pool at <root>/degraded_pool.
func NewPool(root string) *Pool {
	return &Pool{dir: filepath.Join(root, "degraded_pool")}
}

// Save assigns a fresh ID and timestamp and writes the item to disk.
func (p *Pool) Save(item PoolItem) (*PoolItem, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating pool dir: %w", err)
	}
	item.ID = "deg_" + uuid.NewString()
	item.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	raw, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("store: encoding pool item: %w", err)
	}
	path := filepath.Join(p.dir, item.ID+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return nil, fmt.Errorf("store: writing pool item: %w", err)
	}
	return &item, nil
}

// List returns all readable pool items, newest first. Malformed files are
// logged and skipped.
func (p *Pool) List() ([]*PoolItem, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: reading pool dir: %w", err)
	}

	var items []*PoolItem
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		item, err := p.read(filepath.Join(p.dir, e.Name()))
		if err != nil {
			log.Printf("store: skipping pool item %s: %v", e.Name(), err)
			continue
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })
	return items, nil
}

// Load fetches one pool item by ID.
func (p *Pool) Load(id string) (*PoolItem, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("store: invalid pool item id %q", id)
	}
	item, err := p.read(filepath.Join(p.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return nil, err
	}
	return item, nil
}

func (p *Pool) read(path string) (*PoolItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var item PoolItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("store: decoding %s: %w", filepath.Base(path), err)
	}
	return &item, nil
}
