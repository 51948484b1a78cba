// Package snapshot reads inventory, sales, supply and catalog facts from the CSV/JSON snapshot files
// exported by the warehouse, point-of-sale, ERP and catalog systems.
//
// Files are re-read on every call so a long-running worker always sees the latest export.
package snapshot

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"replenishment-service/internal/gateway"
)

const (
	InventoryFile = "inventory_snapshot.csv"
	SalesFile     = "sales.csv"
	SupplyFile    = "supply.json"
	CatalogFile   = "catalog.csv"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// Store serves every fact reader from one data directory.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir %s is not a directory", dir)
	}
	return &Store{dir: filepath.Clean(dir)}, nil
}

func (s *Store) ReadInventory(ctx context.Context, filter gateway.Filter) ([]gateway.InventoryRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := s.readCSV(InventoryFile)
	if err != nil {
		return nil, err
	}
	rows := make([]gateway.InventoryRow, 0, len(table.rows))
	for i, rec := range table.rows {
		sku, loc := table.get(rec, "sku_id"), table.get(rec, "location_id")
		if !filter.Match(sku, loc) {
			continue
		}
		onHand, err := parseFloat(table.get(rec, "on_hand"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d on_hand: %w", InventoryFile, i+2, err)
		}
		rows = append(rows, gateway.InventoryRow{SKUID: sku, LocationID: loc, OnHand: onHand})
	}
	return rows, nil
}

type sale struct {
	at    time.Time
	units float64
}

func (s *Store) ReadSales(ctx context.Context, skuID, locationID string, windowDays int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := s.readCSV(SalesFile)
	if err != nil {
		return nil, err
	}
	var sales []sale
	for i, rec := range table.rows {
		if table.get(rec, "sku_id") != skuID || table.get(rec, "location_id") != locationID {
			continue
		}
		at, err := parseTime(table.get(rec, "ts"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d ts: %w", SalesFile, i+2, err)
		}
		units, err := parseFloat(table.get(rec, "units_sold"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d units_sold: %w", SalesFile, i+2, err)
		}
		sales = append(sales, sale{at: at, units: units})
	}
	sort.SliceStable(sales, func(i, j int) bool { return sales[i].at.Before(sales[j].at) })
	if windowDays > 0 && len(sales) > windowDays {
		sales = sales[len(sales)-windowDays:]
	}

	out := make([]float64, len(sales))
	for i, sl := range sales {
		out[i] = sl.units
	}
	return out, nil
}

type supplyEntry struct {
	SKUID      string `json:"sku_id"`
	LocationID string `json:"location_id"`
	gateway.Supply
}

func (s *Store) ReadSupply(ctx context.Context, skuID, locationID string) (gateway.Supply, error) {
	if err := ctx.Err(); err != nil {
		return gateway.Supply{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, SupplyFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return gateway.Supply{}, nil
		}
		return gateway.Supply{}, fmt.Errorf("read %s: %w", SupplyFile, err)
	}
	var entries []supplyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return gateway.Supply{}, fmt.Errorf("decode %s: %w", SupplyFile, err)
	}
	for _, e := range entries {
		if e.SKUID == skuID && e.LocationID == locationID {
			return e.Supply, nil
		}
	}
	return gateway.Supply{}, nil
}

func (s *Store) ReadCatalog(ctx context.Context, skuID string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := s.readCSV(CatalogFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	for _, rec := range table.rows {
		if table.get(rec, "sku_id") != skuID {
			continue
		}
		attrs := make(map[string]string, len(table.header))
		for i, col := range table.header {
			if i < len(rec) {
				attrs[col] = rec[i]
			}
		}
		return attrs, nil
	}
	return map[string]string{}, nil
}

type csvTable struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func (t *csvTable) get(rec []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (s *Store) readCSV(name string) (*csvTable, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &csvTable{index: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	table := &csvTable{header: make([]string, len(header)), index: make(map[string]int, len(header))}
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		table.header[i] = col
		table.index[col] = i
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	table.rows = rows
	return table, nil
}

func parseFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}
