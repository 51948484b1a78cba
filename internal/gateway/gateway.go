// Package gateway defines the narrow read/write contracts the decision workflow uses to reach external systems.
package gateway

import (
	"context"

	"replenishment-service/internal/modal"
)

// Filter narrows an inventory read. Empty fields match everything.
type Filter struct {
	SKUID      string
	LocationID string
}

func (f Filter) Match(skuID, locationID string) bool {
	return (f.SKUID == "" || f.SKUID == skuID) && (f.LocationID == "" || f.LocationID == locationID)
}

type InventoryRow struct {
	SKUID      string  `json:"sku_id"`
	LocationID string  `json:"location_id"`
	OnHand     float64 `json:"on_hand"`
}

// Supply is the lead time and open purchase orders for a pair.
type Supply struct {
	LeadTimeDays float64        `json:"lead_time_days"`
	OpenPOs      []modal.OpenPO `json:"open_pos"`
}

type AlertReceipt struct {
	MessageID string `json:"message_id"`
}

type DraftRequest struct {
	SKUID      string `json:"sku_id"`
	LocationID string `json:"location_id"`
	Qty        int    `json:"qty"`
	Notes      string `json:"notes"`
}

type PurchaseOrder struct {
	POID   string `json:"po_id"`
	Status string `json:"status"`
}

type JournalReceipt struct {
	JournalID string `json:"journal_id"`
}

type InventoryReader interface {
	// ReadInventory returns matching rows. No rows is a valid outcome.
	ReadInventory(ctx context.Context, filter Filter) ([]InventoryRow, error)
}

type SalesReader interface {
	// ReadSales returns recent unit sales oldest to newest, at most windowDays long.
	ReadSales(ctx context.Context, skuID, locationID string, windowDays int) ([]float64, error)
}

type SupplyReader interface {
	// ReadSupply returns zero values when the pair has no supply record.
	ReadSupply(ctx context.Context, skuID, locationID string) (Supply, error)
}

type CatalogReader interface {
	// ReadCatalog returns descriptive attributes, empty when the sku is unknown.
	ReadCatalog(ctx context.Context, skuID string) (map[string]string, error)
}

type AlertPublisher interface {
	Post(ctx context.Context, channel string, body modal.AlertBody) (AlertReceipt, error)
}

type PurchaseOrderWriter interface {
	CreateDraft(ctx context.Context, req DraftRequest) (PurchaseOrder, error)
}

type JournalWriter interface {
	Log(ctx context.Context, eventType string, snapshot modal.Record) (JournalReceipt, error)
}

// Pair identifies one (sku, location) item.
type Pair struct {
	SKUID      string `json:"sku_id"`
	LocationID string `json:"location_id"`
}

// DistinctPairs returns each (sku, location) in rows once, in first-seen order.
func DistinctPairs(rows []InventoryRow) []Pair {
	seen := make(map[Pair]struct{}, len(rows))
	pairs := make([]Pair, 0, len(rows))
	for _, row := range rows {
		p := Pair{SKUID: row.SKUID, LocationID: row.LocationID}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs
}
