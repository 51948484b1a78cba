// Package gatewaytest provides in-memory gateway implementations for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"replenishment-service/internal/gateway"
	"replenishment-service/internal/modal"
)

type pairKey struct{ sku, loc string }

// Posted is one alert captured by Memory.
type Posted struct {
	Channel string
	Body    modal.AlertBody
}

// Journaled is one journal entry captured by Memory.
type Journaled struct {
	EventType string
	Record    modal.Record
}

// Memory implements every gateway contract over maps. Set a *Err field to make that call fail.
type Memory struct {
	mu sync.Mutex

	Rows     []gateway.InventoryRow
	Sales    map[pairKey][]float64
	Supplies map[pairKey]gateway.Supply
	Catalogs map[string]map[string]string

	InventoryErr error
	SalesErr     error
	AlertErr     error
	OrderErr     error
	JournalErr   error

	Posted    []Posted
	Drafts    []gateway.DraftRequest
	Journaled []Journaled
}

func NewMemory() *Memory {
	return &Memory{
		Sales:    map[pairKey][]float64{},
		Supplies: map[pairKey]gateway.Supply{},
		Catalogs: map[string]map[string]string{},
	}
}

// AddItem seeds inventory, sales and supply for one pair.
func (m *Memory) AddItem(sku, loc string, onHand float64, sales []float64, supply gateway.Supply) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows = append(m.Rows, gateway.InventoryRow{SKUID: sku, LocationID: loc, OnHand: onHand})
	m.Sales[pairKey{sku, loc}] = sales
	m.Supplies[pairKey{sku, loc}] = supply
	return m
}

func (m *Memory) ReadInventory(ctx context.Context, filter gateway.Filter) ([]gateway.InventoryRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InventoryErr != nil {
		return nil, m.InventoryErr
	}
	var out []gateway.InventoryRow
	for _, row := range m.Rows {
		if filter.Match(row.SKUID, row.LocationID) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *Memory) ReadSales(ctx context.Context, skuID, locationID string, windowDays int) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SalesErr != nil {
		return nil, m.SalesErr
	}
	sales := m.Sales[pairKey{skuID, locationID}]
	if windowDays > 0 && len(sales) > windowDays {
		sales = sales[len(sales)-windowDays:]
	}
	return append([]float64(nil), sales...), nil
}

func (m *Memory) ReadSupply(ctx context.Context, skuID, locationID string) (gateway.Supply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Supplies[pairKey{skuID, locationID}], nil
}

func (m *Memory) ReadCatalog(ctx context.Context, skuID string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attrs := map[string]string{}
	for k, v := range m.Catalogs[skuID] {
		attrs[k] = v
	}
	return attrs, nil
}

func (m *Memory) Post(ctx context.Context, channel string, body modal.AlertBody) (gateway.AlertReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AlertErr != nil {
		return gateway.AlertReceipt{}, m.AlertErr
	}
	m.Posted = append(m.Posted, Posted{Channel: channel, Body: body})
	return gateway.AlertReceipt{MessageID: fmt.Sprintf("msg-%d", len(m.Posted))}, nil
}

func (m *Memory) CreateDraft(ctx context.Context, req gateway.DraftRequest) (gateway.PurchaseOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OrderErr != nil {
		return gateway.PurchaseOrder{}, m.OrderErr
	}
	m.Drafts = append(m.Drafts, req)
	return gateway.PurchaseOrder{POID: fmt.Sprintf("PO-%s-%s-%d", req.SKUID, req.LocationID, req.Qty), Status: "DRAFT"}, nil
}

func (m *Memory) Log(ctx context.Context, eventType string, rec modal.Record) (gateway.JournalReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.JournalErr != nil {
		return gateway.JournalReceipt{}, m.JournalErr
	}
	m.Journaled = append(m.Journaled, Journaled{EventType: eventType, Record: rec})
	return gateway.JournalReceipt{JournalID: fmt.Sprintf("jrnl-%d", len(m.Journaled))}, nil
}
