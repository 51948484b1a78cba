package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"replenishment-service/internal/gateway"
	"replenishment-service/internal/modal"
)

// Activity names, as registered from the Activities struct methods.
const (
	FetchSignalsName  = "FetchSignals"
	PostAlertName     = "PostAlert"
	CreateDraftPOName = "CreateDraftPO"
	WriteJournalName  = "WriteJournal"
)

// Activities is the collaborator layer of the decision workflow. Every gateway is constructed once by the
// worker and shared by all executions, so implementations must be safe for concurrent use.
type Activities struct {
	Inventory gateway.InventoryReader
	Sales     gateway.SalesReader
	Supply    gateway.SupplyReader
	Catalog   gateway.CatalogReader
	Alerts    gateway.AlertPublisher
	Orders    gateway.PurchaseOrderWriter
	Journal   gateway.JournalWriter
}

type FetchSignalsInput struct {
	SKUID              string `json:"sku_id"`
	LocationID         string `json:"location_id"`
	VelocityWindowDays int    `json:"velocity_window_days"`
}

// FetchSignals gathers the raw facts for one pair. A pair missing from inventory yields zero facts, not an error.
func (a *Activities) FetchSignals(ctx context.Context, in FetchSignalsInput) (modal.Facts, error) {
	logger := activity.GetLogger(ctx)

	rows, err := a.Inventory.ReadInventory(ctx, gateway.Filter{SKUID: in.SKUID, LocationID: in.LocationID})
	if err != nil {
		return modal.Facts{}, collaboratorFailure("inventory", "read", err)
	}
	if len(rows) == 0 {
		logger.Warn("no inventory row, using zero facts", "sku_id", in.SKUID, "location_id", in.LocationID)
		return modal.Facts{
			SalesLastN: []float64{},
			OpenPOs:    []modal.OpenPO{},
			Missing:    true,
		}, nil
	}

	sales, err := a.Sales.ReadSales(ctx, in.SKUID, in.LocationID, in.VelocityWindowDays)
	if err != nil {
		return modal.Facts{}, collaboratorFailure("sales", "read", err)
	}
	supply, err := a.Supply.ReadSupply(ctx, in.SKUID, in.LocationID)
	if err != nil {
		return modal.Facts{}, collaboratorFailure("supply", "read", err)
	}
	catalog, err := a.Catalog.ReadCatalog(ctx, in.SKUID)
	if err != nil {
		return modal.Facts{}, collaboratorFailure("catalog", "read", err)
	}

	facts := modal.Facts{
		OnHand:       rows[0].OnHand,
		SalesLastN:   nonNilFloats(sales),
		LeadTimeDays: supply.LeadTimeDays,
		OpenPOs:      supply.OpenPOs,
		Catalog:      catalog,
	}
	if facts.OpenPOs == nil {
		facts.OpenPOs = []modal.OpenPO{}
	}
	logger.Info("signals fetched",
		"sku_id", in.SKUID,
		"location_id", in.LocationID,
		"on_hand", facts.OnHand,
		"sales_points", len(facts.SalesLastN),
		"open_pos", len(facts.OpenPOs),
	)
	return facts, nil
}

type PostAlertInput struct {
	Channel string          `json:"channel"`
	Body    modal.AlertBody `json:"body"`
}

func (a *Activities) PostAlert(ctx context.Context, in PostAlertInput) (gateway.AlertReceipt, error) {
	receipt, err := a.Alerts.Post(ctx, in.Channel, in.Body)
	if err != nil {
		return gateway.AlertReceipt{}, collaboratorFailure("alerts", "post", err)
	}
	activity.GetLogger(ctx).Info("alert posted", "channel", in.Channel, "message_id", receipt.MessageID)
	return receipt, nil
}

func (a *Activities) CreateDraftPO(ctx context.Context, req gateway.DraftRequest) (gateway.PurchaseOrder, error) {
	po, err := a.Orders.CreateDraft(ctx, req)
	if err != nil {
		return gateway.PurchaseOrder{}, collaboratorFailure("orders", "create_draft", err)
	}
	activity.GetLogger(ctx).Info("draft purchase order created",
		"po_id", po.POID, "sku_id", req.SKUID, "location_id", req.LocationID, "qty", req.Qty)
	return po, nil
}

type WriteJournalInput struct {
	EventType string       `json:"event_type"`
	Record    modal.Record `json:"record"`
}

func (a *Activities) WriteJournal(ctx context.Context, in WriteJournalInput) (gateway.JournalReceipt, error) {
	receipt, err := a.Journal.Log(ctx, in.EventType, in.Record)
	if err != nil {
		return gateway.JournalReceipt{}, collaboratorFailure("journal", "log", err)
	}
	return receipt, nil
}

func collaboratorFailure(gw, op string, err error) error {
	return &modal.CollaboratorError{Gateway: gw, Op: op, Err: err}
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
