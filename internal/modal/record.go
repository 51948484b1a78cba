package modal

import "time"

type OpenPO struct {
	Qty float64 `json:"qty"`
	ETA string  `json:"eta,omitempty"`
}

// Facts are the raw signals gathered for one (sku, location).
type Facts struct {
	OnHand       float64           `json:"on_hand"`
	SalesLastN   []float64         `json:"sales_last_n"`
	LeadTimeDays float64           `json:"lead_time_days"`
	OpenPOs      []OpenPO          `json:"open_pos"`
	Catalog      map[string]string `json:"catalog,omitempty"`
	// Missing is set when inventory had no row for the pair and the facts are zero defaults.
	Missing bool `json:"missing,omitempty"`
}

type Features struct {
	VelocityPerDay   float64 `json:"velocity_per_day"`
	DocDays          float64 `json:"doc_days"`
	NeedDays         float64 `json:"need_days"`
	ROPUnits         float64 `json:"rop_units"`
	IncomingWithinLT float64 `json:"incoming_within_lt"`
	Risk             float64 `json:"risk"`
}

type Decision struct {
	Action Action  `json:"action"`
	Risk   float64 `json:"risk"`
}

// Why lists the factors behind a proposed quantity.
type Why struct {
	Doc      float64 `json:"doc"`
	NeedDays float64 `json:"need_days"`
	Velocity float64 `json:"velocity"`
	Incoming float64 `json:"incoming"`
	ROP      float64 `json:"rop"`
}

// Proposal carries either an order quantity with its factors or a reason. A noop decision leaves it empty.
type Proposal struct {
	OrderQty int    `json:"order_qty,omitempty"`
	Why      *Why   `json:"why,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type AlertBody struct {
	Title      string `json:"title"`
	DocVsNeed  string `json:"doc_vs_need"`
	Suggestion string `json:"suggestion"`
	Why        *Why   `json:"why,omitempty"`
}

type Alert struct {
	Channel   string    `json:"channel"`
	MessageID string    `json:"message_id"`
	Body      AlertBody `json:"body"`
}

type Approval struct {
	Approved bool   `json:"approved"`
	POID     string `json:"po_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Record is the per-item state threaded through the workflow stages.
type Record struct {
	SKUID      string    `json:"sku_id"`
	LocationID string    `json:"location_id"`
	Stage      Stage     `json:"stage"`
	Facts      *Facts    `json:"facts,omitempty"`
	Features   *Features `json:"features,omitempty"`
	Decision   *Decision `json:"decision,omitempty"`
	Proposal   *Proposal `json:"proposal,omitempty"`
	Alerts     []Alert   `json:"alerts,omitempty"`
	Approval   *Approval `json:"approval,omitempty"`
	JournalID  string    `json:"journal_id,omitempty"`
}

// NewRecord returns a record carrying only its identifiers.
func NewRecord(skuID, locationID string) Record {
	return Record{SKUID: skuID, LocationID: locationID, Stage: StageNew}
}

type AuditEvent struct {
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}
