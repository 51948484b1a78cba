// Package mysqlpo writes draft purchase orders into the ERP's MySQL staging table.
package mysqlpo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"replenishment-service/internal/gateway"
)

const StatusDraft = "DRAFT"

// DraftPurchaseOrder is a purchase order awaiting ERP processing.
type DraftPurchaseOrder struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	POID       string    `gorm:"column:po_id;size:64;uniqueIndex"`
	SKUID      string    `gorm:"column:sku_id;size:64;index:idx_draft_po_pair"`
	LocationID string    `gorm:"column:location_id;size:64;index:idx_draft_po_pair"`
	Qty        int       `gorm:"column:qty"`
	Status     string    `gorm:"column:status;size:16"`
	Notes      string    `gorm:"column:notes;size:512"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (DraftPurchaseOrder) TableName() string {
	return "draft_purchase_orders"
}

type Writer struct {
	db    *gorm.DB
	newID func() string
}

// NewWriter connects to MySQL and, when migrate is set, creates the staging table.
func NewWriter(dsn string, migrate bool) (*Writer, error) {
	var m func(*gorm.DB) error
	if migrate {
		m = autoMigrate
	}
	return openWriter(mysql.Open(dsn), &gorm.Config{}, m)
}

func openWriter(dialector gorm.Dialector, cfg *gorm.Config, migrate func(*gorm.DB) error) (*Writer, error) {
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if migrate != nil {
		if err := migrate(db); err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, fmt.Errorf("failed to migrate draft purchase orders: %w", err)
		}
	}
	return newWriter(db), nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&DraftPurchaseOrder{})
}

func newWriter(db *gorm.DB) *Writer {
	return &Writer{
		db:    db,
		newID: func() string { return "PO-" + strings.ToUpper(uuid.NewString()[:8]) },
	}
}

func (w *Writer) CreateDraft(ctx context.Context, req gateway.DraftRequest) (gateway.PurchaseOrder, error) {
	row, err := w.draft(req)
	if err != nil {
		return gateway.PurchaseOrder{}, err
	}
	if result := w.db.WithContext(ctx).Create(&row); result.Error != nil {
		return gateway.PurchaseOrder{}, fmt.Errorf("failed to create draft purchase order: %w", result.Error)
	}
	return gateway.PurchaseOrder{POID: row.POID, Status: row.Status}, nil
}

func (w *Writer) draft(req gateway.DraftRequest) (DraftPurchaseOrder, error) {
	sku := strings.TrimSpace(req.SKUID)
	loc := strings.TrimSpace(req.LocationID)
	if sku == "" || loc == "" {
		return DraftPurchaseOrder{}, fmt.Errorf("sku id and location id are required")
	}
	if req.Qty <= 0 {
		return DraftPurchaseOrder{}, fmt.Errorf("qty must be positive, got %d", req.Qty)
	}
	return DraftPurchaseOrder{
		POID:       w.newID(),
		SKUID:      sku,
		LocationID: loc,
		Qty:        req.Qty,
		Status:     StatusDraft,
		Notes:      req.Notes,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Get loads a draft by its purchase-order id.
func (w *Writer) Get(ctx context.Context, poID string) (*DraftPurchaseOrder, error) {
	var row DraftPurchaseOrder
	if result := w.db.WithContext(ctx).Where("po_id = ?", poID).First(&row); result.Error != nil {
		return nil, fmt.Errorf("failed to get draft purchase order: %w", result.Error)
	}
	return &row, nil
}

func (w *Writer) Close() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
