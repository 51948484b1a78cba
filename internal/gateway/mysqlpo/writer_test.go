package mysqlpo

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"replenishment-service/internal/gateway"
)

// dryRunWriter never touches a server: version probing, pings and the default write transaction are disabled.
func dryRunWriter(t *testing.T) *Writer {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:1)/erp",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	require.NoError(t, err)
	w := newWriter(db)
	w.newID = func() string { return "PO-TEST" }
	return w
}

func TestDraftValidation(t *testing.T) {
	w := dryRunWriter(t)

	_, err := w.draft(gateway.DraftRequest{SKUID: "SKU-1", LocationID: "S1", Qty: 0})
	assert.Error(t, err)
	_, err = w.draft(gateway.DraftRequest{LocationID: "S1", Qty: 5})
	assert.Error(t, err)

	row, err := w.draft(gateway.DraftRequest{SKUID: " SKU-1 ", LocationID: "S1", Qty: 12, Notes: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "PO-TEST", row.POID)
	assert.Equal(t, "SKU-1", row.SKUID)
	assert.Equal(t, StatusDraft, row.Status)
}

func TestCreateDraftDryRun(t *testing.T) {
	w := dryRunWriter(t)

	po, err := w.CreateDraft(t.Context(), gateway.DraftRequest{SKUID: "SKU-1", LocationID: "S1", Qty: 12})
	require.NoError(t, err)
	assert.Equal(t, gateway.PurchaseOrder{POID: "PO-TEST", Status: StatusDraft}, po)

	stmt := w.db.Session(&gorm.Session{DryRun: true}).Create(&DraftPurchaseOrder{POID: "PO-X"}).Statement
	assert.Contains(t, stmt.SQL.String(), "INSERT INTO `draft_purchase_orders`")
}

func TestOpenWriterClosesPoolWhenMigrationFails(t *testing.T) {
	var opened *gorm.DB
	_, err := openWriter(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:1)/erp",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true}, func(db *gorm.DB) error {
		opened = db
		return errors.New("no privilege")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no privilege")

	require.NotNil(t, opened)
	sqlDB, err := opened.DB()
	require.NoError(t, err)
	assert.ErrorContains(t, sqlDB.Ping(), "database is closed")
}

// Runs against a live server when REPLENISH_TEST_MYSQL_DSN is set.
func TestCreateDraftThenGet(t *testing.T) {
	dsn := os.Getenv("REPLENISH_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("REPLENISH_TEST_MYSQL_DSN not set")
	}
	w, err := NewWriter(dsn, true)
	require.NoError(t, err)
	defer w.Close()

	po, err := w.CreateDraft(t.Context(), gateway.DraftRequest{SKUID: "SKU-1", LocationID: "S1", Qty: 12, Notes: "Auto-approved by policy (risk=60)"})
	require.NoError(t, err)
	t.Cleanup(func() { w.db.Where("po_id = ?", po.POID).Delete(&DraftPurchaseOrder{}) })

	row, err := w.Get(t.Context(), po.POID)
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", row.SKUID)
	assert.Equal(t, "S1", row.LocationID)
	assert.Equal(t, 12, row.Qty)
	assert.Equal(t, StatusDraft, row.Status)
	assert.Equal(t, "Auto-approved by policy (risk=60)", row.Notes)
}
