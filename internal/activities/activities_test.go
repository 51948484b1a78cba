package activities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"replenishment-service/internal/gateway"
	"replenishment-service/internal/gateway/gatewaytest"
	"replenishment-service/internal/modal"
)

func newActivities(mem *gatewaytest.Memory) *Activities {
	return &Activities{
		Inventory: mem,
		Sales:     mem,
		Supply:    mem,
		Catalog:   mem,
		Alerts:    mem,
		Orders:    mem,
		Journal:   mem,
	}
}

func TestFetchSignals(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()

	mem := gatewaytest.NewMemory().AddItem("SKU-1", "S1", 10, []float64{9, 9, 5, 5, 5, 5, 5, 5, 5}, gateway.Supply{
		LeadTimeDays: 3,
		OpenPOs:      []modal.OpenPO{{Qty: 30, ETA: "2025-08-21"}},
	})
	mem.Catalogs["SKU-1"] = map[string]string{"name": "Oat Milk 1L"}
	a := newActivities(mem)
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.FetchSignals, FetchSignalsInput{SKUID: "SKU-1", LocationID: "S1", VelocityWindowDays: 7})
	require.NoError(t, err)

	var facts modal.Facts
	require.NoError(t, val.Get(&facts))
	assert.Equal(t, 10.0, facts.OnHand)
	assert.Equal(t, []float64{5, 5, 5, 5, 5, 5, 5}, facts.SalesLastN)
	assert.Equal(t, 3.0, facts.LeadTimeDays)
	assert.Equal(t, []modal.OpenPO{{Qty: 30, ETA: "2025-08-21"}}, facts.OpenPOs)
	assert.Equal(t, "Oat Milk 1L", facts.Catalog["name"])
	assert.False(t, facts.Missing)
}

func TestFetchSignalsMissingInventoryDefaults(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	mem := gatewaytest.NewMemory()
	mem.SalesErr = errors.New("must not be called")
	a := newActivities(mem)
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.FetchSignals, FetchSignalsInput{SKUID: "SKU-9", LocationID: "S1", VelocityWindowDays: 7})
	require.NoError(t, err)

	var facts modal.Facts
	require.NoError(t, val.Get(&facts))
	assert.True(t, facts.Missing)
	assert.Zero(t, facts.OnHand)
	assert.Empty(t, facts.SalesLastN)
	assert.Zero(t, facts.LeadTimeDays)
	assert.Empty(t, facts.OpenPOs)
}

func TestFetchSignalsCollaboratorFailure(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	mem := gatewaytest.NewMemory()
	mem.InventoryErr = errors.New("snapshot unreadable")
	a := newActivities(mem)
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.FetchSignals, FetchSignalsInput{SKUID: "SKU-1", LocationID: "S1", VelocityWindowDays: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory read: snapshot unreadable")
}

func TestSideEffectActivities(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	mem := gatewaytest.NewMemory()
	a := newActivities(mem)
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.PostAlert, PostAlertInput{Channel: "#ops", Body: modal.AlertBody{Title: "t"}})
	require.NoError(t, err)
	var receipt gateway.AlertReceipt
	require.NoError(t, val.Get(&receipt))
	assert.Equal(t, "msg-1", receipt.MessageID)

	val, err = env.ExecuteActivity(a.CreateDraftPO, gateway.DraftRequest{SKUID: "SKU-1", LocationID: "S1", Qty: 10})
	require.NoError(t, err)
	var po gateway.PurchaseOrder
	require.NoError(t, val.Get(&po))
	assert.Equal(t, "PO-SKU-1-S1-10", po.POID)

	val, err = env.ExecuteActivity(a.WriteJournal, WriteJournalInput{EventType: modal.JournalEventType, Record: modal.NewRecord("SKU-1", "S1")})
	require.NoError(t, err)
	var j gateway.JournalReceipt
	require.NoError(t, val.Get(&j))
	assert.Equal(t, "jrnl-1", j.JournalID)

	require.Len(t, mem.Posted, 1)
	require.Len(t, mem.Drafts, 1)
	require.Len(t, mem.Journaled, 1)
	assert.Equal(t, modal.JournalEventType, mem.Journaled[0].EventType)
}

func TestSideEffectFailuresAreWrapped(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	mem := gatewaytest.NewMemory()
	mem.AlertErr = errors.New("chat down")
	mem.OrderErr = errors.New("erp down")
	mem.JournalErr = errors.New("disk full")
	a := newActivities(mem)
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.PostAlert, PostAlertInput{Channel: "#ops"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alerts post: chat down")

	_, err = env.ExecuteActivity(a.CreateDraftPO, gateway.DraftRequest{SKUID: "SKU-1", LocationID: "S1", Qty: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders create_draft: erp down")

	_, err = env.ExecuteActivity(a.WriteJournal, WriteJournalInput{EventType: modal.JournalEventType})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal log: disk full")
}
