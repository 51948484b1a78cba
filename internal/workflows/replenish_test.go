package workflows

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"replenishment-service/internal/activities"
	"replenishment-service/internal/gateway"
	"replenishment-service/internal/gateway/gatewaytest"
	"replenishment-service/internal/modal"
)

type DecideReplenishmentSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment
	mem *gatewaytest.Memory
}

func TestDecideReplenishment(t *testing.T) {
	suite.Run(t, new(DecideReplenishmentSuite))
}

func (s *DecideReplenishmentSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.mem = gatewaytest.NewMemory().AddItem("SKU-1", "S1", 10, []float64{5, 5, 5, 5, 5, 5, 5}, gateway.Supply{
		LeadTimeDays: 3,
		OpenPOs:      []modal.OpenPO{{Qty: 30, ETA: "2025-08-21"}},
	})
	s.env.RegisterWorkflow(DecideReplenishment)
	s.env.RegisterActivity(&activities.Activities{
		Inventory: s.mem,
		Sales:     s.mem,
		Supply:    s.mem,
		Catalog:   s.mem,
		Alerts:    s.mem,
		Orders:    s.mem,
		Journal:   s.mem,
	})
}

func (s *DecideReplenishmentSuite) TearDownTest() {
	s.env.AssertExpectations(s.T())
}

func testPolicy() modal.Policy {
	return modal.Policy{
		VelocityWindowDays: 7,
		SafetyBufferDays:   2,
		RiskThreshold:      50,
		ReorderMultiple:    1,
		MinOrderQty:        0,
		MaxOrderQty:        1000,
		AutoApprove:        true,
		AlertChannel:       "#replenishment",
	}
}

func (s *DecideReplenishmentSuite) run(req Request) modal.Record {
	s.env.ExecuteWorkflow(DecideReplenishment, req)
	s.True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var rec modal.Record
	s.Require().NoError(s.env.GetWorkflowResult(&rec))
	return rec
}

func (s *DecideReplenishmentSuite) Test_ReplenishAutoApproved() {
	rec := s.run(Request{SKUID: "SKU-1", LocationID: "S1", Policy: testPolicy()})

	s.Equal(modal.StageDone, rec.Stage)
	s.Equal(60.0, rec.Features.Risk)
	s.Equal(modal.ActionReplenish, rec.Decision.Action)
	s.Equal(10, rec.Proposal.OrderQty)
	s.Require().NotNil(rec.Proposal.Why)
	s.Equal(2.0, rec.Proposal.Why.Doc)

	s.Require().Len(rec.Alerts, 1)
	s.Equal("#replenishment", rec.Alerts[0].Channel)
	s.Equal("msg-1", rec.Alerts[0].MessageID)
	s.Equal("SKU-1@S1 - risk 60", rec.Alerts[0].Body.Title)
	s.Equal("DOC=2.0d < Need=5.0d", rec.Alerts[0].Body.DocVsNeed)
	s.Equal("Order 10 units", rec.Alerts[0].Body.Suggestion)

	s.Equal(modal.Approval{Approved: true, POID: "PO-SKU-1-S1-10"}, *rec.Approval)
	s.Require().Len(s.mem.Drafts, 1)
	s.Equal("Auto-approved by policy (risk=60)", s.mem.Drafts[0].Notes)

	s.Equal("jrnl-1", rec.JournalID)
	s.Require().Len(s.mem.Journaled, 1)
	s.Equal(modal.JournalEventType, s.mem.Journaled[0].EventType)
	s.Equal(modal.StageJournal, s.mem.Journaled[0].Record.Stage)
	s.Equal(*rec.Approval, *s.mem.Journaled[0].Record.Approval)
}

func (s *DecideReplenishmentSuite) Test_LowRiskIsNoop() {
	p := testPolicy()
	p.RiskThreshold = 70
	rec := s.run(Request{SKUID: "SKU-1", LocationID: "S1", Policy: p})

	s.Equal(modal.ActionNoop, rec.Decision.Action)
	s.Equal(modal.Proposal{}, *rec.Proposal)
	s.Empty(rec.Alerts)
	s.Empty(s.mem.Posted)
	s.Empty(s.mem.Drafts)
	s.Equal(modal.Approval{Approved: false, Reason: "low risk"}, *rec.Approval)
	s.NotEmpty(rec.JournalID)
}

func (s *DecideReplenishmentSuite) Test_ThresholdBoundaryReplenishes() {
	p := testPolicy()
	p.RiskThreshold = 60
	rec := s.run(Request{SKUID: "SKU-1", LocationID: "S1", Policy: p})

	s.Equal(modal.ActionReplenish, rec.Decision.Action)
}

func (s *DecideReplenishmentSuite) Test_ManualApprovalIsSnoozed() {
	p := testPolicy()
	p.AutoApprove = false
	rec := s.run(Request{SKUID: "SKU-1", LocationID: "S1", Policy: p})

	s.Equal(modal.ActionReplenish, rec.Decision.Action)
	s.Len(rec.Alerts, 1)
	s.Empty(s.mem.Drafts)
	s.Equal(modal.Approval{Approved: false, Reason: "snoozed"}, *rec.Approval)
}

func (s *DecideReplenishmentSuite) Test_NoPositiveQuantitySnoozes() {
	p := testPolicy()
	p.MaxOrderQty = 0
	rec := s.run(Request{SKUID: "SKU-1", LocationID: "S1", Policy: p})

	s.Equal(modal.ActionSnooze, rec.Decision.Action)
	s.Equal(modal.ReasonNoPositive, rec.Proposal.Reason)
	s.Require().Len(rec.Alerts, 1)
	s.Equal(modal.ReasonNoPositive, rec.Alerts[0].Body.Suggestion)
	s.Nil(rec.Alerts[0].Body.Why)
	s.Empty(s.mem.Drafts)
	s.Equal(modal.Approval{Approved: false, Reason: modal.ReasonNoPositive}, *rec.Approval)
}

func (s *DecideReplenishmentSuite) Test_MissingInventoryStillJournals() {
	rec := s.run(Request{SKUID: "SKU-404", LocationID: "S9", Policy: testPolicy()})

	s.True(rec.Facts.Missing)
	s.Equal(0.0, rec.Features.Risk)
	s.Equal(modal.ActionNoop, rec.Decision.Action)
	s.Equal("jrnl-1", rec.JournalID)
}

func (s *DecideReplenishmentSuite) Test_CollaboratorFailureAbortsItem() {
	s.mem.AlertErr = errors.New("chat down")
	s.env.ExecuteWorkflow(DecideReplenishment, Request{SKUID: "SKU-1", LocationID: "S1", Policy: testPolicy()})

	s.True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	s.Contains(err.Error(), "alerts post: chat down")
	s.Empty(s.mem.Drafts)
	s.Empty(s.mem.Journaled)
}

func (s *DecideReplenishmentSuite) Test_InvalidPolicyIsNonRetryable() {
	p := testPolicy()
	p.VelocityWindowDays = 0
	s.env.ExecuteWorkflow(DecideReplenishment, Request{SKUID: "SKU-1", LocationID: "S1", Policy: p})

	s.True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Require().Error(err)
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(ConstraintViolationType, appErr.Type())
	s.True(appErr.NonRetryable())
	s.Empty(s.mem.Journaled)
}

func (s *DecideReplenishmentSuite) Test_QueriesExposeRecordAndAudit() {
	s.env.ExecuteWorkflow(DecideReplenishment, Request{SKUID: "SKU-1", LocationID: "S1", Policy: testPolicy()})
	s.Require().NoError(s.env.GetWorkflowError())

	val, err := s.env.QueryWorkflow(RecordQuery)
	s.Require().NoError(err)
	var rec modal.Record
	s.Require().NoError(val.Get(&rec))
	s.Equal(modal.StageDone, rec.Stage)
	s.Equal("jrnl-1", rec.JournalID)

	val, err = s.env.QueryWorkflow(AuditLogQuery)
	s.Require().NoError(err)
	var audit []modal.AuditEvent
	s.Require().NoError(val.Get(&audit))

	kinds := make([]string, 0, len(audit))
	for _, ev := range audit {
		kinds = append(kinds, ev.Kind)
	}
	s.Equal([]string{"FETCH_SIGNALS", "FEATURE_ENGINEER", "DECIDE", "NOTIFY", "ACT", "JOURNAL", "DONE"}, kinds)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	facts := modal.Facts{
		OnHand:       10,
		SalesLastN:   []float64{5, 5, 5, 5, 5, 5, 5},
		LeadTimeDays: 3,
		OpenPOs:      []modal.OpenPO{{Qty: 30}},
	}
	first := Evaluate(facts, testPolicy())
	second := Evaluate(facts, testPolicy())

	require.Equal(t, first, second)
	require.Equal(t, modal.ActionReplenish, first.Decision.Action)
	require.Equal(t, 10, first.Proposal.OrderQty)
}

func TestEvaluateClampsToMax(t *testing.T) {
	p := testPolicy()
	p.MaxOrderQty = 4
	ev := Evaluate(modal.Facts{OnHand: 0, SalesLastN: []float64{20, 20}, LeadTimeDays: 5}, p)

	require.Equal(t, modal.ActionReplenish, ev.Decision.Action)
	require.Equal(t, 4, ev.Proposal.OrderQty)
}

func TestWithheldApproval(t *testing.T) {
	require.Equal(t, modal.Approval{Reason: "low risk"}, WithheldApproval(modal.ActionNoop, modal.Proposal{Reason: "ignored"}))
	require.Equal(t, modal.Approval{Reason: "snoozed"}, WithheldApproval(modal.ActionReplenish, modal.Proposal{OrderQty: 3}))
	require.Equal(t, modal.Approval{Reason: "custom"}, WithheldApproval(modal.ActionSnooze, modal.Proposal{Reason: "custom"}))
}
