package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"replenishment-service/internal/activities"
	"replenishment-service/internal/gateway"
	"replenishment-service/internal/modal"
)

const TaskQueue = "REPLENISHMENT_TASK_QUEUE"

const (
	RecordQuery   = "record"
	AuditLogQuery = "audit_log"
)

const (
	defaultActivityTimeout = 10 * time.Second
	defaultMaxAttempts     = 1
)

// ConstraintViolationType is the application error type of a rejected policy.
const ConstraintViolationType = "ConstraintViolation"

// Request starts one decision for a (sku, location) pair.
type Request struct {
	SKUID      string       `json:"sku_id"`
	LocationID string       `json:"location_id"`
	Policy     modal.Policy `json:"policy"`
	// ActivityTimeout bounds each collaborator call. Zero means 10s.
	ActivityTimeout time.Duration `json:"activity_timeout,omitempty"`
	// MaxAttempts caps collaborator retries. Zero means a single attempt.
	MaxAttempts int32 `json:"max_attempts,omitempty"`
}

type workflowState struct {
	req    Request
	Record modal.Record       `json:"record"`
	Audit  []modal.AuditEvent `json:"audit,omitempty"`
}

type stage struct {
	name modal.Stage
	run  func(ctx workflow.Context, s *workflowState) error
}

// stageTable is walked in order and no entry is ever skipped.
var stageTable = []stage{
	{modal.StageFetchSignals, fetchSignals},
	{modal.StageFeatureEngineer, engineerFeatures},
	{modal.StageDecide, decide},
	{modal.StageNotify, notify},
	{modal.StageAct, act},
	{modal.StageJournal, journal},
}

// DecideReplenishment walks one item through every stage and returns the finished record.
func DecideReplenishment(ctx workflow.Context, req Request) (modal.Record, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("workflow started", "sku_id", req.SKUID, "location_id", req.LocationID)

	state := &workflowState{
		req:    req,
		Record: modal.NewRecord(req.SKUID, req.LocationID),
		Audit:  make([]modal.AuditEvent, 0, len(stageTable)+1),
	}

	// Queries let the API read the record and audit trail without a database.
	_ = workflow.SetQueryHandler(ctx, RecordQuery, func() (modal.Record, error) {
		return state.Record, nil
	})
	_ = workflow.SetQueryHandler(ctx, AuditLogQuery, func() ([]modal.AuditEvent, error) {
		return state.Audit, nil
	})

	if err := req.Policy.Validate(); err != nil {
		state.appendAudit(ctx, "ERROR", "policy rejected", map[string]any{"error": err.Error()})
		return modal.Record{}, temporal.NewNonRetryableApplicationError(err.Error(), ConstraintViolationType, err)
	}

	ctx = workflow.WithActivityOptions(ctx, activityOptions(req))

	for _, st := range stageTable {
		state.Record.Stage = st.name
		if err := st.run(ctx, state); err != nil {
			logger.Error("stage failed", "stage", st.name, "error", err)
			state.appendAudit(ctx, "ERROR", "stage failed", map[string]any{
				"stage": st.name,
				"error": err.Error(),
			})
			return modal.Record{}, err
		}
	}

	state.Record.Stage = modal.StageDone
	state.appendAudit(ctx, string(modal.StageDone), "decision complete", map[string]any{
		"action":     state.Record.Decision.Action,
		"journal_id": state.Record.JournalID,
	})
	return state.Record, nil
}

func activityOptions(req Request) workflow.ActivityOptions {
	timeout := req.ActivityTimeout
	if timeout <= 0 {
		timeout = defaultActivityTimeout
	}
	attempts := req.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    attempts,
		},
	}
}

func (s *workflowState) appendAudit(ctx workflow.Context, kind, message string, data map[string]any) {
	s.Audit = append(s.Audit, modal.AuditEvent{
		At:      workflow.Now(ctx),
		Kind:    kind,
		Message: message,
		Data:    data,
	})
}

func fetchSignals(ctx workflow.Context, s *workflowState) error {
	in := activities.FetchSignalsInput{
		SKUID:              s.req.SKUID,
		LocationID:         s.req.LocationID,
		VelocityWindowDays: s.req.Policy.VelocityWindowDays,
	}
	var facts modal.Facts
	if err := workflow.ExecuteActivity(ctx, activities.FetchSignalsName, in).Get(ctx, &facts); err != nil {
		return err
	}
	s.Record.Facts = &facts
	s.appendAudit(ctx, string(modal.StageFetchSignals), "signals fetched", map[string]any{
		"on_hand": facts.OnHand,
		"missing": facts.Missing,
	})
	return nil
}

func engineerFeatures(ctx workflow.Context, s *workflowState) error {
	feats := EngineerFeatures(*s.Record.Facts, s.req.Policy)
	s.Record.Features = &feats
	s.appendAudit(ctx, string(modal.StageFeatureEngineer), "features computed", map[string]any{
		"velocity_per_day": feats.VelocityPerDay,
		"doc_days":         feats.DocDays,
		"risk":             feats.Risk,
	})
	return nil
}

func decide(ctx workflow.Context, s *workflowState) error {
	decision, proposal := Decide(*s.Record.Facts, *s.Record.Features, s.req.Policy)
	s.Record.Decision = &decision
	s.Record.Proposal = &proposal
	s.appendAudit(ctx, string(modal.StageDecide), "action decided", map[string]any{
		"action":    decision.Action,
		"order_qty": proposal.OrderQty,
	})
	return nil
}

func notify(ctx workflow.Context, s *workflowState) error {
	if !ShouldNotify(s.Record.Decision.Action) {
		s.appendAudit(ctx, string(modal.StageNotify), "no alert for action", nil)
		return nil
	}

	in := activities.PostAlertInput{
		Channel: s.req.Policy.AlertChannel,
		Body:    ComposeAlert(s.Record.SKUID, s.Record.LocationID, *s.Record.Features, *s.Record.Proposal),
	}
	var receipt gateway.AlertReceipt
	if err := workflow.ExecuteActivity(ctx, activities.PostAlertName, in).Get(ctx, &receipt); err != nil {
		return err
	}
	s.Record.Alerts = append(s.Record.Alerts, modal.Alert{
		Channel:   in.Channel,
		MessageID: receipt.MessageID,
		Body:      in.Body,
	})
	s.appendAudit(ctx, string(modal.StageNotify), "alert posted", map[string]any{
		"channel":    in.Channel,
		"message_id": receipt.MessageID,
	})
	return nil
}

func act(ctx workflow.Context, s *workflowState) error {
	decision := *s.Record.Decision
	if !ShouldAutoOrder(decision.Action, s.req.Policy) {
		approval := WithheldApproval(decision.Action, *s.Record.Proposal)
		s.Record.Approval = &approval
		s.appendAudit(ctx, string(modal.StageAct), "no purchase order", map[string]any{"reason": approval.Reason})
		return nil
	}

	req := gateway.DraftRequest{
		SKUID:      s.Record.SKUID,
		LocationID: s.Record.LocationID,
		Qty:        s.Record.Proposal.OrderQty,
		Notes:      PurchaseNotes(decision.Risk),
	}
	var po gateway.PurchaseOrder
	if err := workflow.ExecuteActivity(ctx, activities.CreateDraftPOName, req).Get(ctx, &po); err != nil {
		return err
	}
	s.Record.Approval = &modal.Approval{Approved: true, POID: po.POID}
	s.appendAudit(ctx, string(modal.StageAct), "draft purchase order created", map[string]any{
		"po_id": po.POID,
		"qty":   req.Qty,
	})
	return nil
}

func journal(ctx workflow.Context, s *workflowState) error {
	in := activities.WriteJournalInput{EventType: modal.JournalEventType, Record: s.Record}
	var receipt gateway.JournalReceipt
	if err := workflow.ExecuteActivity(ctx, activities.WriteJournalName, in).Get(ctx, &receipt); err != nil {
		return err
	}
	s.Record.JournalID = receipt.JournalID
	s.appendAudit(ctx, string(modal.StageJournal), "decision journaled", map[string]any{"journal_id": receipt.JournalID})
	return nil
}
