package workflows

import (
	"fmt"

	"replenishment-service/internal/modal"
	"replenishment-service/internal/rules"
)

// EngineerFeatures runs the feature engine over the facts under the policy.
func EngineerFeatures(f modal.Facts, p modal.Policy) modal.Features {
	return rules.ComputeFeatures(f.OnHand, f.SalesLastN, f.LeadTimeDays, p.SafetyBufferDays, p.VelocityWindowDays, f.OpenPOs)
}

// Decide picks the action for the item. A risk equal to the threshold replenishes.
func Decide(f modal.Facts, feats modal.Features, p modal.Policy) (modal.Decision, modal.Proposal) {
	if feats.Risk < p.RiskThreshold {
		return modal.Decision{Action: modal.ActionNoop, Risk: feats.Risk}, modal.Proposal{}
	}

	qty := rules.ProposeReplenishment(f.OnHand, feats, p.ReorderMultiple, p.MinOrderQty, p.MaxOrderQty)
	if qty <= 0 {
		return modal.Decision{Action: modal.ActionSnooze, Risk: feats.Risk}, modal.Proposal{Reason: modal.ReasonNoPositive}
	}
	return modal.Decision{Action: modal.ActionReplenish, Risk: feats.Risk}, modal.Proposal{
		OrderQty: qty,
		Why: &modal.Why{
			Doc:      feats.DocDays,
			NeedDays: feats.NeedDays,
			Velocity: feats.VelocityPerDay,
			Incoming: feats.IncomingWithinLT,
			ROP:      feats.ROPUnits,
		},
	}
}

// Evaluation is the side-effect free part of a decision.
type Evaluation struct {
	Features modal.Features `json:"features"`
	Decision modal.Decision `json:"decision"`
	Proposal modal.Proposal `json:"proposal"`
}

// Evaluate runs FeatureEngineer and Decide without touching any collaborator.
func Evaluate(f modal.Facts, p modal.Policy) Evaluation {
	feats := EngineerFeatures(f, p)
	decision, proposal := Decide(f, feats, p)
	return Evaluation{Features: feats, Decision: decision, Proposal: proposal}
}

// ShouldNotify reports whether the action warrants an alert.
func ShouldNotify(action modal.Action) bool {
	return action == modal.ActionReplenish || action == modal.ActionSnooze
}

// ComposeAlert builds the structured alert message for a decided record.
func ComposeAlert(skuID, locationID string, feats modal.Features, proposal modal.Proposal) modal.AlertBody {
	suggestion := proposal.Reason
	if proposal.OrderQty > 0 {
		suggestion = fmt.Sprintf("Order %d units", proposal.OrderQty)
	}
	return modal.AlertBody{
		Title:      fmt.Sprintf("%s@%s - risk %d", skuID, locationID, int(feats.Risk)),
		DocVsNeed:  fmt.Sprintf("DOC=%.1fd < Need=%.1fd", feats.DocDays, feats.NeedDays),
		Suggestion: suggestion,
		Why:        proposal.Why,
	}
}

// ShouldAutoOrder reports whether Act creates a purchase order.
func ShouldAutoOrder(action modal.Action, p modal.Policy) bool {
	return action == modal.ActionReplenish && p.AutoApprove
}

// PurchaseNotes is the note attached to an auto-approved draft purchase order.
func PurchaseNotes(risk float64) string {
	return fmt.Sprintf("Auto-approved by policy (risk=%d)", int(risk))
}

// WithheldApproval is the approval for every branch that creates no purchase order.
func WithheldApproval(action modal.Action, proposal modal.Proposal) modal.Approval {
	if action == modal.ActionNoop {
		return modal.Approval{Approved: false, Reason: modal.ReasonLowRisk}
	}
	reason := proposal.Reason
	if reason == "" {
		reason = modal.ReasonSnoozed
	}
	return modal.Approval{Approved: false, Reason: reason}
}
