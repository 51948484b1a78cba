package modal

import (
	"errors"
	"fmt"
)

// ErrConstraintViolation marks policy values that would leave the proposer ill-defined.
var ErrConstraintViolation = errors.New("policy constraint violation")

// Policy holds the thresholds and limits every stage reads. It is loaded once and never mutated.
type Policy struct {
	VelocityWindowDays int     `json:"velocity_window_days" mapstructure:"velocity_window_days"`
	SafetyBufferDays   float64 `json:"safety_buffer_days" mapstructure:"safety_buffer_days"`
	RiskThreshold      float64 `json:"risk_threshold" mapstructure:"risk_threshold"`
	ReorderMultiple    int     `json:"reorder_multiple" mapstructure:"reorder_multiple"`
	MinOrderQty        int     `json:"min_order_qty" mapstructure:"min_order_qty"`
	MaxOrderQty        int     `json:"max_order_qty" mapstructure:"max_order_qty"`
	AutoApprove        bool    `json:"auto_approve" mapstructure:"auto_approve"`
	AlertChannel       string  `json:"alert_channel" mapstructure:"alert_channel"`
}

// Validate reports the first constraint the policy breaks, wrapped in ErrConstraintViolation.
func (p Policy) Validate() error {
	switch {
	case p.VelocityWindowDays <= 0:
		return violation("velocity_window_days must be > 0, got %d", p.VelocityWindowDays)
	case p.SafetyBufferDays < 0:
		return violation("safety_buffer_days must be >= 0, got %g", p.SafetyBufferDays)
	case p.RiskThreshold < 0 || p.RiskThreshold > 100:
		return violation("risk_threshold must be within [0, 100], got %g", p.RiskThreshold)
	case p.ReorderMultiple < 0:
		return violation("reorder_multiple must be >= 0, got %d", p.ReorderMultiple)
	case p.MinOrderQty < 0:
		return violation("min_order_qty must be >= 0, got %d", p.MinOrderQty)
	case p.MaxOrderQty < p.MinOrderQty:
		return violation("max_order_qty %d is below min_order_qty %d", p.MaxOrderQty, p.MinOrderQty)
	}
	if m := p.ReorderMultiple; m > 1 {
		if p.MinOrderQty%m != 0 {
			return violation("min_order_qty %d is not a multiple of reorder_multiple %d; clamping to it would yield an order_qty off the multiple", p.MinOrderQty, m)
		}
		if p.MaxOrderQty%m != 0 {
			return violation("max_order_qty %d is not a multiple of reorder_multiple %d; clamping to it would yield an order_qty off the multiple", p.MaxOrderQty, m)
		}
	}
	return nil
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstraintViolation, fmt.Sprintf(format, args...))
}

// CollaboratorError is a failed call to an external gateway. It aborts the item's workflow.
type CollaboratorError struct {
	Gateway string
	Op      string
	Err     error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Gateway, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
