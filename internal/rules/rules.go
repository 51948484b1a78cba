// Package rules holds the pure feature and replenishment computations.
package rules

import (
	"math"

	"replenishment-service/internal/modal"
)

// Epsilon guards divisions by a velocity that may be zero.
const Epsilon = 1e-9

// MovingAverage is the mean of the last window entries of units, or 0 when units is empty.
func MovingAverage(units []float64, window int) float64 {
	if len(units) == 0 {
		return 0
	}
	slice := units
	if window > 0 && len(units) > window {
		slice = units[len(units)-window:]
	}
	var sum float64
	for _, u := range slice {
		sum += u
	}
	return sum / float64(len(slice))
}

// CeilToMultiple rounds x up to the nearest non-negative multiple. A multiple of 1 or less is a plain ceiling.
func CeilToMultiple(x float64, multiple int) int {
	if math.IsNaN(x) || x < 0 {
		x = 0
	}
	if multiple <= 1 {
		return int(math.Ceil(x))
	}
	m := float64(multiple)
	return int(math.Ceil(x/m) * m)
}

// ComputeFeatures derives velocity, cover and risk for one item.
// Open POs are all assumed to land inside the need window regardless of ETA.
func ComputeFeatures(
	onHand float64,
	sales []float64,
	leadTimeDays float64,
	safetyBufferDays float64,
	velocityWindowDays int,
	openPOs []modal.OpenPO,
) modal.Features {
	velocity := MovingAverage(sales, velocityWindowDays)
	effVel := math.Max(velocity, Epsilon)
	doc := onHand / effVel

	needDays := leadTimeDays + safetyBufferDays
	rop := effVel * needDays

	var incoming float64
	for _, po := range openPOs {
		if po.Qty > 0 {
			incoming += po.Qty
		}
	}

	var risk float64
	if effVel > Epsilon {
		coverGap := math.Max(0, needDays-doc) / math.Max(needDays, Epsilon)
		risk = math.RoundToEven(100 * math.Min(1, coverGap))
	}

	return modal.Features{
		VelocityPerDay:   velocity,
		DocDays:          doc,
		NeedDays:         needDays,
		ROPUnits:         rop,
		IncomingWithinLT: incoming,
		Risk:             risk,
	}
}

// ProposeReplenishment sizes an order that restores stock to the reorder point plus one more need window,
// net of stock on hand and on order, rounded up to the reorder multiple and clamped into [minQty, maxQty].
func ProposeReplenishment(onHand float64, features modal.Features, reorderMultiple, minQty, maxQty int) int {
	target := features.ROPUnits + features.NeedDays*math.Max(features.VelocityPerDay, Epsilon)
	raw := target - (onHand + features.IncomingWithinLT)
	if raw > float64(maxQty) {
		raw = float64(maxQty)
	}

	qty := CeilToMultiple(raw, reorderMultiple)
	qty = max(minQty, min(qty, maxQty))
	return max(0, qty)
}
