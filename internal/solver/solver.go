// Package solver performs constrained quantity adjustments against a ledger:
// per-item price cap validation, total-budget scaledown, and exact-total
// solves. Every mode returns an explicit result distinguishing "no changes"
// from a mutation, and never leaves the ledger partially adjusted.
package solver

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/8ft0/smolagent-cookbook/internal/ledger"
	"github.com/8ft0/smolagent-cookbook/internal/report"
)

// ErrUnsatisfiableTarget is returned when an exact-total solve has no valid
// single-item adjustment. The wrapping error names the nearest achievable
// total, which is also carried on the Result.
var ErrUnsatisfiableTarget = errors.New("unsatisfiable target")

// quantityScale is the granularity quantities are adjusted at (two decimal
// places, matching currency precision).
const quantityScale = 2

// Adjustment records a single quantity change made by the solver.
type Adjustment struct {
	Name string          `json:"name"`
	From decimal.Decimal `json:"from"`
	To   decimal.Decimal `json:"to"`
}

// Result describes the outcome of a solver run. Changed is false when the
// ledger already satisfied the target and nothing was mutated.
type Result struct {
	Changed     bool            `json:"changed"`
	Adjustments []Adjustment    `json:"adjustments,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Nearest     decimal.Decimal `json:"nearest,omitempty"`
}

// CapReport is the outcome of a per-item cap check. This mode validates and
// never mutates: unit prices are fixed per item, so a violation is reported
// rather than "fixed" by reducing quantities.
type CapReport struct {
	Cap       decimal.Decimal `json:"cap"`
	Compliant bool            `json:"compliant"`
	Offending []report.Line   `json:"offending,omitempty"`
}

// CheckPerItemCap reports every item whose unit price exceeds the cap.
// Idempotent: no ledger mutation occurs in this mode.
func CheckPerItemCap(items []ledger.Item, cap decimal.Decimal) (CapReport, error) {
	if cap.IsNegative() {
		return CapReport{}, fmt.Errorf("%w: cap cannot be negative", ledger.ErrInvalidQuantity)
	}

	rep := CapReport{Cap: cap, Compliant: true}
	for _, item := range items {
		if item.UnitPrice.GreaterThan(cap) {
			rep.Compliant = false
			rep.Offending = append(rep.Offending, report.Line{
				Name:      item.Name,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				LineTotal: item.LineTotal(),
			})
		}
	}
	return rep, nil
}

// ApplyBudgetCap reduces quantities until the list total fits within budget.
//
// Policy (deterministic, covered by tests): when the total exceeds the
// budget, every priced item's quantity is scaled by budget/total and
// truncated to two decimal places, preserving relative composition; the
// truncation slack is then returned to items earliest-added-first. Items
// whose unit price is unknown (zero) contribute nothing to the total and are
// left untouched. An item scaled to zero quantity is dropped from the list.
func ApplyBudgetCap(l *ledger.List, budget decimal.Decimal) (Result, error) {
	if budget.IsNegative() {
		return Result{}, fmt.Errorf("%w: budget cannot be negative", ledger.ErrInvalidQuantity)
	}

	before := l.Snapshot()
	total := report.Total(before)
	if total.LessThanOrEqual(budget) {
		return Result{Changed: false, Total: total}, nil
	}

	factor := budget.Div(total)
	scaled := make([]decimal.Decimal, len(before))
	newTotal := decimal.Zero
	for i, item := range before {
		if item.UnitPrice.IsZero() {
			scaled[i] = item.Quantity
			continue
		}
		scaled[i] = item.Quantity.Mul(factor).Truncate(quantityScale)
		newTotal = newTotal.Add(scaled[i].Mul(item.UnitPrice))
	}

	// Return truncation slack to the earliest-added items first.
	slack := budget.Sub(newTotal)
	for i, item := range before {
		if item.UnitPrice.IsZero() || !slack.IsPositive() {
			continue
		}
		lost := item.Quantity.Sub(scaled[i])
		add := slack.Div(item.UnitPrice).Truncate(quantityScale)
		if add.GreaterThan(lost) {
			add = lost
		}
		for add.IsPositive() && add.Mul(item.UnitPrice).GreaterThan(slack) {
			add = add.Sub(decimal.New(1, -quantityScale))
		}
		if add.IsPositive() {
			scaled[i] = scaled[i].Add(add)
			slack = slack.Sub(add.Mul(item.UnitPrice))
		}
	}

	result := Result{Changed: true}
	for i, item := range before {
		if !scaled[i].Equal(item.Quantity) {
			if _, err := l.SetQuantity(item.Name, scaled[i]); err != nil {
				return Result{}, fmt.Errorf("failed to apply scaled quantity for %s: %w", item.Name, err)
			}
			result.Adjustments = append(result.Adjustments, Adjustment{
				Name: item.Name,
				From: item.Quantity,
				To:   scaled[i],
			})
		}
	}
	result.Total = report.Total(l.Snapshot())
	return result, nil
}

// SolveExactTotal adjusts a single item's quantity so the list total equals
// the target exactly, holding every other quantity fixed and removing no
// item.
//
// Selection policy: a first pass over insertion order looks for an item whose
// unit price evenly divides the delta (whole-unit adjustment); a second pass
// accepts an exact fractional adjustment. The adjusted quantity must remain
// positive. When no item qualifies, the solve fails with
// ErrUnsatisfiableTarget and reports the nearest achievable total.
func SolveExactTotal(l *ledger.List, target decimal.Decimal) (Result, error) {
	if target.IsNegative() {
		return Result{}, fmt.Errorf("%w: target cannot be negative", ledger.ErrInvalidQuantity)
	}

	items := l.Snapshot()
	total := report.Total(items)
	delta := target.Sub(total)
	if delta.IsZero() {
		return Result{Changed: false, Total: total}, nil
	}

	apply := func(item ledger.Item, quantity decimal.Decimal) (Result, error) {
		if _, err := l.SetQuantity(item.Name, quantity); err != nil {
			return Result{}, fmt.Errorf("failed to set quantity for %s: %w", item.Name, err)
		}
		return Result{
			Changed:     true,
			Adjustments: []Adjustment{{Name: item.Name, From: item.Quantity, To: quantity}},
			Total:       report.Total(l.Snapshot()),
		}, nil
	}

	// Whole-unit adjustments take precedence.
	for _, item := range items {
		if item.UnitPrice.IsZero() || !delta.Mod(item.UnitPrice).IsZero() {
			continue
		}
		quantity := item.Quantity.Add(delta.Div(item.UnitPrice))
		if quantity.IsPositive() {
			return apply(item, quantity)
		}
	}

	// Fall back to an exact fractional adjustment.
	for _, item := range items {
		if item.UnitPrice.IsZero() {
			continue
		}
		step := delta.Div(item.UnitPrice)
		if !step.Mul(item.UnitPrice).Equal(delta) {
			continue
		}
		quantity := item.Quantity.Add(step)
		if quantity.IsPositive() {
			return apply(item, quantity)
		}
	}

	nearest := nearestTotal(items, total, delta, target)
	return Result{Changed: false, Total: total, Nearest: nearest},
		fmt.Errorf("%w: nearest achievable total is %s", ErrUnsatisfiableTarget, report.Currency(nearest))
}

// nearestTotal finds the single-item adjustment, at quantity granularity,
// whose resulting total lands closest to the target. Ties keep the
// earliest-added candidate.
func nearestTotal(items []ledger.Item, total, delta, target decimal.Decimal) decimal.Decimal {
	best := total
	bestGap := target.Sub(total).Abs()
	minQuantity := decimal.New(1, -quantityScale)

	for _, item := range items {
		if item.UnitPrice.IsZero() {
			continue
		}
		step := delta.Div(item.UnitPrice).Round(quantityScale)
		if floor := minQuantity.Sub(item.Quantity); step.LessThan(floor) {
			step = floor
		}
		candidate := total.Add(step.Mul(item.UnitPrice))
		if gap := target.Sub(candidate).Abs(); gap.LessThan(bestGap) {
			best = candidate
			bestGap = gap
		}
	}
	return best
}
