// Package ledger computes how stock entries translate into writes against
// the product balance and the per-date movement rows. It performs no I/O:
// callers load the current rows, ask for a Plan and apply it.
package ledger

import (
	"errors"
	"fmt"

	"warehouse/internal/model"
)

// ErrInvalid marks entries that are rejected before any write happens.
var ErrInvalid = errors.New("invalid stock entry")

// Kind is a movement kind recorded in the daily movement row.
type Kind string

const (
	Issue  Kind = "issue"
	Return Kind = "return"
)

// Valid reports whether k is a movement kind with its own ledger column.
func (k Kind) Valid() bool { return k == Issue || k == Return }

// Column is the movement column holding the quantity of this kind.
func (k Kind) Column() string {
	if k == Return {
		return "returned_qty"
	}
	return "issued_qty"
}

// MovementOp is the write a plan requires on the movement row.
type MovementOp int

const (
	MovementNone MovementOp = iota
	MovementInsert
	MovementUpdate
)

func (op MovementOp) String() string {
	switch op {
	case MovementInsert:
		return "insert"
	case MovementUpdate:
		return "update"
	default:
		return "none"
	}
}

// Plan lists the writes needed to apply one entry for one product.
type Plan struct {
	PID uint

	Movement MovementOp
	// MovementRow is the row to insert, or carries the DID and the new field
	// value for an update.
	MovementRow model.Movement
	Column      string

	// Restock is the log row to append, if any.
	Restock *model.Restock

	Diff         int
	NewQuantity  int
	WriteProduct bool
}

// Quantity is the value the plan writes to Column of the movement row.
func (p Plan) Quantity() int {
	if p.Column == Return.Column() {
		return p.MovementRow.ReturnedQty
	}
	return p.MovementRow.IssuedQty
}

// NoOp reports whether the plan needs no write at all.
func (p Plan) NoOp() bool {
	return p.Movement == MovementNone && p.Restock == nil && !p.WriteProduct
}

// Reconciler turns entered quantities into plans.
type Reconciler struct {
	// AllowNegative lets issues drive ItemQuantity below zero.
	AllowNegative bool
}

// IssueOrReturn reconciles an absolute quantity entered for (product, date,
// kind). existing is the movement row for that date, or nil. Saving the same
// quantity twice yields a no-op the second time.
func (r Reconciler) IssueOrReturn(p model.Product, existing *model.Movement, date model.Date, kind Kind, newQty int) (Plan, error) {
	plan := Plan{PID: p.PID, Column: kind.Column(), NewQuantity: p.ItemQuantity}
	if !kind.Valid() {
		return plan, fmt.Errorf("%w: unknown movement kind %q", ErrInvalid, kind)
	}
	if newQty < 0 {
		return plan, fmt.Errorf("%w: quantity for %s must not be negative", ErrInvalid, p.Title)
	}

	previous := 0
	if existing != nil {
		previous = existing.IssuedQty
		if kind == Return {
			previous = existing.ReturnedQty
		}
	}
	if newQty == previous {
		return plan, nil
	}

	diff := newQty - previous
	plan.Diff = diff

	switch {
	case existing != nil && existing.DID != 0:
		plan.Movement = MovementUpdate
		plan.MovementRow = *existing
	case newQty > 0:
		plan.Movement = MovementInsert
		plan.MovementRow = model.Movement{PID: p.PID, MovementDate: date}
	}
	if kind == Return {
		plan.MovementRow.ReturnedQty = newQty
	} else {
		plan.MovementRow.IssuedQty = newQty
	}

	if kind == Issue {
		plan.NewQuantity = p.ItemQuantity - diff
	} else {
		plan.NewQuantity = p.ItemQuantity + diff
	}
	if plan.NewQuantity < 0 && !r.AllowNegative {
		return Plan{PID: p.PID, Column: plan.Column, NewQuantity: p.ItemQuantity}, floorError(kind, p)
	}
	plan.WriteProduct = true
	return plan, nil
}

func floorError(kind Kind, p model.Product) error {
	if kind == Return {
		return fmt.Errorf("%w: cannot lower returned quantity for %s below what is on hand (available %d)", ErrInvalid, p.Title, p.ItemQuantity)
	}
	return fmt.Errorf("%w: cannot issue more than available quantity for %s (available %d)", ErrInvalid, p.Title, p.ItemQuantity)
}

// Loss deducts gas-out and expired quantities. No movement row is kept for
// losses.
func (r Reconciler) Loss(p model.Product, gasOut, expired int) (Plan, error) {
	plan := Plan{PID: p.PID, NewQuantity: p.ItemQuantity}
	if gasOut < 0 || expired < 0 {
		return plan, fmt.Errorf("%w: loss quantities for %s must not be negative", ErrInvalid, p.Title)
	}
	total := gasOut + expired
	if total == 0 {
		return plan, nil
	}
	if total > p.ItemQuantity {
		return plan, fmt.Errorf("%w: cannot remove more than available quantity for %s", ErrInvalid, p.Title)
	}
	plan.Diff = -total
	plan.NewQuantity = p.ItemQuantity - total
	plan.WriteProduct = true
	return plan, nil
}

// Restock appends incoming stock. Quantities of zero or less mean "no restock
// for this product" and produce a no-op plan.
func (r Reconciler) Restock(p model.Product, qty int, date model.Date) Plan {
	plan := Plan{PID: p.PID, NewQuantity: p.ItemQuantity}
	if qty <= 0 {
		return plan
	}
	plan.Restock = &model.Restock{PID: p.PID, RestockQty: qty, RestockDate: date}
	plan.Diff = qty
	plan.NewQuantity = p.ItemQuantity + qty
	plan.WriteProduct = true
	return plan
}

// AnyPositive reports whether at least one entered quantity is above zero.
func AnyPositive(qtys map[uint]int) bool {
	for _, q := range qtys {
		if q > 0 {
			return true
		}
	}
	return false
}
