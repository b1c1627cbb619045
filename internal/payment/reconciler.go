// Package payment reconciles what an order is worth against what has been
// collected for it, across cash, GCash, split, and legacy records.
package payment

import (
	"errors"

	"github.com/kainan-pos/terminal/internal/enum"
	"github.com/kainan-pos/terminal/internal/order"
	"github.com/shopspring/decimal"
)

// Errors returned by payment operations.
var (
	ErrInvalidMethod      = errors.New("invalid payment_method")
	ErrNegativeSplit      = errors.New("split amounts must not be negative")
	ErrSplitMismatch      = errors.New("split amounts must sum to the amount being settled")
	ErrInsufficientTender = errors.New("amount received must cover the amount to settle")
)

// Totals is the reconciled money view of one order.
type Totals struct {
	Total   decimal.Decimal
	Paid    decimal.Decimal
	Pending decimal.Decimal
	// PartiallyPaid: something collected, something still owed.
	PartiallyPaid bool
}

// ItemsTotal sums price x quantity over a batch of items.
func ItemsTotal(items []order.Item) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Price.Mul(decimal.NewFromInt(int64(items[i].Quantity))))
	}
	return total
}

// OrderTotal is the grand total: main items plus every appended batch.
func OrderTotal(o *order.Order) decimal.Decimal {
	total := ItemsTotal(o.Items)
	for i := range o.Appended {
		total = total.Add(ItemsTotal(o.Appended[i].Items))
	}
	return total
}

// unitPaid resolves how much one payable unit has actually collected.
// A recorded paidAmount is authoritative. Legacy fallback: isPaid with no
// recorded amount counts as the unit's full item total, so repeated
// reconciliation never double counts and never loses an old settlement.
func unitPaid(p order.Payment, unitTotal decimal.Decimal) decimal.Decimal {
	if p.PaidAmount.Valid {
		return p.PaidAmount.Decimal
	}
	if p.IsPaid {
		return unitTotal
	}
	return decimal.Zero
}

// ComputeTotals reconciles the order. Pending is clamped at zero: no
// sequence of partial, split, or legacy payments may report a negative
// balance. The function is pure; calling it twice yields the same answer.
func ComputeTotals(o *order.Order) Totals {
	total := decimal.Zero
	paid := decimal.Zero

	mainTotal := ItemsTotal(o.Items)
	total = total.Add(mainTotal)
	paid = paid.Add(unitPaid(o.Payment, mainTotal))

	for i := range o.Appended {
		subTotal := ItemsTotal(o.Appended[i].Items)
		total = total.Add(subTotal)
		paid = paid.Add(unitPaid(o.Appended[i].Payment, subTotal))
	}

	pending := total.Sub(paid)
	if pending.IsNegative() {
		pending = decimal.Zero
	}
	return Totals{
		Total:         total,
		Paid:          paid,
		Pending:       pending,
		PartiallyPaid: paid.IsPositive() && pending.IsPositive(),
	}
}

// MarkPaid settles a single payable unit (main order or one appended order)
// with cash or gcash. When the caller supplies no explicit amount the unit's
// full item total is recorded, so new records never rely on the legacy
// fallback. Split settlement goes through MarkSplitPaid instead.
func MarkPaid(p *order.Payment, unitTotal decimal.Decimal, method string, amount decimal.NullDecimal) error {
	switch method {
	case enum.PaymentMethodCash, enum.PaymentMethodGCash:
	default:
		return ErrInvalidMethod
	}
	p.IsPaid = true
	p.Method = method
	if amount.Valid {
		p.PaidAmount = amount
	} else {
		p.PaidAmount = decimal.NullDecimal{Decimal: unitTotal, Valid: true}
	}
	return nil
}

// MarkUnpaid reverts a unit to unpaid, clearing its payment record.
func MarkUnpaid(p *order.Payment) {
	*p = order.Payment{}
}

// ValidateSplit is the precondition for confirming a manual split payment:
// both portions non-negative, portions summing exactly to the amount being
// settled, and tender covering that amount. Overage is change and is not
// tracked here.
func ValidateSplit(cash, gcash, settle, received decimal.Decimal) error {
	if cash.IsNegative() || gcash.IsNegative() {
		return ErrNegativeSplit
	}
	if !cash.Add(gcash).Equal(settle) {
		return ErrSplitMismatch
	}
	if received.LessThan(settle) {
		return ErrInsufficientTender
	}
	return nil
}

// MarkSplitPaid settles the whole order with a cash/gcash split. The
// breakdown is recorded only on the main order; appended orders are flagged
// paid at their own item total with no method of their own, so reconcilers
// never attempt to re-derive a per-appended split. The amount being settled
// is whatever is still pending at the time of the action.
func MarkSplitPaid(o *order.Order, cash, gcash, received decimal.Decimal) error {
	settle := ComputeTotals(o).Pending
	if err := ValidateSplit(cash, gcash, settle, received); err != nil {
		return err
	}

	o.Payment.IsPaid = true
	o.Payment.Method = enum.PaymentMethodSplit
	o.Payment.CashAmount = decimal.NullDecimal{Decimal: cash, Valid: true}
	o.Payment.GCashAmount = decimal.NullDecimal{Decimal: gcash, Valid: true}
	o.Payment.PaidAmount = decimal.NullDecimal{Decimal: ItemsTotal(o.Items), Valid: true}

	for i := range o.Appended {
		a := &o.Appended[i]
		a.IsPaid = true
		a.PaidAmount = decimal.NullDecimal{Decimal: ItemsTotal(a.Items), Valid: true}
	}
	return nil
}
