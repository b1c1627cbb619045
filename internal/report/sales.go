// Package report computes business-day-scoped sales views over the local
// order collection.
package report

import (
	"time"

	"github.com/kainan-pos/terminal/internal/bizday"
	"github.com/kainan-pos/terminal/internal/enum"
	"github.com/kainan-pos/terminal/internal/order"
	"github.com/kainan-pos/terminal/internal/payment"
	"github.com/shopspring/decimal"
)

// DailySales summarizes the business day current at the time of the call.
type DailySales struct {
	Window         bizday.Window
	OrderCount     int
	CompletedCount int
	GrossTotal     decimal.Decimal
	Collected      decimal.Decimal
	Outstanding    decimal.Decimal
	CashCollected  decimal.Decimal
	GCashCollected decimal.Decimal
	// OtherCollected holds settled amounts whose method is unknown:
	// legacy records and appended orders settled inside a split batch.
	OtherCollected decimal.Decimal
}

// Daily reconciles every order originating in the current business day.
func Daily(orders []order.Order, now time.Time) DailySales {
	s := DailySales{
		Window:         bizday.Current(now),
		GrossTotal:     decimal.Zero,
		Collected:      decimal.Zero,
		Outstanding:    decimal.Zero,
		CashCollected:  decimal.Zero,
		GCashCollected: decimal.Zero,
		OtherCollected: decimal.Zero,
	}
	for i := range orders {
		o := &orders[i]
		if !s.Window.Contains(o.CreatedAt) {
			continue
		}
		s.OrderCount++
		if o.IsFullyComplete() {
			s.CompletedCount++
		}

		t := payment.ComputeTotals(o)
		s.GrossTotal = s.GrossTotal.Add(t.Total)
		s.Collected = s.Collected.Add(t.Paid)
		s.Outstanding = s.Outstanding.Add(t.Pending)

		mainSplit := o.Payment.Method == enum.PaymentMethodSplit
		s.bucket(o.Payment, payment.ItemsTotal(o.Items))
		for j := range o.Appended {
			a := &o.Appended[j]
			// A split breakdown on the main order already covers appended
			// batches settled in the same action; counting them again would
			// inflate the method buckets.
			if mainSplit && a.Method == "" {
				continue
			}
			s.bucket(a.Payment, payment.ItemsTotal(a.Items))
		}
	}
	return s
}

// bucket assigns one payable unit's collected amount to a method bucket.
// Split records carry their own cash/gcash breakdown on the main order;
// appended orders settled in a split batch have no method and land in Other.
func (s *DailySales) bucket(p order.Payment, unitTotal decimal.Decimal) {
	if !p.IsPaid && !p.PaidAmount.Valid {
		return
	}
	amount := unitTotal
	if p.PaidAmount.Valid {
		amount = p.PaidAmount.Decimal
	}
	switch p.Method {
	case enum.PaymentMethodCash:
		s.CashCollected = s.CashCollected.Add(amount)
	case enum.PaymentMethodGCash:
		s.GCashCollected = s.GCashCollected.Add(amount)
	case enum.PaymentMethodSplit:
		if p.CashAmount.Valid {
			s.CashCollected = s.CashCollected.Add(p.CashAmount.Decimal)
		}
		if p.GCashAmount.Valid {
			s.GCashCollected = s.GCashCollected.Add(p.GCashAmount.Decimal)
		}
	default:
		s.OtherCollected = s.OtherCollected.Add(amount)
	}
}

// VisibleCompleted filters fully-completed orders down to the ones whose
// originating business day is still current. Older completed orders are
// hidden from the dashboard, not deleted.
func VisibleCompleted(orders []order.Order, now time.Time) []order.Order {
	w := bizday.Current(now)
	var out []order.Order
	for i := range orders {
		if orders[i].IsFullyComplete() && w.Contains(orders[i].CreatedAt) {
			out = append(out, orders[i])
		}
	}
	return out
}
