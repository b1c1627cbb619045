// Package kitchen derives queue and load views from the live order set.
package kitchen

import (
	"time"

	"github.com/kainan-pos/terminal/internal/enum"
	"github.com/kainan-pos/terminal/internal/order"
)

const (
	// DefaultPerOrderMinutes is the wait contribution of one queued order.
	DefaultPerOrderMinutes = 5
	// DefaultCapacity is the order count treated as 100% kitchen load.
	DefaultCapacity = 10
)

// Estimator computes queue depth, wait estimates, and load from the live
// collection. Zero fields fall back to the defaults.
type Estimator struct {
	PerOrderMinutes int
	Capacity        int
}

// StatusView is the kitchen dashboard summary.
type StatusView struct {
	OrdersInQueue        int     `json:"ordersInQueue"`
	EstimatedWaitMinutes int     `json:"estimatedWaitMinutes"`
	PendingItemsCount    int     `json:"pendingItemsCount"`
	PreparingItemsCount  int     `json:"preparingItemsCount"`
	AveragePrepMinutes   float64 `json:"averagePrepTimeMinutes"`
	LoadPercent          int     `json:"kitchenLoadPercent"`
	Severity             string  `json:"severity"`
}

func (e Estimator) perOrderMinutes() int {
	if e.PerOrderMinutes > 0 {
		return e.PerOrderMinutes
	}
	return DefaultPerOrderMinutes
}

func (e Estimator) capacity() int {
	if e.Capacity > 0 {
		return e.Capacity
	}
	return DefaultCapacity
}

// inQueue: the order still has unserved items and the kitchen is allowed to
// see it. Online orders stay invisible until their payment is confirmed.
func inQueue(o *order.Order) bool {
	if o.OrderSource == enum.OrderSourceOnline && o.OnlinePaymentStatus == enum.OnlinePaymentPending {
		return false
	}
	return o.IsActive()
}

// QueueDepth counts orders with at least one item not yet served.
func (e Estimator) QueueDepth(orders []order.Order) int {
	n := 0
	for i := range orders {
		if inQueue(&orders[i]) {
			n++
		}
	}
	return n
}

// EstimatedWaitMinutes is queue depth times the per-order constant.
func (e Estimator) EstimatedWaitMinutes(orders []order.Order) int {
	return e.QueueDepth(orders) * e.perOrderMinutes()
}

// Severity maps a load percentage to a dashboard severity band.
func Severity(loadPercent int) string {
	switch {
	case loadPercent >= 80:
		return enum.SeverityHigh
	case loadPercent >= 50:
		return enum.SeverityMedium
	}
	return enum.SeverityLow
}

// Status computes the full kitchen status view. Average prep time is the
// mean of servedAt - preparingAt over items carrying both timestamps.
func (e Estimator) Status(orders []order.Order) StatusView {
	view := StatusView{}
	var prepTotal time.Duration
	prepSamples := 0

	countItems := func(items []order.Item) {
		for i := range items {
			switch items[i].Status {
			case enum.StatusPending:
				view.PendingItemsCount++
			case enum.StatusPreparing:
				view.PreparingItemsCount++
			}
			if items[i].PreparingAt != nil && items[i].ServedAt != nil {
				prepTotal += items[i].ServedAt.Sub(*items[i].PreparingAt)
				prepSamples++
			}
		}
	}

	for i := range orders {
		o := &orders[i]
		if inQueue(o) {
			view.OrdersInQueue++
		}
		countItems(o.Items)
		for j := range o.Appended {
			countItems(o.Appended[j].Items)
		}
	}

	view.EstimatedWaitMinutes = view.OrdersInQueue * e.perOrderMinutes()
	if prepSamples > 0 {
		view.AveragePrepMinutes = prepTotal.Minutes() / float64(prepSamples)
	}

	view.LoadPercent = view.OrdersInQueue * 100 / e.capacity()
	if view.LoadPercent > 100 {
		view.LoadPercent = 100
	}
	view.Severity = Severity(view.LoadPercent)
	return view
}
