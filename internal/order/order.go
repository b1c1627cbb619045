package order

import (
	"time"

	"github.com/kainan-pos/terminal/internal/enum"
	"github.com/shopspring/decimal"
)

// Item is a single line on an order. Status walks pending → preparing →
// ready → served; the crew member who starts preparation is recorded once
// and the timestamps are stamped at each transition.
type Item struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	Status          string          `json:"status"`
	ItemType        string          `json:"itemType,omitempty"`
	Note            string          `json:"note,omitempty"`
	PreparingAt     *time.Time      `json:"preparingAt,omitempty"`
	ReadyAt         *time.Time      `json:"readyAt,omitempty"`
	ServedAt        *time.Time      `json:"servedAt,omitempty"`
	PreparedBy      string          `json:"preparedBy,omitempty"`
	PreparedByEmail string          `json:"preparedByEmail,omitempty"`
	ServedBy        string          `json:"servedBy,omitempty"`
	ServedByEmail   string          `json:"servedByEmail,omitempty"`
}

// Payment is the payable-unit bookkeeping shared by the main order and each
// appended order. Amounts are nullable: legacy records carry isPaid with no
// paidAmount, and reconciliation must treat them as settled in full.
type Payment struct {
	IsPaid      bool                `json:"isPaid"`
	Method      string              `json:"paymentMethod,omitempty"`
	CashAmount  decimal.NullDecimal `json:"cashAmount"`
	GCashAmount decimal.NullDecimal `json:"gcashAmount"`
	PaidAmount  decimal.NullDecimal `json:"paidAmount"`
}

// Appended is a batch of items added after the order was first submitted.
// It settles and deletes on its own lifecycle, independent of the main items.
type Appended struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Items     []Item    `json:"items"`
	Payment
}

// Note is order-level free text with attribution.
type Note struct {
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order is the full snapshot exchanged with the backing store and the push
// channel. Events always carry the whole document, never a diff.
type Order struct {
	ID           string     `json:"id"`
	Branch       string     `json:"branch,omitempty"`
	CustomerName string     `json:"customerName"`
	CreatedAt    time.Time  `json:"createdAt"`
	OrderType    string     `json:"orderType"`
	Items        []Item     `json:"items"`
	Payment
	Appended         []Appended `json:"appendedOrders,omitempty"`
	Notes            []Note     `json:"notes,omitempty"`
	AllItemsServedAt *time.Time `json:"allItemsServedAt,omitempty"`
	TakenBy          string     `json:"takenBy,omitempty"`
	TakenByEmail     string     `json:"takenByEmail,omitempty"`

	OrderSource           string `json:"orderSource,omitempty"`
	OnlineOrderCode       string `json:"onlineOrderCode,omitempty"`
	OnlinePaymentStatus   string `json:"onlinePaymentStatus,omitempty"`
	SelectedPaymentMethod string `json:"selectedPaymentMethod,omitempty"`
}

// ValidStatus reports whether s is a known item status.
func ValidStatus(s string) bool {
	switch s {
	case enum.StatusPending, enum.StatusPreparing, enum.StatusReady, enum.StatusServed:
		return true
	}
	return false
}

// Normalize applies the snapshot defaulting rules. It is called exactly once,
// at the reconciliation boundary, so the rest of the code can rely on every
// field holding a known value.
func Normalize(o *Order) {
	if o.OrderType == "" {
		o.OrderType = enum.ItemTypeDineIn
	}
	if o.OrderSource == "" {
		o.OrderSource = enum.OrderSourcePOS
	}
	if o.OrderSource == enum.OrderSourceOnline && o.OnlinePaymentStatus == "" {
		o.OnlinePaymentStatus = enum.OnlinePaymentPending
	}
	normalizeItems(o.Items, o.OrderType)
	for i := range o.Appended {
		normalizeItems(o.Appended[i].Items, o.OrderType)
	}
}

func normalizeItems(items []Item, orderType string) {
	for i := range items {
		if !ValidStatus(items[i].Status) {
			items[i].Status = enum.StatusPending
		}
		if items[i].Quantity < 1 {
			items[i].Quantity = 1
		}
		if items[i].ItemType == "" {
			items[i].ItemType = orderType
		}
	}
}

// AllServed reports whether every item, main and appended, is served.
// An order with no items at all is never considered served.
func (o *Order) AllServed() bool {
	if len(o.Items) == 0 {
		return false
	}
	if !allServed(o.Items) {
		return false
	}
	for i := range o.Appended {
		if !allServed(o.Appended[i].Items) {
			return false
		}
	}
	return true
}

func allServed(items []Item) bool {
	for i := range items {
		if items[i].Status != enum.StatusServed {
			return false
		}
	}
	return true
}

// IsFullyPaid reports whether the main order and every appended order carry
// a settled payment record.
func (o *Order) IsFullyPaid() bool {
	if !o.IsPaid {
		return false
	}
	for i := range o.Appended {
		if !o.Appended[i].IsPaid {
			return false
		}
	}
	return true
}

// IsFullyComplete: all items served and all payment obligations settled.
func (o *Order) IsFullyComplete() bool {
	return o.AllServed() && o.IsFullyPaid()
}

// IsServedNotPaid: everything served but payment still outstanding.
func (o *Order) IsServedNotPaid() bool {
	return o.AllServed() && !o.IsFullyPaid()
}

// IsActive reports whether the order still has work for the kitchen.
func (o *Order) IsActive() bool {
	return !o.AllServed()
}

// StampAllServed records the moment the last unserved item transitioned to
// served. The timestamp is set once and never overwritten.
func (o *Order) StampAllServed(now time.Time) {
	if o.AllItemsServedAt == nil && o.AllServed() {
		t := now
		o.AllItemsServedAt = &t
	}
}

// FindItem returns the item with the given id from the main items or, when
// appendedID is non-empty, from that appended order. nil if absent.
func (o *Order) FindItem(appendedID, itemID string) *Item {
	items := o.Items
	if appendedID != "" {
		a := o.FindAppended(appendedID)
		if a == nil {
			return nil
		}
		items = a.Items
	}
	for i := range items {
		if items[i].ID == itemID {
			return &items[i]
		}
	}
	return nil
}

// FindAppended returns the appended order with the given id, or nil.
func (o *Order) FindAppended(id string) *Appended {
	for i := range o.Appended {
		if o.Appended[i].ID == id {
			return &o.Appended[i]
		}
	}
	return nil
}

// Clone returns a deep copy. The local store hands out clones so callers can
// never mutate cached state behind its back.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = cloneItems(o.Items)
	if o.Appended != nil {
		c.Appended = make([]Appended, len(o.Appended))
		for i := range o.Appended {
			c.Appended[i] = o.Appended[i]
			c.Appended[i].Items = cloneItems(o.Appended[i].Items)
		}
	}
	if o.Notes != nil {
		c.Notes = append([]Note(nil), o.Notes...)
	}
	c.AllItemsServedAt = cloneTime(o.AllItemsServedAt)
	return &c
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i := range items {
		out[i] = items[i]
		out[i].PreparingAt = cloneTime(items[i].PreparingAt)
		out[i].ReadyAt = cloneTime(items[i].ReadyAt)
		out[i].ServedAt = cloneTime(items[i].ServedAt)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
