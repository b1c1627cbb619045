package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kainan-pos/terminal/internal/enum"
)

// Errors returned by append and delete operations.
var (
	ErrNoItems               = errors.New("items are required")
	ErrItemNotFound          = errors.New("item not found")
	ErrAppendedNotFound      = errors.New("appended order not found")
	ErrLastMainItem          = errors.New("cannot delete the last item: delete the whole order instead")
	ErrJustificationRequired = errors.New("deleting a non-pending item requires a justification")
	ErrNotDeletable          = errors.New("only orders with all items pending can be deleted")
)

// AppendItems attaches a new appended order carrying the given items. Every
// new item starts pending with fresh identity; existing main and appended
// items are never touched.
func AppendItems(o *Order, items []Item, at time.Time) (*Appended, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	batch := make([]Item, len(items))
	for i, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		if it.ItemType == "" {
			it.ItemType = o.OrderType
		}
		it.Status = enum.StatusPending
		it.PreparingAt, it.ReadyAt, it.ServedAt = nil, nil, nil
		it.PreparedBy, it.PreparedByEmail = "", ""
		it.ServedBy, it.ServedByEmail = "", ""
		batch[i] = it
	}
	a := Appended{
		ID:        uuid.NewString(),
		CreatedAt: at,
		Items:     batch,
	}
	o.Appended = append(o.Appended, a)
	// An order that was fully served gains unserved work again.
	o.AllItemsServedAt = nil
	return &o.Appended[len(o.Appended)-1], nil
}

// CanDelete reports whether a batch of items may be deleted without
// justification: every item must still be pending.
func CanDelete(items []Item) bool {
	for i := range items {
		if items[i].Status != enum.StatusPending {
			return false
		}
	}
	return true
}

// CanDeleteOrder reports whether the whole order is deletable: nothing in
// it, main or appended, has left pending.
func CanDeleteOrder(o *Order) bool {
	if !CanDelete(o.Items) {
		return false
	}
	for i := range o.Appended {
		if !CanDelete(o.Appended[i].Items) {
			return false
		}
	}
	return true
}

// DeleteAppended removes an appended order wholesale. Allowed only while all
// of its items are pending.
func DeleteAppended(o *Order, appendedID string) error {
	for i := range o.Appended {
		if o.Appended[i].ID != appendedID {
			continue
		}
		if !CanDelete(o.Appended[i].Items) {
			return ErrNotDeletable
		}
		o.Appended = append(o.Appended[:i], o.Appended[i+1:]...)
		return nil
	}
	return ErrAppendedNotFound
}

// DeleteItem removes one item from the main order (appendedID == "") or from
// an appended order. Deleting the sole item of an appended order removes the
// appended order itself; deleting the sole main item is rejected, because an
// order must always keep at least one main item. Items that have left
// pending require a non-empty justification, which is recorded as an order
// note attributed to the acting order taker.
func DeleteItem(o *Order, appendedID, itemID, justification string, actor Actor, now time.Time) error {
	items := &o.Items
	if appendedID != "" {
		a := o.FindAppended(appendedID)
		if a == nil {
			return ErrAppendedNotFound
		}
		items = &a.Items
	}

	idx := -1
	for i := range *items {
		if (*items)[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrItemNotFound
	}

	target := (*items)[idx]
	if target.Status != enum.StatusPending && justification == "" {
		return ErrJustificationRequired
	}

	if len(*items) == 1 {
		if appendedID == "" {
			return ErrLastMainItem
		}
		// Sole item of an appended order: collapse the whole batch rather
		// than leave an empty one behind.
		for i := range o.Appended {
			if o.Appended[i].ID == appendedID {
				o.Appended = append(o.Appended[:i], o.Appended[i+1:]...)
				break
			}
		}
	} else {
		*items = append((*items)[:idx], (*items)[idx+1:]...)
	}

	if target.Status != enum.StatusPending {
		o.Notes = append(o.Notes, Note{
			Text:      fmt.Sprintf("removed %s x%d: %s", target.Name, target.Quantity, justification),
			Author:    actor.Name,
			CreatedAt: now,
		})
	}
	return nil
}
