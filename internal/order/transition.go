package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/kainan-pos/terminal/internal/enum"
)

// Errors returned by status transitions.
var (
	ErrPermission        = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown status")
)

// Actor is whoever is pressing the button: crew, order taker, or both.
// Role strings are resolved to capabilities before reaching this package.
type Actor struct {
	Name  string
	Email string
	Caps  enum.Capability
}

// transitionCap maps each allowed forward transition to the capability that
// may perform it. An actor holding both capabilities can perform any of them.
var transitionCap = map[[2]string]enum.Capability{
	{enum.StatusPending, enum.StatusPreparing}: enum.CapCrew,
	{enum.StatusPreparing, enum.StatusReady}:   enum.CapCrew,
	{enum.StatusReady, enum.StatusServed}:      enum.CapOrderTaker,
}

// NextStatus returns the status a single-click advance moves to.
// served is terminal: advancing a served item is a no-op, never a cycle
// back to pending. Use ResetItem for the deliberate manual reset.
func NextStatus(s string) string {
	switch s {
	case enum.StatusPending:
		return enum.StatusPreparing
	case enum.StatusPreparing:
		return enum.StatusReady
	case enum.StatusReady:
		return enum.StatusServed
	}
	return s
}

// CanTransition is the single capability check used by both the state
// machine and any surface that wants to grey out a button. It validates the
// transition itself, the actor's capability, and the claim guard: once a
// crew member has started an item, only that same person (or an order-taker)
// may move it further.
func CanTransition(actor Actor, item Item, from, to string) error {
	if !ValidStatus(from) || !ValidStatus(to) {
		return fmt.Errorf("%w: %s -> %s", ErrUnknownStatus, from, to)
	}
	need, ok := transitionCap[[2]string{from, to}]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if !actor.Caps.Has(need) {
		return fmt.Errorf("%w: %s -> %s requires another role", ErrPermission, from, to)
	}
	if item.PreparedByEmail != "" &&
		item.PreparedByEmail != actor.Email &&
		!actor.Caps.Has(enum.CapOrderTaker) {
		return fmt.Errorf("%w: item already being prepared by %s", ErrPermission, item.PreparedByEmail)
	}
	return nil
}

// AdvanceItem moves the item to the given status, stamping timestamps and
// setting attribution exactly once. No state changes on error.
func AdvanceItem(item *Item, to string, actor Actor, now time.Time) error {
	if err := CanTransition(actor, *item, item.Status, to); err != nil {
		return err
	}
	item.Status = to
	switch to {
	case enum.StatusPreparing:
		if item.PreparedByEmail == "" {
			item.PreparedBy = actor.Name
			item.PreparedByEmail = actor.Email
			t := now
			item.PreparingAt = &t
		}
	case enum.StatusReady:
		if item.ReadyAt == nil {
			t := now
			item.ReadyAt = &t
		}
	case enum.StatusServed:
		t := now
		item.ServedAt = &t
		item.ServedBy = actor.Name
		item.ServedByEmail = actor.Email
	}
	return nil
}

// ResetItem is the manual reset path: a served item goes back to pending
// with its prep history cleared, so the kitchen can redo it from scratch.
// Order-taker capability required; this is never wired into auto-advance.
func ResetItem(item *Item, actor Actor) error {
	if !actor.Caps.Has(enum.CapOrderTaker) {
		return fmt.Errorf("%w: resetting an item requires an order taker", ErrPermission)
	}
	if item.Status != enum.StatusServed {
		return fmt.Errorf("%w: only a served item can be reset", ErrInvalidTransition)
	}
	item.Status = enum.StatusPending
	item.PreparingAt = nil
	item.ReadyAt = nil
	item.ServedAt = nil
	item.PreparedBy = ""
	item.PreparedByEmail = ""
	item.ServedBy = ""
	item.ServedByEmail = ""
	return nil
}
