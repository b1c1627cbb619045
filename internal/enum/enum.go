package enum

// ── Item / order lifecycle ──

const (
	StatusPending   = "pending"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusServed    = "served"
)

const (
	ItemTypeDineIn  = "dine_in"
	ItemTypeTakeOut = "take_out"
)

// ── Payment ──

const (
	PaymentMethodCash  = "cash"
	PaymentMethodGCash = "gcash"
	PaymentMethodSplit = "split"
)

// ── Online ordering ──

const (
	OrderSourcePOS    = "pos"
	OrderSourceOnline = "online"
)

const (
	OnlinePaymentPending   = "pending"
	OnlinePaymentConfirmed = "confirmed"
)

// ── Kitchen load severity ──

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ── Push channel event types ──

const (
	EventOrderCreated         = "order.created"
	EventOrderUpdated         = "order.updated"
	EventOrderDeleted         = "order.deleted"
	EventOnlineOrderCreated   = "onlineOrder.created"
	EventOnlineOrderConfirmed = "onlineOrder.confirmed"
)

// Capability is a bitmask of what an actor is allowed to do.
// Roles are mapped to capabilities once at the boundary; everything
// downstream checks capabilities, never role strings.
type Capability uint8

const (
	CapCrew Capability = 1 << iota
	CapOrderTaker
)

// Has reports whether c includes the given capability.
func (c Capability) Has(cap Capability) bool { return c&cap != 0 }

const (
	RoleCrew       = "crew"
	RoleOrderTaker = "order_taker"
	RoleAdmin      = "admin"
)

// CapabilitiesForRole maps an opaque role string to its capability set.
// Unknown roles get no capabilities.
func CapabilitiesForRole(role string) Capability {
	switch role {
	case RoleCrew:
		return CapCrew
	case RoleOrderTaker:
		return CapOrderTaker
	case RoleAdmin:
		return CapCrew | CapOrderTaker
	}
	return 0
}
