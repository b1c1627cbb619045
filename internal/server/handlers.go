package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kainan-pos/terminal/internal/enum"
	"github.com/kainan-pos/terminal/internal/order"
	"github.com/kainan-pos/terminal/internal/payment"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderHandler serves the order document collection. Mutations load the
// whole document, apply the domain operation, store the result, and
// broadcast the new snapshot to the order's branch room.
type OrderHandler struct {
	store DocStore
	hub   *Hub
	log   zerolog.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(store DocStore, hub *Hub, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		store: store,
		hub:   hub,
		log:   log.With().Str("component", "orders").Logger(),
	}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/appended", h.Append)
			r.Delete("/appended/{aid}", h.DeleteAppended)
			r.Delete("/items/{itemID}", h.DeleteItem)
			r.Delete("/appended/{aid}/items/{itemID}", h.DeleteItem)
			r.Patch("/items/{itemID}/status", h.UpdateItemStatus)
			r.Patch("/appended/{aid}/items/{itemID}/status", h.UpdateItemStatus)
			r.Patch("/payment", h.TogglePayment)
			r.Patch("/appended/{aid}/payment", h.ToggleAppendedPayment)
			r.Post("/online-payment/confirm", h.ConfirmOnlinePayment)
		})
	})
	r.Get("/online-orders/codes", h.OnlineOrderCodes)
	r.Get("/online-orders/count", h.OnlineOrdersCount)
}

// --- Request types ---

type actorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a actorRequest) domain() order.Actor {
	return order.Actor{Name: a.Name, Email: a.Email, Caps: enum.CapabilitiesForRole(a.Role)}
}

type appendRequest struct {
	ID        string       `json:"id"`
	Items     []order.Item `json:"items"`
	Timestamp time.Time    `json:"timestamp"`
	Actor     actorRequest `json:"actor"`
}

type itemStatusRequest struct {
	Status string       `json:"status"`
	Actor  actorRequest `json:"actor"`
}

type deleteItemRequest struct {
	Justification string       `json:"justification"`
	Actor         actorRequest `json:"actor"`
}

type paymentRequest struct {
	Paid        bool                `json:"paid"`
	Method      string              `json:"paymentMethod"`
	CashAmount  decimal.NullDecimal `json:"cashAmount"`
	GCashAmount decimal.NullDecimal `json:"gcashAmount"`
	Received    decimal.NullDecimal `json:"amountReceived"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var o order.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	if len(o.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, errBody("items are required"))
		return
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	order.Normalize(&o)

	if err := h.store.Upsert(r.Context(), &o); err != nil {
		h.fail(w, err)
		return
	}
	eventType := enum.EventOrderCreated
	if o.OrderSource == enum.OrderSourceOnline {
		eventType = enum.EventOnlineOrderCreated
	}
	h.hub.Broadcast(o.Branch, eventType, &o)
	writeJSON(w, http.StatusCreated, &o)
}

// List handles GET /orders with optional branch, sort, online_only and
// preparing_only filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	q := r.URL.Query()
	branch := q.Get("branch")
	onlineOnly := q.Get("online_only") == "true"
	preparingOnly := q.Get("preparing_only") == "true"

	out := make([]order.Order, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		if branch != "" && o.Branch != branch {
			continue
		}
		if onlineOnly && o.OrderSource != enum.OrderSourceOnline {
			continue
		}
		if preparingOnly && !o.IsActive() {
			continue
		}
		out = append(out, *o)
	}
	if q.Get("sort") == "desc" {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Update handles PATCH /orders/{id}: a partial top-level field patch
// merged onto the stored document.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	// Identity and lineage fields are never patchable.
	delete(fields, "id")
	delete(fields, "createdAt")

	o, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	merged, err := order.MergeFields(o, fields)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid patch"))
		return
	}
	order.Normalize(merged)
	if err := h.store.Upsert(r.Context(), merged); err != nil {
		h.fail(w, err)
		return
	}
	h.hub.Broadcast(merged.Branch, enum.EventOrderUpdated, merged)
	writeJSON(w, http.StatusOK, merged)
}

// Delete handles DELETE /orders/{id}. Orders with any item beyond pending
// are not deletable.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !order.CanDeleteOrder(o) {
		writeJSON(w, http.StatusConflict, errBody(order.ErrNotDeletable.Error()))
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	h.hub.Broadcast(o.Branch, enum.EventOrderDeleted, map[string]string{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// Append handles POST /orders/{id}/appended.
func (h *OrderHandler) Append(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	at := req.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	h.mutate(w, r, func(o *order.Order) error {
		batch, err := order.AppendItems(o, req.Items, at)
		if err != nil {
			return err
		}
		// Honor client-assigned batch identity the way Create honors order
		// and item ids.
		if req.ID != "" {
			batch.ID = req.ID
		}
		return nil
	})
}

// DeleteAppended handles DELETE /orders/{id}/appended/{aid}.
func (h *OrderHandler) DeleteAppended(w http.ResponseWriter, r *http.Request) {
	aid := chi.URLParam(r, "aid")
	h.mutate(w, r, func(o *order.Order) error {
		return order.DeleteAppended(o, aid)
	})
}

// DeleteItem handles item deletion on the main order or inside an
// appended order.
func (h *OrderHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	var req deleteItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	aid := chi.URLParam(r, "aid")
	itemID := chi.URLParam(r, "itemID")
	h.mutate(w, r, func(o *order.Order) error {
		return order.DeleteItem(o, aid, itemID, req.Justification, req.Actor.domain(), time.Now())
	})
}

// UpdateItemStatus handles the status PATCH on main and appended items.
// Pending as a target status is the reset path for served items.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	var req itemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	aid := chi.URLParam(r, "aid")
	itemID := chi.URLParam(r, "itemID")
	actor := req.Actor.domain()
	now := time.Now()
	h.mutate(w, r, func(o *order.Order) error {
		item := o.FindItem(aid, itemID)
		if item == nil {
			return order.ErrItemNotFound
		}
		if req.Status == enum.StatusPending && item.Status == enum.StatusServed {
			if err := order.ResetItem(item, actor); err != nil {
				return err
			}
			o.AllItemsServedAt = nil
			return nil
		}
		if err := order.AdvanceItem(item, req.Status, actor, now); err != nil {
			return err
		}
		o.StampAllServed(now)
		return nil
	})
}

// TogglePayment handles PATCH /orders/{id}/payment: single-method or split
// settlement, or reverting to unpaid.
func (h *OrderHandler) TogglePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	h.mutate(w, r, func(o *order.Order) error {
		if !req.Paid {
			payment.MarkUnpaid(&o.Payment)
			return nil
		}
		if req.Method == enum.PaymentMethodSplit {
			received := req.Received.Decimal
			if !req.Received.Valid {
				received = req.CashAmount.Decimal.Add(req.GCashAmount.Decimal)
			}
			return payment.MarkSplitPaid(o, req.CashAmount.Decimal, req.GCashAmount.Decimal, received)
		}
		return payment.MarkPaid(&o.Payment, payment.ItemsTotal(o.Items), req.Method, req.Received)
	})
}

// ToggleAppendedPayment handles PATCH /orders/{id}/appended/{aid}/payment.
func (h *OrderHandler) ToggleAppendedPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	aid := chi.URLParam(r, "aid")
	h.mutate(w, r, func(o *order.Order) error {
		a := o.FindAppended(aid)
		if a == nil {
			return order.ErrAppendedNotFound
		}
		if !req.Paid {
			payment.MarkUnpaid(&a.Payment)
			return nil
		}
		return payment.MarkPaid(&a.Payment, payment.ItemsTotal(a.Items), req.Method, req.Received)
	})
}

// ConfirmOnlinePayment handles POST /orders/{id}/online-payment/confirm.
func (h *OrderHandler) ConfirmOnlinePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if o.OrderSource != enum.OrderSourceOnline {
		writeJSON(w, http.StatusConflict, errBody("not an online order"))
		return
	}
	o.OnlinePaymentStatus = enum.OnlinePaymentConfirmed
	if err := h.store.Upsert(r.Context(), o); err != nil {
		h.fail(w, err)
		return
	}
	h.hub.Broadcast(o.Branch, enum.EventOnlineOrderConfirmed, o)
	writeJSON(w, http.StatusOK, o)
}

// OnlineOrderCodes handles GET /online-orders/codes: pickup codes of
// online orders still awaiting payment confirmation.
func (h *OrderHandler) OnlineOrderCodes(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	codes := make([]string, 0)
	for i := range orders {
		o := &orders[i]
		if o.OrderSource == enum.OrderSourceOnline &&
			o.OnlinePaymentStatus == enum.OnlinePaymentPending &&
			o.OnlineOrderCode != "" {
			codes = append(codes, o.OnlineOrderCode)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": codes})
}

// OnlineOrdersCount handles GET /online-orders/count.
func (h *OrderHandler) OnlineOrdersCount(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	count := 0
	for i := range orders {
		if orders[i].OrderSource == enum.OrderSourceOnline {
			count++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// --- Helpers ---

// mutate is the shared load-apply-store-broadcast path for document
// mutations.
func (h *OrderHandler) mutate(w http.ResponseWriter, r *http.Request, apply func(*order.Order) error) {
	id := chi.URLParam(r, "id")
	o, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := apply(o); err != nil {
		writeJSON(w, domainStatus(err), errBody(err.Error()))
		return
	}
	if err := h.store.Upsert(r.Context(), o); err != nil {
		h.fail(w, err)
		return
	}
	h.hub.Broadcast(o.Branch, enum.EventOrderUpdated, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errBody("order not found"))
		return
	}
	h.log.Error().Err(err).Msg("store operation failed")
	writeJSON(w, http.StatusInternalServerError, errBody("internal error"))
}

// domainStatus maps domain errors to HTTP statuses: permission failures to
// 403, state conflicts to 409, everything else to 400.
func domainStatus(err error) int {
	switch {
	case errors.Is(err, order.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrNotDeletable),
		errors.Is(err, order.ErrLastMainItem):
		return http.StatusConflict
	case errors.Is(err, order.ErrItemNotFound),
		errors.Is(err, order.ErrAppendedNotFound):
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func errBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already gone; an encode failure has nowhere to go.
	_ = json.NewEncoder(w).Encode(v)
}
