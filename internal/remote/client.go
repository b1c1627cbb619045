// Package remote is the transport client for the backing store. It speaks
// JSON over HTTP; callers treat it as the abstract operation set and never
// see the wire details.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kainan-pos/terminal/internal/order"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Errors returned by the client. ErrUnavailable means the store could not
// be reached or failed server-side; the caller keeps its optimistic state
// and flags itself offline. ErrRejected means the store understood the
// request and said no.
var (
	ErrUnavailable = errors.New("remote store unavailable")
	ErrRejected    = errors.New("remote store rejected the request")
	ErrNotFound    = errors.New("order not found on remote store")
)

// maxAttempts bounds the per-call transport retry. Recovery beyond this is
// the periodic refetch's job, not per-operation backoff.
const maxAttempts = 2

// Attribution identifies the acting user on mutating calls. Role is opaque
// here; the store resolves it to capabilities.
type Attribution struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Filters narrows a listing.
type Filters struct {
	Branch        string
	Sort          string
	OnlineOnly    bool
	PreparingOnly bool
}

// Client calls the backing store.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// NewClient creates a client for the given base URL, e.g. "http://pos:8081".
func NewClient(base string, log zerolog.Logger) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log.With().Str("component", "remote").Logger(),
	}
}

// --- Request bodies ---

type appendItemsRequest struct {
	ID        string       `json:"id,omitempty"`
	Items     []order.Item `json:"items"`
	Timestamp time.Time    `json:"timestamp"`
	Actor     Attribution  `json:"actor"`
}

type itemStatusRequest struct {
	Status string      `json:"status"`
	Actor  Attribution `json:"actor"`
}

type togglePaymentRequest struct {
	Paid        bool                `json:"paid"`
	Method      string              `json:"paymentMethod,omitempty"`
	CashAmount  decimal.NullDecimal `json:"cashAmount"`
	GCashAmount decimal.NullDecimal `json:"gcashAmount"`
	Received    decimal.NullDecimal `json:"amountReceived"`
}

type deleteItemRequest struct {
	Justification string      `json:"justification,omitempty"`
	Actor         Attribution `json:"actor"`
}

// --- Operations ---

// CreateOrder persists a new order and returns the stored snapshot.
func (c *Client) CreateOrder(ctx context.Context, o *order.Order) (*order.Order, error) {
	var out order.Order
	if err := c.do(ctx, http.MethodPost, "/orders", o, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrder patches the named top-level fields of an order document.
func (c *Client) UpdateOrder(ctx context.Context, id string, fields map[string]any) (*order.Order, error) {
	var out order.Order
	if err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id), fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteOrder removes an order document.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/orders/"+url.PathEscape(id), nil, nil)
}

// ListOrders fetches the collection, optionally filtered.
func (c *Client) ListOrders(ctx context.Context, f Filters) ([]order.Order, error) {
	q := url.Values{}
	if f.Branch != "" {
		q.Set("branch", f.Branch)
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	if f.OnlineOnly {
		q.Set("online_only", "true")
	}
	if f.PreparingOnly {
		q.Set("preparing_only", "true")
	}
	path := "/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []order.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendItems adds a post-submission batch to an order. batchID is the
// identity the caller already assigned; the store keeps it so follow-up
// operations on the batch resolve on both sides.
func (c *Client) AppendItems(ctx context.Context, orderID, batchID string, items []order.Item, at time.Time, actor Attribution) (*order.Order, error) {
	var out order.Order
	body := appendItemsRequest{ID: batchID, Items: items, Timestamp: at, Actor: actor}
	if err := c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/appended", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAppendedOrder removes one appended batch.
func (c *Client) DeleteAppendedOrder(ctx context.Context, orderID, appendedID string) error {
	path := "/orders/" + url.PathEscape(orderID) + "/appended/" + url.PathEscape(appendedID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// DeleteItem removes one item, with justification when it already left
// pending.
func (c *Client) DeleteItem(ctx context.Context, orderID, appendedID, itemID, justification string, actor Attribution) error {
	path := "/orders/" + url.PathEscape(orderID)
	if appendedID != "" {
		path += "/appended/" + url.PathEscape(appendedID)
	}
	path += "/items/" + url.PathEscape(itemID)
	return c.do(ctx, http.MethodDelete, path, deleteItemRequest{Justification: justification, Actor: actor}, nil)
}

// UpdateItemStatus advances a main item.
func (c *Client) UpdateItemStatus(ctx context.Context, orderID, itemID, status string, actor Attribution) (*order.Order, error) {
	path := "/orders/" + url.PathEscape(orderID) + "/items/" + url.PathEscape(itemID) + "/status"
	var out order.Order
	if err := c.do(ctx, http.MethodPatch, path, itemStatusRequest{Status: status, Actor: actor}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAppendedItemStatus advances an item inside an appended batch.
func (c *Client) UpdateAppendedItemStatus(ctx context.Context, orderID, appendedID, itemID, status string, actor Attribution) (*order.Order, error) {
	path := "/orders/" + url.PathEscape(orderID) +
		"/appended/" + url.PathEscape(appendedID) +
		"/items/" + url.PathEscape(itemID) + "/status"
	var out order.Order
	if err := c.do(ctx, http.MethodPatch, path, itemStatusRequest{Status: status, Actor: actor}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TogglePayment settles or reverts the main order payment.
func (c *Client) TogglePayment(ctx context.Context, orderID string, req TogglePayment) (*order.Order, error) {
	body := togglePaymentRequest{
		Paid:        req.Paid,
		Method:      req.Method,
		CashAmount:  req.CashAmount,
		GCashAmount: req.GCashAmount,
		Received:    req.Received,
	}
	var out order.Order
	if err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/payment", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleAppendedPayment settles or reverts one appended batch.
func (c *Client) ToggleAppendedPayment(ctx context.Context, orderID, appendedID string, paid bool, method string) (*order.Order, error) {
	path := "/orders/" + url.PathEscape(orderID) + "/appended/" + url.PathEscape(appendedID) + "/payment"
	body := togglePaymentRequest{Paid: paid, Method: method}
	var out order.Order
	if err := c.do(ctx, http.MethodPatch, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmOnlinePayment flips an online order to confirmed.
func (c *Client) ConfirmOnlinePayment(ctx context.Context, orderID string) (*order.Order, error) {
	var out order.Order
	if err := c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/online-payment/confirm", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PendingOnlineOrderCodes lists pickup codes of unconfirmed online orders.
func (c *Client) PendingOnlineOrderCodes(ctx context.Context) ([]string, error) {
	var out struct {
		Codes []string `json:"codes"`
	}
	if err := c.do(ctx, http.MethodGet, "/online-orders/codes", nil, &out); err != nil {
		return nil, err
	}
	return out.Codes, nil
}

// OnlineOrdersCount counts online orders currently on the store.
func (c *Client) OnlineOrdersCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/online-orders/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// TogglePayment carries the payment settlement parameters.
type TogglePayment struct {
	Paid        bool
	Method      string
	CashAmount  decimal.NullDecimal
	GCashAmount decimal.NullDecimal
	Received    decimal.NullDecimal
}

// --- Transport ---

// do runs one request with a bounded transport retry. Network failures and
// 5xx responses come back as ErrUnavailable; 4xx as ErrRejected/ErrNotFound.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			if ctx.Err() != nil {
				return lastErr
			}
			c.log.Debug().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("transport failure")
			continue
		}

		err = c.decode(resp, out)
		if errors.Is(err, ErrUnavailable) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func (c *Client) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, e.Error)
		}
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusCodeOf exposes coarse classification for logging.
func StatusCodeOf(err error) string {
	switch {
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRejected):
		return "rejected"
	}
	return "error"
}
