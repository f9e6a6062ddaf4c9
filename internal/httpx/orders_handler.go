package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/godishuset/box-orders/internal/catalog"
	kafkax "github.com/godishuset/box-orders/internal/kafka"
	"github.com/godishuset/box-orders/internal/orders"
	"github.com/godishuset/box-orders/internal/redisx"
	"github.com/godishuset/box-orders/internal/swish"
)

type OrdersHandler struct {
	Store    *orders.Store
	Catalog  *catalog.Repo
	Rebates  *orders.RebateRepo
	Swish    *swish.Client
	Producer *kafkax.Producer // topic box.order.placed
	Redis    *redis.Client
	Service  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.checkout)
	r.Post("/orders/price", h.price)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/products", h.listProducts)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writePricingErr maps pricing failures onto actionable responses.
func writePricingErr(w http.ResponseWriter, err error) bool {
	var unknown *orders.UnknownProductError
	if errors.As(err, &unknown) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":     "unknown product",
			"productId": unknown.ProductID,
		})
		return true
	}
	var zone *orders.UndeliverableZoneError
	if errors.As(err, &zone) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":       "product not deliverable in recipient zone",
			"recipientId": zone.RecipientID,
			"productId":   zone.ProductID,
			"zone":        zone.Zone,
		})
		return true
	}
	return false
}

type priceReq struct {
	Items      []orders.BasketLine       `json:"items"`
	Recipients []orders.PricingRecipient `json:"recipients"`
	Rebates    []string                  `json:"rebateCodes"`
}

// price exposes the pricing engine so the cart can show a live bottom line.
func (h *OrdersHandler) price(w http.ResponseWriter, r *http.Request) {
	var req priceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	po, err := orders.PriceOrder(ctx, req.Items, req.Recipients, req.Rebates, h.Catalog, h.Rebates)
	if err != nil {
		if !writePricingErr(w, err) {
			writeErr(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, po)
}

type checkoutResp struct {
	Order      *orders.Order `json:"order"`
	Idempotent bool          `json:"idempotent"`
	// Codes that were supplied but had no effect (unknown, expired, inactive).
	IgnoredRebates []string `json:"ignoredRebates,omitempty"`
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var raw orders.RawOrder
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	o, err := orders.BuildOrder(raw)
	if err != nil {
		var verr *orders.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
			return
		}
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	// Fast-path idempotency: a retried checkout returns the stored order
	// without pricing or paying again. The DB unique constraint on
	// checkout_id is the real guarantee; this only skips the work.
	idemKey := fmt.Sprintf(redisx.KeyIdemCheckout, o.CheckoutID)
	if orderID, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && orderID != "" {
		if existing, err := h.Store.GetByID(ctx, orderID); err == nil {
			writeJSON(w, http.StatusOK, checkoutResp{Order: existing, Idempotent: true})
			return
		}
	}

	po, err := orders.PriceOrder(ctx, raw.Items, pricingRecipients(o), raw.Rebates, h.Catalog, h.Rebates)
	if err != nil {
		if !writePricingErr(w, err) {
			writeErr(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	fillFromPricing(o, po)

	// Run sequence numbers come from the shared counter, append-at-end.
	for i := range o.Recipients {
		seq, err := h.Store.NextDeliverySequence(ctx)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		o.Recipients[i].Delivery.Order = seq
	}

	if o.Payment.Method == orders.MethodSwish {
		if code, msg := h.confirmSwish(ctx, o, raw.Payment.PayerAlias); code != 0 {
			writeErr(w, code, msg)
			return
		}
	}

	existed, err := h.Store.Insert(ctx, o)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()

	if !existed {
		h.publishPlaced(o)
	}

	code := http.StatusCreated
	if existed {
		code = http.StatusOK
	}
	writeJSON(w, code, checkoutResp{Order: o, Idempotent: existed, IgnoredRebates: po.IgnoredRebates})
}

// confirmSwish runs the payment request and the bounded confirmation poll.
// Returns a non-zero http status on failure; the order is then not placed
// and the client may retry with the same checkout id.
func (h *OrdersHandler) confirmSwish(ctx context.Context, o *orders.Order, payerAlias string) (int, string) {
	ref, err := h.Swish.CreatePayment(ctx, payerAlias, o.Cost.Total, "Beställning "+o.ID)
	if err != nil {
		return http.StatusBadGateway, err.Error()
	}
	status, err := h.Swish.WaitForPaid(ctx, ref)
	if errors.Is(err, swish.ErrConfirmationTimeout) {
		return http.StatusGatewayTimeout, "payment not confirmed in time, order not placed"
	}
	if err != nil {
		return http.StatusBadGateway, err.Error()
	}
	if status != swish.StatusPaid {
		return http.StatusPaymentRequired, "payment " + status
	}
	o.Payment.Status = orders.StatusPaid
	o.Payment.Swish = &orders.SwishPayment{PayerAlias: payerAlias, Reference: ref}
	return 0, ""
}

func (h *OrdersHandler) publishPlaced(o *orders.Order) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderPlacedPayload{
			OrderID:      o.ID,
			CustomerName: o.Details.Name,
			Email:        o.Details.Email,
			DeliveryDate: o.Delivery.Date.String(),
			DeliveryType: o.Delivery.Type,
			Method:       o.Payment.Method,
			Total:        o.Cost.Total,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetByID(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	f := orders.Filter{
		DateCode:         r.URL.Query().Get("date"),
		DatePrefix:       r.URL.Query().Get("week"),
		ExcludeCancelled: r.URL.Query().Get("all") == "",
	}
	os, err := h.Store.List(ctx, f)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.List(ctx)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func pricingRecipients(o *orders.Order) []orders.PricingRecipient {
	out := make([]orders.PricingRecipient, 0, len(o.Recipients))
	for _, rec := range o.Recipients {
		pr := orders.PricingRecipient{ID: rec.ID, Zone: rec.Zone}
		for _, it := range rec.Items {
			pr.Items = append(pr.Items, orders.BasketLine{ProductID: it.ID, Quantity: it.Quantity})
		}
		out = append(out, pr)
	}
	return out
}

// fillFromPricing snapshots product names and the bottom line onto the order.
func fillFromPricing(o *orders.Order, po *orders.PricedOrder) {
	names := map[string]string{}
	for _, line := range po.Products {
		names[line.ProductID] = line.Name
	}
	for i := range o.Items {
		o.Items[i].Name = names[o.Items[i].ID]
	}
	o.Cost = po.BottomLine
}
