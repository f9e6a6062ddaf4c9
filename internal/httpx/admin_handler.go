package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/godishuset/box-orders/internal/catalog"
	kafkax "github.com/godishuset/box-orders/internal/kafka"
	"github.com/godishuset/box-orders/internal/loans"
	"github.com/godishuset/box-orders/internal/orders"
	"github.com/godishuset/box-orders/internal/swish"
)

// AdminHandler carries the back-office operations: order tracking, payment
// status, refunds, delivery-run sequencing, catalog, rebate codes and loans.
type AdminHandler struct {
	Store           *orders.Store
	Catalog         *catalog.Repo
	Rebates         *orders.RebateRepo
	Loans           *loans.Repo
	Swish           *swish.Client
	PaymentProducer *kafkax.Producer // topic box.order.payment
	RefundProducer  *kafkax.Producer // topic box.order.refund
	Service         string
}

func (h *AdminHandler) Register(r *chi.Mux) {
	r.Post("/orders/{id}/status", h.setStatus)
	r.Post("/orders/{id}/refund", h.refund)
	r.Post("/orders/{id}/recipients/{rid}/sms", h.setSMS)
	r.Delete("/orders/{id}", h.removeOrder)
	r.Post("/delivery/swap", h.swapSequence)
	r.Get("/delivery/next-sequence", h.highestSequence)

	r.Get("/reports/recipients", h.recipientRows)
	r.Get("/reports/weekly", h.weeklyTotals)

	r.Put("/products/{id}", h.upsertProduct)
	r.Delete("/products/{id}", h.removeProduct)

	r.Get("/rebates", h.listRebates)
	r.Post("/rebates", h.createRebate)
	r.Post("/rebates/{code}/deactivate", h.deactivateRebate)

	r.Get("/loans", h.listLoans)
	r.Post("/loans", h.createLoan)
	r.Post("/loans/{id}/return", h.returnLoan)
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Status orders.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !orders.ValidStatus(req.Status) {
		writeErr(w, http.StatusBadRequest, "unknown status")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	before, err := h.Store.GetByID(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.Store.SetPaymentStatus(ctx, id, req.Status); err != nil {
		switch {
		case errors.Is(err, orders.ErrBadTransition):
			writeErr(w, http.StatusConflict, err.Error())
		case errors.Is(err, orders.ErrNotFound):
			writeErr(w, http.StatusNotFound, "not found")
		default:
			writeErr(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventPaymentChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		CorrelationID: id,
		Payload: kafkax.MustMarshal(orders.PaymentChangedPayload{
			OrderID: id,
			From:    before.Payment.Status,
			To:      req.Status,
		}),
	}
	h.PaymentProducer.Publish(orders.PartitionKey(id), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventPaymentChanged)})

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": req.Status})
}

// refund creates a gateway refund first and records it only on success, so
// the stored refund list never claims money that never moved.
func (h *AdminHandler) refund(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		writeErr(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	ctx := r.Context()

	o, err := h.Store.GetByID(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if o.Payment.Swish == nil {
		writeErr(w, http.StatusConflict, "order has no swish payment to refund")
		return
	}
	if o.RefundedTotal()+req.Amount > o.Cost.Total {
		writeErr(w, http.StatusConflict, "refund exceeds amount paid")
		return
	}

	ref, err := h.Swish.CreateRefund(ctx, o.Payment.Swish.Reference, req.Amount)
	if err != nil {
		writeErr(w, http.StatusBadGateway, err.Error())
		return
	}
	refund := orders.Refund{Amount: req.Amount, Reference: ref, Timestamp: time.Now().UTC()}
	if err := h.Store.AppendRefund(ctx, id, refund); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventRefundCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		CorrelationID: id,
		Payload: kafkax.MustMarshal(orders.RefundCreatedPayload{
			OrderID: id, Reference: ref, Amount: req.Amount,
		}),
	}
	h.RefundProducer.Publish(orders.PartitionKey(id), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventRefundCreated)})

	writeJSON(w, http.StatusOK, refund)
}

func (h *AdminHandler) setSMS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SMS string `json:"sms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Store.SetRecipientMessage(ctx, chi.URLParam(r, "id"), chi.URLParam(r, "rid"), req.SMS)
	if errors.Is(err, orders.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminHandler) removeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Store.Remove(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, orders.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminHandler) swapSequence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderA     string `json:"orderA"`
		RecipientA string `json:"recipientA"`
		OrderB     string `json:"orderB"`
		RecipientB string `json:"recipientB"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.OrderA == "" || req.RecipientA == "" || req.OrderB == "" || req.RecipientB == "" {
		writeErr(w, http.StatusBadRequest, "missing fields")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Store.SwapDeliverySequence(ctx, req.OrderA, req.RecipientA, req.OrderB, req.RecipientB)
	if errors.Is(err, orders.ErrNotFound) {
		writeErr(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminHandler) highestSequence(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	max, err := h.Store.HighestDeliverySequence(ctx)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"highest": max, "next": max + 1})
}

func reportFilter(r *http.Request) orders.Filter {
	return orders.Filter{
		DateCode:   r.URL.Query().Get("date"),
		DatePrefix: r.URL.Query().Get("week"),
	}
}

func (h *AdminHandler) recipientRows(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rows, err := h.Store.RecipientRows(ctx, reportFilter(r))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *AdminHandler) weeklyTotals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	totals, err := h.Store.WeeklyTotals(ctx, reportFilter(r))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (h *AdminHandler) upsertProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	p.ID = chi.URLParam(r, "id")
	if p.ID == "" || p.Name == "" || p.GrossPrice < 0 {
		writeErr(w, http.StatusBadRequest, "missing fields")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Catalog.Upsert(ctx, &p); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) removeProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Catalog.Remove(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminHandler) listRebates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	codes, err := h.Rebates.List(ctx)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

func (h *AdminHandler) createRebate(w http.ResponseWriter, r *http.Request) {
	var rc orders.RebateCode
	if err := json.NewDecoder(r.Body).Decode(&rc); err != nil || rc.Code == "" {
		writeErr(w, http.StatusBadRequest, "missing code")
		return
	}
	switch rc.Type {
	case orders.RebatePercent, orders.RebateFreeZone3, orders.RebateCostPrice:
	default:
		writeErr(w, http.StatusBadRequest, "unknown rebate type")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Rebates.Create(ctx, rc); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

func (h *AdminHandler) deactivateRebate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Rebates.Deactivate(ctx, chi.URLParam(r, "code"))
	if errors.Is(err, orders.ErrRebateNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminHandler) listLoans(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.Loans.Outstanding(ctx)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) createLoan(w http.ResponseWriter, r *http.Request) {
	var l loans.LoanItem
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil || l.Customer == "" || l.Item == "" || l.Count <= 0 {
		writeErr(w, http.StatusBadRequest, "missing fields")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Loans.Create(ctx, &l); err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *AdminHandler) returnLoan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err = h.Loans.MarkReturned(ctx, id)
	if errors.Is(err, loans.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
