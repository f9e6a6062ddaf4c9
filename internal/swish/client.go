// Package swish talks to the Swish commerce API: payment requests, refunds
// and status polling. Only the fields this system sends and reads are
// modelled; the rest of the gateway protocol is not our business.
package swish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusCreated  = "CREATED"
	StatusPaid     = "PAID"
	StatusDeclined = "DECLINED"
	StatusError    = "ERROR"
)

// ErrConfirmationTimeout is the terminal outcome when a payment is still
// unconfirmed after the polling budget runs out. The order is then left
// unplaced; the checkout can be retried under the same checkout id.
var ErrConfirmationTimeout = errors.New("payment confirmation timed out")

// GatewayError is any failure or malformed answer from the gateway itself.
type GatewayError struct {
	Op     string
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("swish %s: http %d: %s", e.Op, e.Status, e.Body)
}

type Client struct {
	BaseURL    string
	PayeeAlias string
	HTTP       *http.Client

	// Polling budget for WaitForPaid. Zero values fall back to defaults.
	PollEvery time.Duration
	PollMax   int
	Deadline  time.Duration
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

type paymentRequest struct {
	PayeeAlias string `json:"payeeAlias"`
	PayerAlias string `json:"payerAlias"`
	Amount     string `json:"amount"` // SEK with two decimals
	Currency   string `json:"currency"`
	Message    string `json:"message,omitempty"`
}

type refundRequest struct {
	OriginalPaymentReference string `json:"originalPaymentReference"`
	PayerAlias               string `json:"payerAlias"`
	Amount                   string `json:"amount"`
	Currency                 string `json:"currency"`
}

type statusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreatePayment registers a payment request for the given amount in öre and
// returns the instruction id used for status polling and refunds.
func (c *Client) CreatePayment(ctx context.Context, payerAlias string, amount int64, message string) (string, error) {
	id := instructionID()
	body := paymentRequest{
		PayeeAlias: c.PayeeAlias,
		PayerAlias: payerAlias,
		Amount:     formatSEK(amount),
		Currency:   "SEK",
		Message:    message,
	}
	if err := c.put(ctx, "createPayment", "/paymentrequests/"+id, body); err != nil {
		return "", err
	}
	return id, nil
}

// CreateRefund refunds part or all of a previously paid instruction.
func (c *Client) CreateRefund(ctx context.Context, paymentReference string, amount int64) (string, error) {
	id := instructionID()
	body := refundRequest{
		OriginalPaymentReference: paymentReference,
		PayerAlias:               c.PayeeAlias, // money flows back from us
		Amount:                   formatSEK(amount),
		Currency:                 "SEK",
	}
	if err := c.put(ctx, "createRefund", "/refunds/"+id, body); err != nil {
		return "", err
	}
	return id, nil
}

// PaymentStatus fetches the current status of a payment instruction.
func (c *Client) PaymentStatus(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/paymentrequests/"+id, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", readGatewayError("paymentStatus", resp)
	}
	var sr statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", &GatewayError{Op: "paymentStatus", Status: resp.StatusCode, Body: "malformed response"}
	}
	return sr.Status, nil
}

// WaitForPaid polls until the payment reaches a terminal state or the budget
// (max attempts, overall deadline, caller's ctx) runs out. Returns the final
// status, or ErrConfirmationTimeout when still pending at the end.
func (c *Client) WaitForPaid(ctx context.Context, id string) (string, error) {
	every := c.PollEvery
	if every <= 0 {
		every = 2 * time.Second
	}
	max := c.PollMax
	if max <= 0 {
		max = 30
	}
	deadline := c.Deadline
	if deadline <= 0 {
		deadline = 90 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for attempt := 0; attempt < max; attempt++ {
		status, err := c.PaymentStatus(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return "", ErrConfirmationTimeout
			}
			return "", err
		}
		switch status {
		case StatusPaid, StatusDeclined, StatusError:
			return status, nil
		}
		select {
		case <-ctx.Done():
			return "", ErrConfirmationTimeout
		case <-ticker.C:
		}
	}
	return "", ErrConfirmationTimeout
}

func (c *Client) put(ctx context.Context, op, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return readGatewayError(op, resp)
	}
	return nil
}

func readGatewayError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &GatewayError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// instructionID is the 32-char uppercase hex id Swish expects.
func instructionID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// formatSEK renders öre as a SEK amount with two decimals.
func formatSEK(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
