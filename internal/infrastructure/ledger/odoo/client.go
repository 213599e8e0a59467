// Package odoo posts approved invoices into the external accounting ledger
// through its REST bridge.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/finops-tools/finance-monitor/internal/core/domain"
	"github.com/finops-tools/finance-monitor/internal/infrastructure/resilience"
)

const accountMovePath = "/api/v1/account.move"

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey string) *Client {
	return NewWithOptions(baseURL, apiKey, Options{})
}

func NewWithOptions(baseURL, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type accountMoveRequest struct {
	MoveType    string `json:"move_type"`
	PartnerName string `json:"partner_name"`
	Ref         string `json:"ref"`
	InvoiceDate string `json:"invoice_date,omitempty"`
	AmountTotal string `json:"amount_total"`
	Currency    string `json:"currency"`
	Department  string `json:"department,omitempty"`
	IBAN        string `json:"iban,omitempty"`
}

// PostInvoice records one approved invoice as a vendor bill. The boolean is
// the ledger's acknowledgement; false without an error means the ledger
// answered but refused the posting.
func (c *Client) PostInvoice(ctx context.Context, invoice domain.Invoice) (bool, error) {
	payload := accountMoveRequest{
		MoveType:    "in_invoice",
		PartnerName: invoice.VendorName,
		Ref:         invoice.InvoiceID,
		InvoiceDate: invoice.DateISO(),
		AmountTotal: invoice.Amount.StringFixed(2),
		Currency:    invoice.Currency,
		Department:  invoice.Department,
		IBAN:        invoice.IBAN,
	}

	call := func(callCtx context.Context) error {
		return c.postAccountMove(callCtx, payload)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ledger.post", call, classifyLedgerError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return false, wrapTemporaryIfNeeded("ledger post", err)
	}
	return true, nil
}

func (c *Client) postAccountMove(ctx context.Context, payload accountMoveRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ledger request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+accountMovePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger post request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  "post account.move",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	return nil
}
