package mpesa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/onurcolak/whatsapp-copilot/environments"
	"github.com/onurcolak/whatsapp-copilot/internal/domain"
	"github.com/onurcolak/whatsapp-copilot/pkg/logger"
)

// Client talks to the invoice based STK push gateway: one call to initiate, one to poll.
type Client struct {
	httpClient  *resty.Client
	initiateURL string
	statusURL   string
	amount      decimal.Decimal
}

func NewClient(cfg environments.PaymentConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient:  client,
		initiateURL: cfg.InitiateURL,
		statusURL:   cfg.StatusURL,
		amount:      cfg.Amount,
	}
}

// Initiate triggers the STK push prompt on phone and returns the gateway invoice.
func (c *Client) Initiate(ctx context.Context, phone string) (*domain.Invoice, error) {
	var out domain.InvoiceResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(domain.InitiateRequest{Amount: json.Number(c.amount.String()), PhoneNumber: phone}).
		SetResult(&out).
		Post(c.initiateURL)
	if err != nil {
		return nil, fmt.Errorf("STK push request failed: %w", err)
	}

	logger.Infof("STK push for %s returned status %d", phone, resp.StatusCode())

	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.String())
	}
	if out.Invoice == nil || out.Invoice.InvoiceID == "" {
		return nil, fmt.Errorf("STK push response carried no invoice id")
	}

	return out.Invoice, nil
}

// Status returns the current invoice state, upper-cased as the gateway documents it.
func (c *Client) Status(ctx context.Context, invoiceID string) (domain.PaymentState, error) {
	var out domain.InvoiceResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(domain.StatusRequest{InvoiceID: invoiceID}).
		SetResult(&out).
		Post(c.statusURL)
	if err != nil {
		return "", fmt.Errorf("STK status request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.String())
	}
	if out.Invoice == nil {
		return "", fmt.Errorf("STK status response carried no invoice")
	}

	state := domain.PaymentState(strings.ToUpper(strings.TrimSpace(string(out.Invoice.State))))
	logger.Debugf("Invoice %s state: %s", invoiceID, state)

	return state, nil
}
