// Package client implements the HTTP client for the Asaas-style
// subscription billing provider.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/metrics"
)

// Client talks to the billing provider API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

// New creates a new billing provider client.
func New(apiKey, baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// CustomerInput carries the fields to create a provider customer.
type CustomerInput struct {
	Name        string
	Email       string
	CpfCnpj     string
	MobilePhone string
}

// SubscriptionInput carries the fields to create a provider subscription.
type SubscriptionInput struct {
	CustomerID  string
	BillingType string // CREDIT_CARD, PIX, BOLETO
	Value       float64
	Cycle       string // MONTHLY, YEARLY
	Description string
}

// Subscription is the provider's view of a created subscription.
type Subscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Payment is a provider invoice attached to a subscription.
type Payment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	BillingType string `json:"billingType"`
	InvoiceURL  string `json:"invoiceUrl"`
}

type createCustomerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	CpfCnpj              string `json:"cpfCnpj"`
	MobilePhone          string `json:"mobilePhone"`
	NotificationDisabled bool   `json:"notificationDisabled"`
}

type customerResponse struct {
	ID string `json:"id"`
}

type createSubscriptionRequest struct {
	Customer    string  `json:"customer"`
	BillingType string  `json:"billingType"`
	Value       float64 `json:"value"`
	NextDueDate string  `json:"nextDueDate"`
	Cycle       string  `json:"cycle"`
	Description string  `json:"description"`
}

type paymentListResponse struct {
	Data []Payment `json:"data"`
}

type pixQRCodeResponse struct {
	Payload string `json:"payload"`
}

type portalResponse struct {
	URL string `json:"url"`
}

// CreateCustomer creates the customer on the provider and returns its ID.
func (c *Client) CreateCustomer(ctx context.Context, input CustomerInput) (string, error) {
	payload := createCustomerRequest{
		Name:        input.Name,
		Email:       input.Email,
		CpfCnpj:     input.CpfCnpj,
		MobilePhone: input.MobilePhone,
		// The provider's own onboarding emails are suppressed; transactional
		// email is sent by this application instead.
		NotificationDisabled: true,
	}

	var response customerResponse
	if err := c.post(ctx, "/customers", payload, &response); err != nil {
		return "", fmt.Errorf("create billing customer: %w", err)
	}
	return response.ID, nil
}

// CreateSubscription creates a recurring subscription. The first due
// date is today so the provider issues the first invoice immediately.
func (c *Client) CreateSubscription(ctx context.Context, input SubscriptionInput) (Subscription, error) {
	payload := createSubscriptionRequest{
		Customer:    input.CustomerID,
		BillingType: input.BillingType,
		Value:       input.Value,
		NextDueDate: time.Now().Format("2006-01-02"),
		Cycle:       input.Cycle,
		Description: input.Description,
	}

	var response Subscription
	if err := c.post(ctx, "/subscriptions", payload, &response); err != nil {
		return Subscription{}, fmt.Errorf("create billing subscription: %w", err)
	}
	return response, nil
}

// ListPayments returns the invoices of a subscription, newest first.
func (c *Client) ListPayments(ctx context.Context, subscriptionID string) ([]Payment, error) {
	var response paymentListResponse
	if err := c.get(ctx, "/subscriptions/"+subscriptionID+"/payments", &response); err != nil {
		return nil, fmt.Errorf("list subscription payments: %w", err)
	}
	return response.Data, nil
}

// PixPayload returns the PIX copy-and-paste payload for a payment.
func (c *Client) PixPayload(ctx context.Context, paymentID string) (string, error) {
	var response pixQRCodeResponse
	if err := c.get(ctx, "/payments/"+paymentID+"/pixQrCode", &response); err != nil {
		return "", fmt.Errorf("fetch pix payload: %w", err)
	}
	return response.Payload, nil
}

// PortalURL returns the customer's self-service portal URL. The URL is
// treated as opaque and handed straight to the frontend.
func (c *Client) PortalURL(ctx context.Context, customerID string) (string, error) {
	var response portalResponse
	if err := c.get(ctx, "/customers/"+customerID+"/portal", &response); err != nil {
		return "", fmt.Errorf("fetch billing portal url: %w", err)
	}
	return response.URL, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MediCRM/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IntegrationErrors.WithLabelValues("billing").Inc()
		return fmt.Errorf("billing provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IntegrationErrors.WithLabelValues("billing").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Error("billing provider rejected request",
			"method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("billing provider status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode billing response: %w", err)
	}
	return nil
}
