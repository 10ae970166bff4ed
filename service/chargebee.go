package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/KishoreAkashYS/chargebee-cpf/config"
	"github.com/KishoreAkashYS/chargebee-cpf/model"
)

// ErrBillingConfig marks configuration problems (missing credentials or
// required fields), as opposed to provider-side failures.
var ErrBillingConfig = errors.New("chargebee configuration error")

const fallbackCustomerName = "Demo Customer"

// Chargebee caps the customer first_name field at 50 characters.
const customerNameLimit = 50

// ChargebeeClient creates customers and subscriptions through the Chargebee
// v2 REST API (Product Catalog 2 items). When disabled, every creation call
// is a no-op that reports a skip result.
type ChargebeeClient struct {
	config     *config.ChargebeeConfig
	baseURL    string
	httpClient *http.Client
}

// BillingResult reports the outcome of a subscription creation. Pointer
// fields are null when the corresponding provider object was absent from the
// response.
type BillingResult struct {
	Skipped        bool    `json:"skipped,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	SubscriptionID *string `json:"subscription_id,omitempty"`
	Status         *string `json:"status,omitempty"`
	CustomerID     *string `json:"customer_id,omitempty"`
	ItemPriceID    string  `json:"item_price_id,omitempty"`
	CreatedAt      *int64  `json:"created_at,omitempty"`
}

func NewChargebeeClient(cfg *config.ChargebeeConfig) *ChargebeeClient {
	baseURL := cfg.APIBase
	if baseURL == "" && cfg.Site != "" {
		baseURL = fmt.Sprintf("https://%s.chargebee.com/api/v2", cfg.Site)
	}

	return &ChargebeeClient{
		config:  cfg,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Enabled reports whether billing creation is active.
func (c *ChargebeeClient) Enabled() bool {
	return c.config.Enabled
}

// CreateSubscription creates a customer and then a subscription for the
// extracted contract. The two calls are not transactional: a subscription
// failure can leave the customer behind, and the error reports which phase
// failed so a caller can compensate.
func (c *ChargebeeClient) CreateSubscription(ctx context.Context, extracted *model.ExtractedContract) (*BillingResult, error) {
	if !c.config.Enabled {
		return &BillingResult{Skipped: true, Reason: "chargebee is disabled"}, nil
	}

	if c.config.Site == "" || c.config.APIKey == "" {
		return nil, fmt.Errorf("%w: site and api key are required", ErrBillingConfig)
	}

	customerID, err := c.CreateCustomer(ctx, extracted)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	return c.createSubscriptionWithItems(ctx, customerID, extracted)
}

// CreateCustomer creates the Chargebee customer record and returns its ID.
func (c *ChargebeeClient) CreateCustomer(ctx context.Context, extracted *model.ExtractedContract) (string, error) {
	name := fallbackCustomerName
	if extracted.CustomerName != nil && *extracted.CustomerName != "" {
		name = *extracted.CustomerName
	}
	if len(name) > customerNameLimit {
		name = name[:customerNameLimit]
	}

	form := url.Values{}
	form.Set("first_name", name)
	if extracted.CustomerEmail != nil && *extracted.CustomerEmail != "" {
		form.Set("email", *extracted.CustomerEmail)
	}
	if extracted.CustomerPhone != nil && *extracted.CustomerPhone != "" {
		form.Set("phone", *extracted.CustomerPhone)
	}

	body, err := c.post(ctx, "/customers", form)
	if err != nil {
		return "", err
	}

	var result struct {
		Customer struct {
			ID string `json:"id"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse customer response: %w", err)
	}
	if result.Customer.ID == "" {
		return "", errors.New("customer response missing id")
	}

	return result.Customer.ID, nil
}

func (c *ChargebeeClient) createSubscriptionWithItems(ctx context.Context, customerID string, extracted *model.ExtractedContract) (*BillingResult, error) {
	if extracted.PlanID == nil || *extracted.PlanID == "" {
		return nil, fmt.Errorf("%w: plan_id is required", ErrBillingConfig)
	}

	period := billingPeriod(extracted.TermMonths)
	priceID := itemPriceID(*extracted.PlanID, period)

	form := url.Values{}
	form.Set("subscription_items[item_price_id][0]", priceID)
	form.Set("subscription_items[quantity][0]", "1")
	// Drafts are collected manually, never charged automatically
	form.Set("auto_collection", "off")
	if extracted.TermMonths != nil {
		form.Set("billing_cycles", strconv.Itoa(*extracted.TermMonths))
	}

	body, err := c.post(ctx, "/customers/"+customerID+"/subscription_for_items", form)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription with item_price_id %q: %w", priceID, err)
	}

	var result struct {
		Subscription *struct {
			ID        string `json:"id"`
			Status    string `json:"status"`
			CreatedAt int64  `json:"created_at"`
		} `json:"subscription"`
		Customer *struct {
			ID string `json:"id"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse subscription response: %w", err)
	}

	res := &BillingResult{ItemPriceID: priceID}
	if result.Subscription != nil {
		res.SubscriptionID = &result.Subscription.ID
		res.Status = &result.Subscription.Status
		res.CreatedAt = &result.Subscription.CreatedAt
	}
	if result.Customer != nil {
		res.CustomerID = &result.Customer.ID
	}

	return res, nil
}

// billingPeriod infers the billing period from the contract term: annual for
// terms of a year or more, monthly otherwise (including an unknown term).
func billingPeriod(termMonths *int) string {
	if termMonths != nil && *termMonths >= 12 {
		return "annual"
	}
	return "monthly"
}

// itemPriceID derives the provider pricing identifier,
// e.g. cbdemo_business-suite + monthly -> cbdemo_business-suite-monthly.
func itemPriceID(planID, period string) string {
	return planID + "-" + strings.ToLower(period)
}

func (c *ChargebeeClient) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.config.APIKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("chargebee API error (status %d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("chargebee API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
