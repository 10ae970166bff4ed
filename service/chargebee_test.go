package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KishoreAkashYS/chargebee-cpf/config"
	"github.com/KishoreAkashYS/chargebee-cpf/model"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestBillingPeriod(t *testing.T) {
	tests := []struct {
		name       string
		termMonths *int
		expected   string
	}{
		{"twelve months", intPtr(12), "annual"},
		{"multi year", intPtr(36), "annual"},
		{"eleven months", intPtr(11), "monthly"},
		{"six months", intPtr(6), "monthly"},
		{"absent term", nil, "monthly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := billingPeriod(tt.termMonths); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestItemPriceID(t *testing.T) {
	tests := []struct {
		planID   string
		period   string
		expected string
	}{
		{"cbdemo_business-suite", "monthly", "cbdemo_business-suite-monthly"},
		{"cbdemo_business-suite", "annual", "cbdemo_business-suite-annual"},
		{"basic", "Monthly", "basic-monthly"},
	}

	for _, tt := range tests {
		if got := itemPriceID(tt.planID, tt.period); got != tt.expected {
			t.Errorf("itemPriceID(%q, %q): expected %q, got %q", tt.planID, tt.period, tt.expected, got)
		}
	}
}

func TestCreateSubscriptionDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Disabled client must not perform network calls")
	}))
	defer server.Close()

	client := NewChargebeeClient(&config.ChargebeeConfig{
		Enabled: false,
		APIBase: server.URL,
		Site:    "acme-test",
		APIKey:  "cb-key",
	})

	result, err := client.CreateSubscription(context.Background(), &model.ExtractedContract{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Skipped {
		t.Error("Expected skip result")
	}
	if result.Reason == "" {
		t.Error("Expected skip reason")
	}
}

func TestCreateSubscriptionMissingCredentials(t *testing.T) {
	client := NewChargebeeClient(&config.ChargebeeConfig{
		Enabled: true,
	})

	_, err := client.CreateSubscription(context.Background(), &model.ExtractedContract{
		PlanID: strPtr("cbdemo_business-suite"),
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !errors.Is(err, ErrBillingConfig) {
		t.Errorf("Expected configuration error, got: %v", err)
	}
}

func TestCreateSubscriptionFullFlow(t *testing.T) {
	var customerForm, subscriptionForm map[string][]string
	var subscriptionPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user != "cb-key" {
			t.Error("Expected API key as basic auth user")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("Failed to parse form: %v", err)
		}

		switch {
		case r.URL.Path == "/customers":
			customerForm = r.PostForm
			json.NewEncoder(w).Encode(map[string]any{
				"customer": map[string]any{"id": "cust-123"},
			})
		case strings.HasSuffix(r.URL.Path, "/subscription_for_items"):
			subscriptionPath = r.URL.Path
			subscriptionForm = r.PostForm
			json.NewEncoder(w).Encode(map[string]any{
				"subscription": map[string]any{
					"id":         "sub-456",
					"status":     "active",
					"created_at": 1717000000,
				},
				"customer": map[string]any{"id": "cust-123"},
			})
		default:
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewChargebeeClient(&config.ChargebeeConfig{
		Enabled: true,
		Site:    "acme-test",
		APIKey:  "cb-key",
		APIBase: server.URL,
	})

	extracted := &model.ExtractedContract{
		CustomerName:  strPtr("ACME Corp"),
		CustomerEmail: strPtr("billing@acme.test"),
		CustomerPhone: strPtr("+1-555-0100"),
		PlanID:        strPtr("cbdemo_business-suite"),
		TermMonths:    intPtr(12),
	}

	result, err := client.CreateSubscription(context.Background(), extracted)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Customer payload
	if got := customerForm["first_name"]; len(got) != 1 || got[0] != "ACME Corp" {
		t.Errorf("Expected first_name 'ACME Corp', got %v", got)
	}
	if got := customerForm["email"]; len(got) != 1 || got[0] != "billing@acme.test" {
		t.Errorf("Expected email, got %v", got)
	}

	// Subscription payload
	if subscriptionPath != "/customers/cust-123/subscription_for_items" {
		t.Errorf("Unexpected subscription path: %s", subscriptionPath)
	}
	if got := subscriptionForm["subscription_items[item_price_id][0]"]; len(got) != 1 || got[0] != "cbdemo_business-suite-annual" {
		t.Errorf("Expected annual item price id, got %v", got)
	}
	if got := subscriptionForm["subscription_items[quantity][0]"]; len(got) != 1 || got[0] != "1" {
		t.Errorf("Expected quantity 1, got %v", got)
	}
	if got := subscriptionForm["auto_collection"]; len(got) != 1 || got[0] != "off" {
		t.Errorf("Expected auto_collection off, got %v", got)
	}
	if got := subscriptionForm["billing_cycles"]; len(got) != 1 || got[0] != "12" {
		t.Errorf("Expected billing_cycles 12, got %v", got)
	}

	// Result payload
	if result.SubscriptionID == nil || *result.SubscriptionID != "sub-456" {
		t.Error("Expected subscription id in result")
	}
	if result.Status == nil || *result.Status != "active" {
		t.Error("Expected subscription status in result")
	}
	if result.CustomerID == nil || *result.CustomerID != "cust-123" {
		t.Error("Expected customer id in result")
	}
	if result.ItemPriceID != "cbdemo_business-suite-annual" {
		t.Errorf("Expected derived item price id, got %s", result.ItemPriceID)
	}
	if result.CreatedAt == nil || *result.CreatedAt != 1717000000 {
		t.Error("Expected created_at in result")
	}
}

func TestCreateCustomerFallbackName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if got := r.PostForm.Get("first_name"); got != fallbackCustomerName {
			t.Errorf("Expected fallback name, got %q", got)
		}
		if _, ok := r.PostForm["email"]; ok {
			t.Error("Expected no email field when absent")
		}
		json.NewEncoder(w).Encode(map[string]any{"customer": map[string]any{"id": "cust-1"}})
	}))
	defer server.Close()

	client := NewChargebeeClient(&config.ChargebeeConfig{
		Enabled: true, Site: "s", APIKey: "k", APIBase: server.URL,
	})

	if _, err := client.CreateCustomer(context.Background(), &model.ExtractedContract{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestCreateCustomerNameTruncated(t *testing.T) {
	long := strings.Repeat("x", 80)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if got := r.PostForm.Get("first_name"); len(got) != customerNameLimit {
			t.Errorf("Expected name truncated to %d chars, got %d", customerNameLimit, len(got))
		}
		json.NewEncoder(w).Encode(map[string]any{"customer": map[string]any{"id": "cust-1"}})
	}))
	defer server.Close()

	client := NewChargebeeClient(&config.ChargebeeConfig{
		Enabled: true, Site: "s", APIKey: "k", APIBase: server.URL,
	})

	_, err := client.CreateCustomer(context.Background(), &model.ExtractedContract{
		CustomerName: &long,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestCreateSubscriptionMissingPlanID(t *testing.T) {
	// The reference flow creates the customer before noticing the missing
	// plan_id, leaving a dangling customer behind. The error must still be a
	// configuration error and no subscription call may happen.
	customerCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers" {
			t.Errorf("Unexpected call to %s", r.URL.Path)
		}
		customerCalls++
		json.NewEncoder(w).Encode(map[string]any{"customer": map[string]any{"id": "cust-1"}})
	}))
	defer server.Close()

	client := NewChargebeeClient(&config.ChargebeeConfig{
		Enabled: true, Site: "s", APIKey: "k", APIBase: server.URL,
	})

	_, err := client.CreateSubscription(context.Background(), &model.ExtractedContract{
		CustomerName: strPtr("ACME"),
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !errors.Is(err, ErrBillingConfig) {
		t.Errorf("Expected configuration error, got: %v", err)
	}
	if customerCalls != 1 {
		t.Errorf("Expected customer created before plan_id check, got %d calls", customerCalls)
	}
}

func TestCreateSubscriptionProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/customers" {
			json.NewEncoder(w).Encode(map[string]any{"customer": map[string]any{"id": "cust-1"}})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"message": "item price not found"})
	}))
	defer server.Close()

	client := NewChargebeeClient(&config.ChargebeeConfig{
		Enabled: true, Site: "s", APIKey: "k", APIBase: server.URL,
	})

	_, err := client.CreateSubscription(context.Background(), &model.ExtractedContract{
		PlanID:     strPtr("unknown-plan"),
		TermMonths: intPtr(6),
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	// The attempted pricing identifier must appear for diagnosability
	if !strings.Contains(err.Error(), "unknown-plan-monthly") {
		t.Errorf("Expected item price id in error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "item price not found") {
		t.Errorf("Expected provider message in error, got: %v", err)
	}
	if errors.Is(err, ErrBillingConfig) {
		t.Error("Provider error must not be a configuration error")
	}
}
