package gateway

import "encoding/json"

// tokenResponse is the OAuth client-credentials grant response
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// apiErrorBody is the gateway's JSON error envelope
type apiErrorBody struct {
	Name             string `json:"name"`
	Message          string `json:"message"`
	DebugID          string `json:"debug_id"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// approvalURL returns the href the payer must visit, empty if absent
func approvalURL(links []link) string {
	for _, l := range links {
		if l.Rel == "approve" {
			return l.Href
		}
	}
	return ""
}

type createProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}

type createProductResponse struct {
	ID string `json:"id"`
}

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type createPlanRequest struct {
	ProductID          string             `json:"product_id"`
	Name               string             `json:"name"`
	BillingCycles      []planBillingCycle `json:"billing_cycles"`
	PaymentPreferences paymentPreferences `json:"payment_preferences"`
}

type planBillingCycle struct {
	Frequency     planFrequency `json:"frequency"`
	TenureType    string        `json:"tenure_type"`
	Sequence      int           `json:"sequence"`
	TotalCycles   int           `json:"total_cycles"`
	PricingScheme pricingScheme `json:"pricing_scheme"`
}

type planFrequency struct {
	IntervalUnit  string `json:"interval_unit"`
	IntervalCount int    `json:"interval_count"`
}

type pricingScheme struct {
	FixedPrice money `json:"fixed_price"`
}

type paymentPreferences struct {
	AutoBillOutstanding bool `json:"auto_bill_outstanding"`
}

type createPlanResponse struct {
	ID string `json:"id"`
}

type createSubscriptionRequest struct {
	PlanID string `json:"plan_id"`
}

type subscriptionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	PlanID string `json:"plan_id"`
	Links  []link `json:"links"`
}

type subscriptionStatusRequest struct {
	Reason string `json:"reason"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type purchaseUnit struct {
	ReferenceID string `json:"reference_id,omitempty"`
	InvoiceID   string `json:"invoice_id,omitempty"`
	CustomID    string `json:"custom_id,omitempty"`
	Amount      money  `json:"amount"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	Links         []link              `json:"links"`
	PurchaseUnits []purchaseUnitsResp `json:"purchase_units"`
}

type purchaseUnitsResp struct {
	Payments struct {
		Captures []captureResp `json:"captures"`
	} `json:"payments"`
}

type captureResp struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount money  `json:"amount"`
}

type verifyWebhookRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyWebhookResponse struct {
	VerificationStatus string `json:"verification_status"`
}
