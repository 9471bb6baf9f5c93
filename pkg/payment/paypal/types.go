package paypal

import "time"

// Order statuses returned by the Orders v2 API
const (
	OrderStatusCreated   = "CREATED"
	OrderStatusApproved  = "APPROVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusVoided    = "VOIDED"
)

// Capture statuses returned by the Payments v2 API
const (
	CaptureStatusCompleted = "COMPLETED"
	CaptureStatusDeclined  = "DECLINED"
	CaptureStatusPending   = "PENDING"
	CaptureStatusRefunded  = "REFUNDED"
)

// Refund statuses returned by the Payments v2 API
const (
	RefundStatusCompleted = "COMPLETED"
	RefundStatusPending   = "PENDING"
	RefundStatusFailed    = "FAILED"
	RefundStatusCancelled = "CANCELLED"
)

// Webhook event types this integration reacts to
const (
	EventCheckoutOrderApproved   = "CHECKOUT.ORDER.APPROVED"
	EventPaymentCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	EventPaymentCaptureDenied    = "PAYMENT.CAPTURE.DENIED"
	EventRefundCompleted         = "REFUND.COMPLETED"
	EventRefundFailed            = "REFUND.FAILED"
)

// Amount is a currency code plus a decimal string in major units
type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// PurchaseUnit describes one unit of a checkout order
type PurchaseUnit struct {
	ReferenceID string    `json:"reference_id,omitempty"`
	InvoiceID   string    `json:"invoice_id,omitempty"`
	CustomID    string    `json:"custom_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Amount      Amount    `json:"amount"`
	Payments    *Payments `json:"payments,omitempty"`
}

// Payments holds captures attached to a purchase unit
type Payments struct {
	Captures []Capture `json:"captures,omitempty"`
}

// Capture is a completed or attempted capture of a purchase unit
type Capture struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	InvoiceID  string     `json:"invoice_id,omitempty"`
	CustomID   string     `json:"custom_id,omitempty"`
	Amount     Amount     `json:"amount"`
	CreateTime *time.Time `json:"create_time,omitempty"`
	UpdateTime *time.Time `json:"update_time,omitempty"`
}

// Link is a HATEOAS link returned by the API
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// ApplicationContext controls the buyer approval flow
type ApplicationContext struct {
	ReturnURL  string `json:"return_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
	UserAction string `json:"user_action,omitempty"`
}

// CreateOrderRequest creates a checkout order with intent CAPTURE
type CreateOrderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []PurchaseUnit      `json:"purchase_units"`
	ApplicationContext *ApplicationContext `json:"application_context,omitempty"`
}

// OrderResponse is the representation of a checkout order
type OrderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units,omitempty"`
	Links         []Link         `json:"links,omitempty"`
}

// ApproveLink returns the buyer approval URL if present
func (o *OrderResponse) ApproveLink() string {
	for _, link := range o.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	return ""
}

// FirstCapture returns the first capture across purchase units, if any
func (o *OrderResponse) FirstCapture() *Capture {
	for _, pu := range o.PurchaseUnits {
		if pu.Payments != nil && len(pu.Payments.Captures) > 0 {
			return &pu.Payments.Captures[0]
		}
	}
	return nil
}

// RefundRequest refunds a capture, fully or partially
type RefundRequest struct {
	Amount      *Amount `json:"amount,omitempty"`
	InvoiceID   string  `json:"invoice_id,omitempty"`
	NoteToPayer string  `json:"note_to_payer,omitempty"`
}

// RefundResponse is the representation of a refund
type RefundResponse struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	InvoiceID string  `json:"invoice_id,omitempty"`
	Amount    *Amount `json:"amount,omitempty"`
	Links     []Link  `json:"links,omitempty"`
}

// tokenResponse is the OAuth2 client credentials grant response
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ErrorResponse is the standard PayPal error body
type ErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	DebugID string `json:"debug_id,omitempty"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details,omitempty"`
}

// WebhookResource is the resource object embedded in a webhook event.
// Only the fields this integration reads are mapped.
type WebhookResource struct {
	ID                string  `json:"id"`
	Status            string  `json:"status"`
	InvoiceID         string  `json:"invoice_id,omitempty"`
	CustomID          string  `json:"custom_id,omitempty"`
	Amount            *Amount `json:"amount,omitempty"`
	SupplementaryData *struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data,omitempty"`
}

// WebhookEvent is a PayPal webhook notification
type WebhookEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	CreateTime   time.Time       `json:"create_time"`
	ResourceType string          `json:"resource_type"`
	Resource     WebhookResource `json:"resource"`
}
