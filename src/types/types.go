package types

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Metadata map[string]any

type PaymentStatus string

const (
	PAYMENT_PENDING    PaymentStatus = "pending"
	PAYMENT_PROCESSING PaymentStatus = "processing"
	PAYMENT_COMPLETED  PaymentStatus = "completed"
	PAYMENT_FAILED     PaymentStatus = "failed"
	PAYMENT_REFUNDED   PaymentStatus = "refunded"
	PAYMENT_CANCELLED  PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PAYMENT_PENDING, PAYMENT_PROCESSING, PAYMENT_COMPLETED,
		PAYMENT_FAILED, PAYMENT_REFUNDED, PAYMENT_CANCELLED:
		return true
	}
	return false
}

type PaymentMethod string

const (
	METHOD_CARD          PaymentMethod = "card"
	METHOD_PAYPAL        PaymentMethod = "paypal"
	METHOD_BANK_TRANSFER PaymentMethod = "bank_transfer"
	METHOD_CASH          PaymentMethod = "cash"
	METHOD_OTHER         PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case METHOD_CARD, METHOD_PAYPAL, METHOD_BANK_TRANSFER, METHOD_CASH, METHOD_OTHER:
		return true
	}
	return false
}

// CreatePaymentRequestBody is bound loosely on purpose: the field-level checks
// live in payments.ValidatePayment so a caller gets the full list of problems
// in one response instead of the first binding failure.
type CreatePaymentRequestBody struct {
	ReservationID  string   `json:"reservationId"`
	Amount         *float64 `json:"amount"`
	Currency       string   `json:"currency,omitempty"`
	PaymentMethod  string   `json:"paymentMethod"`
	BillingAddress *string  `json:"billingAddress,omitempty"`
	Description    *string  `json:"description,omitempty"`

	// Legacy direct-card-detail flow only. Stripped before anything is
	// persisted, regardless of the flow in use.
	CardNumber       *string `json:"cardNumber,omitempty"`
	CardExpiry       *string `json:"cardExpiry,omitempty"`
	CardSecurityCode *string `json:"cardSecurityCode,omitempty"`
}

type RefundRequestBody struct {
	Amount *float64 `json:"amount,omitempty" binding:"omitempty,gt=0"`
	Reason string   `json:"reason,omitempty"`
}

type UpdateStatusRequestBody struct {
	Status string `json:"status" binding:"required,paymentstatus"`
}

type InitiateCheckoutRequestBody struct {
	SuccessURL *string `json:"successUrl,omitempty"`
	CancelURL  *string `json:"cancelUrl,omitempty"`
}

type PaymentQueryFilters struct {
	Status        string `form:"status" binding:"omitempty,paymentstatus"`
	PaymentMethod string `form:"paymentMethod" binding:"omitempty,paymentmethod"`
	DateFrom      string `form:"dateFrom"`
	DateTo        string `form:"dateTo"`
	Page          int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit         int    `form:"limit,default=10" binding:"omitempty,min=1,max=100"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type SimpleRequestParams struct {
	ID string `uri:"id" binding:"required"`
}

type SessionRequestParams struct {
	SessionID string `uri:"sessionId" binding:"required"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	UID      string `json:"uid"`
	jwt.RegisteredClaims
}

// WebhookAck is the body returned for every verified webhook delivery,
// matched or not, so the gateway stops redelivering.
type WebhookAck struct {
	Received bool `json:"received"`
}

const TIME_PARSE_FORMAT = time.RFC3339
