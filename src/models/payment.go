package models

import (
	"time"

	"payflow/src/types"
)

// Payment mirrors the record shape the persistence service stores and
// returns. All mutation goes through the orchestrator; handlers never write
// fields on this struct directly.
type Payment struct {
	ID            string              `json:"id,omitempty"`
	ReservationID string              `json:"reservationId"`
	Amount        float64             `json:"amount"`
	Currency      string              `json:"currency,omitempty"`
	PaymentMethod types.PaymentMethod `json:"paymentMethod"`
	Status        types.PaymentStatus `json:"status,omitempty"`

	// TransactionID holds a synthetic TEMP- value until the gateway reports
	// its real reference on checkout completion.
	TransactionID string `json:"transactionId,omitempty"`

	BillingAddress *string `json:"billingAddress,omitempty"`
	Description    *string `json:"description,omitempty"`

	CheckoutSessionID *string    `json:"checkoutSessionId,omitempty"`
	CheckoutURL       *string    `json:"checkoutUrl,omitempty"`
	CheckoutCreatedAt *time.Time `json:"checkoutCreatedAt,omitempty"`

	PaymentDate *time.Time `json:"paymentDate,omitempty"`

	RefundAmount float64    `json:"refundAmount,omitempty"`
	RefundDate   *time.Time `json:"refundDate,omitempty"`
	RefundReason *string    `json:"refundReason,omitempty"`

	Fees      float64 `json:"fees,omitempty"`
	NetAmount float64 `json:"netAmount,omitempty"`

	CardBrand *string `json:"cardBrand,omitempty"`
	CardLast4 *string `json:"cardLast4,omitempty"`

	Notes *string `json:"notes,omitempty"`

	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// RemainingRefundable is the amount a further refund may still claim.
func (p *Payment) RemainingRefundable() float64 {
	return p.Amount - p.RefundAmount
}

type PaymentPage struct {
	Data       []Payment        `json:"data"`
	Pagination types.Pagination `json:"pagination"`
}

type PaymentStats struct {
	TotalCount    int64            `json:"totalCount"`
	TotalAmount   float64          `json:"totalAmount"`
	TotalFees     float64          `json:"totalFees"`
	TotalRefunded float64          `json:"totalRefunded"`
	ByStatus      map[string]int64 `json:"byStatus,omitempty"`
	ByMethod      map[string]int64 `json:"byMethod,omitempty"`
}
