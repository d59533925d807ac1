package payments

import (
	"fmt"
	"time"

	"payflow/src/models"
	"payflow/src/types"
)

// RefundWindow is how long after the payment date a refund stays possible.
const RefundWindow = 30 * 24 * time.Hour

type RefundEligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// CheckRefundEligibility applies the three refund rules in a fixed order and
// stops at the first failure, so callers always get the same reason for the
// same record. Pure function of (payment, requested, now).
func CheckRefundEligibility(p *models.Payment, requested float64, now time.Time) RefundEligibility {
	if p.Status != types.PAYMENT_COMPLETED {
		return RefundEligibility{Reason: "only completed payments may be refunded"}
	}
	if remaining := p.RemainingRefundable(); requested > remaining {
		return RefundEligibility{Reason: fmt.Sprintf("maximum refundable amount is %.2f", remaining)}
	}
	paidAt := p.PaymentDate
	if paidAt == nil {
		paidAt = p.CreatedAt
	}
	if paidAt != nil && now.After(paidAt.Add(RefundWindow)) {
		return RefundEligibility{Reason: "refund window (30 days) has passed"}
	}
	return RefundEligibility{Eligible: true}
}
