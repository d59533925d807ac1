package payments

import (
	"fmt"

	"payflow/src/types"
)

// ValidatePayment checks a proposed payment payload and returns every
// problem found as a human-readable message. An empty slice means valid.
// Pure function: no side effects, deterministic.
func ValidatePayment(body *types.CreatePaymentRequestBody, directCardFlow bool) []string {
	errs := []string{}
	if body.ReservationID == "" {
		errs = append(errs, "reservationId is required")
	}
	if body.Amount == nil {
		errs = append(errs, "amount is required")
	} else if *body.Amount <= 0 {
		errs = append(errs, "amount must be greater than 0")
	}
	if body.PaymentMethod == "" {
		errs = append(errs, "paymentMethod is required")
	} else if !types.PaymentMethod(body.PaymentMethod).Valid() {
		errs = append(errs, fmt.Sprintf("paymentMethod %q is not supported", body.PaymentMethod))
	}
	if types.PaymentMethod(body.PaymentMethod) == types.METHOD_CARD {
		if directCardFlow {
			// Legacy direct-detail variant: the sensitive fields must be
			// present so the charge can be placed without a checkout link.
			if body.CardNumber == nil || *body.CardNumber == "" {
				errs = append(errs, "cardNumber is required for card payments")
			}
			if body.CardExpiry == nil || *body.CardExpiry == "" {
				errs = append(errs, "cardExpiry is required for card payments")
			}
			if body.CardSecurityCode == nil || *body.CardSecurityCode == "" {
				errs = append(errs, "cardSecurityCode is required for card payments")
			}
		} else if body.CardNumber != nil || body.CardExpiry != nil || body.CardSecurityCode != nil {
			errs = append(errs, "card details are not accepted; use the checkout link flow")
		}
	}
	return errs
}
