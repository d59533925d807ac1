package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"payflow/src/types"
)

const checkoutSessionTTL = 24 * time.Hour

// liveClient drives the real gateway. Sessions expire 24 hours after
// creation and carry paymentId/reservationId as opaque metadata; the webhook
// path depends on that metadata round-trip to correlate events.
type liveClient struct {
	sc            *stripe.Client
	webhookSecret string
	frontendURL   string
	now           func() time.Time
}

func (l *liveClient) CreateCheckoutSession(ctx context.Context, in *CheckoutInput) (*CheckoutSession, error) {
	successURL := in.SuccessURL
	if successURL == "" {
		successURL = fmt.Sprintf("%s/payments/callback/success", l.frontendURL)
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = fmt.Sprintf("%s/payments/callback/cancel", l.frontendURL)
	}
	currency := in.Currency
	if currency == "" {
		currency = "eur"
	}
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Payment for reservation %s", in.ReservationID)
	}
	metadata := map[string]string{
		"paymentId":     in.PaymentID,
		"reservationId": in.ReservationID,
	}
	expiresAt := l.now().Add(checkoutSessionTTL)

	piParams := &stripe.CheckoutSessionCreatePaymentIntentDataParams{}
	for k, v := range metadata {
		piParams.AddMetadata(k, v)
	}
	createParams := stripe.CheckoutSessionCreateParams{
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		UIMode:            stripe.String("hosted"),
		Mode:              stripe.String("payment"),
		ExpiresAt:         stripe.Int64(expiresAt.Unix()),
		PaymentIntentData: piParams,
		Metadata:          metadata,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(toMinorUnits(in.Amount)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	checkoutSession, err := l.sc.V1CheckoutSessions.Create(ctx, &createParams)
	if err != nil {
		log.Printf("[Gateway] CreateCheckoutSession failed: %s\n", err.Error())
		return nil, err
	}
	return &CheckoutSession{
		ID:        checkoutSession.ID,
		URL:       checkoutSession.URL,
		ExpiresAt: time.Unix(checkoutSession.ExpiresAt, 0),
	}, nil
}

func (l *liveClient) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	data, err := l.sc.V1CheckoutSessions.Retrieve(ctx, sessionID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		log.Printf("[Gateway] Unable to retrieve session %s: %s\n", sessionID, err.Error())
		return nil, err
	}
	return &SessionStatus{
		ID:            data.ID,
		Status:        string(data.Status),
		PaymentStatus: string(data.PaymentStatus),
		URL:           data.URL,
	}, nil
}

func (l *liveClient) CreateRefund(ctx context.Context, in *RefundInput) (*Refund, error) {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(in.TransactionID),
		Reason:        stripe.String("requested_by_customer"),
	}
	if in.Amount != nil {
		params.Amount = stripe.Int64(toMinorUnits(*in.Amount))
	}
	if in.Reason != "" {
		params.AddMetadata("reason", in.Reason)
	}
	refund, err := l.sc.V1Refunds.Create(ctx, params)
	if err != nil {
		log.Printf("[Gateway] CreateRefund failed for %s: %s\n", in.TransactionID, err.Error())
		return nil, err
	}
	return &Refund{
		ID:     refund.ID,
		Amount: toMajorUnits(refund.Amount),
		Status: string(refund.Status),
	}, nil
}

func (l *liveClient) VerifyAndParseWebhook(payload []byte, sigHeader string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, l.webhookSecret)
	if err != nil {
		return nil, types.NewInvalidSignatureError(err)
	}
	return l.parseEvent(&event)
}

func (l *liveClient) parseEvent(event *stripe.Event) (*Event, error) {
	out := &Event{
		ID:      event.ID,
		RawType: string(event.Type),
		Type:    EventIgnored,
	}
	switch event.Type {
	case "checkout.session.completed", "checkout.session.expired":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			log.Printf("[Gateway] Error parsing CheckoutSession: %s\n", err.Error())
			return out, nil
		}
		out.SessionID = cs.ID
		out.Metadata = cs.Metadata
		out.GrossAmount = toMajorUnits(cs.AmountTotal)
		out.Currency = string(cs.Currency)
		if cs.PaymentIntent != nil {
			out.TransactionID = cs.PaymentIntent.ID
		}
		if event.Type == "checkout.session.completed" {
			out.Type = EventCheckoutCompleted
		} else {
			out.Type = EventCheckoutExpired
		}
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Printf("[Gateway] Error parsing PaymentIntent: %s\n", err.Error())
			return out, nil
		}
		out.TransactionID = pi.ID
		out.Metadata = pi.Metadata
		out.GrossAmount = toMajorUnits(pi.Amount)
		out.Currency = string(pi.Currency)
		if pi.LatestCharge != nil && pi.LatestCharge.PaymentMethodDetails != nil &&
			pi.LatestCharge.PaymentMethodDetails.Card != nil {
			out.CardBrand = string(pi.LatestCharge.PaymentMethodDetails.Card.Brand)
			out.CardLast4 = pi.LatestCharge.PaymentMethodDetails.Card.Last4
		}
		if event.Type == "payment_intent.succeeded" {
			out.Type = EventPaymentSucceeded
		} else {
			out.Type = EventPaymentFailed
		}
	case "charge.dispute.created":
		var dispute stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			log.Printf("[Gateway] Error parsing Dispute: %s\n", err.Error())
			return out, nil
		}
		if dispute.PaymentIntent != nil {
			out.TransactionID = dispute.PaymentIntent.ID
		}
		out.GrossAmount = toMajorUnits(dispute.Amount)
		out.Currency = string(dispute.Currency)
		out.Reason = string(dispute.Reason)
		out.Type = EventDisputeCreated
	}
	return out, nil
}
