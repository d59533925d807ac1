package payments

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"payflow/src/gateway"
	"payflow/src/models"
	"payflow/src/types"
)

// Store is the persistence surface the orchestrator drives. The token
// argument is the caller's Authorization header value, forwarded verbatim;
// webhook-triggered updates pass "" and run as the service itself.
type Store interface {
	CreatePayment(ctx context.Context, token string, p *models.Payment) (*models.Payment, error)
	GetPayment(ctx context.Context, token, id string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, token, id string, updates types.Metadata) (*models.Payment, error)
	DeletePayment(ctx context.Context, token, id string) error
	ListPayments(ctx context.Context, token string, f *types.PaymentQueryFilters) (*models.PaymentPage, error)
	FindByReservation(ctx context.Context, token, reservationID string) ([]models.Payment, error)
	FindByTransaction(ctx context.Context, token, transactionID string) (*models.Payment, error)
	GetReservation(ctx context.Context, token, id string) (*models.Reservation, error)
	Stats(ctx context.Context, token string, f *types.PaymentQueryFilters) (*models.PaymentStats, error)
}

// allowedTransitions is the payment state machine. refunded is reachable
// only through RefundPayment, never through a direct status update.
var allowedTransitions = map[types.PaymentStatus][]types.PaymentStatus{
	types.PAYMENT_PENDING:    {types.PAYMENT_PROCESSING, types.PAYMENT_CANCELLED},
	types.PAYMENT_PROCESSING: {types.PAYMENT_COMPLETED, types.PAYMENT_FAILED, types.PAYMENT_CANCELLED},
	types.PAYMENT_COMPLETED:  {types.PAYMENT_REFUNDED},
}

func CanTransition(from, to types.PaymentStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	tempTransactionPrefix = "TEMP-"
	webhookDedupTTL       = 48 * time.Hour
	checkoutURLCacheTTL   = 24 * time.Hour
)

// Orchestrator owns every payment state transition. It is stateless between
// calls; all durable state lives behind Store, and webhook handlers are
// written to be idempotent because delivery is at-least-once.
type Orchestrator struct {
	store   Store
	gateway gateway.Client
	fees    FeeSchedule
	// rdb is optional; nil disables the webhook dedup fast path and the
	// checkout URL cache. Correctness never depends on it.
	rdb            *redis.Client
	directCardFlow bool
	now            func() time.Time
}

type OrchestratorConfig struct {
	Store          Store
	Gateway        gateway.Client
	Fees           FeeSchedule
	Redis          *redis.Client
	DirectCardFlow bool
	Now            func() time.Time
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	fees := cfg.Fees
	if fees == nil {
		fees = DefaultFeeSchedule()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store:          cfg.Store,
		gateway:        cfg.Gateway,
		fees:           fees,
		rdb:            cfg.Redis,
		directCardFlow: cfg.DirectCardFlow,
		now:            now,
	}
}

// CreatePayment validates the request, confirms the referenced reservation
// exists, and persists a new pending record. Sensitive card-detail fields
// are never copied into the stored record.
func (o *Orchestrator) CreatePayment(ctx context.Context, token string, body *types.CreatePaymentRequestBody) (*models.Payment, error) {
	if errs := ValidatePayment(body, o.directCardFlow); len(errs) > 0 {
		return nil, types.NewValidationError(strings.Join(errs, "; "))
	}
	reservation, err := o.store.GetReservation(ctx, token, body.ReservationID)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, types.NewNotFoundError("reservation")
	}
	currency := body.Currency
	if currency == "" {
		currency = "EUR"
	}
	payment := &models.Payment{
		ReservationID:  body.ReservationID,
		Amount:         *body.Amount,
		Currency:       currency,
		PaymentMethod:  types.PaymentMethod(body.PaymentMethod),
		Status:         types.PAYMENT_PENDING,
		TransactionID:  tempTransactionPrefix + uuid.NewString(),
		BillingAddress: body.BillingAddress,
		Description:    body.Description,
	}
	return o.store.CreatePayment(ctx, token, payment)
}

func (o *Orchestrator) GetPayment(ctx context.Context, token, id string) (*models.Payment, error) {
	payment, err := o.store.GetPayment(ctx, token, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, types.NewNotFoundError("payment")
	}
	return payment, nil
}

func (o *Orchestrator) ListPayments(ctx context.Context, token string, f *types.PaymentQueryFilters) (*models.PaymentPage, error) {
	return o.store.ListPayments(ctx, token, f)
}

func (o *Orchestrator) ListByReservation(ctx context.Context, token, reservationID string) ([]models.Payment, error) {
	return o.store.FindByReservation(ctx, token, reservationID)
}

func (o *Orchestrator) Stats(ctx context.Context, token string, f *types.PaymentQueryFilters) (*models.PaymentStats, error) {
	return o.store.Stats(ctx, token, f)
}

// InitiateCheckout creates a gateway checkout session for a card payment and
// moves it to processing. On gateway failure the record is left untouched.
// A new session supersedes any prior session reference on the record.
func (o *Orchestrator) InitiateCheckout(ctx context.Context, token, id string, body *types.InitiateCheckoutRequestBody) (*models.Payment, error) {
	payment, err := o.GetPayment(ctx, token, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != types.PAYMENT_PENDING && payment.Status != types.PAYMENT_PROCESSING {
		return nil, types.NewInvalidStateError(fmt.Sprintf("cannot initiate checkout for a %s payment", payment.Status))
	}
	if payment.PaymentMethod != types.METHOD_CARD {
		return nil, types.NewInvalidMethodError("checkout links are only available for card payments")
	}
	in := &gateway.CheckoutInput{
		PaymentID:     payment.ID,
		ReservationID: payment.ReservationID,
		Amount:        payment.Amount,
		Currency:      strings.ToLower(payment.Currency),
	}
	if payment.Description != nil {
		in.Description = *payment.Description
	}
	if body != nil {
		if body.SuccessURL != nil {
			in.SuccessURL = *body.SuccessURL
		}
		if body.CancelURL != nil {
			in.CancelURL = *body.CancelURL
		}
	}
	session, err := o.gateway.CreateCheckoutSession(ctx, in)
	if err != nil {
		return nil, types.NewGatewayError(err)
	}
	checkoutCreatedAt := o.now()
	updated, err := o.store.UpdatePayment(ctx, token, payment.ID, types.Metadata{
		"status":            types.PAYMENT_PROCESSING,
		"checkoutSessionId": session.ID,
		"checkoutUrl":       session.URL,
		"checkoutCreatedAt": checkoutCreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if o.rdb != nil {
		if err := o.rdb.SetEx(ctx, "payments:checkout:"+payment.ID, session.URL, checkoutURLCacheTTL).Err(); err != nil {
			log.Printf("[redis] Error caching checkout URL for %s: %s\n", payment.ID, err.Error())
		}
	}
	return updated, nil
}

// CheckoutSessionStatus reports the gateway's view of a checkout session.
func (o *Orchestrator) CheckoutSessionStatus(ctx context.Context, sessionID string) (*gateway.SessionStatus, error) {
	status, err := o.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, types.NewGatewayError(err)
	}
	return status, nil
}

// HandleWebhookEvent reconciles a verified gateway event into the payment
// record it references. Correlation misses are swallowed deliberately:
// delivery is at-least-once and stale or foreign events are expected.
func (o *Orchestrator) HandleWebhookEvent(ctx context.Context, event *gateway.Event) error {
	if o.alreadyProcessed(ctx, event.ID) {
		log.Printf("[Webhook] Skipping already-processed event %s (%s)\n", event.ID, event.RawType)
		return nil
	}
	switch event.Type {
	case gateway.EventCheckoutCompleted:
		return o.handleCheckoutCompleted(ctx, event)
	case gateway.EventCheckoutExpired:
		return o.handleCheckoutExpired(ctx, event)
	case gateway.EventDisputeCreated:
		return o.handleDisputeCreated(ctx, event)
	case gateway.EventPaymentSucceeded, gateway.EventPaymentFailed:
		log.Printf("[Webhook] %s for transaction %s (informational)\n", event.RawType, event.TransactionID)
		return nil
	default:
		log.Printf("[Webhook] Ignoring event type %s\n", event.RawType)
		return nil
	}
}

func (o *Orchestrator) handleCheckoutCompleted(ctx context.Context, event *gateway.Event) error {
	payment := o.correlate(ctx, event)
	if payment == nil {
		return nil
	}
	if payment.Status == types.PAYMENT_REFUNDED || payment.Status == types.PAYMENT_CANCELLED {
		log.Printf("[Webhook] Ignoring checkout.completed for %s payment %s\n", payment.Status, payment.ID)
		return nil
	}
	gross := event.GrossAmount
	if gross == 0 {
		gross = payment.Amount
	}
	// Recompute-and-overwrite keeps redelivery idempotent: fees are a pure
	// function of the gateway-reported gross, so a duplicate event writes
	// the same values it wrote the first time.
	breakdown := o.fees.CalculateFees(gross, payment.PaymentMethod)
	updates := types.Metadata{
		"status":    types.PAYMENT_COMPLETED,
		"fees":      breakdown.TotalFees,
		"netAmount": breakdown.NetAmount,
	}
	if event.TransactionID != "" {
		updates["transactionId"] = event.TransactionID
	}
	if payment.PaymentDate == nil {
		updates["paymentDate"] = o.now()
	}
	if event.CardBrand != "" {
		updates["cardBrand"] = event.CardBrand
	}
	if event.CardLast4 != "" {
		updates["cardLast4"] = event.CardLast4
	}
	if _, err := o.store.UpdatePayment(ctx, "", payment.ID, updates); err != nil {
		return err
	}
	log.Printf("[Webhook] Payment %s completed (gross=%.2f fees=%.2f)\n", payment.ID, gross, breakdown.TotalFees)
	return nil
}

func (o *Orchestrator) handleCheckoutExpired(ctx context.Context, event *gateway.Event) error {
	payment := o.correlate(ctx, event)
	if payment == nil {
		return nil
	}
	// An expired-session event that lands after completion is stale: the
	// completed webhook already won, never regress it.
	switch payment.Status {
	case types.PAYMENT_COMPLETED, types.PAYMENT_REFUNDED:
		log.Printf("[Webhook] Stale checkout.expired for %s payment %s, ignoring\n", payment.Status, payment.ID)
		return nil
	case types.PAYMENT_FAILED, types.PAYMENT_CANCELLED:
		return nil
	}
	_, err := o.store.UpdatePayment(ctx, "", payment.ID, types.Metadata{
		"status": types.PAYMENT_FAILED,
		"notes":  "checkout session expired before payment was completed",
	})
	return err
}

func (o *Orchestrator) handleDisputeCreated(ctx context.Context, event *gateway.Event) error {
	if event.TransactionID == "" {
		log.Printf("[Webhook] Dispute event %s carries no transaction reference, dropping\n", event.ID)
		return nil
	}
	payment, err := o.store.FindByTransaction(ctx, "", event.TransactionID)
	if err != nil {
		return err
	}
	if payment == nil {
		log.Printf("[Webhook] No payment matches disputed transaction %s, dropping\n", event.TransactionID)
		return nil
	}
	note := fmt.Sprintf("dispute created (%s)", event.Reason)
	if payment.Notes != nil && *payment.Notes != "" {
		note = *payment.Notes + "; " + note
	}
	_, err = o.store.UpdatePayment(ctx, "", payment.ID, types.Metadata{"notes": note})
	return err
}

// correlate resolves an event to its payment via the metadata round-trip.
// Unmatchable events are logged and dropped, never errors: the gateway
// redelivers events and may reference records this service never stored.
func (o *Orchestrator) correlate(ctx context.Context, event *gateway.Event) *models.Payment {
	paymentID := event.Metadata["paymentId"]
	if paymentID == "" {
		log.Printf("[Webhook] Event %s (%s) carries no paymentId metadata, dropping\n", event.ID, event.RawType)
		return nil
	}
	payment, err := o.store.GetPayment(ctx, "", paymentID)
	if err != nil {
		log.Printf("[Webhook] Error looking up payment %s: %s\n", paymentID, err.Error())
		return nil
	}
	if payment == nil {
		log.Printf("[Webhook] Event %s references unknown payment %s, dropping\n", event.ID, paymentID)
		return nil
	}
	return payment
}

// alreadyProcessed is a best-effort redelivery fast path. With no redis
// configured every delivery is processed; the handlers stay correct either
// way because they are idempotent.
func (o *Orchestrator) alreadyProcessed(ctx context.Context, eventID string) bool {
	if o.rdb == nil || eventID == "" {
		return false
	}
	ok, err := o.rdb.SetNX(ctx, "payments:webhook:"+eventID, 1, webhookDedupTTL).Result()
	if err != nil {
		log.Printf("[redis] Error recording webhook event %s: %s\n", eventID, err.Error())
		return false
	}
	return !ok
}

// RefundPayment refunds part or all of a completed payment. Card payments
// with a real gateway reference are refunded externally first; every method
// is refunded at the record level. Status flips to refunded only when the
// cumulative refund covers the full amount.
func (o *Orchestrator) RefundPayment(ctx context.Context, token, id string, body *types.RefundRequestBody) (*models.Payment, error) {
	payment, err := o.GetPayment(ctx, token, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != types.PAYMENT_COMPLETED {
		return nil, types.NewInvalidStateError("only completed payments may be refunded")
	}
	requested := payment.RemainingRefundable()
	if body != nil && body.Amount != nil {
		requested = *body.Amount
	}
	if requested <= 0 {
		return nil, types.NewValidationError("refund amount must be greater than 0")
	}
	if eligibility := CheckRefundEligibility(payment, requested, o.now()); !eligibility.Eligible {
		return nil, types.NewValidationError(eligibility.Reason)
	}
	var reason string
	if body != nil {
		reason = body.Reason
	}
	if payment.PaymentMethod == types.METHOD_CARD && hasRealTransaction(payment) {
		if _, err := o.gateway.CreateRefund(ctx, &gateway.RefundInput{
			TransactionID: payment.TransactionID,
			Amount:        &requested,
			Reason:        reason,
		}); err != nil {
			return nil, types.NewGatewayError(err)
		}
	}
	newRefundAmount := round2(payment.RefundAmount + requested)
	updates := types.Metadata{
		"refundAmount": newRefundAmount,
		"refundDate":   o.now(),
	}
	if reason != "" {
		updates["refundReason"] = reason
	}
	if newRefundAmount >= payment.Amount {
		updates["status"] = types.PAYMENT_REFUNDED
	}
	return o.store.UpdatePayment(ctx, token, payment.ID, updates)
}

// CancelPayment cancels a pending or processing payment. Completed payments
// must go through the refund operation instead.
func (o *Orchestrator) CancelPayment(ctx context.Context, token, id string) (*models.Payment, error) {
	payment, err := o.GetPayment(ctx, token, id)
	if err != nil {
		return nil, err
	}
	switch payment.Status {
	case types.PAYMENT_COMPLETED:
		return nil, types.NewInvalidTransitionError("completed payments cannot be cancelled; use the refund operation instead")
	case types.PAYMENT_REFUNDED, types.PAYMENT_FAILED:
		return nil, types.NewInvalidTransitionError(fmt.Sprintf("cannot cancel a %s payment", payment.Status))
	case types.PAYMENT_CANCELLED:
		return nil, types.NewInvalidStateError("payment is already cancelled")
	}
	return o.store.UpdatePayment(ctx, token, payment.ID, types.Metadata{
		"status": types.PAYMENT_CANCELLED,
	})
}

// UpdateStatus applies a direct status change, guarded by the same
// transition table the webhook path honors.
func (o *Orchestrator) UpdateStatus(ctx context.Context, token, id string, newStatus types.PaymentStatus) (*models.Payment, error) {
	if !newStatus.Valid() {
		return nil, types.NewValidationError(fmt.Sprintf("status %q is not recognized", newStatus))
	}
	if newStatus == types.PAYMENT_REFUNDED {
		return nil, types.NewInvalidTransitionError("status refunded is set by the refund operation")
	}
	payment, err := o.GetPayment(ctx, token, id)
	if err != nil {
		return nil, err
	}
	if payment.Status == newStatus {
		return payment, nil
	}
	if !CanTransition(payment.Status, newStatus) {
		if payment.Status == types.PAYMENT_COMPLETED && newStatus == types.PAYMENT_CANCELLED {
			return nil, types.NewInvalidTransitionError("completed payments cannot be cancelled; use the refund operation instead")
		}
		return nil, types.NewInvalidTransitionError(fmt.Sprintf("cannot transition payment from %s to %s", payment.Status, newStatus))
	}
	updates := types.Metadata{"status": newStatus}
	if newStatus == types.PAYMENT_COMPLETED && payment.PaymentDate == nil {
		updates["paymentDate"] = o.now()
	}
	return o.store.UpdatePayment(ctx, token, payment.ID, updates)
}

// DeletePayment removes a record that never collected funds.
func (o *Orchestrator) DeletePayment(ctx context.Context, token, id string) error {
	payment, err := o.GetPayment(ctx, token, id)
	if err != nil {
		return err
	}
	switch payment.Status {
	case types.PAYMENT_PENDING, types.PAYMENT_CANCELLED, types.PAYMENT_FAILED:
		return o.store.DeletePayment(ctx, token, payment.ID)
	}
	return types.NewInvalidStateError(fmt.Sprintf("cannot delete a %s payment", payment.Status))
}

func hasRealTransaction(p *models.Payment) bool {
	return p.TransactionID != "" && !strings.HasPrefix(p.TransactionID, tempTransactionPrefix)
}
