package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"payflow/src/types"
)

const (
	simSessionPrefix     = "sim_cs_"
	simTransactionPrefix = "sim_pi_"
	simRefundPrefix      = "sim_re_"

	// Simulated sessions report expired once they are this old, regardless
	// of the 24h nominal expiry, so expiry paths are exercisable in minutes.
	simOpenWindow = time.Hour
)

// Simulator fakes the gateway locally: no network, no crypto. Session ids
// embed their creation time (sim_cs_<unixnano>_<suffix>) so RetrieveSession
// can derive session age from the id alone.
type Simulator struct {
	frontendURL string
	// outcome forces the reported session status; empty selects the
	// age-based rule with a stable per-id "already complete" chance.
	outcome string
	now     func() time.Time
}

func NewSimulator(frontendURL, outcome string, now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{frontendURL: frontendURL, outcome: outcome, now: now}
}

func (s *Simulator) CreateCheckoutSession(_ context.Context, in *CheckoutInput) (*CheckoutSession, error) {
	created := s.now()
	id := fmt.Sprintf("%s%d_%s", simSessionPrefix, created.UnixNano(), strings.Split(uuid.NewString(), "-")[0])
	return &CheckoutSession{
		ID:        id,
		URL:       fmt.Sprintf("%s/simulated-checkout/%s", s.frontendURL, id),
		ExpiresAt: created.Add(checkoutSessionTTL),
	}, nil
}

func (s *Simulator) RetrieveSession(_ context.Context, sessionID string) (*SessionStatus, error) {
	created, err := simSessionCreatedAt(sessionID)
	if err != nil {
		return nil, err
	}
	status := s.outcome
	if status == "" {
		switch {
		case s.now().Sub(created) >= simOpenWindow:
			status = "expired"
		case stableChance(sessionID, 5):
			status = "complete"
		default:
			status = "open"
		}
	}
	st := &SessionStatus{
		ID:     sessionID,
		Status: status,
	}
	if status == "complete" {
		st.PaymentStatus = "paid"
	}
	if status == "open" {
		st.URL = fmt.Sprintf("%s/simulated-checkout/%s", s.frontendURL, sessionID)
	}
	return st, nil
}

func (s *Simulator) CreateRefund(_ context.Context, in *RefundInput) (*Refund, error) {
	var amount float64
	if in.Amount != nil {
		amount = *in.Amount
	}
	return &Refund{
		ID:     simRefundPrefix + strings.Split(uuid.NewString(), "-")[0],
		Amount: amount,
		Status: "succeeded",
	}, nil
}

// simulatedWebhookBody is the envelope the simulator both emits and accepts
// on the webhook endpoint. Raw type strings mirror the live gateway's.
type simulatedWebhookBody struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID     string            `json:"sessionId"`
		TransactionID string            `json:"transactionId,omitempty"`
		Metadata      map[string]string `json:"metadata,omitempty"`
		AmountTotal   int64             `json:"amountTotal,omitempty"`
		Currency      string            `json:"currency,omitempty"`
		CardBrand     string            `json:"cardBrand,omitempty"`
		CardLast4     string            `json:"cardLast4,omitempty"`
		Reason        string            `json:"reason,omitempty"`
	} `json:"data"`
}

func (s *Simulator) VerifyAndParseWebhook(payload []byte, _ string) (*Event, error) {
	var body simulatedWebhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, types.NewInvalidSignatureError(err)
	}
	if body.Type == "" {
		return nil, types.NewInvalidSignatureError(errors.New("missing event type"))
	}
	out := &Event{
		ID:            body.ID,
		RawType:       body.Type,
		Type:          EventIgnored,
		SessionID:     body.Data.SessionID,
		TransactionID: body.Data.TransactionID,
		Metadata:      body.Data.Metadata,
		GrossAmount:   toMajorUnits(body.Data.AmountTotal),
		Currency:      body.Data.Currency,
		CardBrand:     body.Data.CardBrand,
		CardLast4:     body.Data.CardLast4,
		Reason:        body.Data.Reason,
	}
	if out.ID == "" {
		out.ID = "evt_sim_" + strings.Split(uuid.NewString(), "-")[0]
	}
	switch body.Type {
	case "checkout.session.completed":
		out.Type = EventCheckoutCompleted
	case "checkout.session.expired":
		out.Type = EventCheckoutExpired
	case "payment_intent.succeeded":
		out.Type = EventPaymentSucceeded
	case "payment_intent.payment_failed":
		out.Type = EventPaymentFailed
	case "charge.dispute.created":
		out.Type = EventDisputeCreated
	}
	return out, nil
}

// WebhookPayload builds the raw body a simulated gateway would deliver.
// Tests and local tooling post this to the webhook endpoint.
func (s *Simulator) WebhookPayload(eventType, sessionID string, metadata map[string]string, amountMinor int64) []byte {
	var body simulatedWebhookBody
	body.ID = "evt_sim_" + strings.Split(uuid.NewString(), "-")[0]
	body.Type = eventType
	body.Data.SessionID = sessionID
	body.Data.Metadata = metadata
	body.Data.AmountTotal = amountMinor
	body.Data.Currency = "eur"
	if eventType == "checkout.session.completed" {
		body.Data.TransactionID = simTransactionPrefix + strings.Split(uuid.NewString(), "-")[0]
		body.Data.CardBrand = "visa"
		body.Data.CardLast4 = "4242"
	}
	b, _ := json.Marshal(&body)
	return b
}

func simSessionCreatedAt(sessionID string) (time.Time, error) {
	rest := strings.TrimPrefix(sessionID, simSessionPrefix)
	if rest == sessionID {
		return time.Time{}, fmt.Errorf("not a simulated session id: %s", sessionID)
	}
	parts := strings.SplitN(rest, "_", 2)
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed simulated session id: %s", sessionID)
	}
	return time.Unix(0, nanos), nil
}

// stableChance maps an id to a stable 1-in-n boolean so repeated lookups of
// the same session agree with each other.
func stableChance(id string, n uint32) bool {
	h := fnv.New32a()
	h.Write([]byte(id))
	return h.Sum32()%n == 0
}
