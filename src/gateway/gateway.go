package gateway

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// EventType is the normalized event vocabulary the orchestrator consumes.
// Raw gateway type strings are mapped here once, at the verification boundary.
type EventType string

const (
	EventCheckoutCompleted EventType = "checkout.completed"
	EventCheckoutExpired   EventType = "checkout.expired"
	EventPaymentSucceeded  EventType = "payment.succeeded"
	EventPaymentFailed     EventType = "payment.failed"
	EventDisputeCreated    EventType = "dispute.created"
	EventIgnored           EventType = "ignored"
)

type CheckoutInput struct {
	PaymentID     string
	ReservationID string
	// Amount is in currency-major units; conversion to the gateway's minor
	// units happens inside the client.
	Amount      float64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID        string    `json:"sessionId"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SessionStatus struct {
	ID            string `json:"sessionId"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	URL           string `json:"url,omitempty"`
}

type RefundInput struct {
	TransactionID string
	// Amount nil means refund the full charge.
	Amount *float64
	Reason string
}

type Refund struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}

// Event is a verified, parsed webhook notification. GrossAmount is back in
// major units. Metadata carries the paymentId/reservationId round-trip that
// correlates the event to a Payment record.
type Event struct {
	ID            string
	Type          EventType
	RawType       string
	SessionID     string
	TransactionID string
	Metadata      map[string]string
	GrossAmount   float64
	Currency      string
	CardBrand     string
	CardLast4     string
	Reason        string
}

type Client interface {
	CreateCheckoutSession(ctx context.Context, in *CheckoutInput) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
	CreateRefund(ctx context.Context, in *RefundInput) (*Refund, error)
	// VerifyAndParseWebhook must receive the raw request body byte-exact;
	// any re-encoding breaks live signature verification.
	VerifyAndParseWebhook(payload []byte, sigHeader string) (*Event, error)
}

type Config struct {
	SimulationMode bool
	StripeClient   *stripe.Client
	WebhookSecret  string
	FrontendURL    string

	// SimulatedOutcome forces simulated session status ("open", "complete",
	// "expired") so tests stay deterministic. Empty means age-based.
	SimulatedOutcome string

	// Now is swappable for tests. Defaults to time.Now.
	Now func() time.Time
}

// client routes every call to the live or the simulated implementation.
// Creation follows the configured mode; retrieval and refunds route purely on
// the id's shape so a simulated session never hits the network.
type client struct {
	simMode bool
	sim     *Simulator
	live    *liveClient
}

func New(cfg Config) Client {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &client{
		simMode: cfg.SimulationMode,
		sim:     NewSimulator(cfg.FrontendURL, cfg.SimulatedOutcome, now),
	}
	if cfg.StripeClient != nil {
		c.live = &liveClient{
			sc:            cfg.StripeClient,
			webhookSecret: cfg.WebhookSecret,
			frontendURL:   cfg.FrontendURL,
			now:           now,
		}
	}
	return c
}

var errLiveUnavailable = errors.New("live gateway is not configured")

func (c *client) CreateCheckoutSession(ctx context.Context, in *CheckoutInput) (*CheckoutSession, error) {
	if c.simMode {
		return c.sim.CreateCheckoutSession(ctx, in)
	}
	if c.live == nil {
		return nil, errLiveUnavailable
	}
	return c.live.CreateCheckoutSession(ctx, in)
}

func (c *client) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	if IsSimulatedSession(sessionID) {
		return c.sim.RetrieveSession(ctx, sessionID)
	}
	if c.live == nil {
		return nil, errLiveUnavailable
	}
	return c.live.RetrieveSession(ctx, sessionID)
}

func (c *client) CreateRefund(ctx context.Context, in *RefundInput) (*Refund, error) {
	if IsSimulatedTransaction(in.TransactionID) {
		return c.sim.CreateRefund(ctx, in)
	}
	if c.live == nil {
		return nil, errLiveUnavailable
	}
	return c.live.CreateRefund(ctx, in)
}

func (c *client) VerifyAndParseWebhook(payload []byte, sigHeader string) (*Event, error) {
	if c.simMode {
		return c.sim.VerifyAndParseWebhook(payload, sigHeader)
	}
	if c.live == nil {
		return nil, errLiveUnavailable
	}
	return c.live.VerifyAndParseWebhook(payload, sigHeader)
}

func IsSimulatedSession(id string) bool {
	return strings.HasPrefix(id, simSessionPrefix)
}

func IsSimulatedTransaction(id string) bool {
	return strings.HasPrefix(id, simTransactionPrefix)
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func toMajorUnits(amount int64) float64 {
	return float64(amount) / 100
}
