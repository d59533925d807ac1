package gateway

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow/src/types"
)

var simStart = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func simClient(outcome string, now func() time.Time) Client {
	return New(Config{
		SimulationMode:   true,
		FrontendURL:      "http://localhost:3000",
		SimulatedOutcome: outcome,
		Now:              now,
	})
}

func TestSimulatedCheckoutSession(t *testing.T) {
	c := simClient("", func() time.Time { return simStart })
	session, err := c.CreateCheckoutSession(context.Background(), &CheckoutInput{
		PaymentID:     "pay-1",
		ReservationID: "res-1",
		Amount:        100,
		Currency:      "eur",
	})
	require.NoError(t, err)
	assert.True(t, IsSimulatedSession(session.ID))
	assert.Contains(t, session.URL, session.ID)
	assert.Equal(t, simStart.Add(24*time.Hour), session.ExpiresAt)

	created, err := simSessionCreatedAt(session.ID)
	require.NoError(t, err)
	assert.Equal(t, simStart.UnixNano(), created.UnixNano())
}

func TestSimulatedSessionForcedOutcome(t *testing.T) {
	ctx := context.Background()

	c := simClient("complete", func() time.Time { return simStart })
	session, err := c.CreateCheckoutSession(ctx, &CheckoutInput{Amount: 100})
	require.NoError(t, err)

	status, err := c.RetrieveSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "complete", status.Status)
	assert.Equal(t, "paid", status.PaymentStatus)

	status, err = simClient("expired", func() time.Time { return simStart }).RetrieveSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "expired", status.Status)
}

func TestSimulatedSessionAgesOut(t *testing.T) {
	ctx := context.Background()
	clock := simStart
	now := func() time.Time { return clock }

	c := simClient("", now)
	session, err := c.CreateCheckoutSession(ctx, &CheckoutInput{Amount: 100})
	require.NoError(t, err)

	fresh, err := c.RetrieveSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Contains(t, []string{"open", "complete"}, fresh.Status)

	clock = simStart.Add(2 * time.Hour)
	aged, err := c.RetrieveSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "expired", aged.Status)
}

func TestSimulatedSessionStatusIsStable(t *testing.T) {
	ctx := context.Background()
	c := simClient("", func() time.Time { return simStart })
	session, err := c.CreateCheckoutSession(ctx, &CheckoutInput{Amount: 100})
	require.NoError(t, err)

	first, err := c.RetrieveSession(ctx, session.ID)
	require.NoError(t, err)
	second, err := c.RetrieveSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
}

func TestRetrieveSessionRejectsMalformedSimID(t *testing.T) {
	c := simClient("", nil)
	_, err := c.RetrieveSession(context.Background(), "sim_cs_notanumber_x")
	assert.Error(t, err)
}

func TestSimulatedRefund(t *testing.T) {
	c := simClient("", nil)
	amount := 40.0
	refund, err := c.CreateRefund(context.Background(), &RefundInput{
		TransactionID: "sim_pi_abcd",
		Amount:        &amount,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(refund.ID, "sim_re_"))
	assert.Equal(t, 40.0, refund.Amount)
	assert.Equal(t, "succeeded", refund.Status)
}

func TestLiveCallsFailWithoutClient(t *testing.T) {
	// Live mode with no stripe client configured: simulated ids still route
	// locally, anything else errors instead of dereferencing nil.
	c := New(Config{SimulationMode: false, FrontendURL: "http://localhost:3000"})

	_, err := c.CreateCheckoutSession(context.Background(), &CheckoutInput{Amount: 100})
	assert.ErrorIs(t, err, errLiveUnavailable)

	_, err = c.RetrieveSession(context.Background(), "cs_live_123")
	assert.ErrorIs(t, err, errLiveUnavailable)

	_, err = c.CreateRefund(context.Background(), &RefundInput{TransactionID: "pi_live_123"})
	assert.ErrorIs(t, err, errLiveUnavailable)
}

func TestRoutingBySimulatedIDShape(t *testing.T) {
	// Even in live mode a sim_ id is answered by the simulator.
	c := New(Config{SimulationMode: false, FrontendURL: "http://localhost:3000", SimulatedOutcome: "complete"})

	sim := NewSimulator("http://localhost:3000", "", func() time.Time { return simStart })
	session, err := sim.CreateCheckoutSession(context.Background(), &CheckoutInput{Amount: 100})
	require.NoError(t, err)

	status, err := c.RetrieveSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "complete", status.Status)

	refund, err := c.CreateRefund(context.Background(), &RefundInput{TransactionID: "sim_pi_abcd"})
	require.NoError(t, err)
	assert.Equal(t, "succeeded", refund.Status)
}

func TestSimulatedWebhookRoundTrip(t *testing.T) {
	sim := NewSimulator("http://localhost:3000", "", nil)
	payload := sim.WebhookPayload("checkout.session.completed", "sim_cs_1_abcd",
		map[string]string{"paymentId": "pay-1", "reservationId": "res-1"}, 10000)

	c := simClient("", nil)
	event, err := c.VerifyAndParseWebhook(payload, "")
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, event.Type)
	assert.Equal(t, "checkout.session.completed", event.RawType)
	assert.Equal(t, "sim_cs_1_abcd", event.SessionID)
	assert.Equal(t, "pay-1", event.Metadata["paymentId"])
	assert.Equal(t, 100.0, event.GrossAmount)
	assert.True(t, strings.HasPrefix(event.TransactionID, "sim_pi_"))
	assert.Equal(t, "visa", event.CardBrand)
	assert.Equal(t, "4242", event.CardLast4)
	assert.NotEmpty(t, event.ID)
}

func TestSimulatedWebhookEventTypes(t *testing.T) {
	sim := NewSimulator("http://localhost:3000", "", nil)
	c := simClient("", nil)

	cases := []struct {
		raw  string
		want EventType
	}{
		{"checkout.session.completed", EventCheckoutCompleted},
		{"checkout.session.expired", EventCheckoutExpired},
		{"payment_intent.succeeded", EventPaymentSucceeded},
		{"payment_intent.payment_failed", EventPaymentFailed},
		{"charge.dispute.created", EventDisputeCreated},
		{"invoice.paid", EventIgnored},
	}
	for _, tc := range cases {
		event, err := c.VerifyAndParseWebhook(sim.WebhookPayload(tc.raw, "sim_cs_1_x", nil, 0), "")
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, event.Type, tc.raw)
	}
}

func TestSimulatedWebhookRejectsGarbage(t *testing.T) {
	c := simClient("", nil)

	_, err := c.VerifyAndParseWebhook([]byte("not json"), "")
	assert.True(t, types.IsKind(err, types.ErrInvalidSignature))

	_, err = c.VerifyAndParseWebhook([]byte(`{"id":"evt_1"}`), "")
	assert.True(t, types.IsKind(err, types.ErrInvalidSignature))
}

func TestUnitConversion(t *testing.T) {
	assert.Equal(t, int64(10000), toMinorUnits(100))
	assert.Equal(t, int64(1999), toMinorUnits(19.99))
	assert.Equal(t, 19.99, toMajorUnits(1999))
	assert.Equal(t, int64(10), toMinorUnits(0.1))
}
