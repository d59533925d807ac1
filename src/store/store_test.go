package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow/src/models"
	"payflow/src/types"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, 5*time.Second), srv
}

func TestGetPayment(t *testing.T) {
	var gotAuth string
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/payments/pay-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "pay-1", "reservationId": "res-1", "amount": 100, "status": "pending"},
		})
	})
	defer srv.Close()

	p, err := c.GetPayment(context.Background(), "Bearer tok-123", "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.ID)
	assert.Equal(t, types.PAYMENT_PENDING, p.Status)
	// The caller's header value travels upstream verbatim.
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestGetPaymentBareEnvelope(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "pay-1", "amount": 50})
	})
	defer srv.Close()

	p, err := c.GetPayment(context.Background(), "", "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", p.ID)
	assert.Equal(t, 50.0, p.Amount)
}

func TestGetPaymentNotFound(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	p, err := c.GetPayment(context.Background(), "", "pay-missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetPaymentNoTokenHeader(t *testing.T) {
	var sawHeader bool
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["Authorization"]
		json.NewEncoder(w).Encode(map[string]any{"id": "pay-1"})
	})
	defer srv.Close()

	_, err := c.GetPayment(context.Background(), "", "pay-1")
	require.NoError(t, err)
	assert.False(t, sawHeader)
}

func TestCreatePayment(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/payments", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body models.Payment
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "res-1", body.ReservationID)

		body.ID = "pay-9"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"data": body})
	})
	defer srv.Close()

	p, err := c.CreatePayment(context.Background(), "", &models.Payment{ReservationID: "res-1", Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, "pay-9", p.ID)
}

func TestUpdatePaymentEmptyResponseRefetches(t *testing.T) {
	calls := 0
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "pay-1", "status": "processing"})
	})
	defer srv.Close()

	p, err := c.UpdatePayment(context.Background(), "", "pay-1", types.Metadata{"status": "processing"})
	require.NoError(t, err)
	assert.Equal(t, types.PAYMENT_PROCESSING, p.Status)
	assert.Equal(t, 2, calls)
}

func TestUpstreamErrorMirrorsStatusAndMessage(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"error": "reservation already paid"})
	})
	defer srv.Close()

	_, err := c.CreatePayment(context.Background(), "", &models.Payment{})
	ae, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrUpstream, ae.Kind)
	assert.Equal(t, http.StatusConflict, ae.HTTPStatus())
	assert.Equal(t, "reservation already paid", ae.Message)
}

func TestUpstreamErrorFallbackMessage(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := c.GetPayment(context.Background(), "", "pay-1")
	ae, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "database service request failed", ae.Message)
}

func TestUnreachableServiceIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, time.Second)

	_, err := c.GetPayment(context.Background(), "", "pay-1")
	ae, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrUpstream, ae.Kind)
	assert.Equal(t, http.StatusGatewayTimeout, ae.HTTPStatus())
}

func TestListPayments(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "completed", q.Get("status"))
		assert.Equal(t, "card", q.Get("paymentMethod"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": "pay-1"}, {"id": "pay-2"}},
			"pagination": map[string]any{"page": 2, "limit": 10, "total": 42},
		})
	})
	defer srv.Close()

	page, err := c.ListPayments(context.Background(), "", &types.PaymentQueryFilters{
		Status:        "completed",
		PaymentMethod: "card",
		Page:          2,
		Limit:         10,
	})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(42), page.Pagination.Total)
	assert.Equal(t, 5, page.Pagination.TotalPages)
}

func TestListPaymentsComputesPaginationWhenAbsent(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{"id": "pay-1"}})
	})
	defer srv.Close()

	page, err := c.ListPayments(context.Background(), "", &types.PaymentQueryFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, int64(1), page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.TotalPages)
}

func TestFindByReservation(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/reservation/res-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{{"id": "pay-1"}}})
	})
	defer srv.Close()

	payments, err := c.FindByReservation(context.Background(), "", "res-1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "pay-1", payments[0].ID)
}

func TestFindByReservationNotFoundMeansEmpty(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	payments, err := c.FindByReservation(context.Background(), "", "res-missing")
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestGetReservation(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reservations/res-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "res-1", "status": "confirmed"}})
	})
	defer srv.Close()

	r, err := c.GetReservation(context.Background(), "", "res-1")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", r.Status)
}

func TestGetReservationAbsent(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	r, err := c.GetReservation(context.Background(), "", "res-missing")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestStats(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/stats", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"totalCount": 7, "totalAmount": 700.5},
		})
	})
	defer srv.Close()

	stats, err := c.Stats(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.TotalCount)
	assert.Equal(t, 700.5, stats.TotalAmount)
}

func TestDeletePayment(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/payments/pay-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	defer srv.Close()

	assert.NoError(t, c.DeletePayment(context.Background(), "", "pay-1"))
}

func TestMalformedPaymentBody(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})
	defer srv.Close()

	_, err := c.GetPayment(context.Background(), "", "pay-1")
	assert.True(t, types.IsKind(err, types.ErrUpstream))
}

func TestFilterQuery(t *testing.T) {
	assert.Equal(t, "", filterQuery(nil))
	assert.Equal(t, "", filterQuery(&types.PaymentQueryFilters{}))
	assert.Equal(t, "?limit=5&page=1&status=pending",
		filterQuery(&types.PaymentQueryFilters{Status: "pending", Page: 1, Limit: 5}))
}
