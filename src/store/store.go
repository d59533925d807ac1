package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"payflow/src/models"
	"payflow/src/types"
)

// Client is the service's only channel to durable storage: a REST adapter to
// the external database microservice. It holds no business logic. Every call
// forwards the caller's Authorization header value verbatim when present;
// the upstream service decides what an unauthenticated call may do.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreatePayment(ctx context.Context, token string, p *models.Payment) (*models.Payment, error) {
	raw, err := c.do(ctx, token, http.MethodPost, "/api/payments", p)
	if err != nil {
		return nil, err
	}
	return decodePayment(raw)
}

// GetPayment returns (nil, nil) when the record does not exist; upstream 404s
// on lookups are a branchable absence, not a failure.
func (c *Client) GetPayment(ctx context.Context, token, id string) (*models.Payment, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/api/payments/"+url.PathEscape(id), nil)
	if err != nil {
		if types.IsKind(err, types.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decodePayment(raw)
}

func (c *Client) UpdatePayment(ctx context.Context, token, id string, updates types.Metadata) (*models.Payment, error) {
	raw, err := c.do(ctx, token, http.MethodPut, "/api/payments/"+url.PathEscape(id), updates)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return c.GetPayment(ctx, token, id)
	}
	return decodePayment(raw)
}

func (c *Client) DeletePayment(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, token, http.MethodDelete, "/api/payments/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) ListPayments(ctx context.Context, token string, f *types.PaymentQueryFilters) (*models.PaymentPage, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/api/payments"+filterQuery(f), nil)
	if err != nil {
		return nil, err
	}
	return decodePage(raw, f)
}

func (c *Client) FindByReservation(ctx context.Context, token, reservationID string) ([]models.Payment, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/api/payments/reservation/"+url.PathEscape(reservationID), nil)
	if err != nil {
		if types.IsKind(err, types.ErrNotFound) {
			return []models.Payment{}, nil
		}
		return nil, err
	}
	var payments []models.Payment
	if err := json.Unmarshal(normalizeEnvelope(raw), &payments); err != nil {
		return nil, types.NewUpstreamError(http.StatusBadGateway, "malformed payment list from database service")
	}
	return payments, nil
}

func (c *Client) FindByTransaction(ctx context.Context, token, transactionID string) (*models.Payment, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/api/payments/transaction/"+url.PathEscape(transactionID), nil)
	if err != nil {
		if types.IsKind(err, types.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decodePayment(raw)
}

// GetReservation reads a reservation owned by another service. (nil, nil)
// when absent.
func (c *Client) GetReservation(ctx context.Context, token, id string) (*models.Reservation, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/api/reservations/"+url.PathEscape(id), nil)
	if err != nil {
		if types.IsKind(err, types.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var reservation models.Reservation
	if err := json.Unmarshal(normalizeEnvelope(raw), &reservation); err != nil {
		return nil, types.NewUpstreamError(http.StatusBadGateway, "malformed reservation from database service")
	}
	return &reservation, nil
}

func (c *Client) Stats(ctx context.Context, token string, f *types.PaymentQueryFilters) (*models.PaymentStats, error) {
	raw, err := c.do(ctx, token, http.MethodGet, "/api/payments/stats"+filterQuery(f), nil)
	if err != nil {
		return nil, err
	}
	var stats models.PaymentStats
	if err := json.Unmarshal(normalizeEnvelope(raw), &stats); err != nil {
		return nil, types.NewUpstreamError(http.StatusBadGateway, "malformed stats from database service")
	}
	return &stats, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewUpstreamError(http.StatusGatewayTimeout, fmt.Sprintf("database service unreachable: %s", err.Error()))
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, types.NewUpstreamError(http.StatusBadGateway, "error reading database service response")
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, &types.AppError{Kind: types.ErrNotFound, Message: "record not found", Status: http.StatusNotFound}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := upstreamMessage(raw)
		log.Printf("[store] %s %s -> %d: %s\n", method, path, res.StatusCode, msg)
		return nil, types.NewUpstreamError(res.StatusCode, msg)
	}
	return raw, nil
}

// normalizeEnvelope collapses the upstream's two response shapes
// ({"data": ...} or the bare object) into the inner document, once, here.
func normalizeEnvelope(raw []byte) []byte {
	if data := gjson.GetBytes(raw, "data"); data.Exists() {
		return []byte(data.Raw)
	}
	return raw
}

func upstreamMessage(raw []byte) string {
	for _, key := range []string{"error", "message"} {
		if v := gjson.GetBytes(raw, key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return "database service request failed"
}

func decodePayment(raw []byte) (*models.Payment, error) {
	var payment models.Payment
	if err := json.Unmarshal(normalizeEnvelope(raw), &payment); err != nil {
		return nil, types.NewUpstreamError(http.StatusBadGateway, "malformed payment from database service")
	}
	return &payment, nil
}

func decodePage(raw []byte, f *types.PaymentQueryFilters) (*models.PaymentPage, error) {
	page := &models.PaymentPage{Data: []models.Payment{}}
	if err := json.Unmarshal(normalizeEnvelope(raw), &page.Data); err != nil {
		return nil, types.NewUpstreamError(http.StatusBadGateway, "malformed payment list from database service")
	}
	if p := gjson.GetBytes(raw, "pagination"); p.Exists() {
		if err := json.Unmarshal([]byte(p.Raw), &page.Pagination); err != nil {
			return nil, types.NewUpstreamError(http.StatusBadGateway, "malformed pagination from database service")
		}
	} else {
		page.Pagination = types.Pagination{
			Page:  f.Page,
			Limit: f.Limit,
			Total: int64(len(page.Data)),
		}
	}
	if page.Pagination.Limit > 0 {
		page.Pagination.TotalPages = int((page.Pagination.Total + int64(page.Pagination.Limit) - 1) / int64(page.Pagination.Limit))
	}
	return page, nil
}

func filterQuery(f *types.PaymentQueryFilters) string {
	if f == nil {
		return ""
	}
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.PaymentMethod != "" {
		q.Set("paymentMethod", f.PaymentMethod)
	}
	if f.DateFrom != "" {
		q.Set("dateFrom", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("dateTo", f.DateTo)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
