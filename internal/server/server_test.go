package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditrepository "github.com/smallbiznis/purchasing/internal/audit/repository"
	auditservice "github.com/smallbiznis/purchasing/internal/audit/service"
	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/config"
	"github.com/smallbiznis/purchasing/internal/events"
	paymentrepository "github.com/smallbiznis/purchasing/internal/payment/repository"
	paymentservice "github.com/smallbiznis/purchasing/internal/payment/service"
	purchaseorderrepository "github.com/smallbiznis/purchasing/internal/purchaseorder/repository"
	purchaseorderservice "github.com/smallbiznis/purchasing/internal/purchaseorder/service"
	"github.com/smallbiznis/purchasing/internal/reconciliation/engine"
	"github.com/smallbiznis/purchasing/internal/reconciliation/reconciliationtest"
	reconciliationrepository "github.com/smallbiznis/purchasing/internal/reconciliation/repository"
	reconciliationservice "github.com/smallbiznis/purchasing/internal/reconciliation/service"
	"github.com/smallbiznis/purchasing/internal/reconciliation/subscriber"
	vendorrepository "github.com/smallbiznis/purchasing/internal/supplier/repository"
	vendorservice "github.com/smallbiznis/purchasing/internal/supplier/service"
	"github.com/smallbiznis/purchasing/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	engine     *gin.Engine
	dispatcher *events.Dispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := reconciliationtest.OpenDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	cfg := config.Config{
		NumberingMaxAttempts: 3,
		NumberingLockTTL:     time.Second,
		RecomputeConcurrency: 1,
	}
	log := zap.NewNop()

	vendorRepo := vendorrepository.Provide()
	orderRepo := purchaseorderrepository.Provide()

	reconciliation := reconciliationservice.New(reconciliationservice.Params{
		DB:        db,
		Log:       log,
		Clock:     clk,
		Config:    cfg,
		Engine:    engine.New(engine.Params{Log: log}),
		Stores:    reconciliationrepository.Provide(),
		OrderRepo: orderRepo,
	})
	dispatcher := events.NewDispatcher(events.DispatcherParams{DB: db, Log: log, Config: cfg, Clock: clk})
	subscriber.New(subscriber.Params{Log: log, Service: reconciliation}).Register(dispatcher)

	r := NewEngine(EngineParams{Config: cfg, Log: log})
	NewServer(ServerParams{
		Engine: r,
		Log:    log,
		Vendors: vendorservice.New(vendorservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk, Repo: vendorRepo,
		}),
		Orders: purchaseorderservice.New(purchaseorderservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk, Config: cfg, Repo: orderRepo, VendorRepo: vendorRepo,
		}),
		Payments: paymentservice.NewService(paymentservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk,
			Outbox:     events.NewOutbox(node, clk),
			Repo:       paymentrepository.Provide(),
			OrderRepo:  orderRepo,
			VendorRepo: vendorRepo,
		}),
		Reconciliation: reconciliation,
		Audit: auditservice.NewService(auditservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepository.Provide(),
		}),
	})

	return &testServer{engine: r, dispatcher: dispatcher}
}

type envelope struct {
	Data  map[string]any `json:"data"`
	Error errorPayload   `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	var out envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func (ts *testServer) drain(t *testing.T) {
	t.Helper()
	_, err := ts.dispatcher.ProcessPending(context.Background())
	require.NoError(t, err)
}

func TestOrderPaymentFlow(t *testing.T) {
	ts := newTestServer(t)
	user := map[string]string{HeaderUserName: "ana"}

	rec, vendor := ts.do(t, http.MethodPost, "/api/vendors", gin.H{"name": "Acme", "tax_id": "20123456789"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	vendorID := vendor.Data["id"].(string)

	rec, order := ts.do(t, http.MethodPost, "/api/orders", gin.H{
		"vendor_id":    vendorID,
		"amount_total": "300",
		"currency":     "PEN",
	}, user)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2025-0001", order.Data["name"])
	assert.Equal(t, "ana", order.Data["elaborated_by"])
	assert.Equal(t, "14/03/25", order.Data["formatted_date"])
	orderID := order.Data["id"].(string)

	rec, next := ts.do(t, http.MethodGet, "/api/orders/next-number", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-0002", next.Data["name"])

	rec, payment := ts.do(t, http.MethodPost, "/api/payments", gin.H{
		"purchase_order_id": orderID,
		"state":             "paid",
		"amount":            "300",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, vendorID, payment.Data["vendor_id"])
	assert.Equal(t, "PO payment 2025-0001", payment.Data["memo"])
	paymentID := payment.Data["id"].(string)

	ts.drain(t)
	rec, order = ts.do(t, http.MethodGet, "/api/orders/"+orderID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", order.Data["payment_status"])

	rec, result := ts.do(t, http.MethodPost, "/api/orders/"+orderID+"/recompute-payment-status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "paid", result.Data["status"])

	rec, _ = ts.do(t, http.MethodDelete, "/api/payments/"+paymentID, nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	ts.drain(t)

	rec, order = ts.do(t, http.MethodGet, "/api/orders/"+orderID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no_paid", order.Data["payment_status"])
}

func TestTreasuryApprovalAndPaymentDates(t *testing.T) {
	ts := newTestServer(t)

	_, vendor := ts.do(t, http.MethodPost, "/api/vendors", gin.H{"name": "Acme"}, nil)
	_, order := ts.do(t, http.MethodPost, "/api/orders", gin.H{"vendor_id": vendor.Data["id"], "amount_total": "10"}, nil)
	orderID := order.Data["id"].(string)

	rec, body := ts.do(t, http.MethodPost, "/api/orders/"+orderID+"/treasury-approval", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_approver", body.Error.Errors[0].Code)

	rec, body = ts.do(t, http.MethodPost, "/api/orders/"+orderID+"/treasury-approval", nil, map[string]string{HeaderUserName: "tesoreria"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body.Data["treasury_approved"])
	assert.Equal(t, "tesoreria", body.Data["treasury_approved_by"])

	rec, body = ts.do(t, http.MethodPost, "/api/orders/"+orderID+"/payment-dates", gin.H{"date": "2025-03-01"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "01/03/2025", body.Data["cancellation_dates"])

	rec, body = ts.do(t, http.MethodPost, "/api/orders/"+orderID+"/payment-dates", gin.H{"date": "yesterday"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", body.Error.Errors[0].Code)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodGet, "/api/orders/abc", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", body.Error.Type)
	assert.Equal(t, "invalid_id", body.Error.Errors[0].Code)
	assert.Equal(t, "id", body.Error.Errors[0].Field)

	rec, body = ts.do(t, http.MethodGet, "/api/orders/42", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body.Error.Type)

	rec, _ = ts.do(t, http.MethodPost, "/api/orders/42/recompute-payment-status", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = ts.do(t, http.MethodPost, "/api/payments", gin.H{"amount": "abc"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_amount", body.Error.Errors[0].Code)

	_, vendor := ts.do(t, http.MethodPost, "/api/vendors", gin.H{"name": "Acme"}, nil)
	payload := gin.H{"name": "2025-0100", "vendor_id": vendor.Data["id"]}
	rec, _ = ts.do(t, http.MethodPost, "/api/orders", payload, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, body = ts.do(t, http.MethodPost, "/api/orders", payload, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", body.Error.Type)
}

func TestVendorLookups(t *testing.T) {
	ts := newTestServer(t)

	_, vendor := ts.do(t, http.MethodPost, "/api/vendors", gin.H{"name": "Acme Supplies", "tax_id": "20100"}, nil)
	vendorID := vendor.Data["id"].(string)
	ts.do(t, http.MethodPost, "/api/vendors", gin.H{"name": "Other"}, nil)

	rec, body := ts.do(t, http.MethodGet, "/api/vendors/"+vendorID+"/bank-account", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "N/A", body.Data["bank_name"])

	rec, _ = ts.do(t, http.MethodPost, "/api/vendors/"+vendorID+"/bank-accounts", gin.H{
		"bank_name":      "BCP",
		"account_number": "191-1",
		"account_type":   "savings",
		"is_main":        true,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	_, body = ts.do(t, http.MethodGet, "/api/vendors/"+vendorID+"/bank-account", nil, nil)
	assert.Equal(t, "BCP", body.Data["bank_name"])
	assert.Equal(t, "191-1", body.Data["account_number"])

	rec, _ = ts.do(t, http.MethodPost, "/api/vendors/"+vendorID+"/contacts", gin.H{
		"name":         "Luis",
		"job_function": "Compras",
		"email":        "luis@acme.test",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	_, body = ts.do(t, http.MethodGet, "/api/vendors/"+vendorID+"/purchase-contact", nil, nil)
	assert.Equal(t, "Luis", body.Data["name"])

	rec = httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vendors?q=acme", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var search struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &search))
	require.Len(t, search.Data, 1)
	assert.Equal(t, vendorID, search.Data[0]["id"])
}

func TestHealthAndCorrelation(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/health", nil, map[string]string{HeaderCorrelationID: "abc-123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderCorrelationID))

	rec, _ = ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.NotEmpty(t, rec.Header().Get(HeaderCorrelationID))

	ctx := correlation.ContextWithCorrelationID(context.Background(), "x")
	assert.Equal(t, "x", correlation.ExtractCorrelationID(ctx))
}

func TestAuditTrail(t *testing.T) {
	ts := newTestServer(t)
	treasury := map[string]string{HeaderUserName: "tesoreria"}

	_, vendor := ts.do(t, http.MethodPost, "/api/vendors", gin.H{"name": "Acme"}, nil)
	vendorID := vendor.Data["id"].(string)

	rec, _ := ts.do(t, http.MethodPost, "/api/vendors/"+vendorID+"/bank-accounts", gin.H{
		"bank_name":      "BCP",
		"account_number": "193-1234567-0-12",
		"is_main":        true,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	_, order := ts.do(t, http.MethodPost, "/api/orders", gin.H{"vendor_id": vendorID, "amount_total": "10"}, nil)
	orderID := order.Data["id"].(string)
	rec, _ = ts.do(t, http.MethodPost, "/api/orders/"+orderID+"/treasury-approval", nil, treasury)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body := ts.do(t, http.MethodGet, "/api/audit-logs?target_type=purchase_order&target_id="+orderID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logs := body.Data["audit_logs"].([]any)
	require.Len(t, logs, 2)

	approved := logs[0].(map[string]any)
	assert.Equal(t, "purchase_order.treasury_approved", approved["action"])
	assert.Equal(t, "user", approved["actor_type"])
	assert.Equal(t, "tesoreria", approved["actor_id"])
	assert.NotEmpty(t, approved["correlation_id"])

	created := logs[1].(map[string]any)
	assert.Equal(t, "purchase_order.created", created["action"])
	assert.Equal(t, "system", created["actor_type"])

	rec, body = ts.do(t, http.MethodGet, "/api/audit-logs?action=vendor.bank_account_added", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs = body.Data["audit_logs"].([]any)
	require.Len(t, logs, 1)
	metadata := logs[0].(map[string]any)["metadata"].(map[string]any)
	assert.Equal(t, "****0-12", metadata["account_number"])
	assert.Equal(t, "BCP", metadata["bank_name"])

	rec, body = ts.do(t, http.MethodGet, "/api/audit-logs?page_size=-1", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_page_size", body.Error.Errors[0].Code)
}

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
	}{
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{ErrConflict, http.StatusConflict, "conflict"},
		{assert.AnError, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.typ, payload.Type, tc.err.Error())
	}
}
