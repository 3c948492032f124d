package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/purchasing/internal/audit"
	"github.com/smallbiznis/purchasing/internal/clock"
	"github.com/smallbiznis/purchasing/internal/config"
	"github.com/smallbiznis/purchasing/internal/events"
	"github.com/smallbiznis/purchasing/internal/lock"
	"github.com/smallbiznis/purchasing/internal/logger"
	"github.com/smallbiznis/purchasing/internal/migration"
	"github.com/smallbiznis/purchasing/internal/payment"
	"github.com/smallbiznis/purchasing/internal/purchaseorder"
	"github.com/smallbiznis/purchasing/internal/ratelimit"
	"github.com/smallbiznis/purchasing/internal/reconciliation"
	"github.com/smallbiznis/purchasing/internal/server"
	"github.com/smallbiznis/purchasing/internal/supplier"
	"github.com/smallbiznis/purchasing/pkg/db"
	"github.com/smallbiznis/purchasing/pkg/telemetry"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type testEnv struct {
	app        *fx.App
	db         *gorm.DB
	dispatcher *events.Dispatcher
	baseURL    string
	httpSrv    *httptest.Server
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	setDefaultEnv()

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func TestE2E_HealthCheck(t *testing.T) {
	resetDatabase(t, env.db)

	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(server.HeaderCorrelationID) == "" {
		t.Fatalf("expected correlation id header")
	}
}

func TestE2E_PaymentStatusFollowsPayments(t *testing.T) {
	resetDatabase(t, env.db)

	vendorID := createVendor(t, "Acme")
	order := createOrder(t, vendorID, "300")
	orderID := order["id"].(string)
	orderName := order["name"].(string)
	if want := fmt.Sprintf("%d-0001", time.Now().UTC().Year()); orderName != want {
		t.Fatalf("expected first order name %s, got %s", want, orderName)
	}

	direct := createPayment(t, map[string]any{
		"purchase_order_id": orderID,
		"state":             "paid",
		"amount":            "100",
	})
	if got := drainOutbox(t); got != 1 {
		t.Fatalf("expected 1 published event, got %d", got)
	}
	assertPaymentStatus(t, orderID, "partial", "100")

	// Memo matches are not linked, so only an explicit recompute sees them.
	createPayment(t, map[string]any{
		"vendor_id": vendorID,
		"state":     "paid",
		"amount":    "200",
		"memo":      "Pago " + orderName,
	})
	drainOutbox(t)
	assertPaymentStatus(t, orderID, "partial", "100")

	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/api/orders/"+orderID+"/recompute-payment-status", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for recompute, got %d: %s", resp.StatusCode, string(body))
	}
	assertPaymentStatus(t, orderID, "paid", "300")

	resp, body = doJSON(t, http.MethodPatch, env.baseURL+"/api/payments/"+direct, map[string]any{"state": "canceled"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for payment update, got %d: %s", resp.StatusCode, string(body))
	}
	drainOutbox(t)
	assertPaymentStatus(t, orderID, "partial", "200")

	if got := drainOutbox(t); got != 0 {
		t.Fatalf("expected drained outbox, got %d events", got)
	}
}

func TestE2E_RepointedPaymentUpdatesBothOrders(t *testing.T) {
	resetDatabase(t, env.db)

	vendorID := createVendor(t, "Acme")
	first := createOrder(t, vendorID, "100")["id"].(string)
	second := createOrder(t, vendorID, "100")["id"].(string)

	paymentID := createPayment(t, map[string]any{
		"purchase_order_id": first,
		"state":             "paid",
		"amount":            "100",
		"memo":              "Anticipo",
	})
	drainOutbox(t)
	assertPaymentStatus(t, first, "paid", "100")

	resp, body := doJSON(t, http.MethodPatch, env.baseURL+"/api/payments/"+paymentID, map[string]any{"purchase_order_id": second}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for repoint, got %d: %s", resp.StatusCode, string(body))
	}
	drainOutbox(t)
	assertPaymentStatus(t, first, "no_paid", "0")
	assertPaymentStatus(t, second, "paid", "100")
}

func TestE2E_AuditLog(t *testing.T) {
	resetDatabase(t, env.db)

	vendorID := createVendor(t, "Acme")
	orderID := createOrder(t, vendorID, "50")["id"].(string)

	headers := map[string]string{server.HeaderUserName: "tesoreria"}
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/api/orders/"+orderID+"/treasury-approval", nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for approval, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/api/audit-logs?action=purchase_order.treasury_approved", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for audit logs, got %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		Data struct {
			AuditLogs []struct {
				ActorType string  `json:"actor_type"`
				ActorID   *string `json:"actor_id"`
				TargetID  *string `json:"target_id"`
			} `json:"audit_logs"`
		} `json:"data"`
	}
	decode(t, body, &out)
	if len(out.Data.AuditLogs) != 1 {
		t.Fatalf("expected 1 audit log, got %d", len(out.Data.AuditLogs))
	}
	entry := out.Data.AuditLogs[0]
	if entry.ActorType != "user" || entry.ActorID == nil || *entry.ActorID != "tesoreria" {
		t.Fatalf("unexpected actor %s %v", entry.ActorType, entry.ActorID)
	}
	if entry.TargetID == nil || *entry.TargetID != orderID {
		t.Fatalf("expected target %s, got %v", orderID, entry.TargetID)
	}
}

func startEnv() (*testEnv, error) {
	var (
		engine     *gin.Engine
		dbConn     *gorm.DB
		dispatcher *events.Dispatcher
	)

	app := fx.New(
		fx.NopLogger,
		config.Module,
		logger.Module,
		telemetry.Module,
		fx.Supply(db.Config{Type: "sqlite", Name: "e2e"}),
		fx.Provide(openDatabase),
		fx.Provide(func() (*snowflake.Node, error) { return snowflake.NewNode(1) }),
		clock.Module,
		lock.Module,
		ratelimit.Module,
		migration.Module,
		events.Module,
		supplier.Module,
		purchaseorder.Module,
		payment.Module,
		reconciliation.Module,
		audit.Module,
		fx.Provide(server.NewEngine),
		fx.Invoke(server.NewServer),
		fx.Populate(&engine, &dbConn, &dispatcher),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	httpSrv := httptest.NewServer(engine)

	return &testEnv{
		app:        app,
		db:         dbConn,
		dispatcher: dispatcher,
		baseURL:    httpSrv.URL,
		httpSrv:    httpSrv,
	}, nil
}

// openDatabase uses the pure Go sqlite driver so the suite runs without cgo.
func openDatabase(lc fx.Lifecycle) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open("file:e2e?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return sqlDB.Close() },
	})
	return conn, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		_ = e.app.Stop(context.Background())
	}
}

func setDefaultEnv() {
	setEnvIfEmpty("ENVIRONMENT", "test")
	setEnvIfEmpty("LOG_LEVEL", "error")
	os.Setenv("REDIS_ADDR", "")
	os.Setenv("OTEL_ENABLED", "false")
}

func setEnvIfEmpty(key, value string) {
	if os.Getenv(key) != "" {
		return
	}
	_ = os.Setenv(key, value)
}

func resetDatabase(t *testing.T, dbConn *gorm.DB) {
	t.Helper()
	if err := truncateAllTables(dbConn); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// truncateAllTables deletes children before parents.
func truncateAllTables(dbConn *gorm.DB) error {
	models := migration.Models()
	for i := len(models) - 1; i >= 0; i-- {
		stmt := &gorm.Statement{DB: dbConn}
		if err := stmt.Parse(models[i]); err != nil {
			return err
		}
		if err := dbConn.Exec("DELETE FROM " + stmt.Schema.Table).Error; err != nil {
			return err
		}
	}
	return nil
}

func createVendor(t *testing.T, name string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/api/vendors", map[string]any{"name": name}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201 for vendor, got %d: %s", resp.StatusCode, string(body))
	}
	return dataOf(t, body)["id"].(string)
}

func createOrder(t *testing.T, vendorID, amount string) map[string]any {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/api/orders", map[string]any{
		"vendor_id":    vendorID,
		"amount_total": amount,
		"currency":     "PEN",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201 for order, got %d: %s", resp.StatusCode, string(body))
	}
	return dataOf(t, body)
}

func createPayment(t *testing.T, payload map[string]any) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/api/payments", payload, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201 for payment, got %d: %s", resp.StatusCode, string(body))
	}
	return dataOf(t, body)["id"].(string)
}

func drainOutbox(t *testing.T) int {
	t.Helper()
	published, err := env.dispatcher.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("drain outbox: %v", err)
	}
	return published
}

func assertPaymentStatus(t *testing.T, orderID, status, totalPaid string) {
	t.Helper()
	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/api/orders/"+orderID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for order, got %d: %s", resp.StatusCode, string(body))
	}
	order := dataOf(t, body)
	if order["payment_status"] != status {
		t.Fatalf("expected payment_status %s, got %v", status, order["payment_status"])
	}
	got, err := decimal.NewFromString(fmt.Sprint(order["total_paid"]))
	if err != nil {
		t.Fatalf("parse total_paid %v: %v", order["total_paid"], err)
	}
	if !got.Equal(decimal.RequireFromString(totalPaid)) {
		t.Fatalf("expected total_paid %s, got %s", totalPaid, got)
	}
}

func dataOf(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out struct {
		Data map[string]any `json:"data"`
	}
	decode(t, body, &out)
	return out.Data
}

func decode(t *testing.T, body []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("decode json: %v: %s", err, string(body))
	}
}

func doJSON(t *testing.T, method, reqURL string, payload any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode json: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, reqURL, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}
