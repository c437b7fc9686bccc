package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"goldwatch/internal/alerting"
	"goldwatch/internal/refdata"
	"goldwatch/internal/registry"
	"goldwatch/internal/service"
)

type staticSpot struct {
	price decimal.Decimal
	err   error
}

func (s *staticSpot) FetchSpot(ctx context.Context) (decimal.Decimal, error) {
	return s.price, s.err
}

type staticFX struct {
	rate decimal.Decimal
}

func (s *staticFX) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	return s.rate, nil
}

type captureTransport struct {
	sends []string
}

func (c *captureTransport) Send(ctx context.Context, to, subject, body string) error {
	c.sends = append(c.sends, to+"|"+subject)
	return nil
}

type fixture struct {
	router    *gin.Engine
	transport *captureTransport
	reg       *registry.Registry
}

func newFixture(t *testing.T, populate bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cache := refdata.NewCache(
		&staticSpot{price: decimal.NewFromInt(2200)},
		&staticFX{rate: decimal.NewFromFloat(0.71)},
		zerolog.Nop(),
	)
	if populate {
		cache.Refresh(context.Background())
	}

	reg := registry.New()
	transport := &captureTransport{}
	dispatcher := alerting.NewDispatcher(transport, zerolog.Nop())
	engine := service.New(cache, reg, dispatcher, nil, zerolog.Nop())

	router := gin.New()
	SetupRoutes(router.Group("/api"), engine, reg, zerolog.Nop())

	return &fixture{router: router, transport: transport, reg: reg}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestSubscribeValid(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/api/subscriptions",
		`{"identity":"a@x.com","unit":"gram","currency":"JOD","purity":21,"lower_threshold":30,"upper_threshold":40}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["unit"] != "gram" || resp["currency"] != "JOD" {
		t.Fatalf("unexpected response: %v", resp)
	}
	if f.reg.Len() != 1 {
		t.Fatalf("subscription should be stored, len=%d", f.reg.Len())
	}
}

func TestSubscribeAlreadyBreachedAlertsImmediately(t *testing.T) {
	f := newFixture(t, true)

	// Cached price 2200 USD/oz against band [1900, 2100].
	rec := f.do(t, http.MethodPost, "/api/subscriptions",
		`{"identity":"a@x.com","lower_threshold":1900,"upper_threshold":2100}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.transport.sends) != 1 {
		t.Fatalf("registration against a breached band should alert once, got %d", len(f.transport.sends))
	}
	if !strings.Contains(f.transport.sends[0], string(alerting.DirectionAbove)) {
		t.Fatalf("expected upper-threshold direction: %s", f.transport.sends[0])
	}
}

func TestSubscribeInvalidThresholds(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/api/subscriptions",
		`{"identity":"a@x.com","lower_threshold":2100,"upper_threshold":1900}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if f.reg.Len() != 0 {
		t.Fatal("rejected registration must not be stored")
	}
}

func TestPriceQuery(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/price?unit=gram&currency=JOD&purity=21", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp["current_price"]; !ok {
		t.Fatalf("response should carry current_price: %v", resp)
	}
	if _, ok := resp["lower_threshold"]; ok {
		t.Fatal("price query must not carry threshold fields")
	}
}

func TestPriceQueryUnavailable(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/price", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for unpopulated cache, got %d", rec.Code)
	}
}

func TestStatusQuery(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/status?unit=gram&currency=JOD&purity=21&lower_threshold=30&upper_threshold=40", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] == "" {
		t.Fatalf("status query should carry a status: %v", resp)
	}
}

func TestStatusQueryMissingThresholds(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/status?unit=gram", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing thresholds, got %d", rec.Code)
	}
}

func TestStatusQueryInvertedThresholds(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/status?lower_threshold=40&upper_threshold=30", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted thresholds, got %d", rec.Code)
	}
}
