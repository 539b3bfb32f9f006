package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/instapay/transfer-service/internal/app"
	"github.com/instapay/transfer-service/internal/domain"
	"github.com/instapay/transfer-service/internal/store"
	"github.com/instapay/transfer-service/pkg/accountclient"
)

type gatewayStub struct {
	balances map[string]decimal.Decimal
}

func (g *gatewayStub) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	balance, ok := g.balances[id]
	if !ok {
		return nil, accountclient.ErrAccountNotFound
	}
	return &domain.Account{ID: id, Balance: balance}, nil
}

func (g *gatewayStub) ApplyBalanceDelta(ctx context.Context, id string, delta decimal.Decimal) error {
	balance, ok := g.balances[id]
	if !ok {
		return accountclient.ErrAccountNotFound
	}
	g.balances[id] = balance.Add(delta)
	return nil
}

type ledgerStub struct {
	records map[string]domain.Transaction
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{records: map[string]domain.Transaction{}}
}

func (l *ledgerStub) Insert(ctx context.Context, tx *domain.Transaction) error {
	l.records[tx.ID] = *tx
	return nil
}

func (l *ledgerStub) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, ok := l.records[id]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	copied := tx
	return &copied, nil
}

func (l *ledgerStub) FindByParticipant(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	for _, tx := range l.records {
		if tx.SenderID == accountID || tx.ReceiverID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func newTestRouter(gateway *gatewayStub, ledger *ledgerStub, opts RouterOptions) http.Handler {
	service := app.NewService(ledger, gateway, nil)
	return TransferRoutes(NewTransferHandlers(service), opts)
}

func TestCreateTransferEndpointReturns201(t *testing.T) {
	gateway := &gatewayStub{balances: map[string]decimal.Decimal{
		"alice": decimal.NewFromInt(1000),
		"bob":   decimal.NewFromInt(500),
	}}
	router := newTestRouter(gateway, newLedgerStub(), RouterOptions{})

	body := `{"sender_id": "alice", "receiver_id": "bob", "amount": 200, "description": "rent"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var tx domain.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if tx.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %q", tx.Status)
	}
	if tx.ID == "" {
		t.Fatal("expected a transaction id in the response")
	}
}

func TestCreateTransferEndpointValidation(t *testing.T) {
	router := newTestRouter(&gatewayStub{balances: map[string]decimal.Decimal{}}, newLedgerStub(), RouterOptions{})

	cases := []struct {
		name string
		body string
	}{
		{"negative amount", `{"sender_id": "a", "receiver_id": "b", "amount": -5}`},
		{"zero amount", `{"sender_id": "a", "receiver_id": "b", "amount": 0}`},
		{"same participants", `{"sender_id": "a", "receiver_id": "a", "amount": 5}`},
		{"missing fields", `{"amount": 5}`},
		{"malformed body", `not-json`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/transactions/", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestCreateTransferEndpointInsufficientFunds(t *testing.T) {
	gateway := &gatewayStub{balances: map[string]decimal.Decimal{
		"alice": decimal.NewFromInt(50),
		"bob":   decimal.NewFromInt(500),
	}}
	router := newTestRouter(gateway, newLedgerStub(), RouterOptions{})

	body := `{"sender_id": "alice", "receiver_id": "bob", "amount": 200}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Insufficient balance") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCreateTransferEndpointUnknownReceiver(t *testing.T) {
	gateway := &gatewayStub{balances: map[string]decimal.Decimal{
		"alice": decimal.NewFromInt(1000),
	}}
	router := newTestRouter(gateway, newLedgerStub(), RouterOptions{})

	body := `{"sender_id": "alice", "receiver_id": "ghost", "amount": 200}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetTransferEndpoint(t *testing.T) {
	gateway := &gatewayStub{balances: map[string]decimal.Decimal{
		"alice": decimal.NewFromInt(1000),
		"bob":   decimal.NewFromInt(500),
	}}
	ledger := newLedgerStub()
	router := newTestRouter(gateway, ledger, RouterOptions{})

	body := `{"sender_id": "alice", "receiver_id": "bob", "amount": 200}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup transfer failed: %d", rec.Code)
	}
	var created domain.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created transaction: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/transaction/"+created.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/transaction/no-such-id", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}
}

func TestGetParticipantTransfersEndpoint(t *testing.T) {
	gateway := &gatewayStub{balances: map[string]decimal.Decimal{
		"alice": decimal.NewFromInt(1000),
	}}
	router := newTestRouter(gateway, newLedgerStub(), RouterOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/alice/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var transactions []domain.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &transactions); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(transactions) != 0 {
		t.Fatalf("expected empty history, got %d", len(transactions))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/transactions/ghost/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown participant, got %d", rec.Code)
	}
}

func TestBearerAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	gateway := &gatewayStub{balances: map[string]decimal.Decimal{
		"alice": decimal.NewFromInt(1000),
	}}
	router := newTestRouter(gateway, newLedgerStub(), RouterOptions{JWTSecret: secret})

	// No token.
	req := httptest.NewRequest(http.MethodGet, "/api/transactions/alice/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	// Valid token.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/transactions/alice/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}

	// Wrong signing key.
	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/transactions/alice/", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rec.Code)
	}

	// Health stays open.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected open health endpoint, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&gatewayStub{balances: map[string]decimal.Decimal{}}, newLedgerStub(), RouterOptions{
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}
