package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-api/internal/auditlog"
	"strategy-api/internal/config"
	"strategy-api/internal/ledger"
	"strategy-api/internal/model"
	"strategy-api/internal/pipeline"
	"strategy-api/internal/store"
	"strategy-api/internal/strategy"
)

type stubRecommender struct {
	decisions []model.Decision
	err       error
}

func (s *stubRecommender) Recommend(ctx context.Context, payload model.TickPayload, day string) ([]model.Decision, error) {
	return s.decisions, s.err
}

type stubReconciler struct {
	positions []model.Position
	err       error
}

func (s *stubReconciler) MakeTrade(ctx context.Context, tradeID string, decisions []model.Decision) ([]model.Position, error) {
	return s.positions, s.err
}

type stubRemote struct {
	positions []model.Position
	err       error
}

func (s *stubRemote) Positions(ctx context.Context) ([]model.Position, error) {
	return s.positions, s.err
}

func newTestServer(t *testing.T, recommender *stubRecommender, reconciler *stubReconciler, remote *stubRemote) http.Handler {
	t.Helper()
	dir := t.TempDir()

	positionLedger := ledger.New(store.NewJSONFile(filepath.Join(dir, "positions.json"), nil), nil)
	tradeLog := auditlog.NewTradeLog(store.NewJSONFile(filepath.Join(dir, "trading_log.json"), nil), nil)
	transactions := auditlog.NewTransactionLog(store.NewJSONFile(filepath.Join(dir, "trading_history.json"), nil), nil)

	pipe, err := pipeline.New(pipeline.Params{
		Ledger:      positionLedger,
		Recommender: recommender,
		Engine:      "ai",
		Reconciler:  reconciler,
		TradeLog:    tradeLog,
		Direction:   strategy.NewDirection(transactions, nil),
	}, nil)
	require.NoError(t, err)

	srv := New(
		config.ServerConfig{APIKey: "test-key"},
		pipe,
		positionLedger,
		tradeLog,
		remote,
		nil,
		nil,
	)
	return srv.Handler()
}

const tickBody = `{
	"Positions": [{"ticker": "AAPL", "quantity": 10, "purchase_price": 100}],
	"Market_Summary": [{"ticker": "AAPL", "current_price": 110}],
	"market_history": [{"ticker": "AAPL", "price": 110, "day": "2026-08-21"}]
}`

func doRequest(handler http.Handler, method, target, apiKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if apiKey != "" {
		req.Header.Set("apikey", apiKey)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuth(t *testing.T) {
	handler := newTestServer(t, &stubRecommender{}, &stubReconciler{}, &stubRemote{})

	t.Run("missing key", func(t *testing.T) {
		rec := doRequest(handler, http.MethodGet, "/healthcheck", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp failureResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "failure", resp.Result)
		assert.Equal(t, "Invalid API key", resp.Error)
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := doRequest(handler, http.MethodGet, "/healthcheck", "wrong", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid key", func(t *testing.T) {
		rec := doRequest(handler, http.MethodGet, "/healthcheck", "test-key", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result": "success"}`, rec.Body.String())
	})
}

func TestAuth_UnconfiguredServerKey(t *testing.T) {
	srv := New(config.ServerConfig{}, nil, nil, nil, &stubRemote{}, nil, nil)
	rec := doRequest(srv.Handler(), http.MethodGet, "/healthcheck", "any", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp failureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Server API key not configured", resp.Error)
}

func TestHandleTick_Success(t *testing.T) {
	recommender := &stubRecommender{
		decisions: []model.Decision{{Action: model.ActionBuy, Ticker: "AAPL", Quantity: 5}},
	}
	reconciler := &stubReconciler{
		positions: []model.Position{{Ticker: "AAPL", Quantity: 15, PurchasePrice: 103}},
	}
	handler := newTestServer(t, recommender, reconciler, &stubRemote{})

	rec := doRequest(handler, http.MethodPost, "/tick/trade-1", "test-key", tickBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp tickResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Result)
	assert.Equal(t, 100.0, resp.Summary.UnrealizedPnL)
	assert.Equal(t, "2026-08-21", resp.Summary.Day)
	require.Len(t, resp.Decisions, 1)
	assert.Equal(t, model.ActionBuy, resp.Decisions[0].Action)
}

func TestHandleTick_ValidationFailure(t *testing.T) {
	handler := newTestServer(t, &stubRecommender{}, &stubReconciler{}, &stubRemote{})

	rec := doRequest(handler, http.MethodPost, "/tick/trade-1", "test-key",
		`{"Positions": [], "Market_Summary": [], "market_history": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp failureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid payload: Positions must be a non-empty list", resp.Error)
}

func TestHandleTick_MalformedJSON(t *testing.T) {
	handler := newTestServer(t, &stubRecommender{}, &stubReconciler{}, &stubRemote{})

	rec := doRequest(handler, http.MethodPost, "/tick/trade-1", "test-key", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStreamTick(t *testing.T) {
	handler := newTestServer(t, &stubRecommender{}, &stubReconciler{}, &stubRemote{})

	first := doRequest(handler, http.MethodPost, "/tick", "test-key",
		`{"ticker": "AAPL", "price": 150, "quantity": 10, "purchase_price": 140}`)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	var firstResp streamResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))
	assert.Equal(t, model.ActionInitial, firstResp.Action)
	assert.Nil(t, firstResp.PreviousPrice)

	second := doRequest(handler, http.MethodPost, "/tick", "test-key",
		`{"ticker": "AAPL", "price": 152, "quantity": 10, "purchase_price": 140}`)
	require.Equal(t, http.StatusOK, second.Code)

	var secondResp streamResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))
	assert.Equal(t, model.ActionSell, secondResp.Action)
	require.NotNil(t, secondResp.PreviousPrice)
	assert.Equal(t, 150.0, *secondResp.PreviousPrice)
}

func TestHandleDashboard_NoAuthRequired(t *testing.T) {
	remote := &stubRemote{
		positions: []model.Position{{Ticker: "MSFT", Quantity: 3, PurchasePrice: 300}},
	}
	handler := newTestServer(t, &stubRecommender{}, &stubReconciler{}, remote)

	rec := doRequest(handler, http.MethodGet, "/dashboard", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "MSFT")
}

func TestHandleDashboard_RemoteFailureStillRenders(t *testing.T) {
	remote := &stubRemote{err: context.DeadlineExceeded}
	handler := newTestServer(t, &stubRecommender{}, &stubReconciler{}, remote)

	rec := doRequest(handler, http.MethodGet, "/dashboard", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error fetching mothership positions")
}

func TestRootRedirectsToDashboard(t *testing.T) {
	handler := newTestServer(t, &stubRecommender{}, &stubReconciler{}, &stubRemote{})

	rec := doRequest(handler, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}
