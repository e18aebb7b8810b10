package main

import (
	"net/http/httptest"
	"testing"
	"time"

	"tradeflow/internal/auth"
	"tradeflow/internal/database"
	"tradeflow/internal/ledger"
	"tradeflow/internal/models"
	"tradeflow/internal/report"
	"tradeflow/internal/session"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestServer boots the full API over a fresh in-memory database and
// returns a resty client pointed at it.
func setupTestServer(t *testing.T, loginLimiter *rate.Limiter) (*resty.Client, *httptest.Server) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, database.Migrate(db))

	if loginLimiter == nil {
		loginLimiter = rate.NewLimiter(rate.Inf, 1) // allow all logins in tests
	}

	api := NewAPIHandler(
		zap.NewNop(), // no-op logger for tests
		auth.NewRegistry(db, bcrypt.MinCost),
		ledger.NewStore(db),
		session.NewManager(),
		loginLimiter,
	)

	server := httptest.NewServer(api.Routes())
	client := resty.New().SetBaseURL(server.URL)
	return client, server
}

// loginAs signs the user up and returns a session token.
func loginAs(t *testing.T, client *resty.Client, username, password string) string {
	resp, err := client.R().
		SetBody(credentials{Username: username, Password: password}).
		Post("/api/signup")
	assert.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode())

	var login loginResponse
	resp, err = client.R().
		SetBody(credentials{Username: username, Password: password}).
		SetResult(&login).
		Post("/api/login")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, username, login.Username)

	return login.Token
}

func TestSignupAndLogin(t *testing.T) {
	client, server := setupTestServer(t, nil)
	defer server.Close()

	resp, err := client.R().
		SetBody(credentials{Username: "alice", Password: "pw1"}).
		Post("/api/signup")
	assert.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode())

	// Duplicate signup is rejected.
	resp, err = client.R().
		SetBody(credentials{Username: "alice", Password: "pw2"}).
		Post("/api/signup")
	assert.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode())

	// The original password still logs in.
	var login loginResponse
	resp, err = client.R().
		SetBody(credentials{Username: "alice", Password: "pw1"}).
		SetResult(&login).
		Post("/api/login")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())

	// Wrong password and unknown user fail with the same status.
	resp, _ = client.R().
		SetBody(credentials{Username: "alice", Password: "pw2"}).
		Post("/api/login")
	assert.Equal(t, 401, resp.StatusCode())

	resp, _ = client.R().
		SetBody(credentials{Username: "nobody", Password: "pw1"}).
		Post("/api/login")
	assert.Equal(t, 401, resp.StatusCode())
}

func TestSignup_EmptyUsername(t *testing.T) {
	client, server := setupTestServer(t, nil)
	defer server.Close()

	resp, err := client.R().
		SetBody(credentials{Username: "", Password: "pw"}).
		Post("/api/signup")
	assert.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode())
}

func TestTradeLifecycle(t *testing.T) {
	client, server := setupTestServer(t, nil)
	defer server.Close()

	token := loginAs(t, client, "alice", "pw")

	// Requests without a session are rejected.
	resp, err := client.R().Get("/api/trades")
	assert.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode())

	// Record a trade.
	var created map[string]uint
	resp, err = client.R().
		SetAuthToken(token).
		SetBody(newTradeRequest{Date: "2024-02-10", Market: "btc", Spent: 1000, Earned: 1250}).
		SetResult(&created).
		Post("/api/trades")
	assert.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode())
	assert.NotZero(t, created["id"])

	// It comes back with the pnl computed and the label uppercased.
	var trades []models.Trade
	resp, err = client.R().
		SetAuthToken(token).
		SetResult(&trades).
		Get("/api/trades")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.Len(t, trades, 1)
	assert.Equal(t, "BTC", trades[0].Market)
	assert.Equal(t, 250.0, trades[0].PnL)

	// Delete it.
	resp, err = client.R().
		SetAuthToken(token).
		SetQueryParam("id", "1").
		Delete("/api/trades")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())

	resp, err = client.R().
		SetAuthToken(token).
		SetResult(&trades).
		Get("/api/trades")
	assert.NoError(t, err)
	assert.Empty(t, trades)
}

func TestTrades_Validation(t *testing.T) {
	client, server := setupTestServer(t, nil)
	defer server.Close()

	token := loginAs(t, client, "alice", "pw")

	resp, _ := client.R().
		SetAuthToken(token).
		SetBody(newTradeRequest{Date: "10/02/2024", Market: "BTC", Spent: 1, Earned: 1}).
		Post("/api/trades")
	assert.Equal(t, 400, resp.StatusCode())

	resp, _ = client.R().
		SetAuthToken(token).
		SetBody(newTradeRequest{Date: "2024-02-10", Market: "BTC", Spent: -1, Earned: 1}).
		Post("/api/trades")
	assert.Equal(t, 400, resp.StatusCode())

	resp, _ = client.R().
		SetAuthToken(token).
		SetBody(newTradeRequest{Date: "2024-02-10", Market: " ", Spent: 1, Earned: 1}).
		Post("/api/trades")
	assert.Equal(t, 400, resp.StatusCode())
}

func TestIsolationBetweenAccounts(t *testing.T) {
	client, server := setupTestServer(t, nil)
	defer server.Close()

	tokenA := loginAs(t, client, "alice", "pw")
	tokenB := loginAs(t, client, "bob", "pw")

	var created map[string]uint
	resp, err := client.R().
		SetAuthToken(tokenA).
		SetBody(newTradeRequest{Date: "2024-02-10", Market: "BTC", Spent: 100, Earned: 150}).
		SetResult(&created).
		Post("/api/trades")
	assert.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode())

	// Bob sees nothing of Alice's ledger.
	var trades []models.Trade
	_, err = client.R().SetAuthToken(tokenB).SetResult(&trades).Get("/api/trades")
	assert.NoError(t, err)
	assert.Empty(t, trades)

	// Bob deleting Alice's trade is a silent no-op.
	resp, err = client.R().
		SetAuthToken(tokenB).
		SetQueryParam("id", "1").
		Delete("/api/trades")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())

	_, err = client.R().SetAuthToken(tokenA).SetResult(&trades).Get("/api/trades")
	assert.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestMarketsEndpoint(t *testing.T) {
	client, server := setupTestServer(t, nil)
	defer server.Close()

	token := loginAs(t, client, "alice", "pw")

	for _, market := range []string{"ETH", "BTC", "BTC"} {
		resp, err := client.R().
			SetAuthToken(token).
			SetBody(newTradeRequest{Date: "2024-02-10", Market: market, Spent: 1, Earned: 1}).
			Post("/api/trades")
		assert.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode())
	}

	var markets []string
	resp, err := client.R().SetAuthToken(token).SetResult(&markets).Get("/api/markets")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, []string{"BTC", "ETH"}, markets)
}

func TestReportEndpoint(t *testing.T) {
	client, server := setupTestServer(t, nil)
	defer server.Close()

	token := loginAs(t, client, "alice", "pw")

	entries := []newTradeRequest{
		{Date: "2024-01-05", Market: "BTC", Spent: 100, Earned: 150},
		{Date: "2024-01-20", Market: "ETH", Spent: 200, Earned: 210},
		{Date: "2024-03-02", Market: "BTC", Spent: 100, Earned: 80},
	}
	for _, e := range entries {
		resp, err := client.R().SetAuthToken(token).SetBody(e).Post("/api/trades")
		assert.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode())
	}

	var monthly reportResponse
	resp, err := client.R().
		SetAuthToken(token).
		SetQueryParam("group", "month").
		SetResult(&monthly).
		Get("/api/report")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, 3, monthly.Summary.Count)
	assert.Equal(t, 40.0, monthly.Summary.PnL)
	assert.Len(t, monthly.Monthly, 2)
	assert.Equal(t, "2024-01", monthly.Monthly[0].Month)
	assert.Equal(t, 60.0, monthly.Monthly[0].PnL)
	assert.Equal(t, 40.0, monthly.Monthly[1].CumulativePnL)

	// Market filter narrows the aggregation; lowercase input is normalized.
	var filtered reportResponse
	resp, err = client.R().
		SetAuthToken(token).
		SetQueryParams(map[string]string{"market": "btc", "group": "market"}).
		SetResult(&filtered).
		Get("/api/report")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, 2, filtered.Summary.Count)
	assert.Equal(t, 30.0, filtered.Summary.PnL)
	assert.Len(t, filtered.Markets, 1)
	assert.Equal(t, report.MarketStat{Market: "BTC", Spent: 200, Earned: 230, PnL: 30}, filtered.Markets[0])

	// Unknown grouping is rejected.
	resp, _ = client.R().
		SetAuthToken(token).
		SetQueryParam("group", "year").
		Get("/api/report")
	assert.Equal(t, 400, resp.StatusCode())
}

func TestReportEndpoint_EmptyLedger(t *testing.T) {
	client, server := setupTestServer(t, nil)
	defer server.Close()

	token := loginAs(t, client, "alice", "pw")

	var out reportResponse
	resp, err := client.R().
		SetAuthToken(token).
		SetQueryParam("group", "day").
		SetResult(&out).
		Get("/api/report")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())
	assert.Zero(t, out.Summary.Count)
	assert.Zero(t, out.Summary.ROI)
	assert.Empty(t, out.Daily)
}

func TestLogoutDestroysSession(t *testing.T) {
	client, server := setupTestServer(t, nil)
	defer server.Close()

	token := loginAs(t, client, "alice", "pw")

	resp, err := client.R().SetAuthToken(token).Post("/api/logout")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode())

	resp, err = client.R().SetAuthToken(token).Get("/api/trades")
	assert.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode())
}

func TestLoginThrottle(t *testing.T) {
	// One attempt per hour with a burst of one: the second login in a row
	// must be throttled.
	client, server := setupTestServer(t, rate.NewLimiter(rate.Every(time.Hour), 1))
	defer server.Close()

	resp, err := client.R().
		SetBody(credentials{Username: "alice", Password: "pw"}).
		Post("/api/signup")
	assert.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode())

	resp, _ = client.R().
		SetBody(credentials{Username: "alice", Password: "pw"}).
		Post("/api/login")
	assert.Equal(t, 200, resp.StatusCode())

	resp, _ = client.R().
		SetBody(credentials{Username: "alice", Password: "pw"}).
		Post("/api/login")
	assert.Equal(t, 429, resp.StatusCode())
}
