package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradeflow/internal/auth"
	"tradeflow/internal/ledger"
	"tradeflow/internal/report"
	"tradeflow/internal/session"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// APIHandler holds dependencies for the API endpoints. Administrative
// operations are deliberately not routed here; they live in the separate
// admin binary.
type APIHandler struct {
	log          *zap.Logger
	registry     *auth.Registry
	store        *ledger.Store
	sessions     *session.Manager
	loginLimiter *rate.Limiter
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, registry *auth.Registry, store *ledger.Store, sessions *session.Manager, loginLimiter *rate.Limiter) *APIHandler {
	return &APIHandler{
		log:          log,
		registry:     registry,
		store:        store,
		sessions:     sessions,
		loginLimiter: loginLimiter,
	}
}

// Routes wires up the API endpoints.
func (h *APIHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/signup", h.SignupHandler)
	mux.HandleFunc("/api/login", h.LoginHandler)
	mux.HandleFunc("/api/logout", h.LogoutHandler)
	mux.HandleFunc("/api/trades", h.TradesHandler)
	mux.HandleFunc("/api/markets", h.MarketsHandler)
	mux.HandleFunc("/api/report", h.ReportHandler)
	return mux
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type newTradeRequest struct {
	Date   string  `json:"date"`
	Market string  `json:"market"`
	Spent  float64 `json:"spent"`
	Earned float64 `json:"earned"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

type reportResponse struct {
	Market  string              `json:"market,omitempty"`
	Summary report.Summary      `json:"summary"`
	Monthly []report.MonthlyRow `json:"monthly,omitempty"`
	Daily   []report.DailyPoint `json:"daily,omitempty"`
	Markets []report.MarketStat `json:"markets,omitempty"`
}

// SignupHandler creates a new account.
func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.registry.CreateUser(creds.Username, creds.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrEmptyUsername):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, auth.ErrDuplicateUsername):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error("Signup failed", zap.Error(err))
			http.Error(w, "signup failed", http.StatusInternalServerError)
		}
		return
	}

	h.log.Info("Account created", zap.String("username", creds.Username))
	writeJSON(w, http.StatusCreated, map[string]string{"message": "account created"})
}

// LoginHandler authenticates the user and opens a session.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.loginLimiter.Allow() {
		http.Error(w, "too many login attempts", http.StatusTooManyRequests)
		return
	}

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	identity, err := h.registry.Authenticate(creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.log.Error("Login failed", zap.Error(err))
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	s := h.sessions.Create(identity.UserID, identity.Username)
	h.log.Info("Session opened", zap.String("username", identity.Username))
	writeJSON(w, http.StatusOK, loginResponse{Token: s.Token, UserID: s.UserID, Username: s.Username})
}

// LogoutHandler destroys the caller's session.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s, ok := h.sessionFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	h.sessions.Destroy(s.Token)
	h.log.Info("Session closed", zap.String("username", s.Username))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// TradesHandler lists, records and deletes the session user's trades.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		trades, err := h.store.ListTrades(s.UserID)
		if err != nil {
			h.log.Error("Failed to list trades", zap.Error(err))
			http.Error(w, "failed to list trades", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, trades)

	case http.MethodPost:
		var req newTradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		date, err := time.Parse(ledger.DateLayout, req.Date)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		id, err := h.store.AddTrade(s.UserID, date, req.Market, req.Spent, req.Earned)
		if err != nil {
			if errors.Is(err, ledger.ErrInvalidAmount) || errors.Is(err, ledger.ErrEmptyLabel) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			h.log.Error("Failed to add trade", zap.Error(err))
			http.Error(w, "failed to add trade", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]uint{"id": id})

	case http.MethodDelete:
		id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid trade id", http.StatusBadRequest)
			return
		}
		if err := h.store.DeleteTrade(uint(id), s.UserID); err != nil {
			h.log.Error("Failed to delete trade", zap.Error(err))
			http.Error(w, "failed to delete trade", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// MarketsHandler returns the distinct market labels the user has traded.
func (h *APIHandler) MarketsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s, ok := h.sessionFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	markets, err := h.store.ListMarkets(s.UserID)
	if err != nil {
		h.log.Error("Failed to list markets", zap.Error(err))
		http.Error(w, "failed to list markets", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, markets)
}

// ReportHandler aggregates the user's trades. An empty "market" query
// parameter means the whole portfolio; "group" selects the optional rollup.
func (h *APIHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s, ok := h.sessionFrom(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	group := r.URL.Query().Get("group")
	switch group {
	case "", "month", "day", "market":
	default:
		http.Error(w, "group must be one of month, day, market", http.StatusBadRequest)
		return
	}

	trades, err := h.store.ListTrades(s.UserID)
	if err != nil {
		h.log.Error("Failed to load trades for report", zap.Error(err))
		http.Error(w, "failed to build report", http.StatusInternalServerError)
		return
	}

	market := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("market")))
	trades = report.FilterMarket(trades, market)

	resp := reportResponse{
		Market:  market,
		Summary: report.Summarize(trades),
	}
	switch group {
	case "month":
		resp.Monthly = report.MonthlyRollup(trades)
	case "day":
		resp.Daily = report.DailySeries(trades)
	case "market":
		resp.Markets = report.MarketBreakdown(trades)
	}

	writeJSON(w, http.StatusOK, resp)
}

// sessionFrom resolves the caller's session from the Authorization header.
func (h *APIHandler) sessionFrom(r *http.Request) (session.Session, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return session.Session{}, false
	}
	return h.sessions.Get(token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
