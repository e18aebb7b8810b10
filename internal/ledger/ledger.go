package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tradeflow/internal/models"

	"gorm.io/gorm"
)

// DateLayout is how trade dates are persisted. Calendar dates stored as
// text in this form sort chronologically.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidAmount is returned when spent or earned is negative.
	ErrInvalidAmount = errors.New("spent and earned must be non-negative")

	// ErrEmptyLabel is returned when the market label is blank.
	ErrEmptyLabel = errors.New("market label must not be empty")
)

// Store persists trades and enforces per-user ownership on every read and
// delete.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over the given database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AddTrade records a trade for the user and returns its id. The pnl is
// computed here, at write time, and stored with the row. The market label
// is trimmed and uppercased before it is stored.
func (s *Store) AddTrade(userID uint, date time.Time, market string, spent, earned float64) (uint, error) {
	if spent < 0 || earned < 0 {
		return 0, ErrInvalidAmount
	}

	market = strings.ToUpper(strings.TrimSpace(market))
	if market == "" {
		return 0, ErrEmptyLabel
	}

	trade := models.Trade{
		UserID: userID,
		Date:   date.Format(DateLayout),
		Market: market,
		Spent:  spent,
		Earned: earned,
		PnL:    earned - spent,
	}
	if err := s.db.Create(&trade).Error; err != nil {
		return 0, fmt.Errorf("failed to save trade: %w", err)
	}

	return trade.ID, nil
}

// ListTrades returns the user's trades, most recent date first. Same-date
// trades are ordered by insertion id, newest first, so listings are
// deterministic.
func (s *Store) ListTrades(userID uint) ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Where("user_id = ?", userID).Order("date DESC, id DESC").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// DeleteTrade removes a trade only if userID owns it. Deleting a missing
// or foreign row is a silent no-op so callers cannot probe other accounts.
func (s *Store) DeleteTrade(tradeID, userID uint) error {
	result := s.db.Unscoped().Where("id = ? AND user_id = ?", tradeID, userID).Delete(&models.Trade{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete trade: %w", result.Error)
	}
	return nil
}

// ListMarkets returns the distinct market labels the user has ever traded,
// in ascending order.
func (s *Store) ListMarkets(userID uint) ([]string, error) {
	var markets []string
	err := s.db.Model(&models.Trade{}).
		Where("user_id = ?", userID).
		Distinct().
		Order("market ASC").
		Pluck("market", &markets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	return markets, nil
}
