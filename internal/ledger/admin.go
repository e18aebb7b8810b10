package ledger

import (
	"errors"
	"fmt"

	"tradeflow/internal/models"

	"gorm.io/gorm"
)

// Admin performs destructive maintenance that bypasses per-user scoping.
// It must only be constructed by the privileged admin tool, never by
// anything reachable from a user session.
type Admin struct {
	db *gorm.DB
}

// NewAdmin creates an Admin over the given database.
func NewAdmin(db *gorm.DB) *Admin {
	return &Admin{db: db}
}

// WipeAll deletes every trade and every user.
func (a *Admin) WipeAll() error {
	if err := a.db.Unscoped().Where("1 = 1").Delete(&models.Trade{}).Error; err != nil {
		return fmt.Errorf("failed to wipe trades: %w", err)
	}
	if err := a.db.Unscoped().Where("1 = 1").Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("failed to wipe users: %w", err)
	}
	return nil
}

// DeleteUserAndTrades removes the named user and, first, every trade they
// own. An unknown username is a no-op.
func (a *Admin) DeleteUserAndTrades(username string) error {
	var user models.User
	if err := a.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := a.db.Unscoped().Where("user_id = ?", user.ID).Delete(&models.Trade{}).Error; err != nil {
		return fmt.Errorf("failed to delete trades for %q: %w", username, err)
	}
	if err := a.db.Unscoped().Delete(&user).Error; err != nil {
		return fmt.Errorf("failed to delete user %q: %w", username, err)
	}
	return nil
}
