package models

import "gorm.io/gorm"

// Trade is one logged buy/return event in a user's ledger.
// PnL is computed as Earned-Spent when the row is written and never
// recomputed afterwards; trades have no edit operation.
type Trade struct {
	gorm.Model
	UserID uint    `gorm:"index;not null" json:"user_id"`
	Date   string  `gorm:"not null" json:"date"` // "2006-01-02", sorts chronologically as text
	Market string  `gorm:"not null" json:"market"`
	Spent  float64 `json:"spent"`
	Earned float64 `json:"earned"`
	PnL    float64 `json:"pnl"`
}
