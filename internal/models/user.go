package models

import "gorm.io/gorm"

// User is a registered account. Usernames are unique and case-sensitive.
// The password is stored only as a salted bcrypt hash.
type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
}
