package auth

import (
	"errors"
	"fmt"
	"strings"

	"tradeflow/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateUsername is returned when the requested username is taken.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrEmptyUsername is returned when signup is attempted with a blank name.
	ErrEmptyUsername = errors.New("username must not be empty")

	// ErrInvalidCredentials is returned for any failed login. Unknown
	// usernames and wrong passwords are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// dummyHash is verified against when the username does not exist, so the
// missing-user path costs the same bcrypt work as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("tradeflow-placeholder"), bcrypt.DefaultCost)

// Identity is the result of a successful authentication.
type Identity struct {
	UserID   uint
	Username string
}

// Registry creates and authenticates user accounts.
type Registry struct {
	db   *gorm.DB
	cost int
}

// NewRegistry creates a Registry. A cost <= 0 falls back to bcrypt.DefaultCost.
func NewRegistry(db *gorm.DB, cost int) *Registry {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Registry{db: db, cost: cost}
}

// CreateUser registers a new account, storing only a salted bcrypt hash of
// the password.
func (r *Registry) CreateUser(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{Username: username, PasswordHash: string(hash)}
	if err := r.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// Authenticate verifies the credentials and returns the account identity.
// Every failure mode comes back as ErrInvalidCredentials.
func (r *Registry) Authenticate(username, password string) (*Identity, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Identity{UserID: user.ID, Username: user.Username}, nil
}
