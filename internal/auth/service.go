package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"carenote/internal/clinical"
)

var (
	ErrEmailTaken         = errors.New("email already used")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

type Service struct {
	DB *gorm.DB
}

// Register creates the account and its profile in one transaction.
func (s *Service) Register(ctx context.Context, email, password string, role clinical.Role) (Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || len(password) < 8 || !role.Valid() {
		return Principal{}, ErrInvalidInput
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Principal{}, err
	}

	var p Principal
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrEmailTaken
		}

		u := User{Email: email, PasswordHash: hash}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		prof := Profile{ID: uuid.New(), Role: role, UserID: &u.ID}
		if err := tx.Create(&prof).Error; err != nil {
			return err
		}
		p = Principal{ProfileID: prof.ID, Role: prof.Role}
		return nil
	})
	return p, err
}

func (s *Service) Login(ctx context.Context, email, password string) (Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Principal{}, ErrInvalidInput
	}

	var u User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, err
	}
	if !ComparePassword(u.PasswordHash, password) {
		return Principal{}, ErrInvalidCredentials
	}

	var prof Profile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", u.ID).First(&prof).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, err
	}
	return Principal{ProfileID: prof.ID, Role: prof.Role}, nil
}
