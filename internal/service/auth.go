package service

import (
	"context"
	"strings"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// RegisterUser creates a member account. Phone numbers are the login
// identity and must be unique; the race is settled by the store index.
func (s *Service) RegisterUser(ctx context.Context, fullName, phone, email, password string) (*models.User, error) {
	fullName = strings.TrimSpace(fullName)
	phone = strings.TrimSpace(phone)

	if fullName == "" {
		return nil, apperr.New(apperr.Validation, "Full name is required")
	}
	if phone == "" {
		return nil, apperr.New(apperr.Validation, "Phone number is required")
	}
	if len(password) < 6 {
		return nil, apperr.New(apperr.Validation, "Password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, s.unexpected("RegisterUser: hash password", err)
	}

	user := &models.User{
		FullName:     fullName,
		Phone:        phone,
		PasswordHash: string(hash),
		Status:       models.UserActive,
	}
	if email = strings.TrimSpace(email); email != "" {
		user.Email = &email
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, s.conflictOr("RegisterUser", err, "An account with this phone number already exists")
	}

	s.logger.Infof("Registered user %s (%s)", user.FullName, user.Phone)
	return user, nil
}

// Authenticate resolves phone + password to a user. Suspended and deleted
// accounts cannot sign in.
func (s *Service) Authenticate(ctx context.Context, phone, password string) (*models.User, error) {
	user, err := s.repo.GetUserByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, s.unexpected("Authenticate", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.Unauthorized, "Invalid phone number or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.Unauthorized, "Invalid phone number or password")
	}
	if user.Status == models.UserSuspended {
		return nil, apperr.New(apperr.Unauthorized, "Your account has been suspended")
	}
	if user.Status == models.UserDeleted {
		return nil, apperr.New(apperr.Unauthorized, "Invalid phone number or password")
	}
	return user, nil
}
