package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// ErrInvalidCredentials is returned for a wrong username/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service manages the identity lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures a registration request.
type RegisterInput struct {
	Username string
	Password string
	Profile  Profile
}

// Register creates a new user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	if input.Username == "" {
		return User{}, errors.New("username is required")
	}
	if len(input.Password) < minPasswordLength {
		return User{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Profile.Email,
		FirstName:    input.Profile.FirstName,
		LastName:     input.Profile.LastName,
		Gender:       input.Profile.Gender,
		BirthDate:    input.Profile.BirthDate,
		Street:       input.Profile.Street,
		City:         input.Profile.City,
		PostalCode:   input.Profile.PostalCode,
		Country:      input.Profile.Country,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Get returns the user by ID.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// Authenticate verifies the username/password pair.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByUsername(ctx, creds.Username)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile replaces the user-editable fields and returns the updated user.
func (s *Service) UpdateProfile(ctx context.Context, id string, profile Profile) (User, error) {
	if err := s.repo.UpdateProfile(ctx, id, profile); err != nil {
		return User{}, err
	}
	return s.repo.FindByID(ctx, id)
}
