package identity

import (
	"context"
	"errors"
	"testing"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository())
}

func register(t *testing.T, svc *Service, username, password string) User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		Username: username,
		Password: password,
		Profile: Profile{
			Email:     username + "@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
			BirthDate: "1990-04-15",
		},
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService()
	user := register(t, svc, "ada", "correct-horse")

	if user.ID == "" {
		t.Fatal("user id must be set")
	}
	if string(user.PasswordHash) == "correct-horse" {
		t.Fatal("password must not be stored in the clear")
	}

	got, err := svc.Authenticate(context.Background(), Credentials{Username: "ada", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("authenticated wrong user: %s", got.ID)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc := newTestService()
	register(t, svc, "ada", "correct-horse")

	cases := []Credentials{
		{Username: "ada", Password: "wrong"},
		{Username: "ghost", Password: "correct-horse"},
	}
	for _, creds := range cases {
		if _, err := svc.Authenticate(context.Background(), creds); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%+v: expected ErrInvalidCredentials, got %v", creds, err)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "", Password: "long-enough"}); err == nil {
		t.Fatal("expected error for empty username")
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Username: "ada", Password: "short"}); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService()
	register(t, svc, "ada", "correct-horse")

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "ada", Password: "another-pass"}); err == nil {
		t.Fatal("expected error for duplicate username")
	}
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestService()
	user := register(t, svc, "ada", "correct-horse")

	updated, err := svc.UpdateProfile(context.Background(), user.ID, Profile{
		Email:     "ada@analytical.engine",
		FirstName: "Ada",
		LastName:  "King",
		City:      "London",
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.LastName != "King" || updated.City != "London" {
		t.Fatalf("profile not applied: %+v", updated)
	}

	// The stored record reflects the update.
	got, err := svc.Get(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "ada@analytical.engine" {
		t.Fatalf("stored email = %s", got.Email)
	}
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc := newTestService()
	if _, err := svc.UpdateProfile(context.Background(), "missing", Profile{}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
