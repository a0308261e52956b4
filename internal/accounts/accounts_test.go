package accounts_test

import (
	"errors"
	"testing"

	"github.com/OliverSchlueter/smtpcheck/internal/accounts"
	"github.com/OliverSchlueter/smtpcheck/internal/accounts/database/fake"
)

func TestCreateHashesPassword(t *testing.T) {
	s := accounts.NewStore(accounts.Configuration{DB: fake.NewDB()})

	if err := s.Create(accounts.Account{Name: "alice", Password: "secret", Emails: []string{"alice@example.test"}}); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}

	a, err := s.GetByName("alice")
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if a.ID == "" {
		t.Error("Expected an ID to be generated")
	}
	if a.Password != accounts.Hash("secret") {
		t.Errorf("Expected hashed password, got %s", a.Password)
	}

	byEmail, err := s.GetByEmail("alice@example.test")
	if err != nil {
		t.Fatalf("Failed to get account by email: %v", err)
	}
	if byEmail.ID != a.ID {
		t.Errorf("Expected account %s, got %s", a.ID, byEmail.ID)
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := accounts.NewStore(accounts.Configuration{DB: fake.NewDB()})

	if err := s.Create(accounts.Account{Name: "alice", Password: "secret"}); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}

	err := s.Create(accounts.Account{Name: "alice", Password: "other"})
	if !errors.Is(err, accounts.ErrAccountAlreadyExists) {
		t.Errorf("Expected ErrAccountAlreadyExists, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := accounts.NewStore(accounts.Configuration{DB: fake.NewDB()})
	if err := s.Create(accounts.Account{Name: "alice", Password: "secret"}); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}

	tests := []struct {
		name     string
		user     string
		password string
		wantErr  error
	}{
		{name: "valid", user: "alice", password: "secret"},
		{name: "wrong password", user: "alice", password: "nope", wantErr: accounts.ErrInvalidCredentials},
		{name: "unknown user", user: "bob", password: "secret", wantErr: accounts.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := s.Authenticate(tt.user, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && a.Name != tt.user {
				t.Errorf("Expected account %s, got %s", tt.user, a.Name)
			}
		})
	}
}
