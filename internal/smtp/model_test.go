package smtp

import (
	"errors"
	"testing"
)

func TestDomainOf(t *testing.T) {
	tests := []struct {
		address string
		domain  string
		wantErr bool
	}{
		{"alice@example.test", "example.test", false},
		{"a.b+tag@mail.example.test", "mail.example.test", false},
		{"alice", "", true},
		{"alice@", "", true},
		{"alice@foo@example.test", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		domain, err := DomainOf(tt.address)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSender) {
				t.Errorf("DomainOf(%q): expected ErrInvalidSender, got %v", tt.address, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("DomainOf(%q): unexpected error %v", tt.address, err)
		}
		if domain != tt.domain {
			t.Errorf("DomainOf(%q): expected %q, got %q", tt.address, tt.domain, domain)
		}
	}
}

func TestSessionConfigWithDefaults(t *testing.T) {
	cfg := SessionConfig{User: "alice@example.test"}.WithDefaults()
	if cfg.Sender != "alice@example.test" {
		t.Errorf("Expected sender to default to user, got %q", cfg.Sender)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Expected port %d, got %d", DefaultPort, cfg.Port)
	}

	cfg = SessionConfig{User: "alice", Sender: "postmaster@example.test", Port: 2525}.WithDefaults()
	if cfg.Sender != "postmaster@example.test" || cfg.Port != 2525 {
		t.Errorf("Expected explicit values to be kept, got %+v", cfg)
	}
}

func TestSessionConfigAddr(t *testing.T) {
	cfg := SessionConfig{Host: "::1", Port: 25}
	if cfg.Addr() != "[::1]:25" {
		t.Errorf("Expected [::1]:25, got %s", cfg.Addr())
	}
}
