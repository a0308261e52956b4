package fake

import (
	"slices"
	"sync"

	"github.com/OliverSchlueter/smtpcheck/internal/accounts"
)

type DB struct {
	Items map[string]accounts.Account
	mu    sync.Mutex
}

func NewDB() *DB {
	return &DB{
		Items: make(map[string]accounts.Account),
		mu:    sync.Mutex{},
	}
}

func (db *DB) GetByName(name string) (*accounts.Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	a, exists := db.Items[name]
	if !exists {
		return nil, accounts.ErrAccountNotFound
	}
	return &a, nil
}

func (db *DB) GetByEmail(email string) (*accounts.Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, a := range db.Items {
		if slices.Contains(a.Emails, email) {
			return &a, nil
		}
	}

	return nil, accounts.ErrAccountNotFound
}

func (db *DB) Insert(a accounts.Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Items[a.Name]; exists {
		return accounts.ErrAccountAlreadyExists
	}

	db.Items[a.Name] = a
	return nil
}
