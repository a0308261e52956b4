package accounts

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type DB interface {
	GetByName(name string) (*Account, error)
	GetByEmail(email string) (*Account, error)
	Insert(account Account) error
}

// Store holds the mailbox accounts the test server authenticates against.
type Store struct {
	db DB
}

type Configuration struct {
	DB DB
}

func NewStore(config Configuration) *Store {
	return &Store{
		db: config.DB,
	}
}

func (s *Store) GetByName(name string) (*Account, error) {
	return s.db.GetByName(name)
}

func (s *Store) GetByEmail(email string) (*Account, error) {
	return s.db.GetByEmail(email)
}

func (s *Store) Create(a Account) error {
	a.ID = GenerateID()
	a.Password = Hash(a.Password)

	return s.db.Insert(a)
}

// Authenticate returns ErrInvalidCredentials for unknown names as well as wrong passwords.
func (s *Store) Authenticate(name, password string) (*Account, error) {
	a, err := s.db.GetByName(name)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(a.Password), []byte(Hash(password))) != 1 {
		return nil, ErrInvalidCredentials
	}

	return a, nil
}

func GenerateID() string {
	return uuid.New().String()
}

func Hash(password string) string {
	h := sha256.New()
	h.Write([]byte(password))
	bs := h.Sum(nil)
	return fmt.Sprintf("%x", bs)
}
