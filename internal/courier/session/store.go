package session

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"courierboard/internal/courier/data"
	"courierboard/pkg/localstore"
)

const (
	storagePrefix = "courierboard"
	identityKey   = "identity"
)

var (
	ErrNoSession = errors.New("no saved session")
)

// Identity is what survives a restart: the driver profile and the secret
// login code.
type Identity struct {
	Driver data.Driver
	Code   string
}

type storedIdentity struct {
	DriverID string          `json:"driver_id"`
	Name     string          `json:"name"`
	Phone    string          `json:"phone"`
	Online   bool            `json:"online"`
	Balance  decimal.Decimal `json:"balance"`
	Code     string          `json:"code"`
}

// Store persists the last logged-in identity so a restart resumes without
// a fresh login.
type Store struct {
	store *localstore.Store
}

func NewStore(store *localstore.Store) *Store {
	return &Store{
		store: store,
	}
}

func (s *Store) Save(identity Identity) error {
	blob := storedIdentity{
		DriverID: identity.Driver.ID,
		Name:     identity.Driver.Name,
		Phone:    identity.Driver.Phone,
		Online:   identity.Driver.Online,
		Balance:  identity.Driver.Balance,
		Code:     identity.Code,
	}
	if err := s.store.Put(localstore.Key(storagePrefix, identityKey), blob); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Store) Load() (Identity, error) {
	var blob storedIdentity
	err := s.store.Get(localstore.Key(storagePrefix, identityKey), &blob)
	if err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return Identity{}, ErrNoSession
		}
		return Identity{}, fmt.Errorf("failed to load session: %w", err)
	}
	return Identity{
		Driver: data.Driver{
			ID:      blob.DriverID,
			Name:    blob.Name,
			Phone:   blob.Phone,
			Online:  blob.Online,
			Balance: blob.Balance,
		},
		Code: blob.Code,
	}, nil
}

func (s *Store) Clear() error {
	if err := s.store.Delete(localstore.Key(storagePrefix, identityKey)); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
