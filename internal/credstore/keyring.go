package credstore

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// Keyring stores each blob as one OS secret-store entry addressed by
// (Service, key).
type Keyring struct {
	// Service is the secret-store service name all entries live under.
	Service string
}

// NewKeyring creates a keyring-backed store for the given service name.
func NewKeyring(service string) *Keyring {
	return &Keyring{Service: service}
}

func (k *Keyring) Get(key string) ([]byte, error) {
	value, err := keyring.Get(k.Service, key)
	if err != nil {
		return nil, k.mapErr("get", err)
	}
	return []byte(value), nil
}

func (k *Keyring) Set(key string, blob []byte) error {
	if err := keyring.Set(k.Service, key, string(blob)); err != nil {
		return k.mapErr("set", err)
	}
	return nil
}

// Delete removes the entry for key. A missing entry is not an error.
func (k *Keyring) Delete(key string) error {
	err := keyring.Delete(k.Service, key)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return k.mapErr("delete", err)
}

func (k *Keyring) mapErr(op string, err error) error {
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, keyring.ErrUnsupportedPlatform):
		return ErrUnavailable
	default:
		return &BackendError{Backend: "keyring", Op: op, Err: err}
	}
}
