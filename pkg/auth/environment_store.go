package auth

import (
	"os"
	"time"
)

// EnvironmentStore is a read-only store backed by IGCOLLECT_COOKIES, or the
// legacy IG_COOKIES. It answers for any account name.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) cookies() string {
	if v := os.Getenv("IGCOLLECT_COOKIES"); v != "" {
		return v
	}
	return os.Getenv("IG_COOKIES")
}

func (e *EnvironmentStore) Store(*Account) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	cookies := e.cookies()
	if cookies == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = DefaultAccount
	}
	return &Account{
		Name:         name,
		Cookies:      cookies,
		UserAgent:    os.Getenv("IGCOLLECT_USER_AGENT"),
		LastModified: time.Time{},
	}, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve(DefaultAccount)
	if err != nil {
		return nil, nil
	}
	return []*Account{account}, nil
}

func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}
