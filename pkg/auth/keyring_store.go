package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService  = "igcollect"
	keyringPrefix   = "account_"
	keyringIndexKey = "accounts"
)

// KeyringStore keeps accounts in the system keychain. The keychain cannot
// enumerate entries, so account names are tracked in a separate index entry.
type KeyringStore struct{}

// NewKeyringStore probes the keychain and fails if it is unusable
func NewKeyringStore() (*KeyringStore, error) {
	const probe = "availability_probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(account *Account) error {
	if account == nil || account.Name == "" {
		return ErrInvalidCredentials
	}
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+account.Name, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	names := k.index()
	for _, n := range names {
		if n == account.Name {
			return nil
		}
	}
	return k.writeIndex(append(names, account.Name))
}

func (k *KeyringStore) Retrieve(name string) (*Account, error) {
	if name == "" {
		return nil, ErrInvalidCredentials
	}
	data, err := keyring.Get(keyringService, keyringPrefix+name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

func (k *KeyringStore) List() ([]*Account, error) {
	var accounts []*Account
	for _, name := range k.index() {
		if account, err := k.Retrieve(name); err == nil {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func (k *KeyringStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Delete(keyringService, keyringPrefix+name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	var remaining []string
	for _, n := range k.index() {
		if n != name {
			remaining = append(remaining, n)
		}
	}
	return k.writeIndex(remaining)
}

func (k *KeyringStore) index() []string {
	raw, err := keyring.Get(keyringService, keyringIndexKey)
	if err != nil || raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

func (k *KeyringStore) writeIndex(names []string) error {
	if len(names) == 0 {
		err := keyring.Delete(keyringService, keyringIndexKey)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to update keyring index: %w", err)
		}
		return nil
	}
	sort.Strings(names)
	if err := keyring.Set(keyringService, keyringIndexKey, strings.Join(names, "\n")); err != nil {
		return fmt.Errorf("failed to update keyring index: %w", err)
	}
	return nil
}
