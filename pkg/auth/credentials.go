package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// DefaultAccount is the account name used when none is given
const DefaultAccount = "default"

// Account is a named, stored cookie header
type Account struct {
	Name         string    `json:"name"`
	Cookies      string    `json:"cookies"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Credentials parses the stored cookie header
func (a *Account) Credentials() (*Credentials, error) {
	return ParseCookieHeader(a.Cookies)
}

// CredentialStore is the interface for storing and retrieving accounts
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(name string) (*Account, error)
	List() ([]*Account, error)
	Delete(name string) error
}

// Manager tries each store in order: keychain, encrypted file, environment
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a manager with the platform's available stores
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store validates the cookie header and saves it in the first store that
// accepts it
func (m *Manager) Store(account *Account) error {
	if account == nil {
		return ErrInvalidCredentials
	}
	if account.Name == "" {
		account.Name = DefaultAccount
	}
	if _, err := account.Credentials(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	account.LastModified = time.Now()

	var errs []error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ErrStoreUnavailable
	}
	return fmt.Errorf("failed to store credentials: %w", errors.Join(errs...))
}

// Retrieve returns the named account from the first store holding it
func (m *Manager) Retrieve(name string) (*Account, error) {
	if name == "" {
		name = DefaultAccount
	}
	for _, store := range m.stores {
		if account, err := store.Retrieve(name); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// List returns every account across stores, newest copy per name
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)
	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := byName[account.Name]; !ok || account.LastModified.After(existing.LastModified) {
				byName[account.Name] = account
			}
		}
	}

	result := make([]*Account, 0, len(byName))
	for _, account := range byName {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes the account from every store that has it
func (m *Manager) Delete(name string) error {
	if name == "" {
		name = DefaultAccount
	}
	deleted := false
	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		}
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
	}
	return nil
}

// ResolveCredentials picks the session to use: an explicit cookie header
// wins, otherwise the named stored account is loaded
func ResolveCredentials(m *Manager, cookieHeader, account string) (*Credentials, error) {
	if strings.TrimSpace(cookieHeader) != "" {
		return ParseCookieHeader(cookieHeader)
	}
	if m == nil {
		return nil, ErrCredentialsNotFound
	}
	stored, err := m.Retrieve(account)
	if err != nil {
		return nil, err
	}
	return stored.Credentials()
}

func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igcollect")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igcollect")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igcollect")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igcollect")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// SanitizeAccount returns a copy safe to print, with cookie values masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	masked := *account
	if creds, err := account.Credentials(); err == nil {
		parts := make([]string, 0, len(creds.Cookies))
		for _, ck := range creds.Cookies {
			parts = append(parts, ck.Name+"="+maskString(ck.Value))
		}
		masked.Cookies = strings.Join(parts, "; ")
	} else {
		masked.Cookies = maskString(account.Cookies)
	}
	return &masked
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
