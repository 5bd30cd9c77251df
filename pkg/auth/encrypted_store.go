package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// EncryptedFileStore keeps accounts in an AES-GCM encrypted JSON file. The
// key is derived with PBKDF2 from IGCOLLECT_PASSPHRASE, or from a random
// passphrase generated once and kept next to the store.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.Mutex
}

type encryptedFile struct {
	Version  int       `json:"version"`
	Salt     string    `json:"salt"`
	Data     string    `json:"data"`
	Modified time.Time `json:"modified"`
}

// NewEncryptedFileStore creates a store at path, creating its directory
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	passphrase, err := loadPassphrase(filepath.Join(filepath.Dir(path), ".passphrase"))
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Name == "" {
		return ErrInvalidCredentials
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.load()
	if err != nil {
		return err
	}
	accounts[account.Name] = *account
	return e.save(accounts)
}

func (e *EncryptedFileStore) Retrieve(name string) (*Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.load()
	if err != nil {
		return nil, err
	}
	account, ok := accounts[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.load()
	if err != nil {
		return nil, err
	}
	out := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		a := a
		out = append(out, &a)
	}
	return out, nil
}

func (e *EncryptedFileStore) Delete(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.load()
	if err != nil {
		return err
	}
	if _, ok := accounts[name]; !ok {
		return ErrCredentialsNotFound
	}
	delete(accounts, name)
	if len(accounts) == 0 {
		return os.Remove(e.path)
	}
	return e.save(accounts)
}

// load returns an empty map when the file does not exist yet
func (e *EncryptedFileStore) load() (map[string]Account, error) {
	content, err := os.ReadFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]Account), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var file encryptedFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(file.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	plain, err := decrypt(sealed, e.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	accounts := make(map[string]Account)
	if err := json.Unmarshal(plain, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	return accounts, nil
}

// save encrypts with a fresh salt and replaces the file atomically
func (e *EncryptedFileStore) save(accounts map[string]Account) error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	plain, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	sealed, err := encrypt(plain, e.deriveKey(salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	content, err := json.MarshalIndent(encryptedFile{
		Version:  1,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Data:     base64.StdEncoding.EncodeToString(sealed),
		Modified: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
}

func loadPassphrase(path string) (string, error) {
	if pass := os.Getenv("IGCOLLECT_PASSPHRASE"); pass != "" {
		return pass, nil
	}
	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(b)
	if err := os.WriteFile(path, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
