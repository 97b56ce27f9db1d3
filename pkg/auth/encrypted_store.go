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
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// PassphraseEnv overrides the generated passphrase of the encrypted store
const PassphraseEnv = "CLUBKIT_PASSPHRASE"

const (
	saltSize       = 32
	keySize        = 32
	kdfIterations  = 100000
	passphraseFile = ".passphrase"
	vaultVersion   = 1
)

// EncryptedFileStore keeps directory logins in one AES-GCM sealed file. The
// key is derived from a passphrase with PBKDF2; the passphrase comes from
// CLUBKIT_PASSPHRASE or a generated file next to the store.
type EncryptedFileStore struct {
	mu         sync.RWMutex
	path       string
	passphrase []byte
}

// vaultFile is the on-disk envelope. Sealed holds nonce||ciphertext of the
// JSON account map.
type vaultFile struct {
	Version  int       `json:"version"`
	Salt     []byte    `json:"salt"`
	Sealed   []byte    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	pass, err := loadPassphrase(filepath.Join(filepath.Dir(path), passphraseFile))
	if err != nil {
		return nil, err
	}
	return &EncryptedFileStore{path: path, passphrase: pass}, nil
}

// Path is where the sealed credentials live
func (e *EncryptedFileStore) Path() string {
	return e.path
}

func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Username == "" || account.Password == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return err
	}
	accounts[account.Username] = *account
	return e.seal(accounts)
}

func (e *EncryptedFileStore) Retrieve(username string) (*Account, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, err := e.open()
	if err != nil {
		return nil, err
	}
	account, ok := accounts[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, err := e.open()
	if err != nil {
		return nil, err
	}
	list := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		a := a
		list = append(list, &a)
	}
	return list, nil
}

// Delete removes one login; the file goes away with the last one
func (e *EncryptedFileStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return err
	}
	if _, ok := accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(accounts, username)

	if len(accounts) == 0 {
		return os.Remove(e.path)
	}
	return e.seal(accounts)
}

func (e *EncryptedFileStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}

// open returns the stored accounts, or an empty map when there is no file yet
func (e *EncryptedFileStore) open() (map[string]Account, error) {
	accounts := make(map[string]Account)

	raw, err := os.ReadFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		return accounts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var vault vaultFile
	if err := json.Unmarshal(raw, &vault); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	gcm, err := e.cipher(vault.Salt)
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(vault.Sealed) < n {
		return nil, errors.New("credentials file is truncated")
	}
	plain, err := gcm.Open(nil, vault.Sealed[:n], vault.Sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials (wrong %s?): %w", PassphraseEnv, err)
	}

	if err := json.Unmarshal(plain, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	return accounts, nil
}

// seal encrypts accounts under a fresh salt and nonce and replaces the file
func (e *EncryptedFileStore) seal(accounts map[string]Account) error {
	plain, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := e.cipher(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	out, err := json.MarshalIndent(vaultFile{
		Version:  vaultVersion,
		Salt:     salt,
		Sealed:   gcm.Seal(nonce, nonce, plain, nil),
		Modified: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

func (e *EncryptedFileStore) cipher(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.passphrase, salt, kdfIterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// loadPassphrase prefers the environment, then the passphrase file, and
// generates and saves a random one when neither exists
func loadPassphrase(file string) ([]byte, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return []byte(pass), nil
	}
	if pass, err := os.ReadFile(file); err == nil && len(pass) > 0 {
		return pass, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate passphrase: %w", err)
	}
	pass := []byte(base64.RawURLEncoding.EncodeToString(buf))
	if err := os.WriteFile(file, pass, 0600); err != nil {
		return nil, fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}
