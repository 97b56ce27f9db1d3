package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Account is a login for the club kit directory
type Account struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is one place a login can be kept
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
	Exists(username string) bool
}

// Manager queries an ordered list of stores. Writes go to the first store
// that accepts them; reads return the first hit.
type Manager struct {
	stores []CredentialStore
}

// NewManager uses the system keychain when it is usable, then an encrypted
// file in the user config directory, then the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore
	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	fs, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}

	return NewManagerWithStores(append(stores, fs, NewEnvironmentStore())...), nil
}

// NewManagerWithStores creates a manager over the given stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// configDir is <user config dir>/clubkit, created on demand
func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	dir := filepath.Join(base, "clubkit")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

func (m *Manager) Store(account *Account) error {
	switch {
	case account == nil || account.Username == "":
		return errors.New("username is required")
	case account.Password == "":
		return errors.New("password is required")
	}
	account.LastModified = time.Now()

	errs := make([]error, 0, len(m.stores))
	for _, s := range m.stores {
		err := s.Store(account)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ErrStoreUnavailable
	}
	return fmt.Errorf("failed to store credentials: %w", errs[len(errs)-1])
}

func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, s := range m.stores {
		if a, err := s.Retrieve(username); err == nil && a != nil {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// RetrieveDefault returns the environment login if one is set, otherwise the
// stored account with the lowest username
func (m *Manager) RetrieveDefault() (*Account, error) {
	for _, s := range m.stores {
		if env, ok := s.(*EnvironmentStore); ok {
			if a, err := env.Retrieve(""); err == nil {
				return a, nil
			}
		}
	}

	if accounts, _ := m.List(); len(accounts) > 0 {
		return accounts[0], nil
	}
	return nil, ErrCredentialsNotFound
}

// Resolve picks the login for a crawl. A named account must be stored; with
// no name, a complete username/password pair wins, then the default account.
func (m *Manager) Resolve(account, username, password string) (*Account, error) {
	if account != "" {
		return m.Retrieve(account)
	}
	if username != "" && password != "" {
		return &Account{Username: username, Password: password}, nil
	}
	if username != "" {
		if stored, err := m.Retrieve(username); err == nil {
			return stored, nil
		}
	}
	return m.RetrieveDefault()
}

// List merges every store's accounts, newest copy per username, sorted by username.
// A store that fails to list is skipped.
func (m *Manager) List() ([]*Account, error) {
	newest := make(map[string]*Account)
	for _, s := range m.stores {
		accounts, err := s.List()
		if err != nil {
			continue
		}
		for _, a := range accounts {
			if cur, ok := newest[a.Username]; !ok || a.LastModified.After(cur.LastModified) {
				newest[a.Username] = a
			}
		}
	}

	out := make([]*Account, 0, len(newest))
	for _, a := range newest {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// Delete removes username from every store that holds it
func (m *Manager) Delete(username string) error {
	deleted := false
	var hard error
	for _, s := range m.stores {
		err := s.Delete(username)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrCredentialsNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			hard = err
		}
	}

	if deleted {
		return nil
	}
	if hard != nil {
		return fmt.Errorf("failed to delete credentials: %w", hard)
	}
	return fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// DeleteAll removes every stored account. Environment logins stay.
func (m *Manager) DeleteAll() error {
	accounts, err := m.List()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		_ = m.Delete(a.Username)
	}
	return nil
}

// SanitizeAccount returns a copy of the account safe to print
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	masked := "********"
	if p := account.Password; len(p) > 8 {
		masked = p[:2] + "..." + p[len(p)-2:]
	}
	return &Account{Username: account.Username, Password: masked, LastModified: account.LastModified}
}
