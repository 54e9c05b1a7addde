package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	tokenFileName  = "github_token"
	keyringService = "cryptorec"
	keyringUser    = "github_token"
	tokenFileMode  = 0600
)

// ErrNoToken is returned when no token was saved.
var ErrNoToken = errors.New("no GitHub token saved, run auth first")

// Store keeps the GitHub token in the OS keychain and falls back to a file
// in Dir when the keychain is unavailable.
type Store struct {
	Dir string
}

// Save stores token in the keychain, or in the fallback file.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}

	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return s.saveFile(token)
	}

	s.removeFile()
	return nil
}

// Get returns the saved token. A token found only in the fallback file is
// moved into the keychain when possible.
func (s *Store) Get() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}

	token, err = s.getFile()
	if err != nil {
		return "", err
	}

	if migrateErr := keyring.Set(keyringService, keyringUser, token); migrateErr == nil {
		slog.Info("migrated token from file to OS keychain")
		s.removeFile()
	}

	return token, nil
}

// Delete removes the token from both the keychain and the fallback file.
func (s *Store) Delete() error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Debug("keychain delete failed", "error", err)
	}
	s.removeFile()
	return nil
}

func (s *Store) path() string {
	return filepath.Join(s.Dir, tokenFileName)
}

func (s *Store) saveFile(token string) error {
	if s.Dir == "" {
		return errors.New("token directory required")
	}
	if err := os.WriteFile(s.path(), []byte(token), tokenFileMode); err != nil {
		return fmt.Errorf("writing token file %s: %w", s.path(), err)
	}
	return nil
}

func (s *Store) getFile() (string, error) {
	if s.Dir == "" {
		return "", ErrNoToken
	}
	b, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("reading token file %s: %w", s.path(), err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *Store) removeFile() {
	if s.Dir == "" {
		return
	}
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("error removing token file", "path", s.path(), "error", err)
	}
}
