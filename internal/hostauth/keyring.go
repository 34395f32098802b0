// Package hostauth stores the developer-mode account credentials: the
// balance manager, house and play cap identifiers a developer uses to run
// the game outside a hosting page. In production these arrive through the
// host handshake and are never persisted; in dev mode they live in the OS
// keychain so they survive restarts without ending up in dotfiles.
package hostauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/openplay-labs/piggy-bank-desktop/internal/hostmsg"
)

const (
	keyBalanceManager = "balance-manager"
	keyHouse          = "house"
	keyPlayCap        = "play-cap"
)

// Store wraps the OS keychain with an optional file fallback. Fallback is
// intended for environments where no system keyring is available.
type Store struct {
	service      string
	fallbackPath string
	mu           sync.Mutex
}

// NewStore creates a keyring wrapper for a named profile service.
func NewStore(serviceName, fallbackPath string) *Store {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = "piggy-bank-desktop"
	}
	return &Store{
		service:      serviceName,
		fallbackPath: fallbackPath,
	}
}

func (s *Store) key(profile, part string) string {
	return fmt.Sprintf("%s/%s", profile, part)
}

// SaveInit persists the account identifiers under a profile name.
func (s *Store) SaveInit(profile string, init hostmsg.InitData) error {
	if err := s.setSecret(profile, keyBalanceManager, init.BalanceManagerID); err != nil {
		return err
	}
	if err := s.setSecret(profile, keyHouse, init.HouseID); err != nil {
		return err
	}
	return s.setSecret(profile, keyPlayCap, init.PlayCapID)
}

// LoadInit reads the account identifiers stored under a profile name.
func (s *Store) LoadInit(profile string) (hostmsg.InitData, error) {
	var init hostmsg.InitData
	var err error
	if init.BalanceManagerID, err = s.getSecret(profile, keyBalanceManager); err != nil {
		return hostmsg.InitData{}, err
	}
	if init.HouseID, err = s.getSecret(profile, keyHouse); err != nil {
		return hostmsg.InitData{}, err
	}
	if init.PlayCapID, err = s.getSecret(profile, keyPlayCap); err != nil {
		return hostmsg.InitData{}, err
	}
	return init, nil
}

// Delete removes all stored identifiers for a profile.
func (s *Store) Delete(profile string) error {
	var errs []error
	for _, part := range []string{keyBalanceManager, keyHouse, keyPlayCap} {
		if err := keyring.Delete(s.service, s.key(profile, part)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return s.deleteFallbackProfile(profile)
	}
	// Try fallback cleanup even if keyring delete failed.
	_ = s.deleteFallbackProfile(profile)
	return fmt.Errorf("hostauth: keyring delete failed: %v", errs[0])
}

func (s *Store) setSecret(profile, part, value string) error {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return fmt.Errorf("hostauth: profile name is required")
	}

	if err := keyring.Set(s.service, s.key(profile, part), value); err == nil {
		return nil
	} else if !isKeyringUnavailable(err) {
		return fmt.Errorf("hostauth: keyring set %s: %w", part, err)
	}

	return s.setFallback(profile, part, value)
}

func (s *Store) getSecret(profile, part string) (string, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return "", fmt.Errorf("hostauth: profile name is required")
	}

	val, err := keyring.Get(s.service, s.key(profile, part))
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("hostauth: keyring get %s: %w", part, err)
	}

	fallback, ferr := s.getFallback(profile, part)
	if ferr == nil {
		return fallback, nil
	}

	if errors.Is(err, keyring.ErrNotFound) {
		return "", keyring.ErrNotFound
	}
	return "", ferr
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "org.freedesktop.secrets") ||
		strings.Contains(msg, ".service files") ||
		strings.Contains(msg, "the specified item could not be found in the keychain") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

type fallbackSecrets map[string]map[string]string

func (s *Store) setFallback(profile, part, value string) error {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return fmt.Errorf("hostauth: keyring unavailable and no fallback path configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return err
	}
	if _, ok := data[profile]; !ok {
		data[profile] = map[string]string{}
	}
	data[profile][part] = value
	return s.writeFallbackUnlocked(data)
}

func (s *Store) getFallback(profile, part string) (string, error) {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return "", fmt.Errorf("hostauth: fallback path not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return "", err
	}
	parts, ok := data[profile]
	if !ok {
		return "", keyring.ErrNotFound
	}
	val, ok := parts[part]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return val, nil
}

func (s *Store) deleteFallbackProfile(profile string) error {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return err
	}
	delete(data, profile)
	return s.writeFallbackUnlocked(data)
}

func (s *Store) readFallbackUnlocked() (fallbackSecrets, error) {
	out := fallbackSecrets{}
	raw, err := os.ReadFile(s.fallbackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("hostauth: read fallback secrets: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("hostauth: decode fallback secrets: %w", err)
	}
	return out, nil
}

func (s *Store) writeFallbackUnlocked(data fallbackSecrets) error {
	dir := filepath.Dir(s.fallbackPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("hostauth: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("hostauth: encode fallback secrets: %w", err)
	}
	if err := os.WriteFile(s.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("hostauth: write fallback secrets: %w", err)
	}
	return nil
}
