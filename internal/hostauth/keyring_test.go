package hostauth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/openplay-labs/piggy-bank-desktop/internal/hostmsg"
)

func TestSaveLoadDelete(t *testing.T) {
	s := NewStore("piggy-bank-test", filepath.Join(t.TempDir(), "fallback_secrets.json"))
	profile := "devnet"

	init := hostmsg.InitData{
		BalanceManagerID: "0xbm",
		HouseID:          "0xhouse",
		PlayCapID:        "0xcap",
	}
	if err := s.SaveInit(profile, init); err != nil {
		t.Fatalf("SaveInit: %v", err)
	}

	loaded, err := s.LoadInit(profile)
	if err != nil {
		t.Fatalf("LoadInit: %v", err)
	}
	if loaded != init {
		t.Fatalf("loaded %+v, want %+v", loaded, init)
	}

	if err := s.Delete(profile); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.LoadInit(profile); err == nil {
		t.Fatal("expected error after delete")
	}
}

func TestLoadMissingProfile(t *testing.T) {
	s := NewStore("piggy-bank-test", filepath.Join(t.TempDir(), "fallback_secrets.json"))
	if _, err := s.LoadInit("nobody"); err == nil {
		t.Fatal("expected error for missing profile")
	}
}

func TestEmptyProfileRejected(t *testing.T) {
	s := NewStore("piggy-bank-test", filepath.Join(t.TempDir(), "fallback_secrets.json"))
	if err := s.SaveInit("  ", hostmsg.InitData{}); err == nil {
		t.Fatal("expected error for empty profile")
	}
}

func TestKeyringUnavailableDetection(t *testing.T) {
	// Headless Linux has no Secret Service on the session bus; those errors
	// must route writes to the file fallback instead of failing.
	unavailable := []error{
		errors.New("The name org.freedesktop.secrets was not provided by any .service files"),
		errors.New("failed to unlock correct collection '/org/freedesktop/secrets/aliases/default'"),
		errors.New("dbus: connection closed by user"),
		keyring.ErrUnsupportedPlatform,
	}
	for _, err := range unavailable {
		if !isKeyringUnavailable(err) {
			t.Errorf("error %q must count as keyring unavailable", err)
		}
	}

	if isKeyringUnavailable(nil) {
		t.Error("nil error must not count as unavailable")
	}
	if isKeyringUnavailable(keyring.ErrNotFound) {
		t.Error("a missing secret is not an unavailable keyring")
	}
}
