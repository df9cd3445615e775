package credentials

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEnvKeyProvider_GetKey(t *testing.T) {
	envVar := "TEST_CHATPULSE_ENCRYPTION_KEY"

	t.Run("valid key", func(t *testing.T) {
		t.Setenv(envVar, testKeyHex)

		key, err := NewEnvKeyProvider(envVar).GetKey()
		if err != nil {
			t.Fatalf("GetKey() error = %v", err)
		}
		want, _ := hex.DecodeString(testKeyHex)
		if !bytes.Equal(key, want) {
			t.Errorf("GetKey() returned wrong key")
		}
	})

	t.Run("missing env var", func(t *testing.T) {
		t.Setenv(envVar, "")

		if _, err := NewEnvKeyProvider(envVar).GetKey(); err == nil {
			t.Error("GetKey() expected error for missing env var")
		}
	})

	t.Run("invalid hex", func(t *testing.T) {
		t.Setenv(envVar, "not-valid-hex")

		if _, err := NewEnvKeyProvider(envVar).GetKey(); err == nil {
			t.Error("GetKey() expected error for invalid hex")
		}
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Setenv(envVar, "0123456789abcdef")

		_, err := NewEnvKeyProvider(envVar).GetKey()
		if err == nil || !strings.Contains(err.Error(), "must be 32 bytes") {
			t.Errorf("GetKey() error = %v, want length error", err)
		}
	})
}

func TestEnvKeyProvider_Description(t *testing.T) {
	desc := NewEnvKeyProvider("MY_KEY").Description()
	if !strings.Contains(desc, "MY_KEY") {
		t.Errorf("Description() = %q, should name the variable", desc)
	}
}

func TestKeyringKeyProvider_GetKey(t *testing.T) {
	keyring.MockInit()

	provider := NewKeyringKeyProvider()
	first, err := provider.GetKey()
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if len(first) != keyLength {
		t.Fatalf("GetKey() returned %d bytes, want %d", len(first), keyLength)
	}

	second, err := NewKeyringKeyProvider().GetKey()
	if err != nil {
		t.Fatalf("second GetKey() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("GetKey() should return the stored key on later calls")
	}
}

func TestKeyringKeyProvider_ReplacesMalformedKey(t *testing.T) {
	keyring.MockInit()
	if err := keyring.Set(keyringService, keyringUser, "zz"); err != nil {
		t.Fatalf("seeding keyring: %v", err)
	}

	key, err := NewKeyringKeyProvider().GetKey()
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	stored, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		t.Fatalf("reading keyring: %v", err)
	}
	if stored != hex.EncodeToString(key) {
		t.Error("malformed key was not replaced")
	}
}

func TestKeyringKeyProvider_Unavailable(t *testing.T) {
	keyring.MockInitWithError(keyring.ErrUnsupportedPlatform)
	t.Cleanup(keyring.MockInit)
	t.Setenv(EnvEncryptionKey, "")

	if _, err := NewKeyringKeyProvider().GetKey(); err == nil {
		t.Fatal("GetKey() expected error")
	}

	_, err := DefaultKeyProvider()
	if err == nil {
		t.Fatal("DefaultKeyProvider() expected error")
	}
	if !strings.Contains(err.Error(), EnvEncryptionKey) {
		t.Errorf("error should suggest %s: %v", EnvEncryptionKey, err)
	}
}

func TestDefaultKeyProvider_PrefersEnv(t *testing.T) {
	t.Setenv(EnvEncryptionKey, testKeyHex)

	provider, err := DefaultKeyProvider()
	if err != nil {
		t.Fatalf("DefaultKeyProvider() error = %v", err)
	}
	if _, ok := provider.(*EnvKeyProvider); !ok {
		t.Errorf("DefaultKeyProvider() = %T, want *EnvKeyProvider", provider)
	}
}

func TestDefaultKeyProvider_Keyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvEncryptionKey, "")

	provider, err := DefaultKeyProvider()
	if err != nil {
		t.Fatalf("DefaultKeyProvider() error = %v", err)
	}
	if _, ok := provider.(*KeyringKeyProvider); !ok {
		t.Errorf("DefaultKeyProvider() = %T, want *KeyringKeyProvider", provider)
	}
	if provider.Description() == "" {
		t.Error("Description() should not be empty")
	}
}
