package secrets

import (
	"strings"
	"testing"

	"github.com/termgate/termgate/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&database.Setting{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	old := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = old })
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	setupTestDB(t)

	ct, err := Encrypt("hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ct == "hunter2" || ct == "" {
		t.Error("ciphertext looks like plaintext")
	}

	pt, err := Decrypt(ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if pt != "hunter2" {
		t.Errorf("decrypted = %q, want hunter2", pt)
	}
}

func TestKeyPersistsInSettings(t *testing.T) {
	setupTestDB(t)

	if _, err := Encrypt("x"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	key1, err := database.GetSetting("fernet_key")
	if err != nil {
		t.Fatalf("fernet key not persisted: %v", err)
	}

	// A second operation reuses the stored key.
	if _, err := Encrypt("y"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	key2, _ := database.GetSetting("fernet_key")
	if key1 != key2 {
		t.Error("key regenerated on second use")
	}
}

func TestDecryptInvalidToken(t *testing.T) {
	setupTestDB(t)

	if _, err := Decrypt("not-a-token"); err == nil {
		t.Error("decrypt accepted garbage")
	}
	if pt, err := Decrypt(""); err != nil || pt != "" {
		t.Errorf("empty ciphertext: %q, %v", pt, err)
	}
}

func TestMask(t *testing.T) {
	if got := Mask("supersecret"); got != "****cret" {
		t.Errorf("Mask = %q", got)
	}
	if got := Mask("abc"); got != "****" {
		t.Errorf("Mask short = %q", got)
	}
	if got := Mask(""); got != "" {
		t.Errorf("Mask empty = %q", got)
	}
	if strings.Contains(Mask("supersecret"), "super") {
		t.Error("mask leaks prefix")
	}
}
