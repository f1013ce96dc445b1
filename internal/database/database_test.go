package database

import (
	"os"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the package at an in-memory SQLite database.
func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&Device{}, &Setting{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	old := DB
	DB = db
	t.Cleanup(func() { DB = old })
}

func TestSettingRoundTrip(t *testing.T) {
	setupTestDB(t)

	if err := SetSetting("fernet_key", "abc"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	v, err := GetSetting("fernet_key")
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if v != "abc" {
		t.Errorf("value = %q, want abc", v)
	}

	// Overwrite keeps a single row.
	if err := SetSetting("fernet_key", "def"); err != nil {
		t.Fatalf("overwrite setting: %v", err)
	}
	v, _ = GetSetting("fernet_key")
	if v != "def" {
		t.Errorf("value after overwrite = %q, want def", v)
	}
	var count int64
	DB.Model(&Setting{}).Where("key = ?", "fernet_key").Count(&count)
	if count != 1 {
		t.Errorf("setting rows = %d, want 1", count)
	}
}

func TestGetDeviceByDeviceID(t *testing.T) {
	setupTestDB(t)

	dev := Device{DeviceID: "web-1", Name: "Web server", Host: "10.0.0.5", Port: 22, Kind: "ssh"}
	if err := DB.Create(&dev).Error; err != nil {
		t.Fatalf("create device: %v", err)
	}

	got, err := GetDeviceByDeviceID("web-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Host != "10.0.0.5" || got.Kind != "ssh" {
		t.Errorf("device = %+v", got)
	}

	if _, err := GetDeviceByDeviceID("nope"); err == nil {
		t.Error("lookup of unknown device succeeded")
	}
}

func TestLoadDevicesFile(t *testing.T) {
	setupTestDB(t)

	path := filepath.Join(t.TempDir(), "devices.yaml")
	content := `devices:
  - device_id: web-1
    name: Web server
    host: 10.0.0.5
  - device_id: console
    name: Gateway console
    kind: local
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := LoadDevicesFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	web, err := GetDeviceByDeviceID("web-1")
	if err != nil {
		t.Fatalf("lookup web-1: %v", err)
	}
	if web.Port != 22 || web.Kind != "ssh" {
		t.Errorf("defaults not applied: %+v", web)
	}
	console, err := GetDeviceByDeviceID("console")
	if err != nil {
		t.Fatalf("lookup console: %v", err)
	}
	if console.Kind != "local" {
		t.Errorf("console kind = %q", console.Kind)
	}

	// Re-loading updates in place instead of duplicating.
	content2 := `devices:
  - device_id: web-1
    name: Renamed
    host: 10.0.0.6
`
	if err := os.WriteFile(path, []byte(content2), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadDevicesFile(path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	web, _ = GetDeviceByDeviceID("web-1")
	if web.Name != "Renamed" || web.Host != "10.0.0.6" {
		t.Errorf("upsert did not update: %+v", web)
	}
	var count int64
	DB.Model(&Device{}).Count(&count)
	if count != 2 {
		t.Errorf("device rows = %d, want 2", count)
	}
}

func TestLoadDevicesFile_Invalid(t *testing.T) {
	setupTestDB(t)

	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte("devices:\n  - name: no id\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := LoadDevicesFile(path); err == nil {
		t.Error("accepted device with empty device_id")
	}

	if err := LoadDevicesFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("accepted missing file")
	}
}
