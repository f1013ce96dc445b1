package database

import "time"

// Device is a terminal target users can open sessions to. SSH devices are
// reached over the network; local devices run a shell on the gateway host.
type Device struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID  string    `gorm:"uniqueIndex;not null;size:64" json:"device_id"`
	Name      string    `gorm:"not null" json:"name"`
	Kind      string    `gorm:"not null;default:ssh" json:"kind"` // "ssh" or "local"
	Host      string    `json:"host"`
	Port      int       `gorm:"not null;default:22" json:"port"`
	HostKey   string    `json:"-"` // authorized_keys format, empty disables pinning
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
