package database

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type deviceSeed struct {
	DeviceID string `yaml:"device_id"`
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	HostKey  string `yaml:"host_key"`
}

type devicesFile struct {
	Devices []deviceSeed `yaml:"devices"`
}

// LoadDevicesFile upserts devices from a YAML file into the database.
// Devices already present are updated in place, keyed by device_id.
func LoadDevicesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read devices file: %w", err)
	}

	var f devicesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse devices file: %w", err)
	}

	for _, seed := range f.Devices {
		if seed.DeviceID == "" {
			return fmt.Errorf("devices file: entry with empty device_id")
		}
		kind := seed.Kind
		if kind == "" {
			kind = "ssh"
		}
		if kind != "ssh" && kind != "local" {
			return fmt.Errorf("devices file: device %s has unknown kind %q", seed.DeviceID, kind)
		}
		port := seed.Port
		if port == 0 {
			port = 22
		}
		d := Device{
			DeviceID: seed.DeviceID,
			Name:     seed.Name,
			Kind:     kind,
			Host:     seed.Host,
			Port:     port,
			HostKey:  seed.HostKey,
		}
		err := DB.Where("device_id = ?", seed.DeviceID).
			Assign(map[string]interface{}{
				"name": d.Name, "kind": d.Kind, "host": d.Host,
				"port": d.Port, "host_key": d.HostKey,
			}).
			FirstOrCreate(&Device{DeviceID: seed.DeviceID}).Error
		if err != nil {
			return fmt.Errorf("upsert device %s: %w", seed.DeviceID, err)
		}
	}
	return nil
}
