package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":8600"`
	DataPath     string `envconfig:"DATA_PATH" default:"/app/data"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:""`
	LogPath      string `envconfig:"LOG_PATH" default:""`
	DevicesFile  string `envconfig:"DEVICES_FILE" default:""`

	// Terminal session settings
	GrantTTL     string `envconfig:"GRANT_TTL" default:"2m"`
	DefaultShell string `envconfig:"DEFAULT_SHELL" default:"/bin/bash"`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("TERMGATE", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}

// GrantTTLDuration parses the configured grant lifetime, falling back to
// two minutes when the value does not parse.
func GrantTTLDuration() time.Duration {
	d, err := time.ParseDuration(Cfg.GrantTTL)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid GRANT_TTL %q, using 2m", Cfg.GrantTTL)
		return 2 * time.Minute
	}
	return d
}
