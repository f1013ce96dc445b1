package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	Load()
	if Cfg.ListenAddr != ":8600" {
		t.Errorf("ListenAddr = %q", Cfg.ListenAddr)
	}
	if Cfg.GrantTTL != "2m" {
		t.Errorf("GrantTTL = %q", Cfg.GrantTTL)
	}
	if Cfg.DefaultShell != "/bin/bash" {
		t.Errorf("DefaultShell = %q", Cfg.DefaultShell)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TERMGATE_LISTEN_ADDR", ":9000")
	t.Setenv("TERMGATE_GRANT_TTL", "30s")
	Load()
	if Cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000", Cfg.ListenAddr)
	}
	if d := GrantTTLDuration(); d != 30*time.Second {
		t.Errorf("GrantTTLDuration = %s, want 30s", d)
	}
}

func TestGrantTTLDuration_Invalid(t *testing.T) {
	t.Setenv("TERMGATE_GRANT_TTL", "soon")
	Load()
	if d := GrantTTLDuration(); d != 2*time.Minute {
		t.Errorf("GrantTTLDuration = %s, want fallback 2m", d)
	}
}
