package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Addr != ":3001" {
		t.Errorf("Addr: got %q", cfg.Addr)
	}
	if cfg.JudgeURL != "https://ce.judge0.com" {
		t.Errorf("JudgeURL: got %q", cfg.JudgeURL)
	}
	if cfg.JudgeTimeout != 20*time.Second {
		t.Errorf("JudgeTimeout: got %v", cfg.JudgeTimeout)
	}
	if cfg.MinMembers != 2 {
		t.Errorf("MinMembers: got %d", cfg.MinMembers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("JUDGE_TIMEOUT", "5s")
	t.Setenv("ROOM_MIN_MEMBERS", "3")
	t.Setenv("DATABASE_DSN", "host=db user=arena")

	cfg := Load()
	if cfg.Addr != ":9999" {
		t.Errorf("Addr: got %q", cfg.Addr)
	}
	if cfg.JudgeTimeout != 5*time.Second {
		t.Errorf("JudgeTimeout: got %v", cfg.JudgeTimeout)
	}
	if cfg.MinMembers != 3 {
		t.Errorf("MinMembers: got %d", cfg.MinMembers)
	}
	if cfg.DatabaseDSN == "" {
		t.Errorf("DatabaseDSN not picked up")
	}
}

func TestBadValuesFallBack(t *testing.T) {
	t.Setenv("JUDGE_TIMEOUT", "soon")
	t.Setenv("ROOM_MIN_MEMBERS", "many")

	cfg := Load()
	if cfg.JudgeTimeout != 20*time.Second {
		t.Errorf("JudgeTimeout: got %v", cfg.JudgeTimeout)
	}
	if cfg.MinMembers != 2 {
		t.Errorf("MinMembers: got %d", cfg.MinMembers)
	}
}
