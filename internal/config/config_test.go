package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{
		DefaultSession: "work",
		UserID:         "u1",
		APIURL:         "http://localhost:8080/api",
		PushURL:        "ws://localhost:8080/ws",
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.UserID != "u1" || loaded.APIURL != cfg.APIURL || loaded.PushURL != cfg.PushURL {
		t.Errorf("loaded config = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	full := Config{UserID: "u1", APIURL: "http://x", PushURL: "ws://x"}
	if err := full.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	for _, missing := range []string{"user_id", "api_url", "push_url"} {
		cfg := full
		switch missing {
		case "user_id":
			cfg.UserID = ""
		case "api_url":
			cfg.APIURL = ""
		case "push_url":
			cfg.PushURL = ""
		}
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate() with missing %s expected error", missing)
		}
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultSession: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
