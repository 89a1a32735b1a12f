package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Backend != "memory" {
		t.Errorf("backend = %q", cfg.Backend)
	}
	if cfg.UserID != "default" {
		t.Errorf("user = %q", cfg.UserID)
	}
}

func TestLoad_BadBackend(t *testing.T) {
	t.Setenv("CHRONICLE_BACKEND", "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoad_FirestoreNeedsProject(t *testing.T) {
	t.Setenv("CHRONICLE_BACKEND", "firestore")
	t.Setenv("CHRONICLE_PROJECT_ID", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing project id")
	}
}
