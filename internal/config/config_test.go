package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("BASE_URL")
	os.Unsetenv("ORG_NAME")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}

	if cfg.BaseURL != "http://localhost:8000/fhir" {
		t.Errorf("expected default base URL, got %s", cfg.BaseURL)
	}

	if cfg.OrgName != "Patient Summary Service" {
		t.Errorf("expected default org name, got %s", cfg.OrgName)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("BASE_URL", "https://summary.example.org/fhir")
	os.Setenv("ORG_ID", "org-42")
	defer os.Unsetenv("BASE_URL")
	defer os.Unsetenv("ORG_ID")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BaseURL != "https://summary.example.org/fhir" {
		t.Errorf("expected BASE_URL to be overridden, got %s", cfg.BaseURL)
	}

	if cfg.OrgID != "org-42" {
		t.Errorf("expected ORG_ID to be overridden, got %s", cfg.OrgID)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func TestConfig_Validate(t *testing.T) {
	c := &Config{BaseURL: "http://localhost:8000/fhir", DefaultTimezone: "America/New_York"}
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	c.DefaultTimezone = "Not/AZone"
	if err := c.Validate(); err == nil {
		t.Error("expected error for invalid timezone")
	}

	c = &Config{}
	if err := c.Validate(); err == nil {
		t.Error("expected error when BASE_URL is empty")
	}
}
