package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"BILLING_FIRESTORE_PROJECT_ID": "billing-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "billing-dev" {
		t.Errorf("unexpected firestore project: %s", cfg.Firestore.ProjectID)
	}
	if cfg.PubSub.ProjectID != "billing-dev" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.BreakdownTopic != defaultBreakdownTopic {
		t.Errorf("unexpected default breakdown topic: %s", cfg.PubSub.BreakdownTopic)
	}
	if cfg.Catalog.CacheTTL != defaultCatalogCacheTTL {
		t.Errorf("unexpected default catalog cache ttl: %s", cfg.Catalog.CacheTTL)
	}
	if cfg.Health.ProbeTimeout != defaultHealthTimeout {
		t.Errorf("unexpected default health probe timeout: %s", cfg.Health.ProbeTimeout)
	}
	if !cfg.Features.EnableBreakdownEvents {
		t.Errorf("expected breakdown events enabled by default")
	}
	if cfg.Features.ExposeActualRates {
		t.Errorf("expected actual rate exposure disabled by default")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"BILLING_SERVER_PORT":                 "9090",
		"BILLING_SERVER_READ_TIMEOUT":         "20s",
		"BILLING_SERVER_WRITE_TIMEOUT":        "25s",
		"BILLING_SERVER_IDLE_TIMEOUT":         "2m",
		"BILLING_FIRESTORE_PROJECT_ID":        "billing-prod",
		"BILLING_FIRESTORE_EMULATOR_HOST":     "localhost:8200",
		"BILLING_PUBSUB_PROJECT_ID":           "billing-events",
		"BILLING_PUBSUB_BREAKDOWN_TOPIC":      "breakdown-prod",
		"BILLING_CATALOG_CACHE_TTL":           "90s",
		"BILLING_HEALTH_PROBE_TIMEOUT":        "10s",
		"BILLING_FEATURE_BREAKDOWN_EVENTS":    "false",
		"BILLING_FEATURE_EXPOSE_ACTUAL_RATES": "true",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Firestore.EmulatorHost != "localhost:8200" {
		t.Errorf("unexpected emulator host: %s", cfg.Firestore.EmulatorHost)
	}
	if cfg.PubSub.ProjectID != "billing-events" {
		t.Errorf("unexpected pubsub project: %s", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.BreakdownTopic != "breakdown-prod" {
		t.Errorf("unexpected breakdown topic: %s", cfg.PubSub.BreakdownTopic)
	}
	if cfg.Catalog.CacheTTL != 90*time.Second {
		t.Errorf("unexpected catalog cache ttl: %s", cfg.Catalog.CacheTTL)
	}
	if cfg.Health.ProbeTimeout != 10*time.Second {
		t.Errorf("unexpected health probe timeout: %s", cfg.Health.ProbeTimeout)
	}
	if cfg.Features.EnableBreakdownEvents {
		t.Errorf("expected breakdown events disabled")
	}
	if !cfg.Features.ExposeActualRates {
		t.Errorf("expected actual rate exposure enabled")
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "BILLING_SERVER_PORT=7070\nBILLING_FIRESTORE_PROJECT_ID=billing-dot\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.ProjectID != "billing-dot" {
		t.Errorf("expected firestore project from dotenv, got %s", cfg.Firestore.ProjectID)
	}
}

func TestLoadEnvMapOverridesDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "BILLING_SERVER_PORT=7070\nBILLING_FIRESTORE_PROJECT_ID=billing-dot\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	overrides := map[string]string{
		"BILLING_SERVER_PORT": "6060",
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithEnvMap(overrides), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Fatalf("expected explicit map to win, got %s", cfg.Server.Port)
	}
	if cfg.Firestore.ProjectID != "billing-dot" {
		t.Fatalf("expected dotenv fallback for untouched keys, got %s", cfg.Firestore.ProjectID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if fields := verr.Fields(); len(fields) == 0 || fields[0] != "Firestore.ProjectID" {
		t.Fatalf("unexpected missing fields %v", fields)
	}
}

func TestLoadRejectsEmptyTopicWhenEventsEnabled(t *testing.T) {
	env := map[string]string{
		"BILLING_FIRESTORE_PROJECT_ID":   "billing-dev",
		"BILLING_PUBSUB_BREAKDOWN_TOPIC": "   ",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}
