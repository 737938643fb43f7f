package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SPEECHGUARD_CONFIG", "PORT", "MAX_UPLOAD_SIZE", "UPLOAD_DIR", "RESULT_STORE",
		"RESULTS_DIR", "RESULT_TTL", "REDIS_URL", "TRANSCRIBER", "OPENAI_API_KEY",
		"CLASSIFIER", "CLASSIFIER_BATCH_SIZE", "WHISPER_LANGUAGE", "TEMP_MAX_AGE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr() != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.ListenAddr())
	}
	if cfg.ResultTTL() != 30*time.Minute {
		t.Errorf("expected 30m retention, got %s", cfg.ResultTTL())
	}
	if cfg.Results.Backend != BackendFile {
		t.Errorf("expected file store, got %s", cfg.Results.Backend)
	}
	if cfg.Classifier.Model != "WhiterBB/multilingual-hatespeech-detection" {
		t.Errorf("unexpected default model %s", cfg.Classifier.Model)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "speechguard.toml")
	contents := `
port = "9090"
max_upload_size = 2048

[results]
backend = "sqlite"
ttl = "5m"

[database]
sqlite_path = "/tmp/results.db"

[classifier]
batch_size = 4
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "7070" {
		t.Errorf("env should override file port, got %s", cfg.Port)
	}
	if cfg.MaxUploadSize != 2048 {
		t.Errorf("expected upload size from file, got %d", cfg.MaxUploadSize)
	}
	if cfg.Results.Backend != BackendSQLite || cfg.Database.SQLitePath != "/tmp/results.db" {
		t.Errorf("unexpected store settings: %+v %+v", cfg.Results, cfg.Database)
	}
	if cfg.ResultTTL() != 5*time.Minute {
		t.Errorf("expected 5m retention, got %s", cfg.ResultTTL())
	}
	if cfg.Classifier.BatchSize != 4 {
		t.Errorf("expected batch size 4, got %d", cfg.Classifier.BatchSize)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.MaxUploadSize = 0
	cfg.Results.Backend = "cassandra"
	cfg.Results.TTL = "soon"
	cfg.Transcriber.Backend = TranscriberOpenAI
	cfg.Classifier.BatchSize = 0
	cfg.JanitorSchedule = "every tuesday"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	msg := err.Error()
	for _, want := range []string{"max_upload_size", "cassandra", "results.ttl", "OPENAI_API_KEY", "batch_size", "janitor_schedule"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestValidateLanguage(t *testing.T) {
	cfg := Default()
	cfg.Transcriber.Language = "en-US"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Transcriber.Language != "en" {
		t.Errorf("expected base language en, got %s", cfg.Transcriber.Language)
	}

	cfg.Transcriber.Language = "not a language!"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid language")
	}
}

func TestListenAddrKeepsHost(t *testing.T) {
	cfg := Default()
	cfg.Port = "127.0.0.1:9000"
	if cfg.ListenAddr() != "127.0.0.1:9000" {
		t.Errorf("unexpected listen addr %s", cfg.ListenAddr())
	}
}
