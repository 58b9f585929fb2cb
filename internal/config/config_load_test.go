package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

func setArgs(args []string) {
	os.Args = args
}

func clearEnvVars() {
	for _, name := range flagNames {
		os.Unsetenv("MCP_EXAM_" + strings.ToUpper(name))
	}
}

// withArgs runs LoadFromFlags with args and restores global state afterwards.
func withArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	})

	setArgs(append([]string{"mcp-exam-reader"}, args...))
	resetFlags()
	return LoadFromFlags()
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	clearEnvVars()
	dir := t.TempDir()

	cfg, err := withArgs(t, "--dir="+dir, "--out="+filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Store != "file" {
		t.Errorf("LoadFromFlags() Store = %v, want %v", cfg.Store, "file")
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("LoadFromFlags() Concurrency = %v, want %v", cfg.Concurrency, DefaultConcurrency)
	}
	if len(cfg.ModificationStrategies) != 2 {
		t.Errorf("LoadFromFlags() ModificationStrategies = %v", cfg.ModificationStrategies)
	}
	if !filepath.IsAbs(cfg.ExamDirectory) || !filepath.IsAbs(cfg.OutputDirectory) {
		t.Errorf("LoadFromFlags() should expand paths, got %s and %s", cfg.ExamDirectory, cfg.OutputDirectory)
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	clearEnvVars()
	dir := t.TempDir()

	cfg, err := withArgs(t,
		"--mode=batch",
		"--dir="+dir,
		"--out="+filepath.Join(dir, "out"),
		"--debugdir="+filepath.Join(dir, "debug"),
		"--subject=physics",
		"--concurrency=8",
		"--policy=halt",
		"--answers=plain-regex, positional-fallback",
		"--modifications=table-first",
		"--converter=marker {input}",
		"--loglevel=debug",
		"--maxfilesize=2048",
	)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if !cfg.IsBatchMode() {
		t.Errorf("LoadFromFlags() Mode = %v, want batch", cfg.Mode)
	}
	if cfg.Subject != "physics" {
		t.Errorf("LoadFromFlags() Subject = %v, want physics", cfg.Subject)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("LoadFromFlags() Concurrency = %v, want 8", cfg.Concurrency)
	}
	if cfg.BatchPolicy != "halt" {
		t.Errorf("LoadFromFlags() BatchPolicy = %v, want halt", cfg.BatchPolicy)
	}
	if got := strings.Join(cfg.AnswerStrategies, ","); got != "plain-regex,positional-fallback" {
		t.Errorf("LoadFromFlags() AnswerStrategies = %v", got)
	}
	if got := strings.Join(cfg.ModificationStrategies, ","); got != "table-first" {
		t.Errorf("LoadFromFlags() ModificationStrategies = %v", got)
	}
	if cfg.ConverterCommand != "marker {input}" {
		t.Errorf("LoadFromFlags() ConverterCommand = %v", cfg.ConverterCommand)
	}
	if !cfg.IsDebug() || cfg.MaxFileSize != 2048 {
		t.Errorf("LoadFromFlags() LogLevel = %v MaxFileSize = %v", cfg.LogLevel, cfg.MaxFileSize)
	}
	if _, err := os.Stat(cfg.DebugDirectory); err != nil {
		t.Errorf("debug directory should exist: %v", err)
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	clearEnvVars()
	dir := t.TempDir()

	os.Setenv("MCP_EXAM_MODE", "server")
	os.Setenv("MCP_EXAM_HOST", "192.168.1.1")
	os.Setenv("MCP_EXAM_PORT", "3000")
	os.Setenv("MCP_EXAM_DIR", dir)
	os.Setenv("MCP_EXAM_OUT", filepath.Join(dir, "out"))
	os.Setenv("MCP_EXAM_STORE", "mongo")
	os.Setenv("MCP_EXAM_MONGOURI", "mongodb://db:27017")
	os.Setenv("MCP_EXAM_LOGLEVEL", "warn")

	cfg, err := withArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" || cfg.Host != "192.168.1.1" || cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() = %s, want server on 192.168.1.1:3000", cfg)
	}
	if cfg.Store != "mongo" || cfg.MongoURI != "mongodb://db:27017" || cfg.MongoDatabase != DefaultMongoDatabase {
		t.Errorf("LoadFromFlags() store = %s %s %s", cfg.Store, cfg.MongoURI, cfg.MongoDatabase)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want warn", cfg.LogLevel)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	clearEnvVars()
	dir := t.TempDir()
	os.Setenv("MCP_EXAM_MODE", "server")
	os.Setenv("MCP_EXAM_POLICY", "halt")

	cfg, err := withArgs(t, "--mode=batch", "--policy=continue", "--dir="+dir, "--out="+dir)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "batch" {
		t.Errorf("LoadFromFlags() Mode = %v, want batch (should override env)", cfg.Mode)
	}
	if cfg.BatchPolicy != "continue" {
		t.Errorf("LoadFromFlags() BatchPolicy = %v, want continue (should override env)", cfg.BatchPolicy)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"mode", []string{"--mode=invalid"}, "mode must be one of"},
		{"port", []string{"--mode=server", "--port=99999"}, "port must be between 1 and 65535"},
		{"log level", []string{"--loglevel=invalid"}, "invalid log level"},
		{"strategy", []string{"--answers=table-first,ocr"}, "unknown extraction strategy"},
		{"store", []string{"--store=s3"}, "invalid store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			dir := t.TempDir()
			args := append([]string{"--dir=" + dir, "--out=" + dir}, tt.args...)

			_, err := withArgs(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFlags() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	clearEnvVars()

	_, err := withArgs(t, "--version")
	if err == nil || err.Error() != "version requested" {
		t.Errorf("LoadFromFlags() error = %v, want 'version requested'", err)
	}
}
