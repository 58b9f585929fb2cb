package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}

	if cfg.ServerName != "mcp-exam-reader" {
		t.Errorf("Expected default server name to be 'mcp-exam-reader', got '%s'", cfg.ServerName)
	}

	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Expected default concurrency to be %d, got %d", DefaultConcurrency, cfg.Concurrency)
	}

	if cfg.BatchPolicy != PolicyContinue {
		t.Errorf("Expected default batch policy to be 'continue', got '%s'", cfg.BatchPolicy)
	}

	if cfg.Store != StoreFile {
		t.Errorf("Expected default store to be 'file', got '%s'", cfg.Store)
	}

	if got := strings.Join(cfg.AnswerStrategies, ","); got != "table-first,line-regex,positional-fallback" {
		t.Errorf("Unexpected default answer strategies: %s", got)
	}

	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	currentDir, _ := os.Getwd()
	if cfg.ExamDirectory != currentDir {
		t.Errorf("Expected default exam directory to be '%s', got '%s'", currentDir, cfg.ExamDirectory)
	}
	if cfg.OutputDirectory != filepath.Join(currentDir, "output") {
		t.Errorf("Unexpected default output directory: %s", cfg.OutputDirectory)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ExamDirectory = filepath.Join(dir, "exams")
	cfg.OutputDirectory = filepath.Join(dir, "out")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid stdio", mutate: func(c *Config) {}},
		{name: "valid server", mutate: func(c *Config) { c.Mode = ModeServer }},
		{name: "valid batch halt", mutate: func(c *Config) { c.Mode = ModeBatch; c.BatchPolicy = PolicyHalt }},
		{name: "valid mongo", mutate: func(c *Config) { c.Store = StoreMongo; c.MongoURI = "mongodb://localhost:27017" }},
		{name: "invalid mode", mutate: func(c *Config) { c.Mode = "daemon" }, wantErr: "mode must be one of"},
		{name: "invalid port", mutate: func(c *Config) { c.Mode = ModeServer; c.Port = 0 }, wantErr: "port must be between"},
		{name: "port ignored outside server", mutate: func(c *Config) { c.Port = 0 }},
		{name: "empty exam dir", mutate: func(c *Config) { c.ExamDirectory = "" }, wantErr: "exam directory cannot be empty"},
		{name: "zero max size", mutate: func(c *Config) { c.MaxFileSize = 0 }, wantErr: "maximum file size"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: "concurrency must be positive"},
		{name: "bad policy", mutate: func(c *Config) { c.BatchPolicy = "retry" }, wantErr: "invalid batch policy"},
		{name: "unknown answer strategy", mutate: func(c *Config) { c.AnswerStrategies = []string{"ocr"} }, wantErr: "unknown extraction strategy"},
		{name: "unknown mod strategy", mutate: func(c *Config) { c.ModificationStrategies = []string{"guess"} }, wantErr: "unknown extraction strategy"},
		{name: "file store without out", mutate: func(c *Config) { c.OutputDirectory = "" }, wantErr: "output directory cannot be empty"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Store = StoreMongo }, wantErr: "mongo URI cannot be empty"},
		{name: "mongo without db", mutate: func(c *Config) {
			c.Store = StoreMongo
			c.MongoURI = "mongodb://localhost:27017"
			c.MongoDatabase = ""
		}, wantErr: "mongo database cannot be empty"},
		{name: "unknown store", mutate: func(c *Config) { c.Store = "s3" }, wantErr: "invalid store"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Config.Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Config.Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateDirectoryCreation(t *testing.T) {
	cfg := validConfig(t)
	cfg.DebugDirectory = filepath.Join(filepath.Dir(cfg.OutputDirectory), "debug", "dumps")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Config.Validate() unexpected error: %v", err)
	}

	for _, dir := range []string{cfg.ExamDirectory, cfg.OutputDirectory, cfg.DebugDirectory} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("Directory should have been created: %s", dir)
		}
	}
}

func TestConfigValidateRejectsFileAsDirectory(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "exams.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.ExamDirectory = file

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("Config.Validate() error = %v, want 'not a directory'", err)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"table-first", []string{"table-first"}},
		{" table-first , ,plain-regex ", []string{"table-first", "plain-regex"}},
	}
	for _, tt := range tests {
		got := SplitList(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 3000}
	if got := cfg.Address(); got != "localhost:3000" {
		t.Errorf("Config.Address() = %v, want %v", got, "localhost:3000")
	}
}

func TestConfigIsDebug(t *testing.T) {
	for level, want := range map[string]bool{"debug": true, "info": false, "warn": false, "error": false} {
		cfg := &Config{LogLevel: level}
		if got := cfg.IsDebug(); got != want {
			t.Errorf("Config.IsDebug() with %s = %v, want %v", level, got, want)
		}
	}
}

func TestConfigString(t *testing.T) {
	cfg := &Config{
		Mode:            "batch",
		Host:            "localhost",
		Port:            8080,
		ExamDirectory:   "/exams",
		OutputDirectory: "/out",
		Store:           "file",
		Concurrency:     2,
		BatchPolicy:     "halt",
		LogLevel:        "info",
		MaxFileSize:     1024,
	}

	want := "Config{Mode: batch, Host: localhost, Port: 8080, ExamDirectory: /exams, OutputDirectory: /out, " +
		"Store: file, Concurrency: 2, BatchPolicy: halt, LogLevel: info, MaxFileSize: 1024}"
	if got := cfg.String(); got != want {
		t.Errorf("Config.String() = %v, want %v", got, want)
	}
}

func TestConfigModes(t *testing.T) {
	tests := []struct {
		mode    string
		server  bool
		stdio   bool
		isBatch bool
	}{
		{ModeStdio, false, true, false},
		{ModeServer, true, false, false},
		{ModeBatch, false, false, true},
	}
	for _, tt := range tests {
		cfg := &Config{Mode: tt.mode}
		if cfg.IsServerMode() != tt.server || cfg.IsStdioMode() != tt.stdio || cfg.IsBatchMode() != tt.isBatch {
			t.Errorf("mode %s: server=%v stdio=%v batch=%v", tt.mode,
				cfg.IsServerMode(), cfg.IsStdioMode(), cfg.IsBatchMode())
		}
	}
}
