package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-exam-reader/internal/exam/extract"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"
	ModeBatch  = "batch"

	// Batch policies
	PolicyContinue = "continue"
	PolicyHalt     = "halt"

	// Artifact stores
	StoreFile  = "file"
	StoreMongo = "mongo"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 100 * 1024 * 1024 // 100MB
	DefaultConcurrency   = 4
	DefaultMongoDatabase = "exams"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the exam reader
type Config struct {
	// Server configuration
	Mode string // "stdio", "server" or "batch"
	Host string
	Port int

	// Folders
	ExamDirectory   string
	OutputDirectory string
	DebugDirectory  string // optional intermediate dumps

	// Processing
	Subject                string // overrides the folder-derived subject
	Concurrency            int
	BatchPolicy            string
	AnswerStrategies       []string
	ModificationStrategies []string
	ConverterCommand       string

	// Persistence
	Store         string
	MongoURI      string
	MongoDatabase string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum document size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:                   ModeStdio,
		Host:                   DefaultHost,
		Port:                   DefaultPort,
		ExamDirectory:          currentDir,
		OutputDirectory:        filepath.Join(currentDir, "output"),
		Concurrency:            DefaultConcurrency,
		BatchPolicy:            PolicyContinue,
		AnswerStrategies:       append([]string(nil), extract.DefaultAnswerPolicy...),
		ModificationStrategies: append([]string(nil), extract.DefaultModificationPolicy...),
		Store:                  StoreFile,
		MongoDatabase:          DefaultMongoDatabase,
		Version:                "1.0.0",
		ServerName:             "mcp-exam-reader",
		LogLevel:               DefaultLogLevel,
		MaxFileSize:            DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("MCP_EXAM")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.ExamDirectory)
	viper.SetDefault("out", cfg.OutputDirectory)
	viper.SetDefault("debugdir", cfg.DebugDirectory)
	viper.SetDefault("subject", cfg.Subject)
	viper.SetDefault("concurrency", cfg.Concurrency)
	viper.SetDefault("policy", cfg.BatchPolicy)
	viper.SetDefault("answers", strings.Join(cfg.AnswerStrategies, ","))
	viper.SetDefault("modifications", strings.Join(cfg.ModificationStrategies, ","))
	viper.SetDefault("converter", cfg.ConverterCommand)
	viper.SetDefault("store", cfg.Store)
	viper.SetDefault("mongouri", cfg.MongoURI)
	viper.SetDefault("mongodb", cfg.MongoDatabase)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for MCP standard I/O, 'server' for SSE, 'batch' to process the folder and exit")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.ExamDirectory, "Folder containing exam documents")
	pflag.String("out", cfg.OutputDirectory, "Folder receiving combined JSON artifacts")
	pflag.String("debugdir", cfg.DebugDirectory, "Folder receiving intermediate dumps (disabled when empty)")
	pflag.String("subject", cfg.Subject, "Subject name (defaults to the exam folder name)")
	pflag.Int("concurrency", cfg.Concurrency, "Number of exam sets processed at once in batch mode")
	pflag.String("policy", cfg.BatchPolicy, "Batch failure policy: 'continue' or 'halt'")
	pflag.String("answers", strings.Join(cfg.AnswerStrategies, ","), "Ordered answer extraction strategies")
	pflag.String("modifications", strings.Join(cfg.ModificationStrategies, ","), "Ordered errata extraction strategies")
	pflag.String("converter", cfg.ConverterCommand, "External PDF to markdown command; {input} is replaced by the file path")
	pflag.String("store", cfg.Store, "Artifact store: 'file' or 'mongo'")
	pflag.String("mongouri", cfg.MongoURI, "MongoDB connection URI (mongo store only)")
	pflag.String("mongodb", cfg.MongoDatabase, "MongoDB database name (mongo store only)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum document size in bytes")
}

var flagNames = []string{
	"mode", "host", "port", "dir", "out", "debugdir", "subject", "concurrency", "policy",
	"answers", "modifications", "converter", "store", "mongouri", "mongodb", "loglevel", "maxfilesize",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range flagNames {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Exam Reader - turns exam PDFs and answer keys into validated question sets\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/exams/physics                          # stdio MCP server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/exams/physics            # SSE server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=batch --dir=/exams/physics --out=/out  # process every set\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=batch --store=mongo --mongouri=mongodb://localhost:27017\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_EXAM_MODE, MCP_EXAM_HOST, MCP_EXAM_PORT, MCP_EXAM_DIR, MCP_EXAM_OUT,\n")
		fmt.Fprintf(os.Stderr, "  MCP_EXAM_DEBUGDIR, MCP_EXAM_SUBJECT, MCP_EXAM_CONCURRENCY, MCP_EXAM_POLICY,\n")
		fmt.Fprintf(os.Stderr, "  MCP_EXAM_ANSWERS, MCP_EXAM_MODIFICATIONS, MCP_EXAM_CONVERTER, MCP_EXAM_STORE,\n")
		fmt.Fprintf(os.Stderr, "  MCP_EXAM_MONGOURI, MCP_EXAM_MONGODB, MCP_EXAM_LOGLEVEL, MCP_EXAM_MAXFILESIZE\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.ExamDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("out")
	cfg.DebugDirectory = viper.GetString("debugdir")
	cfg.Subject = viper.GetString("subject")
	cfg.Concurrency = viper.GetInt("concurrency")
	cfg.BatchPolicy = viper.GetString("policy")
	cfg.AnswerStrategies = SplitList(viper.GetString("answers"))
	cfg.ModificationStrategies = SplitList(viper.GetString("modifications"))
	cfg.ConverterCommand = viper.GetString("converter")
	cfg.Store = viper.GetString("store")
	cfg.MongoURI = viper.GetString("mongouri")
	cfg.MongoDatabase = viper.GetString("mongodb")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) expandPaths() {
	for _, p := range []*string{&c.ExamDirectory, &c.OutputDirectory, &c.DebugDirectory} {
		if *p == "" {
			continue
		}
		if expanded, err := filepath.Abs(*p); err == nil {
			*p = expanded
		}
	}
}

// Validate checks if the configuration is valid and creates missing folders
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer && c.Mode != ModeBatch {
		return errors.New("mode must be one of 'stdio', 'server' or 'batch'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.ExamDirectory == "" {
		return errors.New("exam directory cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}

	if c.BatchPolicy != PolicyContinue && c.BatchPolicy != PolicyHalt {
		return fmt.Errorf("invalid batch policy: %s (must be one of: continue, halt)", c.BatchPolicy)
	}

	for _, name := range append(append([]string(nil), c.AnswerStrategies...), c.ModificationStrategies...) {
		if _, err := extract.Lookup(name); err != nil {
			return err
		}
	}

	switch c.Store {
	case StoreFile:
		if c.OutputDirectory == "" {
			return errors.New("output directory cannot be empty for the file store")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("mongo URI cannot be empty for the mongo store")
		}
		if c.MongoDatabase == "" {
			return errors.New("mongo database cannot be empty for the mongo store")
		}
	default:
		return fmt.Errorf("invalid store: %s (must be one of: file, mongo)", c.Store)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	for _, dir := range []struct{ name, path string }{
		{"exam", c.ExamDirectory},
		{"output", c.OutputDirectory},
		{"debug", c.DebugDirectory},
	} {
		if dir.path == "" {
			continue
		}
		if err := ensureDirectory(dir.path); err != nil {
			return fmt.Errorf("cannot prepare %s directory %s: %w", dir.name, dir.path, err)
		}
	}

	return nil
}

// ensureDirectory creates path if it does not exist
func ensureDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, DefaultDirPerm)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, ExamDirectory: %s, OutputDirectory: %s, "+
		"Store: %s, Concurrency: %d, BatchPolicy: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.ExamDirectory, c.OutputDirectory,
		c.Store, c.Concurrency, c.BatchPolicy, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server runs as an SSE server
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server runs over standard I/O
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsBatchMode returns true if the folder is processed once without serving
func (c *Config) IsBatchMode() bool {
	return c.Mode == ModeBatch
}
