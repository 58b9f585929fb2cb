package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/a3tai/mcp-exam-reader/internal/config"
	"github.com/a3tai/mcp-exam-reader/internal/mcp"
	"github.com/a3tai/mcp-exam-reader/internal/pdf"
	"github.com/a3tai/mcp-exam-reader/internal/pipeline"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const storeTimeout = 10 * time.Second

// setupLogging configures logging based on the run mode
func setupLogging(cfg *config.Config) {
	switch {
	case cfg.IsStdioMode():
		// stdout carries the MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	case cfg.IsBatchMode():
		// stdout carries the batch summary
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	default:
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// openStore returns the configured artifact store and a function releasing it
func openStore(ctx context.Context, cfg *config.Config) (pipeline.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		store, err := pipeline.ConnectMongoStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		release := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				log.Printf("Failed to close MongoDB store: %v", err)
			}
		}
		return store, release, nil
	default:
		store, err := pipeline.NewFileStore(cfg.OutputDirectory)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

// newService builds the exam service from the configuration
func newService(cfg *config.Config) (*pdf.Service, error) {
	svc, err := pdf.NewService(pdf.ServiceOptions{
		MaxFileSize:        cfg.MaxFileSize,
		Directory:          cfg.ExamDirectory,
		ConverterCommand:   cfg.ConverterCommand,
		DebugDirectory:     cfg.DebugDirectory,
		Debug:              cfg.IsDebug(),
		AnswerPolicy:       cfg.AnswerStrategies,
		ModificationPolicy: cfg.ModificationStrategies,
	})
	if err != nil {
		return nil, err
	}
	if err := svc.ValidateConfiguration(); err != nil {
		return nil, err
	}
	return svc, nil
}

// batchSummary is printed to stdout after a batch run
type batchSummary struct {
	Directory string             `json:"directory"`
	Subject   string             `json:"subject"`
	Sets      int                `json:"sets"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Skipped   int                `json:"skipped"`
	Ignored   []string           `json:"ignored_files,omitempty"`
	Reports   []*pipeline.Report `json:"reports"`
	Error     string             `json:"error,omitempty"`
}

// runBatch recognizes every set in the exam folder, processes them and
// writes a JSON summary to w.
func runBatch(ctx context.Context, cfg *config.Config, svc *pdf.Service, store pipeline.Store, w io.Writer) (
	*batchSummary, error,
) {
	recognized, err := svc.ExamRecognizeSets(pdf.ExamRecognizeSetsRequest{
		Directory: cfg.ExamDirectory,
		Subject:   cfg.Subject,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Batch] %d sets for subject %q in %s", len(recognized.Sets), recognized.Subject, recognized.Directory)

	p := svc.NewPipeline(store, pipeline.Options{
		DebugDirectory: cfg.DebugDirectory,
		Debug:          cfg.IsDebug(),
	})
	batch, err := pipeline.NewBatch(p, cfg.Concurrency, cfg.BatchPolicy)
	if err != nil {
		return nil, err
	}

	result, runErr := batch.Run(ctx, recognized.Sets)
	summary := &batchSummary{
		Directory: recognized.Directory,
		Subject:   recognized.Subject,
		Sets:      len(recognized.Sets),
		Ignored:   recognized.Skipped,
	}
	if result != nil {
		summary.Succeeded = result.Succeeded
		summary.Failed = result.Failed
		summary.Skipped = result.Skipped
		summary.Reports = result.Reports
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return summary, fmt.Errorf("failed to write summary: %w", err)
	}
	return summary, runErr
}

// runBatchMode processes the folder once and exits non-zero when any set failed
func runBatchMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, svc *pdf.Service,
	store pipeline.Store,
) int {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	go func() {
		select {
		case sig := <-signalCh:
			log.Printf("Received signal: %s, cancelling batch", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, err := runBatch(ctx, cfg, svc, store, os.Stdout)
	if err != nil {
		log.Printf("Batch failed: %v", err)
		return 1
	}
	if summary.Failed > 0 {
		log.Printf("Batch finished with %d failed sets", summary.Failed)
		return 1
	}
	return 0
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) int {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		if err := <-serverErrCh; err != nil {
			log.Printf("Server shutdown with error: %v", err)
			return 1
		}

	case err := <-serverErrCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			return 1
		}
	}

	log.Println("Server stopped successfully")
	return 0
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, _ context.CancelFunc, server *mcp.Server) int {
	// The parent process controls our lifecycle
	if err := server.Run(ctx); err != nil {
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}

func run() int {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return 0
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && !cfg.IsStdioMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	svc, err := newService(cfg)
	if err != nil {
		log.Printf("Failed to create exam service: %v", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, release, err := openStore(ctx, cfg)
	if err != nil {
		log.Printf("Failed to open %s store: %v", cfg.Store, err)
		return 1
	}
	defer release()

	if cfg.IsBatchMode() {
		return runBatchMode(ctx, cancel, cfg, svc, store)
	}

	server, err := mcp.NewServer(cfg, svc, store)
	if err != nil {
		log.Printf("Failed to create MCP server: %v", err)
		return 1
	}

	if cfg.IsServerMode() {
		return runServerMode(ctx, cancel, server)
	}
	return runStdioMode(ctx, cancel, server)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP Exam Reader\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
