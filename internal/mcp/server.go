package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-exam-reader/internal/config"
	"github.com/a3tai/mcp-exam-reader/internal/descriptions"
	"github.com/a3tai/mcp-exam-reader/internal/pdf"
	"github.com/a3tai/mcp-exam-reader/internal/pipeline"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	pipeline   *pipeline.Pipeline
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance. Processed sets are saved to
// store; a nil store builds and validates artifacts without saving them.
func NewServer(cfg *config.Config, pdfService *pdf.Service, store pipeline.Store) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		pipeline: pdfService.NewPipeline(store, pipeline.Options{
			DebugDirectory: cfg.DebugDirectory,
			Debug:          cfg.IsDebug(),
		}),
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	recognizeTool := mcp.NewTool(
		"exam_recognize_sets",
		mcp.WithDescription(descriptions.GetToolDescription("exam_recognize_sets")),
		mcp.WithString("directory",
			mcp.Description("Exam folder to scan (uses default if empty)"),
		),
		mcp.WithString("subject",
			mcp.Description("Subject name (defaults to the folder name)"),
		),
	)
	s.mcpServer.AddTool(recognizeTool, s.handleExamRecognizeSets)

	segmentTool := mcp.NewTool(
		"exam_segment_questions",
		mcp.WithDescription(descriptions.GetToolDescription("exam_segment_questions")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the question-paper PDF"),
		),
	)
	s.mcpServer.AddTool(segmentTool, s.handleExamSegmentQuestions)

	extractTool := mcp.NewTool(
		"exam_extract_answers",
		mcp.WithDescription(descriptions.GetToolDescription("exam_extract_answers")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the answer key or errata document"),
		),
		mcp.WithString("role",
			mcp.Description("'answers' (default) or 'modifications'"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleExamExtractAnswers)

	processTool := mcp.NewTool(
		"exam_process_set",
		mcp.WithDescription(descriptions.GetToolDescription("exam_process_set")),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Set key, the file name part before the first underscore"),
		),
		mcp.WithString("directory",
			mcp.Description("Exam folder containing the set (uses default if empty)"),
		),
		mcp.WithString("subject",
			mcp.Description("Subject name (defaults to the folder name)"),
		),
	)
	s.mcpServer.AddTool(processTool, s.handleExamProcessSet)

	validateTool := mcp.NewTool(
		"exam_validate_file",
		mcp.WithDescription(descriptions.GetToolDescription("exam_validate_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the document"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleExamValidateFile)

	infoTool := mcp.NewTool(
		"exam_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("exam_server_info")),
	)
	s.mcpServer.AddTool(infoTool, s.handleExamServerInfo)
}

// optionalString returns the named argument, or fallback when absent or empty.
func optionalString(request mcp.CallToolRequest, name, fallback string) string {
	if v, ok := request.GetArguments()[name].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// Handler functions
func (s *Server) handleExamRecognizeSets(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	req := pdf.ExamRecognizeSetsRequest{
		Directory: optionalString(request, "directory", s.config.ExamDirectory),
		Subject:   optionalString(request, "subject", s.config.Subject),
	}

	result, err := s.pdfService.ExamRecognizeSets(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(result.Sets) == 0 {
		responseText := fmt.Sprintf("No exam sets found in directory: %s", result.Directory)
		if len(result.Skipped) > 0 {
			responseText += fmt.Sprintf(" (%d files skipped)", len(result.Skipped))
		}
		return mcp.NewToolResultText(responseText), nil
	}

	return mcp.NewToolResultText(s.formatExamRecognizeSetsResult(result)), nil
}

func (s *Server) handleExamSegmentQuestions(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ExamSegment(ctx, pdf.ExamSegmentRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatExamSegmentResult(result)), nil
}

func (s *Server) handleExamExtractAnswers(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.ExamExtractRequest{Path: path, Role: optionalString(request, "role", "")}
	result, err := s.pdfService.ExamExtract(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatExamExtractResult(result)), nil
}

func (s *Server) handleExamProcessSet(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.ExamRecognizeSetsRequest{
		Directory: optionalString(request, "directory", s.config.ExamDirectory),
		Subject:   optionalString(request, "subject", s.config.Subject),
	}
	fs, err := s.pdfService.FindSet(req, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := s.pipeline.Process(ctx, fs)
	if err != nil {
		log.Printf("[MCP] processing %s failed: %v", fs.Name(), err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	// debug dumps and file-store artifacts may land inside the exam folder
	s.pdfService.ClearCache()

	return mcp.NewToolResultText(s.formatProcessReport(report)), nil
}

func (s *Server) handleExamValidateFile(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ExamValidateFile(pdf.ExamValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("✅ Valid %s document: %s", result.Kind, result.Path)
	} else {
		responseText = fmt.Sprintf("❌ Invalid document: %s\nReason: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleExamServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.ExamServerInfo(ctx, pdf.ExamServerInfoRequest{},
		s.config.ServerName, s.config.Version, s.config.OutputDirectory)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatExamServerInfoResult(result)), nil
}

// Formatting methods
func (s *Server) formatExamRecognizeSetsResult(result *pdf.ExamRecognizeSetsResult) string {
	text := fmt.Sprintf("Found %d exam sets for subject %q in %s:\n\n", len(result.Sets), result.Subject, result.Directory)

	for i, fs := range result.Sets {
		text += fmt.Sprintf("%d. %s\n", i+1, fs.Key)
		text += fmt.Sprintf("   Question paper: %s\n", fs.Question)
		text += fmt.Sprintf("   Answer key:     %s\n", fs.Answer)
		text += fmt.Sprintf("   Errata:         %s\n", fs.Modification)
	}

	if len(result.Skipped) > 0 {
		text += fmt.Sprintf("\nSkipped %d files:\n", len(result.Skipped))
		for _, name := range result.Skipped {
			text += fmt.Sprintf("   • %s\n", name)
		}
	}

	return text
}

func (s *Server) formatExamSegmentResult(result *pdf.ExamSegmentResult) string {
	text := fmt.Sprintf("Segmented %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d, Questions: %d, Images: %d", result.Pages, result.QuestionCount, result.Images)
	if result.Dropped > 0 {
		text += fmt.Sprintf(" (%d dropped)", result.Dropped)
	}
	text += "\n\n"

	for _, q := range result.Questions {
		text += fmt.Sprintf("%d. %s\n", q.ID, q.Question)
		letters := make([]string, 0, len(q.Options))
		for letter := range q.Options {
			letters = append(letters, letter)
		}
		sort.Strings(letters)
		for _, letter := range letters {
			text += fmt.Sprintf("   %s. %s\n", letter, q.Options[letter])
		}
		if q.Images > 0 {
			text += fmt.Sprintf("   [%d image(s)]\n", q.Images)
		}
	}

	if len(result.Warnings) > 0 {
		text += fmt.Sprintf("\n⚠️  %d layout warnings:\n", len(result.Warnings))
		for _, w := range result.Warnings {
			text += fmt.Sprintf("   • %s\n", w)
		}
	}

	return text
}

func (s *Server) formatExamExtractResult(result *pdf.ExamExtractResult) string {
	if result.Count == 0 {
		return fmt.Sprintf("No %s found in %s: %s", result.Role, result.Path, result.Message)
	}

	text := fmt.Sprintf("Extracted %d %s from %s using %s:\n", result.Count, result.Role, result.Path, result.Strategy)

	ids := make([]string, 0, len(result.Values))
	for id := range result.Values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		text += fmt.Sprintf("  %s: %s\n", id, result.Values[id])
	}

	return text
}

func (s *Server) formatProcessReport(report *pipeline.Report) string {
	text := fmt.Sprintf("✅ Processed %s/%s in %d ms\n", report.Subject, report.Key, report.DurationMsec)
	text += fmt.Sprintf("Questions: %d, Images: %d", report.Questions, report.Images)
	if report.Dropped > 0 {
		text += fmt.Sprintf(" (%d dropped)", report.Dropped)
	}
	text += "\n"
	text += fmt.Sprintf("Answer source: %s", report.Source)
	if report.AnswerBy != "" {
		text += fmt.Sprintf(" (answers via %s", report.AnswerBy)
		if report.ModBy != "" {
			text += fmt.Sprintf(", errata via %s", report.ModBy)
		}
		text += ")"
	}
	text += "\n"
	if report.Location != "" {
		text += fmt.Sprintf("Saved to: %s\n", report.Location)
	}
	if len(report.Warnings) > 0 {
		text += fmt.Sprintf("\n⚠️  %d warnings:\n", len(report.Warnings))
		for _, w := range report.Warnings {
			text += fmt.Sprintf("   • %s\n", w)
		}
	}
	return text
}

func (s *Server) formatExamServerInfoResult(result *pdf.ExamServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Exam Directory: %s\n", result.ExamDirectory)
	if result.OutputDirectory != "" {
		text += fmt.Sprintf("📦 Output Directory: %s\n", result.OutputDirectory)
	}
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🔎 Answer strategies: %s\n", strings.Join(result.AnswerPolicy, " → "))
	text += fmt.Sprintf("🔎 Errata strategies: %s\n\n", strings.Join(result.ModPolicy, " → "))

	if len(result.DirectoryFiles) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d exam sets, %d documents):\n",
			result.DirectorySets, len(result.DirectoryFiles))
		for i, file := range result.DirectoryFiles {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryFiles)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No exam documents found in default directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	if len(result.SupportedFormats) > 0 {
		text += "\n📄 Supported Formats:\n"
		for _, format := range result.SupportedFormats {
			text += fmt.Sprintf("  • %s\n", format)
		}
	}

	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	switch {
	case s.config.IsServerMode():
		return s.runServerMode(ctx)
	case s.config.IsStdioMode():
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("mode %q does not serve MCP", s.config.Mode)
	}
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting exam MCP server in stdio mode")
		log.Printf("Exam directory: %s", s.config.ExamDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting exam MCP server in SSE mode on %s", addr)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve SSE: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down SSE server: %w", err)
		}
		log.Printf("SSE server stopped")
		return nil
	}
}
