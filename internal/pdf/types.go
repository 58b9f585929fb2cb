package pdf

import "github.com/a3tai/mcp-exam-reader/internal/exam"

// FileInfo represents information about an exam document
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// ExamRecognizeSetsRequest asks for the FileSets in a folder
type ExamRecognizeSetsRequest struct {
	Directory string `json:"directory"`
	Subject   string `json:"subject,omitempty"`
}

// ExamValidateFileRequest represents a request to validate an exam document
type ExamValidateFileRequest struct {
	Path string `json:"path"`
}

// ExamSegmentRequest asks for the questions of one question PDF
type ExamSegmentRequest struct {
	Path string `json:"path"`
}

// ExamExtractRequest asks for the answer or modification mapping of one document
type ExamExtractRequest struct {
	Path string `json:"path"`
	Role string `json:"role,omitempty"`
}

// ExamServerInfoRequest represents a request for server information
type ExamServerInfoRequest struct{}

// Response Types

// QuestionSummary is a compact view of a segmented question
type QuestionSummary struct {
	ID       int               `json:"id"`
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Images   int               `json:"images"`
}

// ExamSegmentResult is the outcome of segmenting one question paper
type ExamSegmentResult struct {
	Path          string            `json:"path"`
	Pages         int               `json:"pages"`
	QuestionCount int               `json:"question_count"`
	Questions     []QuestionSummary `json:"questions"`
	Images        int               `json:"images"`
	Dropped       int               `json:"dropped_images"`
	Warnings      []string          `json:"warnings,omitempty"`
}

// ExamExtractResult is the mapping read from an answer key or errata document
type ExamExtractResult struct {
	Path     string            `json:"path"`
	Role     string            `json:"role"`
	Strategy string            `json:"strategy,omitempty"`
	Count    int               `json:"count"`
	Values   map[string]string `json:"values"`
	Message  string            `json:"message,omitempty"`
}

// ExamRecognizeSetsResult lists the recognized FileSets
type ExamRecognizeSetsResult struct {
	Directory string         `json:"directory"`
	Subject   string         `json:"subject"`
	Sets      []exam.FileSet `json:"sets"`
	Skipped   []string       `json:"skipped,omitempty"`
}

// ExamValidateFileResult represents the result of a validation operation
type ExamValidateFileResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// ExamServerInfoResult represents server information and usage guidance
type ExamServerInfoResult struct {
	ServerName       string     `json:"server_name"`
	Version          string     `json:"version"`
	ExamDirectory    string     `json:"exam_directory"`
	OutputDirectory  string     `json:"output_directory"`
	MaxFileSize      int64      `json:"max_file_size"`
	AnswerPolicy     []string   `json:"answer_policy"`
	ModPolicy        []string   `json:"modification_policy"`
	AvailableTools   []ToolInfo `json:"available_tools"`
	DirectorySets    int        `json:"directory_sets"`
	DirectoryFiles   []FileInfo `json:"directory_files"`
	UsageGuidance    string     `json:"usage_guidance"`
	SupportedFormats []string   `json:"supported_formats"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}
