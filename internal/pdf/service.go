package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
	"github.com/a3tai/mcp-exam-reader/internal/exam/extract"
	"github.com/a3tai/mcp-exam-reader/internal/exam/segment"
	"github.com/a3tai/mcp-exam-reader/internal/pdf/security"
	"github.com/a3tai/mcp-exam-reader/internal/pipeline"
)

// ServiceOptions configures a Service
type ServiceOptions struct {
	MaxFileSize        int64
	Directory          string
	ConverterCommand   string
	DebugDirectory     string
	Debug              bool
	AnswerPolicy       []string
	ModificationPolicy []string
}

// Service handles exam document operations by orchestrating the PDF components
type Service struct {
	maxFileSize int64
	validator   *Validator
	search      *Search
	layout      *LayoutReader
	converter   *Converter
	segmenter   *segment.Segmenter
	extractor   *extract.Extractor
	guard       *security.FolderGuard
	info        *ServerInfo
}

// NewService creates a new exam document service with all components
func NewService(opts ServiceOptions) (*Service, error) {
	guard, err := security.NewFolderGuard(opts.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create folder guard: %w", err)
	}

	extractor, err := extract.NewExtractor(opts.AnswerPolicy, opts.ModificationPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	s := &Service{
		maxFileSize: opts.MaxFileSize,
		validator:   NewValidator(opts.MaxFileSize),
		search:      NewSearch(opts.MaxFileSize),
		layout:      NewLayoutReader(opts.MaxFileSize, opts.Debug),
		converter:   NewConverter(opts.MaxFileSize, opts.ConverterCommand, opts.DebugDirectory),
		segmenter:   segment.NewSegmenter(opts.Debug),
		extractor:   extractor,
		guard:       guard,
	}
	s.info = NewServerInfo(s)
	return s, nil
}

// ExamRecognizeSets groups the documents of a folder into FileSets
func (s *Service) ExamRecognizeSets(req ExamRecognizeSetsRequest) (*ExamRecognizeSetsResult, error) {
	if req.Directory == "" {
		req.Directory = s.guard.Root()
	}
	if err := s.guard.CheckDirectory(req.Directory); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.search.RecognizeFileSets(req)
}

// ExamValidateFile checks one document
func (s *Service) ExamValidateFile(req ExamValidateFileRequest) (*ExamValidateFileResult, error) {
	path, err := s.ResolvePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path
	return s.validator.ValidateFile(req)
}

// ExamSegment splits one question paper into questions
func (s *Service) ExamSegment(ctx context.Context, req ExamSegmentRequest) (*ExamSegmentResult, error) {
	path, err := s.ResolvePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path

	doc, err := s.layout.Open(req.Path)
	if err != nil {
		return nil, exam.NewError(exam.ErrorTypeMissingInput, "cannot open question paper").Wrap(err)
	}
	defer doc.Close()

	res, err := s.segmenter.Segment(ctx, doc)
	if err != nil {
		return nil, err
	}

	result := &ExamSegmentResult{
		Path:          req.Path,
		Pages:         res.Pages,
		QuestionCount: len(res.Questions),
		Questions:     make([]QuestionSummary, 0, len(res.Questions)),
		Images:        res.Images,
		Dropped:       res.Dropped,
	}
	for _, q := range res.Questions {
		result.Questions = append(result.Questions, QuestionSummary{
			ID:       q.ID,
			Question: q.Question,
			Options:  q.Options,
			Images:   len(q.Images),
		})
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, w.Error())
	}
	return result, nil
}

// ExamExtract reads the answer or modification mapping of one document. An
// empty mapping is reported in the result rather than as an error.
func (s *Service) ExamExtract(ctx context.Context, req ExamExtractRequest) (*ExamExtractResult, error) {
	path, err := s.ResolvePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = path

	role, err := ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	text, err := s.converter.Convert(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	extracted, err := s.extractor.Extract(text, role)
	result := &ExamExtractResult{
		Path:     req.Path,
		Role:     role.String(),
		Strategy: extracted.Strategy,
		Count:    len(extracted.Values),
		Values:   extracted.Values,
	}
	if errors.Is(err, exam.ErrExtractionEmpty) {
		result.Message = err.Error()
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ParseRole maps a role name to an extraction role. Empty means answers.
func ParseRole(name string) (extract.Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "answer", "answers":
		return extract.RoleAnswers, nil
	case "modification", "modifications", "mod", "errata":
		return extract.RoleModifications, nil
	default:
		return extract.RoleAnswers, fmt.Errorf("unknown role %q (expected answers or modifications)", name)
	}
}

// FindSet recognizes the folder and returns the FileSet with the given key
func (s *Service) FindSet(req ExamRecognizeSetsRequest, key string) (exam.FileSet, error) {
	result, err := s.ExamRecognizeSets(req)
	if err != nil {
		return exam.FileSet{}, err
	}
	for _, fs := range result.Sets {
		if fs.Key == key {
			return fs, nil
		}
	}
	return exam.FileSet{}, exam.NewError(exam.ErrorTypeMissingInput,
		"no exam set with key %q in %s", key, result.Directory)
}

// NewPipeline wires the service's layout reader, converter, segmenter and
// extractor into a pipeline that saves to store.
func (s *Service) NewPipeline(store pipeline.Store, opts pipeline.Options) *pipeline.Pipeline {
	opener := pipeline.OpenerFunc(func(path string) (pipeline.Document, error) {
		doc, err := s.layout.Open(path)
		if err != nil {
			return nil, err
		}
		return doc, nil
	})
	if opts.Segmenter == nil {
		opts.Segmenter = s.segmenter
	}
	return pipeline.New(opener, s.converter, s.extractor, store, opts)
}

// ExamServerInfo returns server information and usage guidance
func (s *Service) ExamServerInfo(ctx context.Context, _ ExamServerInfoRequest, serverName, version,
	outputDirectory string,
) (*ExamServerInfoResult, error) {
	return s.info.GetServerInfo(ctx, serverName, version, outputDirectory)
}

// Extractor returns the configured extractor
func (s *Service) Extractor() *extract.Extractor {
	return s.extractor
}

// ResolvePath anchors relative paths at the exam directory and rejects
// paths outside it
func (s *Service) ResolvePath(path string) (string, error) {
	return s.guard.Resolve(path)
}

// ClearCache drops the cached folder listing
func (s *Service) ClearCache() {
	s.info.ClearCache()
}

// ValidateConfiguration validates the service configuration
func (s *Service) ValidateConfiguration() error {
	if s.maxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be greater than 0")
	}

	if s.maxFileSize > 1024*1024*1024 { // 1GB limit
		return fmt.Errorf("maxFileSize cannot exceed 1GB")
	}

	return nil
}
