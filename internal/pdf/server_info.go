package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/a3tai/mcp-exam-reader/internal/descriptions"
	"github.com/a3tai/mcp-exam-reader/internal/exam/extract"
)

// DirectoryCache provides TTL-based caching for directory contents
type DirectoryCache struct {
	entries map[string]*CacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

// CacheEntry represents a cached directory scan result
type CacheEntry struct {
	files      []FileInfo
	lastUpdate time.Time
	scanning   bool
}

// LazyDirectoryScanner lists exam documents with depth, count and time limits
type LazyDirectoryScanner struct {
	maxDepth   int
	fileLimit  int
	timeLimit  time.Duration
	skipHidden bool
}

// ScanResult represents the result of a directory scan
type ScanResult struct {
	Files        []FileInfo
	FromCache    bool
	ScanTime     time.Duration
	FilesScanned int
	Truncated    bool
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]*CacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves cached directory contents if valid
func (c *DirectoryCache) Get(path string) *CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[path]
	if !exists || entry.lastUpdate.IsZero() {
		return nil
	}
	if time.Since(entry.lastUpdate) > c.ttl {
		return nil
	}
	return entry
}

// Set stores directory contents in cache
func (c *DirectoryCache) Set(path string, files []FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = &CacheEntry{
		files:      files,
		lastUpdate: time.Now(),
	}
}

// SetScanning marks a directory as currently being scanned
func (c *DirectoryCache) SetScanning(path string, scanning bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[path]
	if !exists {
		c.entries[path] = &CacheEntry{scanning: scanning}
		return
	}
	entry.scanning = scanning
}

// IsScanning checks if a directory is currently being scanned
func (c *DirectoryCache) IsScanning(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[path]
	return exists && entry.scanning
}

// Invalidate drops the cached listing for path, e.g. after an artifact was written there.
func (c *DirectoryCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// NewLazyDirectoryScanner creates a new lazy directory scanner
func NewLazyDirectoryScanner(maxDepth, fileLimit int, timeLimit time.Duration) *LazyDirectoryScanner {
	return &LazyDirectoryScanner{
		maxDepth:   maxDepth,
		fileLimit:  fileLimit,
		timeLimit:  timeLimit,
		skipHidden: true,
	}
}

// ScanDirectory lists supported documents below root
func (s *LazyDirectoryScanner) ScanDirectory(ctx context.Context, root string) (*ScanResult, error) {
	start := time.Now()
	result := &ScanResult{Files: []FileInfo{}}
	visited := make(map[string]bool)

	err := s.scan(ctx, root, 0, visited, result, start)
	result.ScanTime = time.Since(start)
	return result, err
}

func (s *LazyDirectoryScanner) scan(ctx context.Context, path string, depth int,
	visited map[string]bool, result *ScanResult, start time.Time,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.maxDepth > 0 && depth >= s.maxDepth {
		return nil
	}
	if s.limitReached(result, start) {
		result.Truncated = true
		return nil
	}

	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil
	}
	if visited[realPath] {
		return nil
	}
	visited[realPath] = true

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.FilesScanned++

		if s.skipHidden && strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}

		entryPath := filepath.Join(path, entry.Name())
		if entry.IsDir() {
			if err := s.scan(ctx, entryPath, depth+1, visited, result, start); err != nil {
				return err
			}
			continue
		}
		if !IsSupported(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		result.Files = append(result.Files, FileInfo{
			Name:         entry.Name(),
			Path:         entryPath,
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		if s.limitReached(result, start) {
			result.Truncated = true
			return nil
		}
	}
	return nil
}

func (s *LazyDirectoryScanner) limitReached(result *ScanResult, start time.Time) bool {
	if s.fileLimit > 0 && len(result.Files) >= s.fileLimit {
		return true
	}
	return s.timeLimit > 0 && time.Since(start) > s.timeLimit
}

// ServerInfo builds the exam_server_info response
type ServerInfo struct {
	cache   *DirectoryCache
	scanner *LazyDirectoryScanner
	service *Service
}

// NewServerInfo creates a server info handler with a short-lived listing cache
func NewServerInfo(service *Service) *ServerInfo {
	return &ServerInfo{
		cache:   NewDirectoryCache(5 * time.Minute),
		scanner: NewLazyDirectoryScanner(2, 200, 3*time.Second),
		service: service,
	}
}

// GetServerInfo reports configuration, tools and the documents in the exam folder
func (p *ServerInfo) GetServerInfo(ctx context.Context, serverName, version, outputDirectory string) (*ExamServerInfoResult, error) {
	dir := p.service.guard.Root()

	files := []FileInfo{}
	if cached := p.cache.Get(dir); cached != nil {
		files = cached.files
	} else if !p.cache.IsScanning(dir) {
		p.cache.SetScanning(dir, true)
		scanned, err := p.scanner.ScanDirectory(ctx, dir)
		p.cache.SetScanning(dir, false)
		if err == nil {
			files = scanned.Files
			p.cache.Set(dir, files)
		}
	}

	sets := 0
	if recognized, err := p.service.search.RecognizeFileSets(ExamRecognizeSetsRequest{Directory: dir}); err == nil {
		sets = len(recognized.Sets)
	}

	return &ExamServerInfoResult{
		ServerName:       serverName,
		Version:          version,
		ExamDirectory:    dir,
		OutputDirectory:  outputDirectory,
		MaxFileSize:      p.service.maxFileSize,
		AnswerPolicy:     p.service.extractor.Policy(extract.RoleAnswers),
		ModPolicy:        p.service.extractor.Policy(extract.RoleModifications),
		AvailableTools:   p.getAvailableTools(),
		DirectorySets:    sets,
		DirectoryFiles:   files,
		UsageGuidance:    p.getUsageGuidance(),
		SupportedFormats: SupportedExtensions,
	}, nil
}

// ClearCache drops the cached listing of the exam folder
func (p *ServerInfo) ClearCache() {
	p.cache.Invalidate(p.service.guard.Root())
}

func (p *ServerInfo) getAvailableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "exam_recognize_sets",
			Description: descriptions.GetToolDescription("exam_recognize_sets"),
			Usage:       "List the question/answer/errata sets of a folder before processing.",
			Parameters:  "directory (optional): folder to scan (defaults to the exam directory), subject (optional): subject override",
		},
		{
			Name:        "exam_segment_questions",
			Description: descriptions.GetToolDescription("exam_segment_questions"),
			Usage:       "Inspect how a question paper is split into questions.",
			Parameters:  "path (required): question paper PDF",
		},
		{
			Name:        "exam_extract_answers",
			Description: descriptions.GetToolDescription("exam_extract_answers"),
			Usage:       "Read the answer mapping of an answer key or errata document.",
			Parameters:  "path (required): answer key or errata document, role (optional): answers or modifications",
		},
		{
			Name:        "exam_process_set",
			Description: descriptions.GetToolDescription("exam_process_set"),
			Usage:       "Produce and store the validated JSON artifact of one set.",
			Parameters:  "key (required): set key from exam_recognize_sets, directory (optional), subject (optional)",
		},
		{
			Name:        "exam_validate_file",
			Description: descriptions.GetToolDescription("exam_validate_file"),
			Usage:       "Check a document before using it in a set.",
			Parameters:  "path (required): document path",
		},
		{
			Name:        "exam_server_info",
			Description: descriptions.GetToolDescription("exam_server_info"),
			Usage:       "Get configuration and folder contents.",
			Parameters:  "No parameters required",
		},
	}
}

func (p *ServerInfo) getUsageGuidance() string {
	maxFileSizeMB := p.service.maxFileSize / (1024 * 1024)

	return fmt.Sprintf(`Exam Reader Usage Guide:

1. DISCOVER SETS:
   - Use 'exam_recognize_sets' to see which exams the folder holds
   - Files are grouped by the name part before the first underscore

2. CHECK INPUTS:
   - Use 'exam_validate_file' on documents that fail to open
   - Use 'exam_segment_questions' to inspect question splitting
   - Use 'exam_extract_answers' to inspect an answer key or errata document

3. PROCESS:
   - Use 'exam_process_set' with the set key
   - A set only succeeds when every question has an answer A-D

IMPORTANT NOTES:
- Question papers must be PDFs; answer keys and errata may be .pdf, .md, .txt or .xlsx
- The server can handle files up to %dMB
- Images that cannot be tied to a question are dropped`, maxFileSizeMB)
}
