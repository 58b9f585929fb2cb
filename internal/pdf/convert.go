package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// inputPlaceholder is replaced by the document path in converter commands.
const inputPlaceholder = "{input}"

// Converter turns answer-key and errata documents into text the extractor
// can read. PDFs go through an optional external markdown converter and fall
// back to native row-ordered text; spreadsheets become pipe tables; markdown
// and text files are read as-is.
type Converter struct {
	reader   *Reader
	command  []string
	debugDir string
}

// NewConverter creates a converter. command may be empty; when set it is
// split on whitespace and {input} is replaced by the file path, or the path
// is appended if there is no placeholder.
func NewConverter(maxFileSize int64, command, debugDir string) *Converter {
	return &Converter{
		reader:   NewReader(maxFileSize),
		command:  strings.Fields(command),
		debugDir: debugDir,
	}
}

// Convert returns the document text. Failures are ConversionFailed errors.
func (c *Converter) Convert(ctx context.Context, path string) (string, error) {
	text, err := c.convert(ctx, path)
	if err != nil {
		return "", exam.NewError(exam.ErrorTypeConversionFailed, "cannot convert %s", filepath.Base(path)).Wrap(err)
	}
	c.dump(path, text)
	return text, nil
}

func (c *Converter) convert(ctx context.Context, path string) (string, error) {
	switch Kind(path) {
	case KindMarkdown, KindText:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case KindSheet:
		return renderWorkbook(path)
	case KindPDF:
		if len(c.command) > 0 {
			text, err := c.runCommand(ctx, path)
			if err == nil && strings.TrimSpace(text) != "" {
				return text, nil
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Printf("[Convert] external converter failed for %s, using native text: %v", path, err)
		}
		return c.reader.ReadText(path)
	default:
		return "", fmt.Errorf("unsupported document type %q", Kind(path))
	}
}

func (c *Converter) runCommand(ctx context.Context, path string) (string, error) {
	args := make([]string, 0, len(c.command))
	substituted := false
	for _, a := range c.command[1:] {
		if strings.Contains(a, inputPlaceholder) {
			a = strings.ReplaceAll(a, inputPlaceholder, path)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, path)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command[0], args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", c.command[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// dump writes <base>.md into the debug directory when one is configured.
func (c *Converter) dump(path, text string) {
	if c.debugDir == "" {
		return
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(c.debugDir, base+".md")
	if err := os.WriteFile(out, []byte(text), 0o600); err != nil {
		log.Printf("[Convert] cannot write debug dump %s: %v", out, err)
	}
}
