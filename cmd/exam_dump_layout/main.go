package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-exam-reader/internal/config"
	"github.com/a3tai/mcp-exam-reader/internal/exam/segment"
	"github.com/a3tai/mcp-exam-reader/internal/pdf"
)

var (
	outputFormat = pflag.String("format", "text", "Output format: text, json")
	segmentPages = pflag.Bool("segment", false, "Also split the paper into questions")
	verbose      = pflag.Bool("verbose", false, "Log layout details while reading")
	maxFileSize  = pflag.Int64("maxfilesize", config.DefaultMaxFileSize, "Maximum PDF file size in bytes")
	help         = pflag.Bool("help", false, "Show help message")
)

func main() {
	pflag.Usage = printHelp
	pflag.Parse()

	if *help {
		printHelp()
		return
	}

	if pflag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	result, err := dumpLayout(context.Background(), pflag.Arg(0), *maxFileSize, *segmentPages, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading layout: %v\n", err)
		os.Exit(1)
	}

	if err := outputResults(os.Stdout, result, *outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("Exam Dump Layout - show how a question paper is read")
	fmt.Println()
	fmt.Println("Prints the positioned text lines and images of every page, the input the")
	fmt.Println("question segmenter works from. Use it when questions come out merged or split.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	pflag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  exam_dump_layout 2023_exam.pdf")
	fmt.Println("  exam_dump_layout --segment --format json physics/2023_exam.pdf")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  exam_dump_layout [OPTIONS] <pdf_file>")
}

// LineDump is one text line with its position
type LineDump struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// ImageDump is one placed image
type ImageDump struct {
	Y      float64 `json:"y"`
	Bottom float64 `json:"bottom"`
	Format string  `json:"format"`
	Bytes  int     `json:"bytes"`
}

// PageDump is the layout of one page
type PageDump struct {
	Number int         `json:"number"`
	Bottom float64     `json:"bottom"`
	Lines  []LineDump  `json:"lines"`
	Images []ImageDump `json:"images,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// LayoutResult is the complete dump of one PDF
type LayoutResult struct {
	FilePath  string                `json:"file_path"`
	PageCount int                   `json:"page_count"`
	Pages     []PageDump            `json:"pages"`
	Questions []pdf.QuestionSummary `json:"questions,omitempty"`
	Warnings  []string              `json:"warnings,omitempty"`
}

func dumpLayout(ctx context.Context, path string, maxSize int64, withQuestions, debug bool) (*LayoutResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	doc, err := pdf.NewLayoutReader(maxSize, debug).Open(absPath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	result := &LayoutResult{FilePath: doc.Path(), PageCount: doc.PageCount()}
	for n := 1; n <= doc.PageCount(); n++ {
		dump := PageDump{Number: n}
		page, err := doc.Page(n)
		if err != nil {
			dump.Error = err.Error()
			result.Pages = append(result.Pages, dump)
			continue
		}
		dump.Bottom = page.Bottom
		for _, line := range page.Lines {
			dump.Lines = append(dump.Lines, LineDump{X: line.X, Y: line.Y, Text: line.Text})
		}
		for _, img := range page.Images {
			dump.Images = append(dump.Images, ImageDump{
				Y:      img.Rect.Y0,
				Bottom: img.Rect.Y1,
				Format: img.MIMEType,
				Bytes:  len(img.Data),
			})
		}
		result.Pages = append(result.Pages, dump)
	}

	if !withQuestions {
		return result, nil
	}

	seg, err := segment.NewSegmenter(debug).Segment(ctx, doc)
	if err != nil {
		return nil, err
	}
	for _, q := range seg.Questions {
		result.Questions = append(result.Questions, pdf.QuestionSummary{
			ID:       q.ID,
			Question: q.Question,
			Options:  q.Options,
			Images:   len(q.Images),
		})
	}
	for _, w := range seg.Warnings {
		result.Warnings = append(result.Warnings, w.Error())
	}
	return result, nil
}

func outputResults(w io.Writer, result *LayoutResult, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		return outputText(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func outputText(w io.Writer, result *LayoutResult) error {
	fmt.Fprintf(w, "📄 %s (%d pages)\n\n", result.FilePath, result.PageCount)

	for _, page := range result.Pages {
		fmt.Fprintf(w, "── Page %d (bottom %.1f) ──\n", page.Number, page.Bottom)
		if page.Error != "" {
			fmt.Fprintf(w, "  ❌ %s\n\n", page.Error)
			continue
		}
		for _, line := range page.Lines {
			fmt.Fprintf(w, "  %7.1f %7.1f  %s\n", line.Y, line.X, line.Text)
		}
		for _, img := range page.Images {
			fmt.Fprintf(w, "  🖼️  image %s, %d bytes, y %.1f to %.1f\n", img.Format, img.Bytes, img.Y, img.Bottom)
		}
		fmt.Fprintln(w)
	}

	if len(result.Questions) > 0 {
		fmt.Fprintf(w, "✅ %d questions\n", len(result.Questions))
		for _, q := range result.Questions {
			fmt.Fprintf(w, "  [%d] %s (%d options, %d images)\n", q.ID, q.Question, len(q.Options), q.Images)
		}
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  ⚠️  %s\n", warning)
	}
	return nil
}
