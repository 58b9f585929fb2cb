// Package pipeline runs exam FileSets through segmentation, extraction,
// reconciliation and persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
	"github.com/a3tai/mcp-exam-reader/internal/exam/extract"
	"github.com/a3tai/mcp-exam-reader/internal/exam/reconcile"
	"github.com/a3tai/mcp-exam-reader/internal/exam/segment"
)

// Converter turns an answer-key or errata document into text.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// Store persists a validated artifact and reports where it went. Save must
// only return success once the stored form has been reloaded and validated.
type Store interface {
	Save(ctx context.Context, fs exam.FileSet, out *exam.CombinedOutput) (string, error)
}

// Document is an open question paper.
type Document interface {
	segment.Document
	Close() error
}

// Opener opens question papers.
type Opener interface {
	OpenDocument(path string) (Document, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Document, error)

// OpenDocument calls f.
func (f OpenerFunc) OpenDocument(path string) (Document, error) {
	return f(path)
}

// Options configures a Pipeline.
type Options struct {
	// DebugDirectory receives questions_<base>.json after segmentation when set.
	DebugDirectory string
	Debug          bool
	// Segmenter splits question papers; nil builds one from Debug.
	Segmenter      *segment.Segmenter
}

// Report describes one processed FileSet.
type Report struct {
	Key          string   `json:"key"`
	Subject      string   `json:"subject"`
	Questions    int      `json:"questions"`
	Images       int      `json:"images"`
	Dropped      int      `json:"dropped_images"`
	Source       string   `json:"answer_source,omitempty"`
	AnswerBy     string   `json:"answer_strategy,omitempty"`
	ModBy        string   `json:"modification_strategy,omitempty"`
	Location     string   `json:"location,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Error        string   `json:"error,omitempty"`
	ErrorType    string   `json:"error_type,omitempty"`
	DurationMsec int64    `json:"duration_ms"`
}

func (r *Report) fail(err error) {
	r.Error = err.Error()
	if t := exam.TypeOf(err); t != exam.ErrorTypeUnknown {
		r.ErrorType = t.String()
	}
}

// Pipeline processes one FileSet at a time. It holds no per-set state, so a
// single Pipeline may be shared by concurrent batch workers.
type Pipeline struct {
	opener    Opener
	converter Converter
	segmenter *segment.Segmenter
	extractor *extract.Extractor
	store     Store
	opts      Options
}

// New creates a pipeline. A nil extractor uses the default policies.
func New(opener Opener, converter Converter, extractor *extract.Extractor, store Store, opts Options) *Pipeline {
	if extractor == nil {
		extractor = extract.DefaultExtractor()
	}
	segmenter := opts.Segmenter
	if segmenter == nil {
		segmenter = segment.NewSegmenter(opts.Debug)
	}
	return &Pipeline{
		opener:    opener,
		converter: converter,
		segmenter: segmenter,
		extractor: extractor,
		store:     store,
		opts:      opts,
	}
}

// Process runs one FileSet end to end. Nothing is stored unless every stage
// succeeds. The report is filled as far as processing got, also on error.
func (p *Pipeline) Process(ctx context.Context, fs exam.FileSet) (*Report, error) {
	start := time.Now()
	out, report, err := p.Build(ctx, fs)
	defer func() { report.DurationMsec = time.Since(start).Milliseconds() }()
	if err != nil {
		return report, err
	}

	if p.store != nil {
		location, err := p.store.Save(ctx, fs, out)
		if err != nil {
			err = annotate(err, fs)
			report.fail(err)
			return report, err
		}
		report.Location = location
	}

	log.Printf("[Pipeline] %s: %d questions, answers from %s", fs.Name(), report.Questions, report.Source)
	return report, nil
}

// Build runs every stage except persistence and returns the validated,
// round-tripped artifact.
func (p *Pipeline) Build(ctx context.Context, fs exam.FileSet) (*exam.CombinedOutput, *Report, error) {
	report := &Report{Key: fs.Key, Subject: fs.Subject}
	out, err := p.build(ctx, fs, report)
	if err != nil {
		report.fail(err)
		return nil, report, err
	}
	return out, report, nil
}

func (p *Pipeline) build(ctx context.Context, fs exam.FileSet, report *Report) (*exam.CombinedOutput, error) {
	questionPath, ok := fs.Question.Get()
	if !ok {
		return nil, exam.NewError(exam.ErrorTypeMissingInput, "no question paper").WithFileSet(fs.Name())
	}

	seg, err := p.segment(ctx, questionPath)
	if err != nil {
		return nil, annotate(err, fs)
	}
	report.Questions = len(seg.Questions)
	report.Images = seg.Images
	report.Dropped = seg.Dropped
	for _, w := range seg.Warnings {
		report.Warnings = append(report.Warnings, w.Error())
	}
	p.dumpQuestions(questionPath, seg.Questions)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	answers, err := p.extract(ctx, fs.Answer, extract.RoleAnswers, &report.AnswerBy)
	if err != nil {
		return nil, annotate(err, fs)
	}
	mods, err := p.extract(ctx, fs.Modification, extract.RoleModifications, &report.ModBy)
	if err != nil {
		return nil, annotate(err, fs)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved, source, err := reconcile.Resolve(seg.Questions, answers, mods)
	if err != nil {
		return nil, annotate(err, fs)
	}
	report.Source = string(source)

	out, err := reconcile.Apply(fs.Subject, fs.Key, seg.Questions, resolved, mods)
	if err != nil {
		return nil, annotate(err, fs)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := reconcile.RoundTrip(out); err != nil {
		return nil, annotate(err, fs)
	}
	return out, nil
}

func (p *Pipeline) segment(ctx context.Context, path string) (*segment.Result, error) {
	doc, err := p.opener.OpenDocument(path)
	if err != nil {
		return nil, exam.NewError(exam.ErrorTypeMissingInput, "cannot open question paper %s", filepath.Base(path)).Wrap(err)
	}
	defer doc.Close()
	return p.segmenter.Segment(ctx, doc)
}

// extract converts and extracts one optional document. An absent document
// and an empty extraction both yield an empty map; reconciliation decides
// whether that is fatal.
func (p *Pipeline) extract(ctx context.Context, path exam.Path, role extract.Role, strategy *string) (map[string]string, error) {
	docPath, ok := path.Get()
	if !ok {
		return map[string]string{}, nil
	}

	text, err := p.converter.Convert(ctx, docPath)
	if err != nil {
		return nil, err
	}

	res, err := p.extractor.Extract(text, role)
	if err != nil && !errors.Is(err, exam.ErrExtractionEmpty) {
		return nil, err
	}
	if err != nil && p.opts.Debug {
		log.Printf("[Pipeline] %s: %v", filepath.Base(docPath), err)
	}
	*strategy = res.Strategy
	return res.Values, nil
}

// dumpQuestions writes questions_<base>.json into the debug directory.
func (p *Pipeline) dumpQuestions(path string, questions []*exam.Question) {
	if p.opts.DebugDirectory == "" {
		return
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(p.opts.DebugDirectory, fmt.Sprintf("questions_%s.json", base))

	data, err := json.MarshalIndent(questions, "", "  ")
	if err == nil {
		err = os.WriteFile(out, data, 0o600)
	}
	if err != nil {
		log.Printf("[Pipeline] cannot write debug dump %s: %v", out, err)
	}
}

// annotate tags typed errors with the FileSet name.
func annotate(err error, fs exam.FileSet) error {
	var typed *exam.Error
	if errors.As(err, &typed) && typed.FileSet == "" {
		return typed.WithFileSet(fs.Name())
	}
	return err
}
