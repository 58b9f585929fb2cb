package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	ExamRecognizeSetsDescription = `Group the documents of an exam folder into question/answer/errata sets.

**When to use:** Start of every session. Shows which exams a folder contains and which documents belong together.

**How files are grouped:** The part of the file name before the first underscore is the set key. Names containing "ans" are answer keys, names containing "mod" are errata documents, everything else is the question paper. Question papers must be PDFs; answer keys and errata may also be .md, .txt or .xlsx exports.

**Examples:**
• "List the exams in /data/physics" → sets 2023, 2024 with their answer keys
• "Which sets have no errata?" → look for an empty modification path

**Best practices:** Pass subject to override the folder name used as subject in the output.`

	ExamSegmentQuestionsDescription = `Split a question-paper PDF into numbered questions with options and images.

**When to use:** Inspect how a paper is read before processing the whole set, or debug a paper whose questions come out wrong.

**What you get:** Questions in order with id, body text, options A-D and the number of images attached to each. Layout irregularities are reported as warnings; they never abort segmentation.

**Examples:**
• "Show the questions in 2023_exam.pdf"
• "Why does question 14 contain the text of question 15?" → check warnings

**Best practices:** Questions are numbered from 1. A paper starting at another number yields no questions.`

	ExamExtractAnswersDescription = `Read the answer mapping from an answer key or errata document.

**When to use:** Check that an answer key is readable before processing, or see which extraction strategy matched.

**Strategies:** Answer keys try table-first, then line-regex, then positional-fallback. Errata try table-first, then plain-regex. The first strategy producing a non-empty mapping wins.

**Examples:**
• "Extract answers from 2023_ans.pdf" → {"1": "A", "2": "C", ...}
• "Extract errata from 2023_mod.md with role modification"

**Best practices:** role is "answers" (default) or "modifications".`

	ExamProcessSetDescription = `Run the full pipeline for one exam set and store the validated artifact.

**When to use:** Produce the combined JSON for a set after recognizing it.

**Pipeline:** segment the question paper → convert and extract the answer key and errata → reconcile answers against the questions → validate → store and reload-validate.

**Examples:**
• "Process set 2023 in /data/physics"
• "Process every set in the folder" → call once per key from exam_recognize_sets

**Failures:** Incomplete answer coverage is a validation failure that names the missing question ids. Nothing is stored for a failed set.`

	ExamValidateFileDescription = `Check that a document can serve as a member of an exam set.

**When to use:** Before processing, or when a set fails with a missing or unreadable input.

**Checks:** File exists, has a supported extension (.pdf, .md, .txt, .xlsx), is not empty, is within the size limit, and PDFs open cleanly.`

	ExamServerInfoDescription = `Show server configuration, available tools and the documents in the exam folder.

**When to use:** First call in a new session to learn the exam and output folders, the size limit and the configured extraction policies.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"exam_recognize_sets":    ExamRecognizeSetsDescription,
	"exam_segment_questions": ExamSegmentQuestionsDescription,
	"exam_extract_answers":   ExamExtractAnswersDescription,
	"exam_process_set":       ExamProcessSetDescription,
	"exam_validate_file":     ExamValidateFileDescription,
	"exam_server_info":       ExamServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted list of all tool names
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
