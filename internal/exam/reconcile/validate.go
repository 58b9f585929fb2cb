package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// Validate checks the structure of an in-memory output.
func Validate(out *exam.CombinedOutput) error {
	if out == nil || len(out.Subjects) == 0 {
		return schemaError("no subjects")
	}
	for subject, sources := range out.Subjects {
		if len(sources) == 0 {
			return schemaError("subject %q has no sources", subject)
		}
		for source, questions := range sources {
			if len(questions) == 0 {
				return schemaError("%s/%s has no questions", subject, source)
			}
			for i, q := range questions {
				if q == nil {
					return schemaError("%s/%s[%d] is null", subject, source, i)
				}
				if !exam.IsLetter(q.Answer) {
					return schemaError("%s/%s question %d: answer %q is not A-D",
						subject, source, q.ID, q.Answer)
				}
				for key := range q.Options {
					if !exam.IsLetter(key) {
						return schemaError("%s/%s question %d: option key %q is not A-D",
							subject, source, q.ID, key)
					}
				}
			}
		}
	}
	return nil
}

// Valid reports whether out passes Validate.
func Valid(out *exam.CombinedOutput) bool {
	return Validate(out) == nil
}

// ValidateJSON checks a serialized artifact without relying on the Go types,
// so anything the encoder dropped or reshaped is caught.
func ValidateJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return schemaError("not valid JSON").Wrap(err)
	}

	top, ok := root.(map[string]interface{})
	if !ok {
		return schemaError("top level is not an object")
	}
	subjects, ok := top["subjects"].(map[string]interface{})
	if !ok || len(subjects) == 0 {
		return schemaError("subjects missing or empty")
	}
	for subject, rawSources := range subjects {
		sources, ok := rawSources.(map[string]interface{})
		if !ok || len(sources) == 0 {
			return schemaError("subject %q has no sources", subject)
		}
		for source, rawList := range sources {
			list, ok := rawList.([]interface{})
			if !ok || len(list) == 0 {
				return schemaError("%s/%s has no questions", subject, source)
			}
			for i, rawQ := range list {
				if err := validateQuestion(rawQ); err != nil {
					return schemaError("%s/%s[%d]: %s", subject, source, i, err)
				}
			}
		}
	}
	return nil
}

func validateQuestion(raw interface{}) error {
	q, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("question is not an object")
	}

	id, ok := q["id"].(json.Number)
	if !ok {
		return fmt.Errorf("id missing or not a number")
	}
	if _, err := id.Int64(); err != nil || strings.ContainsAny(id.String(), ".eE") {
		return fmt.Errorf("id %s is not an integer", id)
	}
	if _, ok := q["question"].(string); !ok {
		return fmt.Errorf("question text missing or not a string")
	}
	answer, ok := q["answer"].(string)
	if !ok {
		return fmt.Errorf("answer missing")
	}
	if !exam.IsLetter(answer) {
		return fmt.Errorf("answer %q is not A-D", answer)
	}

	if raw, present := q["options"]; present && raw != nil {
		options, ok := raw.(map[string]interface{})
		if !ok {
			return fmt.Errorf("options is not a mapping")
		}
		for k, v := range options {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("option %s is not a string", k)
			}
		}
	}
	if raw, present := q["images"]; present && raw != nil {
		images, ok := raw.([]interface{})
		if !ok {
			return fmt.Errorf("images is not a list")
		}
		for i, v := range images {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("image %d is not a string", i)
			}
		}
	}
	if raw, present := q["modification"]; present && raw != nil {
		if _, ok := raw.(string); !ok {
			return fmt.Errorf("modification is not a string")
		}
	}
	return nil
}

// Marshal renders the artifact in its persisted form.
func Marshal(out *exam.CombinedOutput) ([]byte, error) {
	return json.MarshalIndent(out, "", "  ")
}

// RoundTrip validates out, serializes it, and validates the reloaded form.
// A failure after serialization is a RoundtripMismatch.
func RoundTrip(out *exam.CombinedOutput) ([]byte, error) {
	if err := Validate(out); err != nil {
		return nil, err
	}
	data, err := Marshal(out)
	if err != nil {
		return nil, exam.NewError(exam.ErrorTypeRoundtripMismatch, "serialization failed").Wrap(err)
	}
	if err := CheckReloaded(data); err != nil {
		return nil, err
	}
	return data, nil
}

// CheckReloaded validates bytes read back from a sink, both structurally and
// through the typed model.
func CheckReloaded(data []byte) error {
	if err := ValidateJSON(data); err != nil {
		return exam.NewError(exam.ErrorTypeRoundtripMismatch, "reloaded artifact is invalid").Wrap(err)
	}
	var back exam.CombinedOutput
	if err := json.Unmarshal(data, &back); err != nil {
		return exam.NewError(exam.ErrorTypeRoundtripMismatch, "reloaded artifact does not decode").Wrap(err)
	}
	if err := Validate(&back); err != nil {
		return exam.NewError(exam.ErrorTypeRoundtripMismatch, "reloaded artifact is invalid").Wrap(err)
	}
	return nil
}

func schemaError(format string, args ...interface{}) *exam.Error {
	return exam.NewError(exam.ErrorTypeSchemaViolation, format, args...)
}
