package document

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
)

// kebabCase matches lowercase alphanumeric tokens joined by single hyphens.
var kebabCase = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate walks a generically decoded JSON value and collects every schema
// violation in one pass. It never stops at the first failure: the caller gets
// the full list and can fix the source document in a single round.
func Validate(doc any) Result {
	root, ok := doc.(map[string]any)
	if !ok {
		return Result{Violations: []Violation{{
			Path:    "$",
			Message: fmt.Sprintf("expected a JSON object at the top level, got %s", typeName(doc)),
		}}}
	}

	var v []Violation

	if id, ok := requireString(root, "id", &v); ok {
		if !kebabCase.MatchString(id) {
			v = append(v, Violation{Path: "id", Message: fmt.Sprintf("%q is not kebab-case", id)})
		}
	}

	if title, ok := requireString(root, "title", &v); ok && title == "" {
		v = append(v, Violation{Path: "title", Message: "must not be empty"})
	}

	// description may be empty but the key must exist
	requireString(root, "description", &v)

	if minutes, ok := requireInt(root, "durationMinutes", &v); ok && minutes < 1 {
		v = append(v, Violation{Path: "durationMinutes", Message: fmt.Sprintf("must be at least 1, got %d", minutes)})
	}

	raw, present := root["questions"]
	if !present {
		v = append(v, Violation{Path: "questions", Message: "missing required key"})
		return Result{Violations: v}
	}
	questions, ok := raw.([]any)
	if !ok {
		v = append(v, Violation{Path: "questions", Message: fmt.Sprintf("expected an array, got %s", typeName(raw))})
		return Result{Violations: v}
	}
	if len(questions) < MinQuestions {
		v = append(v, Violation{Path: "questions", Message: fmt.Sprintf("must contain at least %d questions, got %d", MinQuestions, len(questions))})
	}

	seenIDs := map[int][]int{} // question id -> positions
	for i, rawQ := range questions {
		path := fmt.Sprintf("questions[%d]", i)
		q, ok := rawQ.(map[string]any)
		if !ok {
			v = append(v, Violation{Path: path, Message: fmt.Sprintf("expected an object, got %s", typeName(rawQ))})
			continue
		}
		validateQuestion(q, path, &v, i, seenIDs)
	}

	for id, positions := range seenIDs {
		if len(positions) > 1 {
			v = append(v, Violation{
				Path:    "questions",
				Message: fmt.Sprintf("duplicate question id %d at positions %v", id, positions),
			})
		}
	}

	return Result{Violations: v}
}

func validateQuestion(q map[string]any, path string, v *[]Violation, pos int, seenIDs map[int][]int) {
	if id, ok := requireIntAt(q, "id", path, v); ok {
		seenIDs[id] = append(seenIDs[id], pos)
	}

	if text, ok := requireStringAt(q, "text", path, v); ok && text == "" {
		*v = append(*v, Violation{Path: path + ".text", Message: "must not be empty"})
	}

	requireStringAt(q, "hint", path, v)
	requireStringAt(q, "explanation", path, v)

	options := validateOptions(q, path, v)
	validateCorrectIndices(q, path, v, options)
}

// validateOptions returns the option count, or -1 when the field is unusable
// so that index-range checks are skipped rather than reported twice.
func validateOptions(q map[string]any, path string, v *[]Violation) int {
	raw, present := q["options"]
	if !present {
		*v = append(*v, Violation{Path: path + ".options", Message: "missing required key"})
		return -1
	}
	list, ok := raw.([]any)
	if !ok {
		*v = append(*v, Violation{Path: path + ".options", Message: fmt.Sprintf("expected an array, got %s", typeName(raw))})
		return -1
	}
	if len(list) < MinOptions {
		*v = append(*v, Violation{Path: path + ".options", Message: fmt.Sprintf("must contain at least %d options, got %d", MinOptions, len(list))})
	}
	seen := map[string]int{}
	for i, rawOpt := range list {
		optPath := fmt.Sprintf("%s.options[%d]", path, i)
		opt, ok := rawOpt.(string)
		if !ok {
			*v = append(*v, Violation{Path: optPath, Message: fmt.Sprintf("expected a string, got %s", typeName(rawOpt))})
			continue
		}
		if opt == "" {
			*v = append(*v, Violation{Path: optPath, Message: "must not be empty"})
			continue
		}
		if first, dup := seen[opt]; dup {
			*v = append(*v, Violation{Path: optPath, Message: fmt.Sprintf("duplicates options[%d]", first)})
			continue
		}
		seen[opt] = i
	}
	return len(list)
}

func validateCorrectIndices(q map[string]any, path string, v *[]Violation, optionCount int) {
	raw, present := q["correctIndices"]
	if !present {
		*v = append(*v, Violation{Path: path + ".correctIndices", Message: "missing required key"})
		return
	}
	list, ok := raw.([]any)
	if !ok {
		*v = append(*v, Violation{Path: path + ".correctIndices", Message: fmt.Sprintf("expected an array, got %s", typeName(raw))})
		return
	}
	if len(list) == 0 {
		*v = append(*v, Violation{Path: path + ".correctIndices", Message: "must not be empty"})
	}
	seen := map[int]bool{}
	for i, rawIdx := range list {
		idxPath := fmt.Sprintf("%s.correctIndices[%d]", path, i)
		idx, ok := asInt(rawIdx)
		if !ok {
			*v = append(*v, Violation{Path: idxPath, Message: fmt.Sprintf("expected an integer, got %s", typeName(rawIdx))})
			continue
		}
		if optionCount >= 0 && (idx < 0 || idx >= optionCount) {
			*v = append(*v, Violation{Path: idxPath, Message: fmt.Sprintf("index %d out of range for %d options", idx, optionCount)})
		}
		if seen[idx] {
			*v = append(*v, Violation{Path: idxPath, Message: fmt.Sprintf("duplicate index %d", idx)})
			continue
		}
		seen[idx] = true
	}
}

// Parse decodes raw JSON bytes, validates them, and returns the typed document
// when the validation passes. The error covers undecodable input only;
// schema problems live in the Result.
func Parse(data []byte) (QuizDocument, Result, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return QuizDocument{}, Result{}, fmt.Errorf("decode document: %w", err)
	}
	res := Validate(generic)
	if !res.Valid() {
		return QuizDocument{}, res, nil
	}
	var doc QuizDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return QuizDocument{}, res, fmt.Errorf("decode validated document: %w", err)
	}
	return doc, res, nil
}

func requireString(m map[string]any, key string, v *[]Violation) (string, bool) {
	raw, present := m[key]
	if !present {
		*v = append(*v, Violation{Path: key, Message: "missing required key"})
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		*v = append(*v, Violation{Path: key, Message: fmt.Sprintf("expected a string, got %s", typeName(raw))})
		return "", false
	}
	return s, true
}

func requireStringAt(m map[string]any, key, parent string, v *[]Violation) (string, bool) {
	raw, present := m[key]
	if !present {
		*v = append(*v, Violation{Path: parent + "." + key, Message: "missing required key"})
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		*v = append(*v, Violation{Path: parent + "." + key, Message: fmt.Sprintf("expected a string, got %s", typeName(raw))})
		return "", false
	}
	return s, true
}

func requireInt(m map[string]any, key string, v *[]Violation) (int, bool) {
	raw, present := m[key]
	if !present {
		*v = append(*v, Violation{Path: key, Message: "missing required key"})
		return 0, false
	}
	n, ok := asInt(raw)
	if !ok {
		*v = append(*v, Violation{Path: key, Message: fmt.Sprintf("expected an integer, got %s", typeName(raw))})
		return 0, false
	}
	return n, true
}

func requireIntAt(m map[string]any, key, parent string, v *[]Violation) (int, bool) {
	raw, present := m[key]
	if !present {
		*v = append(*v, Violation{Path: parent + "." + key, Message: "missing required key"})
		return 0, false
	}
	n, ok := asInt(raw)
	if !ok {
		*v = append(*v, Violation{Path: parent + "." + key, Message: fmt.Sprintf("expected an integer, got %s", typeName(raw))})
		return 0, false
	}
	return n, true
}

// asInt accepts the numeric shapes a generic JSON decode can produce.
// encoding/json yields float64; values built in Go may carry int or int64.
func asInt(raw any) (int, bool) {
	switch n := raw.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func typeName(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", raw)
	}
}
