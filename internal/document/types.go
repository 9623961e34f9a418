package document

// MinQuestions is the smallest question count a publishable document may carry.
const MinQuestions = 5

// MinOptions is the smallest option count a single question may carry.
const MinOptions = 2

// QuizDocument is the typed form of a lesson quiz, available once a raw
// document has passed validation.
type QuizDocument struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"durationMinutes"`
	Questions       []Question `json:"questions"`
}

// Question is a single multiple-choice entry.
type Question struct {
	ID             int      `json:"id"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	CorrectIndices []int    `json:"correctIndices"`
	Hint           string   `json:"hint"`
	Explanation    string   `json:"explanation"`
}

// Violation reports one schema non-conformance, localized by a
// dotted/bracketed path such as questions[2].correctIndices[0].
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result carries the outcome of a validation pass. An empty violation list
// means the document conforms.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Valid reports whether the document passed every check.
func (r Result) Valid() bool {
	return len(r.Violations) == 0
}
