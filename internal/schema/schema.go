// Package schema holds the static page/question tree the survey renders.
// The sync core consumes only the page count and question ids; rendering
// and visibility evaluation happen in the client views.
package schema

// QuestionType enumerates the supported widget kinds.
type QuestionType string

const (
	TypeText       QuestionType = "text"
	TypeEmail      QuestionType = "email"
	TypePhone      QuestionType = "phone"
	TypeNumber     QuestionType = "number"
	TypeYesNo      QuestionType = "yesno"
	TypeSingle     QuestionType = "single"
	TypeMulti      QuestionType = "multi"
	TypeGroup      QuestionType = "group"
	TypeRepeatable QuestionType = "repeatable"
)

// Question describes one entry on a page. Group and repeatable questions
// nest further questions under Fields. ShowIf is a declarative visibility
// predicate keyed to another question's value; it is served to clients
// verbatim, never evaluated here.
type Question struct {
	ID       string            `json:"id"`
	Type     QuestionType      `json:"type"`
	Label    string            `json:"label"`
	Required bool              `json:"required,omitempty"`
	Options  []string          `json:"options,omitempty"`
	Fields   []Question        `json:"fields,omitempty"`
	ShowIf   map[string]string `json:"showIf,omitempty"`
}

// Page is one screen of the questionnaire.
type Page struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// PageCount returns the number of pages in the static survey.
func PageCount() int {
	return len(Pages)
}

// ClampPage bounds a page index into [0, PageCount). Page navigation is
// clamped by callers before hitting the mutation facade, which performs no
// clamping of its own.
func ClampPage(i int) int {
	if i < 0 {
		return 0
	}
	if max := PageCount() - 1; i > max {
		return max
	}
	return i
}
