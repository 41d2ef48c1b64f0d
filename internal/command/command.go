// Package command holds the closed command taxonomy and dispatch results.
package command

import "github.com/rbright/vocode/internal/editor"

// Category is one member of the fixed classification taxonomy.
type Category string

const (
	CategoryNavigateToLine     Category = "navigate_to_line"
	CategoryNavigateToFunction Category = "navigate_to_function"
	CategoryNavigateToVariable Category = "navigate_to_variable"
	CategoryNavigateToParent   Category = "navigate_to_parent"
	CategoryRunScript          Category = "run_script"
	CategoryOpenFile           Category = "open_file"
	CategoryEditorAction       Category = "editor_action"
	CategoryGenerateCode       Category = "generate_code"
	CategoryAskQuestion        Category = "ask_question"
	CategoryNone               Category = "none"
)

var categories = []Category{
	CategoryNavigateToLine,
	CategoryNavigateToFunction,
	CategoryNavigateToVariable,
	CategoryNavigateToParent,
	CategoryRunScript,
	CategoryOpenFile,
	CategoryEditorAction,
	CategoryGenerateCode,
	CategoryAskQuestion,
	CategoryNone,
}

// Categories returns the taxonomy in prompt order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory validates a raw category name.
func ParseCategory(raw string) (Category, bool) {
	for _, c := range categories {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

// Intent is a resolved command. The set of implementations is closed.
type Intent interface {
	Category() Category
	sealed()
}

// GoToLine moves the cursor to a 1-indexed line.
type GoToLine struct{ Line int }

// GoToFunction navigates to a function or method by name.
type GoToFunction struct{ Name string }

// GoToVariable navigates to a variable declaration by name.
type GoToVariable struct{ Name string }

// GoToParent navigates to the scope enclosing the cursor's innermost symbol.
type GoToParent struct{}

// RunScript runs a named project task.
type RunScript struct{ Name string }

// OpenFile opens a workspace file by name or by a spoken file-type alias.
type OpenFile struct {
	Name string
	Type string
}

// EditorOp runs one editor-native action.
type EditorOp struct {
	Action editor.Action
	Args   []string
}

// GenerateCode hands a request to the code-generation collaborator.
type GenerateCode struct{ Request string }

// AskQuestion hands a question to the Q&A collaborator.
type AskQuestion struct{ Question string }

func (GoToLine) Category() Category     { return CategoryNavigateToLine }
func (GoToFunction) Category() Category { return CategoryNavigateToFunction }
func (GoToVariable) Category() Category { return CategoryNavigateToVariable }
func (GoToParent) Category() Category   { return CategoryNavigateToParent }
func (RunScript) Category() Category    { return CategoryRunScript }
func (OpenFile) Category() Category     { return CategoryOpenFile }
func (EditorOp) Category() Category     { return CategoryEditorAction }
func (GenerateCode) Category() Category { return CategoryGenerateCode }
func (AskQuestion) Category() Category  { return CategoryAskQuestion }

func (GoToLine) sealed()     {}
func (GoToFunction) sealed() {}
func (GoToVariable) sealed() {}
func (GoToParent) sealed()   {}
func (RunScript) sealed()    {}
func (OpenFile) sealed()     {}
func (EditorOp) sealed()     {}
func (GenerateCode) sealed() {}
func (AskQuestion) sealed()  {}
