package classifier

import (
	"math"
	"strconv"
	"strings"

	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/editor"
)

// Intent converts an accepted classification into a command. ok is false when the
// parameters the category needs are missing or invalid.
func (r Result) Intent(utterance string) (command.Intent, bool) {
	switch r.Category {
	case command.CategoryNavigateToLine:
		line, ok := r.intParam("line")
		if !ok || line < 1 {
			return nil, false
		}
		return command.GoToLine{Line: line}, true
	case command.CategoryNavigateToFunction:
		name := r.stringParam("name")
		if name == "" {
			return nil, false
		}
		return command.GoToFunction{Name: name}, true
	case command.CategoryNavigateToVariable:
		name := r.stringParam("name")
		if name == "" {
			return nil, false
		}
		return command.GoToVariable{Name: name}, true
	case command.CategoryNavigateToParent:
		return command.GoToParent{}, true
	case command.CategoryRunScript:
		name := r.stringParam("name")
		if name == "" {
			return nil, false
		}
		return command.RunScript{Name: name}, true
	case command.CategoryOpenFile:
		name, kind := r.stringParam("name"), r.stringParam("type")
		if name == "" && kind == "" {
			return nil, false
		}
		return command.OpenFile{Name: name, Type: kind}, true
	case command.CategoryEditorAction:
		action, ok := editor.ParseAction(r.stringParam("action"))
		if !ok {
			return nil, false
		}
		return command.EditorOp{Action: action, Args: r.listParam("args")}, true
	case command.CategoryGenerateCode:
		request := r.stringParam("request")
		if request == "" {
			request = strings.TrimSpace(utterance)
		}
		return command.GenerateCode{Request: request}, true
	case command.CategoryAskQuestion:
		question := r.stringParam("question")
		if question == "" {
			question = strings.TrimSpace(utterance)
		}
		return command.AskQuestion{Question: question}, true
	default:
		return nil, false
	}
}

func (r Result) stringParam(name string) string {
	switch v := r.Parameters[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (r Result) intParam(name string) (int, bool) {
	switch v := r.Parameters[name].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (r Result) listParam(name string) []string {
	switch v := r.Parameters[name].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
