package patterns

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	Patterns []Rule `yaml:"patterns"`
}

// Rule is the serialized form of a user pattern, shared by the YAML file and the daemon's
// patterns.add command.
type Rule struct {
	Description    string   `yaml:"description" json:"description,omitempty"`
	Match          string   `yaml:"match" json:"match,omitempty"`
	Regex          string   `yaml:"regex" json:"regex,omitempty"`
	Action         string   `yaml:"action" json:"action,omitempty"`
	Args           []string `yaml:"args" json:"args,omitempty"`
	InsertText     string   `yaml:"insert_text" json:"insert_text,omitempty"`
	PreventDefault *bool    `yaml:"prevent_default" json:"prevent_default,omitempty"`
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// LoadFile reads user rules from a YAML file. A missing file yields no rules.
func LoadFile(path string) ([]Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read patterns %q: %w", path, err)
	}
	list, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("parse patterns %q: %w", path, err)
	}
	return list, nil
}

// ParseFile decodes the YAML rule document.
//
//	patterns:
//	  - match: "ship it"
//	    action: save_all
//	  - regex: "indent (\\d+) times"
//	    action: indent
//	    args: ["$1"]
//	  - match: "sign off"
//	    insert_text: "// reviewed"
func ParseFile(data []byte) ([]Pattern, error) {
	var doc fileDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]Pattern, 0, len(doc.Patterns))
	for i, rule := range doc.Patterns {
		p, err := rule.Pattern()
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i+1, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Pattern validates the rule and builds the pattern it describes.
func (r Rule) Pattern() (Pattern, error) {
	hasMatch, hasRegex := strings.TrimSpace(r.Match) != "", strings.TrimSpace(r.Regex) != ""
	if hasMatch == hasRegex {
		return Pattern{}, fmt.Errorf("%w: exactly one of match or regex is required", ErrInvalidPattern)
	}

	var matcher Matcher
	if hasMatch {
		matcher = Literal(r.Match)
	} else {
		m, err := Regex(r.Regex)
		if err != nil {
			return Pattern{}, err
		}
		matcher = m
	}

	action := strings.TrimSpace(r.Action)
	if r.InsertText != "" {
		if action != "" {
			return Pattern{}, fmt.Errorf("%w: action and insert_text are exclusive", ErrInvalidPattern)
		}
		action = "insert_text"
	}

	p := Pattern{
		Description:    strings.TrimSpace(r.Description),
		Matcher:        matcher,
		Action:         action,
		InsertText:     r.InsertText,
		PreventDefault: true,
		Source:         SourceUser,
	}
	if r.PreventDefault != nil {
		p.PreventDefault = *r.PreventDefault
	}
	if len(r.Args) > 0 {
		p.Extract = templateExtractor(r.Args)
		p.NeedsCaptures = referencesGroups(r.Args)
	}
	if p.Description == "" {
		p.Description = "user rule"
	}
	return p, p.Validate()
}

// referencesGroups reports whether any argument uses $1 or a later group.
func referencesGroups(args []string) bool {
	for _, arg := range args {
		for _, ref := range placeholder.FindAllString(arg, -1) {
			if n, _ := strconv.Atoi(ref[1:]); n > 0 {
				return true
			}
		}
	}
	return false
}

// templateExtractor expands $N references to capture groups.
func templateExtractor(args []string) func(Captures) ([]string, error) {
	template := append([]string(nil), args...)
	return func(c Captures) ([]string, error) {
		out := make([]string, 0, len(template))
		for _, arg := range template {
			var missing error
			expanded := placeholder.ReplaceAllStringFunc(arg, func(ref string) string {
				n, _ := strconv.Atoi(ref[1:])
				if n >= len(c) {
					missing = fmt.Errorf("argument %q references missing group %d", arg, n)
					return ""
				}
				return c[n]
			})
			if missing != nil {
				return nil, missing
			}
			out = append(out, expanded)
		}
		return out, nil
	}
}
