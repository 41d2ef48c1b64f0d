package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	LLM       *jsoncLLM       `json:"llm"`
	Resolver  *jsoncResolver  `json:"resolver"`
	Patterns  *jsoncPatterns  `json:"patterns"`
	Workspace *jsoncWorkspace `json:"workspace"`
	Feedback  *jsoncFeedback  `json:"feedback"`
	Text      *jsoncText      `json:"text"`
	Paste     *jsoncPaste     `json:"paste"`
	Logging   *jsoncLogging   `json:"logging"`

	ClipboardCmd *string `json:"clipboard_cmd"`
	PasteCmd     *string `json:"paste_cmd"`
}

type jsoncLLM struct {
	Provider          *string  `json:"provider"`
	Model             *string  `json:"model"`
	BaseURL           *string  `json:"base_url"`
	TimeoutMS         *int     `json:"timeout_ms"`
	MaxTokens         *int     `json:"max_tokens"`
	Temperature       *float64 `json:"temperature"`
	RequestsPerSecond *float64 `json:"requests_per_second"`
}

type jsoncResolver struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
	EnableLLMMatching   *bool    `json:"enable_llm_matching"`
	ClassifierTimeoutMS *int     `json:"classifier_timeout_ms"`
	FuzzyTimeoutMS      *int     `json:"fuzzy_timeout_ms"`
	ScriptTimeoutMS     *int     `json:"script_timeout_ms"`
	ActionTimeoutMS     *int     `json:"action_timeout_ms"`
}

type jsoncPatterns struct {
	File  *string `json:"file"`
	Watch *bool   `json:"watch"`
}

type jsoncWorkspace struct {
	Root *string `json:"root"`
}

type jsoncFeedback struct {
	Notifications  *bool   `json:"notifications"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
	Speech         *bool   `json:"speech"`
	SpeakCmd       *string `json:"speak_cmd"`
	Sound          *bool   `json:"sound"`
}

type jsoncText struct {
	Sink          *string `json:"sink"`
	Capitalize    *bool   `json:"capitalize"`
	TrailingSpace *bool   `json:"trailing_space"`
}

type jsoncPaste struct {
	Shortcut *string `json:"shortcut"`
}

type jsoncLogging struct {
	Enable     *bool   `json:"enable"`
	Level      *string `json:"level"`
	MaxSizeMB  *int    `json:"max_size_mb"`
	MaxBackups *int    `json:"max_backups"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if l := payload.LLM; l != nil {
		setLower(&cfg.LLM.Provider, l.Provider)
		setTrimmed(&cfg.LLM.Model, l.Model)
		setTrimmed(&cfg.LLM.BaseURL, l.BaseURL)
		set(&cfg.LLM.TimeoutMS, l.TimeoutMS)
		set(&cfg.LLM.MaxTokens, l.MaxTokens)
		set(&cfg.LLM.Temperature, l.Temperature)
		set(&cfg.LLM.RequestsPerSecond, l.RequestsPerSecond)
	}

	if r := payload.Resolver; r != nil {
		set(&cfg.Resolver.ConfidenceThreshold, r.ConfidenceThreshold)
		set(&cfg.Resolver.EnableLLMMatching, r.EnableLLMMatching)
		set(&cfg.Resolver.ClassifierTimeoutMS, r.ClassifierTimeoutMS)
		set(&cfg.Resolver.FuzzyTimeoutMS, r.FuzzyTimeoutMS)
		set(&cfg.Resolver.ScriptTimeoutMS, r.ScriptTimeoutMS)
		set(&cfg.Resolver.ActionTimeoutMS, r.ActionTimeoutMS)
	}

	if p := payload.Patterns; p != nil {
		setTrimmed(&cfg.Patterns.File, p.File)
		set(&cfg.Patterns.Watch, p.Watch)
	}

	if payload.Workspace != nil {
		setTrimmed(&cfg.Workspace.Root, payload.Workspace.Root)
	}

	if f := payload.Feedback; f != nil {
		set(&cfg.Feedback.Notifications, f.Notifications)
		setLower(&cfg.Feedback.Backend, f.Backend)
		setTrimmed(&cfg.Feedback.DesktopAppName, f.DesktopAppName)
		set(&cfg.Feedback.ErrorTimeoutMS, f.ErrorTimeoutMS)
		set(&cfg.Feedback.Speech, f.Speech)
		set(&cfg.Feedback.Sound, f.Sound)
		if f.SpeakCmd != nil {
			argv, err := parseArgv(*f.SpeakCmd)
			if err != nil {
				return fmt.Errorf("invalid feedback.speak_cmd: %w", err)
			}
			cfg.Feedback.SpeakCmd = CommandConfig{Raw: *f.SpeakCmd, Argv: argv}
		}
	}

	if t := payload.Text; t != nil {
		setLower(&cfg.Text.Sink, t.Sink)
		set(&cfg.Text.Capitalize, t.Capitalize)
		set(&cfg.Text.TrailingSpace, t.TrailingSpace)
	}

	if payload.Paste != nil {
		setTrimmed(&cfg.Paste.Shortcut, payload.Paste.Shortcut)
	}

	if l := payload.Logging; l != nil {
		set(&cfg.Logging.Enable, l.Enable)
		setLower(&cfg.Logging.Level, l.Level)
		set(&cfg.Logging.MaxSizeMB, l.MaxSizeMB)
		set(&cfg.Logging.MaxBackups, l.MaxBackups)
	}

	if payload.ClipboardCmd != nil {
		raw := *payload.ClipboardCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.PasteCmd != nil {
		raw := *payload.PasteCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return fmt.Errorf("invalid paste_cmd: %w", err)
		}
		cfg.PasteCmd = CommandConfig{Raw: raw, Argv: argv}
	}

	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setLower(dst *string, src *string) {
	if src != nil {
		*dst = strings.ToLower(strings.TrimSpace(*src))
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
