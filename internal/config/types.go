// Package config resolves, parses, validates, and defaults vocode configuration.
package config

// Config is the fully materialized runtime configuration used by vocode.
type Config struct {
	LLM       LLMConfig
	Resolver  ResolverConfig
	Patterns  PatternsConfig
	Workspace WorkspaceConfig
	Feedback  FeedbackConfig
	Text      TextConfig
	Paste     PasteConfig
	Clipboard CommandConfig
	PasteCmd  CommandConfig
	Logging   LoggingConfig
}

// LLMConfig selects and tunes the language-model backend.
type LLMConfig struct {
	Provider          string  `key:"llm.provider" validate:"oneof=openai anthropic gemini"`
	Model             string  `key:"llm.model"`
	BaseURL           string  `key:"llm.base_url" validate:"omitempty,url"`
	TimeoutMS         int     `key:"llm.timeout_ms" validate:"gt=0"`
	MaxTokens         int     `key:"llm.max_tokens" validate:"gt=0"`
	Temperature       float64 `key:"llm.temperature" validate:"gte=0,lte=2"`
	RequestsPerSecond float64 `key:"llm.requests_per_second" validate:"gte=0"`
}

// ResolverConfig controls the command resolution stages.
type ResolverConfig struct {
	ConfidenceThreshold float64 `key:"resolver.confidence_threshold" validate:"gte=0,lte=1"`
	EnableLLMMatching   bool
	ClassifierTimeoutMS int `key:"resolver.classifier_timeout_ms" validate:"gt=0"`
	FuzzyTimeoutMS      int `key:"resolver.fuzzy_timeout_ms" validate:"gt=0"`
	ScriptTimeoutMS     int `key:"resolver.script_timeout_ms" validate:"gt=0"`
	// ActionTimeoutMS bounds model calls made while executing a decision (function location,
	// code generation, answers).
	ActionTimeoutMS int `key:"resolver.action_timeout_ms" validate:"gt=0"`
}

// PatternsConfig locates the user pattern file.
type PatternsConfig struct {
	File  string
	Watch bool
}

// WorkspaceConfig controls the headless editor workspace.
type WorkspaceConfig struct {
	Root string
}

// FeedbackConfig controls notifications, speech, and earcons.
type FeedbackConfig struct {
	Notifications  bool
	Backend        string `key:"feedback.backend" validate:"oneof=hypr desktop none"`
	DesktopAppName string
	ErrorTimeoutMS int `key:"feedback.error_timeout_ms" validate:"gte=0"`
	Speech         bool
	SpeakCmd       CommandConfig
	Sound          bool
}

// TextConfig controls how unresolved utterances are emitted as literal text.
type TextConfig struct {
	Sink          string `key:"text.sink" validate:"oneof=editor paste none"`
	Capitalize    bool
	TrailingSpace bool
}

// PasteConfig controls the default paste shortcut used by the paste sink.
type PasteConfig struct {
	Shortcut string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// LoggingConfig controls the runtime log file.
type LoggingConfig struct {
	Enable     bool
	Level      string `key:"logging.level" validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `key:"logging.max_size_mb" validate:"gt=0"`
	MaxBackups int    `key:"logging.max_backups" validate:"gte=0"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
