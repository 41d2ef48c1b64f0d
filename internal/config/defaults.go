package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"
	speak := "espeak-ng"

	return Config{
		LLM: LLMConfig{
			Provider:          "openai",
			TimeoutMS:         8000,
			MaxTokens:         512,
			Temperature:       0,
			RequestsPerSecond: 2,
		},
		Resolver: ResolverConfig{
			ConfidenceThreshold: 0.7,
			EnableLLMMatching:   true,
			ClassifierTimeoutMS: 4000,
			FuzzyTimeoutMS:      4000,
			ScriptTimeoutMS:     4000,
			ActionTimeoutMS:     15000,
		},
		Patterns: PatternsConfig{Watch: true},
		Feedback: FeedbackConfig{
			Notifications:  true,
			Backend:        "hypr",
			DesktopAppName: "vocode",
			ErrorTimeoutMS: 1600,
			Speech:         false,
			SpeakCmd:       CommandConfig{Raw: speak, Argv: mustParseArgv(speak)},
			Sound:          true,
		},
		Text: TextConfig{
			Sink:       "editor",
			Capitalize: true,
		},
		Paste:     PasteConfig{Shortcut: "CTRL,V"},
		Clipboard: CommandConfig{Raw: clipboard, Argv: mustParseArgv(clipboard)},
		Logging: LoggingConfig{
			Enable:     true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
