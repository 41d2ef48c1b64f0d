package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	structCheck  *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		structCheck = validator.New(validator.WithRequiredStructEnabled())
		structCheck.RegisterTagNameFunc(func(field reflect.StructField) string {
			if key := field.Tag.Get("key"); key != "" {
				return key
			}
			return field.Name
		})
	})
	return structCheck
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if err := structValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, describeFieldError(fieldErrs[0])
		}
		return nil, err
	}

	if cfg.Feedback.Backend == "desktop" && strings.TrimSpace(cfg.Feedback.DesktopAppName) == "" {
		return nil, fmt.Errorf("feedback.desktop_app_name must not be empty when feedback.backend=desktop")
	}
	if cfg.Feedback.Speech && len(cfg.Feedback.SpeakCmd.Argv) == 0 {
		return nil, fmt.Errorf("feedback.speak_cmd must not be empty when feedback.speech=true")
	}
	if len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd must not be empty")
	}

	if cfg.Text.Sink == "paste" {
		if cfg.PasteCmd.Raw != "" && len(cfg.PasteCmd.Argv) == 0 {
			return nil, fmt.Errorf("paste_cmd is configured but empty")
		}
		if len(cfg.PasteCmd.Argv) == 0 && strings.TrimSpace(cfg.Paste.Shortcut) == "" {
			return nil, fmt.Errorf("paste.shortcut must not be empty when text.sink=paste and paste_cmd is unset")
		}
	}

	if cfg.Resolver.ConfidenceThreshold < 0.5 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("resolver.confidence_threshold=%.2f accepts weak classifications", cfg.Resolver.ConfidenceThreshold)})
	}
	if !cfg.Resolver.EnableLLMMatching {
		warnings = append(warnings, Warning{Message: "resolver.enable_llm_matching=false; fuzzy and script stages are disabled"})
	}

	return warnings, nil
}

func describeFieldError(fe validator.FieldError) error {
	field := fe.Field()
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Errorf("%s must be > %s", field, fe.Param())
	case "gte":
		return fmt.Errorf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Errorf("%s must be <= %s", field, fe.Param())
	case "url":
		return fmt.Errorf("%s must be a valid URL", field)
	default:
		return fmt.Errorf("%s failed %q validation", field, fe.Tag())
	}
}
