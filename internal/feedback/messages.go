package feedback

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
	localeKorean  locale = "ko"
)

type messages struct {
	thinking  string
	cancelled string
	errorText string
}

func messagesFromEnv() messages {
	return localizedMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "ko") {
		return localeKorean
	}
	return localeEnglish
}

func localizedMessages(tag locale) messages {
	switch tag {
	case localeKorean:
		return messages{
			thinking:  "생각 중…",
			cancelled: "취소됨",
			errorText: "명령 실패",
		}
	default:
		return messages{
			thinking:  "Thinking…",
			cancelled: "Cancelled",
			errorText: "Command failed",
		}
	}
}

// CancelledText is the localized notice shown when a resolution is stopped.
func CancelledText() string {
	return messagesFromEnv().cancelled
}
