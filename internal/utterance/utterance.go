// Package utterance cleans recognizer output before matching and formats literal text.
package utterance

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// bracketed recognizer annotations such as [BLANK_AUDIO] or (music).
	annotationPattern = regexp.MustCompile(`\[[^\]]*\]|\((?i:music|applause|laughter|silence|inaudible)\)`)
	fillerPattern     = regexp.MustCompile(`(?i)(^|\s)(?:um+|uh+|erm+|hmm+|mm+)(?:[,.]|\s|$)`)
	politePattern     = regexp.MustCompile(`(?i)^(?:please|okay|ok|hey)[,\s]+|[,\s]+please$`)

	pronounIContraction = regexp.MustCompile(`\bi['’](?:m|d|ll|ve|re|s)\b`)
	pronounIWord        = regexp.MustCompile(`\bi\b`)
)

// hallucinations are phrases recognizers emit on silence. An utterance containing one is
// dropped whole.
var hallucinations = []string{
	"thanks for watching",
	"thank you for watching",
	"please like and subscribe",
	"don't forget to subscribe",
	"see you in the next video",
	"subtitles by",
	"captions by",
	"시청해주셔서 감사합니다",
	"구독과 좋아요 부탁드립니다",
	"자막은 설정에서 선택하실 수 있습니다",
	"다음 영상에서 만나요",
}

const maxUtteranceRunes = 1000

// Normalize prepares an utterance for command matching. It returns "" when nothing but
// recognizer noise remains.
func Normalize(raw string) string {
	text := annotationPattern.ReplaceAllString(raw, " ")
	text = strings.Join(strings.Fields(text), " ")

	for {
		next := fillerPattern.ReplaceAllString(text, "$1")
		next = strings.Join(strings.Fields(next), " ")
		if next == text {
			break
		}
		text = next
	}
	text = strings.TrimRight(text, ".!?,;: ")
	text = politePattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(strings.TrimRight(text, ".!?,;: "))

	if text == "" || len([]rune(text)) > maxUtteranceRunes {
		return ""
	}
	lower := strings.ToLower(text)
	for _, phrase := range hallucinations {
		if strings.Contains(lower, phrase) {
			return ""
		}
	}
	return collapseRepeats(text)
}

// collapseRepeats keeps one copy of a word repeated three or more times in a row.
func collapseRepeats(text string) string {
	words := strings.Fields(text)
	if len(words) < 3 {
		return text
	}
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		j := i + 1
		for j < len(words) && strings.EqualFold(words[j], words[i]) {
			j++
		}
		if j-i >= 3 {
			out = append(out, words[i])
		} else {
			out = append(out, words[i:j]...)
		}
		i = j
	}
	return strings.Join(out, " ")
}

// Options controls literal text formatting.
type Options struct {
	Capitalize    bool
	TrailingSpace bool
}

// Format turns an unresolved utterance into text for insertion.
func Format(text string, opts Options) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	if opts.Capitalize {
		text = capitalizeSentences(text)
		text = pronounIContraction.ReplaceAllStringFunc(text, func(match string) string {
			return "I" + match[1:]
		})
		text = pronounIWord.ReplaceAllString(text, "I")
	}
	if opts.TrailingSpace {
		return text + " "
	}
	return text
}

func capitalizeSentences(text string) string {
	runes := []rune(text)
	start := true
	for i, r := range runes {
		switch {
		case start && unicode.IsLetter(r):
			runes[i] = unicode.ToUpper(r)
			start = false
		case start && unicode.IsDigit(r):
			start = false
		case r == '.' || r == '!' || r == '?':
			// "3.5" and "main.go" are not sentence ends.
			start = i+1 < len(runes) && unicode.IsSpace(runes[i+1])
		}
	}
	return string(runes)
}
